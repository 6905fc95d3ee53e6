package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/listkeeper/config"
)

// tokenIssuer is the iss claim stamped into every session token.
const tokenIssuer = "listkeeper"

// Claims is the payload of a session token. Sessions are stateless: the
// token carries the username and expiry, and verification needs only the
// signing key. There is no refresh mechanism; an expired token forces a
// fresh login.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// IssueToken signs a session token for username, valid for the configured
// token duration.
func IssueToken(cfg *config.AuthConfig, username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses a session token, checks its signature and expiry, and
// returns its claims.
func VerifyToken(cfg *config.AuthConfig, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is invalid")
	}
	if claims.Username == "" {
		return nil, errors.New("token is missing the username claim")
	}
	return claims, nil
}
