package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"github.com/user/listkeeper/apperror"
	"github.com/user/listkeeper/background"
	"github.com/user/listkeeper/config"
	"github.com/user/listkeeper/store"
)

// accountsKey is the store key of the credentials document, a JSON object
// mapping username to password hash.
const accountsKey = "accounts"

// legacyHashPattern matches the legacy scheme: an unsalted hex-encoded
// SHA-256 digest. bcrypt hashes start with "$2" and never match.
var legacyHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Service implements registration and login over the credentials document.
type Service struct {
	store  store.Store
	cfg    *config.AuthConfig
	runner *background.Runner
}

// NewService creates an auth service. The runner executes legacy hash
// upgrades off the login path.
func NewService(st store.Store, cfg *config.AuthConfig, runner *background.Runner) *Service {
	return &Service{
		store:  st,
		cfg:    cfg,
		runner: runner,
	}
}

// Register creates an account and returns a fresh session. The username
// must be unused.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*SessionResponse, error) {
	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if _, exists := accounts[req.Username]; exists {
		return nil, apperror.NewConflictError("username already taken", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.NewInternalError("failed to hash password", err)
	}
	accounts[req.Username] = string(hashed)
	if err := s.saveAccounts(ctx, accounts); err != nil {
		return nil, err
	}

	return s.newSession(req.Username)
}

// Login verifies credentials and returns a fresh session. Both unknown
// usernames and wrong passwords produce the same error, so a caller cannot
// probe which usernames exist.
//
// Two hash schemes are accepted: bcrypt, and a legacy unsalted SHA-256
// scheme kept for accounts that predate it. A successful legacy login
// schedules a background upgrade of the stored hash to bcrypt.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*SessionResponse, error) {
	accounts, err := s.loadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	storedHash, ok := accounts[req.Username]
	if !ok {
		return nil, apperror.NewAuthError("invalid credentials", nil)
	}

	if isLegacyHash(storedHash) {
		if !legacyHashMatches(storedHash, req.Password) {
			return nil, apperror.NewAuthError("invalid credentials", nil)
		}
		s.scheduleRehash(req.Username, req.Password, storedHash)
	} else if bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(req.Password)) != nil {
		return nil, apperror.NewAuthError("invalid credentials", nil)
	}

	return s.newSession(req.Username)
}

func (s *Service) newSession(username string) (*SessionResponse, error) {
	token, err := IssueToken(s.cfg, username)
	if err != nil {
		return nil, apperror.NewInternalError("failed to issue session token", err)
	}
	return &SessionResponse{Token: token, Username: username}, nil
}

// scheduleRehash upgrades a verified legacy hash to bcrypt without blocking
// the login response. A failure is logged by the runner and never surfaced
// to the caller.
func (s *Service) scheduleRehash(username, password, verifiedHash string) {
	s.runner.Submit(background.Task{
		Name: "rehash password for " + username,
		Run: func(ctx context.Context) error {
			hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hashing password: %w", err)
			}
			accounts, err := s.loadAccounts(ctx)
			if err != nil {
				return err
			}
			// Upgrade only if the account still holds the hash the login
			// verified; any concurrent change wins.
			if current, ok := accounts[username]; !ok || current != verifiedHash {
				return nil
			}
			accounts[username] = string(hashed)
			return s.saveAccounts(ctx, accounts)
		},
	})
}

func isLegacyHash(hash string) bool {
	return legacyHashPattern.MatchString(hash)
}

func legacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func legacyHashMatches(stored, password string) bool {
	computed := legacyHash(password)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(computed)) == 1
}

// --- Store helpers ---

func (s *Service) loadAccounts(ctx context.Context) (map[string]string, error) {
	data, err := s.store.Get(ctx, accountsKey)
	if errors.Is(err, store.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to load accounts", err)
	}
	var accounts map[string]string
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, apperror.NewInternalError("failed to decode accounts", err)
	}
	if accounts == nil {
		accounts = map[string]string{}
	}
	return accounts, nil
}

func (s *Service) saveAccounts(ctx context.Context, accounts map[string]string) error {
	data, err := json.Marshal(accounts)
	if err != nil {
		return apperror.NewInternalError("failed to encode accounts", err)
	}
	if err := s.store.Put(ctx, accountsKey, data); err != nil {
		return apperror.NewDatabaseError("failed to save accounts", err)
	}
	return nil
}
