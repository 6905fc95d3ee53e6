// Package config loads and validates application configuration from
// environment variables. Loading collects every problem it finds and reports
// them together, so a misconfigured deployment fails once with a full list
// instead of one variable at a time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable via STORE_BACKEND.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// PoolConfig holds connection settings for a Postgres pool.
type PoolConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxSize  int
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	JWTSecret     string        // Secret key for signing session tokens
	TokenDuration time.Duration // Lifetime of issued session tokens
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string   // Port the HTTP server listens on
	AllowedOrigins []string // Origins allowed by the CORS middleware
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend        string      // BackendFile or BackendPostgres
	DataDir        string      // Directory for the file backend
	Postgres       *PoolConfig // Set only when Backend is BackendPostgres
	RunMigrations  bool        // Run pending store migrations on startup
	MigrationsPath string      // Directory containing migration files
}

// RateLimitConfig bounds authentication attempts per client.
type RateLimitConfig struct {
	Attempts int           // Requests allowed per window
	Window   time.Duration // Length of the sliding window
}

// AppConfig is the top-level configuration for the application.
type AppConfig struct {
	Auth      *AuthConfig
	Server    *ServerConfig
	Store     *StoreConfig
	RateLimit *RateLimitConfig
}

// getRequiredEnv reads a required variable, collecting an error if it is
// missing.
func getRequiredEnv(key string, errors *[]string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		*errors = append(*errors, fmt.Sprintf("missing required environment variable: %s", key))
		return ""
	}
	return value
}

// getOptionalEnv reads a variable, falling back to defaultValue when unset.
func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getOptionalEnvInt reads a variable as an integer. A value that fails to
// parse is collected as an error and the default is used.
func getOptionalEnvInt(key string, defaultValue int, errors *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

// getOptionalEnvBool reads a variable as a boolean ("true", "1", "false",
// "0", ...). A value that fails to parse is collected as an error and the
// default is used.
func getOptionalEnvBool(key string, defaultValue bool, errors *[]string) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueBool, err := strconv.ParseBool(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected boolean, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueBool
}

// getOptionalEnvDuration reads a variable as a time.Duration string such as
// "15m" or "24h". A value that fails to parse is collected as an error and
// the default is used.
func getOptionalEnvDuration(key string, defaultValue time.Duration, errors *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueDuration
}

// validatePoolSize checks a pool size is within sane bounds, collecting an
// error and clamping when it is not.
func validatePoolSize(size int, varName string, errors *[]string) int {
	if size < 1 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is less than minimum 1, clamping to 1", varName, size))
		return 1
	}
	if size > 100 {
		*errors = append(*errors, fmt.Sprintf("pool size for %s (%d) is greater than maximum 100, clamping to 100", varName, size))
		return 100
	}
	return size
}

// parseOrigins splits a comma-separated origin list, trimming whitespace and
// dropping empty entries.
func parseOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// LoadConfig reads and validates all configuration from the environment.
// Every error found is collected and returned as one aggregated error.
func LoadConfig() (*AppConfig, error) {
	var errors []string

	// Auth
	jwtSecret := getRequiredEnv("JWT_SECRET", &errors)
	tokenDuration := getOptionalEnvDuration("TOKEN_DURATION", 24*time.Hour, &errors)
	authConfig := &AuthConfig{
		JWTSecret:     jwtSecret,
		TokenDuration: tokenDuration,
	}

	// Server
	serverConfig := &ServerConfig{
		Port:           getOptionalEnv("PORT", "8080"),
		AllowedOrigins: parseOrigins(getOptionalEnv("ALLOWED_ORIGINS", "*")),
	}

	// Store
	backend := getOptionalEnv("STORE_BACKEND", BackendFile)
	storeConfig := &StoreConfig{
		Backend:        backend,
		DataDir:        getOptionalEnv("DATA_DIR", "./data"),
		RunMigrations:  getOptionalEnvBool("RUN_MIGRATIONS", false, &errors),
		MigrationsPath: getOptionalEnv("MIGRATIONS_PATH", "./store/migrations"),
	}
	switch backend {
	case BackendFile:
		// Nothing beyond DataDir.
	case BackendPostgres:
		// Connection settings are only required when the Postgres backend
		// is selected.
		poolSize := getOptionalEnvInt("DB_POOL_SIZE", 10, &errors)
		storeConfig.Postgres = &PoolConfig{
			Host:     getOptionalEnv("DB_HOST", "localhost"),
			Port:     getOptionalEnvInt("DB_PORT", 5432, &errors),
			User:     getRequiredEnv("DB_USER", &errors),
			Password: getRequiredEnv("DB_PASSWORD", &errors),
			DBName:   getRequiredEnv("DB_NAME", &errors),
			MaxSize:  validatePoolSize(poolSize, "DB_POOL_SIZE", &errors),
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid value for STORE_BACKEND: expected %q or %q, got '%s'", BackendFile, BackendPostgres, backend))
	}

	// Rate limiting for the auth endpoints.
	rateLimitConfig := &RateLimitConfig{
		Attempts: getOptionalEnvInt("AUTH_RATE_LIMIT", 10, &errors),
		Window:   getOptionalEnvDuration("AUTH_RATE_WINDOW", 15*time.Minute, &errors),
	}
	if rateLimitConfig.Attempts < 1 {
		errors = append(errors, fmt.Sprintf("invalid value for AUTH_RATE_LIMIT: must be at least 1, got %d", rateLimitConfig.Attempts))
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return &AppConfig{
		Auth:      authConfig,
		Server:    serverConfig,
		Store:     storeConfig,
		RateLimit: rateLimitConfig,
	}, nil
}
