package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// MinSecretKeyLength is the minimum accepted length of the shared HS256 secret.
const MinSecretKeyLength = 32

// AuthConfig holds identity token verification settings.
type AuthConfig struct {
	SecretKey []byte        // shared with the identity service
	Leeway    time.Duration // tolerated clock skew for exp checks
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // seconds
	MigrationsPath  string
}

// RateLimitConfig bounds inbound request throughput. RPS <= 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type Config struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	CORSOrigins []string
}

// fileConfig mirrors Config for the optional TOML file named by CONFIG_FILE.
type fileConfig struct {
	Port     string `toml:"port"`
	Env      string `toml:"env"`
	Database struct {
		URL             string `toml:"url"`
		MaxOpenConns    int    `toml:"max_open_conns"`
		MaxIdleConns    int    `toml:"max_idle_conns"`
		ConnMaxLifetime int    `toml:"conn_max_lifetime"`
		MigrationsPath  string `toml:"migrations_path"`
	} `toml:"database"`
	Auth struct {
		SecretKey     string `toml:"secret_key"`
		LeewaySeconds int    `toml:"leeway_seconds"`
	} `toml:"auth"`
	RateLimit struct {
		RPS   float64 `toml:"rps"`
		Burst int     `toml:"burst"`
	} `toml:"rate_limit"`
	CORS struct {
		Origins []string `toml:"origins"`
	} `toml:"cors"`
}

// Load reads configuration from an optional TOML file and environment variables.
// Environment variables take precedence over file values.
// It fails fast with clear errors for missing required values.
func Load() (*Config, error) {
	var fc fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return nil, fmt.Errorf("invalid CONFIG_FILE %q: %w", path, err)
		}
	}

	var missing []string

	port := getEnv("PORT", fc.Port)
	if port == "" {
		port = "8080"
	}

	env := getEnv("ENV", fc.Env)
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "staging" && env != "production" {
		return nil, fmt.Errorf("invalid ENV value %q: must be development, staging, or production", env)
	}

	// Database configuration (required)
	databaseURL := getEnv("DATABASE_URL", fc.Database.URL)
	if databaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	// Shared token secret (required)
	secretKey := getEnv("SECRET_KEY", fc.Auth.SecretKey)
	if secretKey == "" {
		missing = append(missing, "SECRET_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if err := validateDatabaseURL(databaseURL); err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	if err := validateSecretKey(secretKey); err != nil {
		return nil, fmt.Errorf("invalid SECRET_KEY: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", fc.RateLimit.RPS)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	dbConfig := DatabaseConfig{
		URL:             databaseURL,
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", orDefault(fc.Database.MaxOpenConns, 25)),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", orDefault(fc.Database.MaxIdleConns, 5)),
		ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", orDefault(fc.Database.ConnMaxLifetime, 300)),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", fc.Database.MigrationsPath),
	}

	corsOrigins := fc.CORS.Origins
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		corsOrigins = splitList(raw)
	}

	return &Config{
		Port:        port,
		Environment: env,
		Database:    dbConfig,
		Auth: AuthConfig{
			SecretKey: []byte(secretKey),
			Leeway:    time.Duration(getEnvInt("JWT_LEEWAY_SECONDS", fc.Auth.LeewaySeconds)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: getEnvInt("RATE_LIMIT_BURST", orDefault(fc.RateLimit.Burst, 20)),
		},
		CORSOrigins: corsOrigins,
	}, nil
}

// IsProduction reports whether the service runs with ENV=production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// validateSecretKey ensures the HS256 secret is long enough to be meaningful.
func validateSecretKey(key string) error {
	if strings.TrimSpace(key) != key {
		return fmt.Errorf("must not contain leading or trailing whitespace")
	}
	if len(key) < MinSecretKeyLength {
		return fmt.Errorf("must be at least %d bytes, got %d", MinSecretKeyLength, len(key))
	}
	return nil
}

// validateDatabaseURL ensures the database URL is a valid PostgreSQL connection string.
func validateDatabaseURL(dbURL string) error {
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}

	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return fmt.Errorf("URL must use postgres or postgresql scheme, got %q", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	return nil
}

// getEnv returns the environment value for key, or fallback when unset.
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt reads an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(val, 64)
}

func orDefault(val, def int) int {
	if val == 0 {
		return def
	}
	return val
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
