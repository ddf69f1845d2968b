package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BradenHooton/gatehouse/pkg/auth"
	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Admin    AdminConfig
	Database DatabaseConfig
	Alerts   AlertConfig
}

type ServerConfig struct {
	Port                    string
	Env                     string
	LogLevel                string
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	TrustedProxies          []string
	AllowedOrigins          []string
	CookieSecure            bool
	CookieDomain            string
	LoginRateLimitPerMinute int
}

type AuthConfig struct {
	SecretKey              string
	SecretKeyGenerated     bool // Tokens will not survive a restart
	SessionTimeout         time.Duration
	MaxLoginAttempts       uint
	LockoutDuration        time.Duration
	PasswordHashIterations int
	FailureDelayBase       time.Duration
	FailureDelayRandom     time.Duration
	CleanupInterval        time.Duration
}

// AdminConfig is the single provisioned credential. Exactly one of Password
// and PasswordHash is used; PasswordHash wins when both are set.
type AdminConfig struct {
	Username     string
	Password     string
	PasswordHash string
}

// DatabaseConfig configures the optional audit trail. An empty URL disables it.
type DatabaseConfig struct {
	URL                string
	MaxConns           int32
	MinConns           int32
	MaxConnLifetime    time.Duration
	MaxConnIdleTime    time.Duration
	HealthCheckPeriod  time.Duration
	AuditRetentionDays int
}

// AlertConfig configures lockout alert emails. An empty Recipient disables them.
type AlertConfig struct {
	Recipient string
	From      string
	AWSRegion string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:                    getEnv("PORT", "8080"),
			Env:                     env,
			LogLevel:                getEnv("LOG_LEVEL", "info"),
			ReadTimeout:             getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:            getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:             getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			TrustedProxies:          parseList(getEnv("TRUSTED_PROXIES", "")),
			AllowedOrigins:          parseList(getEnv("ALLOWED_ORIGINS", "")),
			CookieSecure:            getEnvAsBool("COOKIE_SECURE", env == "production"),
			CookieDomain:            getEnv("COOKIE_DOMAIN", ""),
			LoginRateLimitPerMinute: getEnvAsInt("LOGIN_RATE_LIMIT_PER_MINUTE", 10),
		},
		Auth: AuthConfig{
			SecretKey:              getEnv("SECRET_KEY", ""),
			SessionTimeout:         time.Duration(getEnvAsInt("SESSION_TIMEOUT_MINUTES", 480)) * time.Minute,
			LockoutDuration:        time.Duration(getEnvAsInt("LOCKOUT_DURATION_MINUTES", 30)) * time.Minute,
			PasswordHashIterations: getEnvAsInt("PASSWORD_HASH_ITERATIONS", auth.DefaultIterations),
			FailureDelayBase:       time.Duration(getEnvAsInt("AUTH_FAILURE_DELAY_BASE_MS", 0)) * time.Millisecond,
			FailureDelayRandom:     time.Duration(getEnvAsInt("AUTH_FAILURE_DELAY_RANDOM_MS", 0)) * time.Millisecond,
			CleanupInterval:        getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 5*time.Minute),
		},
		Admin: AdminConfig{
			Username:     getEnv("ADMIN_USERNAME", "admin"),
			Password:     os.Getenv("ADMIN_PASSWORD"),
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConns:           int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:           int32(getEnvAsInt("DB_MIN_CONNS", 1)),
			MaxConnLifetime:    getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:    getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod:  getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AuditRetentionDays: getEnvAsInt("AUDIT_RETENTION_DAYS", 90),
		},
		Alerts: AlertConfig{
			Recipient: getEnv("LOCKOUT_ALERT_EMAIL", ""),
			From:      getEnv("LOCKOUT_ALERT_FROM", ""),
			AWSRegion: getEnv("AWS_REGION", "us-east-1"),
		},
	}

	maxAttempts := getEnvAsInt("MAX_LOGIN_ATTEMPTS", 5)
	if maxAttempts < 1 {
		return nil, fmt.Errorf("MAX_LOGIN_ATTEMPTS must be at least 1 (got %d)", maxAttempts)
	}
	cfg.Auth.MaxLoginAttempts = uint(maxAttempts)

	if cfg.Auth.SessionTimeout < time.Minute {
		return nil, fmt.Errorf("SESSION_TIMEOUT_MINUTES must be at least 1")
	}
	if cfg.Auth.LockoutDuration < time.Minute {
		return nil, fmt.Errorf("LOCKOUT_DURATION_MINUTES must be at least 1")
	}
	if cfg.Auth.PasswordHashIterations < auth.MinIterations {
		return nil, fmt.Errorf("PASSWORD_HASH_ITERATIONS must be at least %d", auth.MinIterations)
	}
	if cfg.Auth.CleanupInterval <= 0 {
		return nil, fmt.Errorf("SESSION_CLEANUP_INTERVAL must be positive")
	}

	if cfg.Auth.SecretKey == "" {
		key, err := generateSecretKey()
		if err != nil {
			return nil, err
		}
		cfg.Auth.SecretKey = key
		cfg.Auth.SecretKeyGenerated = true
	} else if err := validateSecretKey(cfg.Auth.SecretKey, env); err != nil {
		return nil, err
	}

	if err := validateAdmin(&cfg.Admin, env); err != nil {
		return nil, err
	}

	if err := validateTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, err
	}

	for _, origin := range cfg.Server.AllowedOrigins {
		if origin == "*" || !(strings.HasPrefix(origin, "https://") || strings.HasPrefix(origin, "http://")) {
			return nil, fmt.Errorf("ALLOWED_ORIGINS entry %q must be an explicit http(s) origin", origin)
		}
	}

	if cfg.Alerts.Recipient != "" && cfg.Alerts.From == "" {
		return nil, fmt.Errorf("LOCKOUT_ALERT_FROM is required when LOCKOUT_ALERT_EMAIL is set")
	}

	return cfg, nil
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Enabled reports whether the audit trail database is configured
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// Enabled reports whether lockout alert emails are configured
func (c *AlertConfig) Enabled() bool {
	return c.Recipient != ""
}

// generateSecretKey returns 32 random bytes, hex encoded
func generateSecretKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate SECRET_KEY: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// validateSecretKey enforces minimum security standards for the signing key
func validateSecretKey(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("SECRET_KEY must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
		"your-secret-key-change-in-production",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SECRET_KEY cannot be a common weak value")
		}
	}

	return nil
}

// validateAdmin requires a usable admin credential. Weak plaintext passwords
// are refused in production only.
func validateAdmin(admin *AdminConfig, env string) error {
	if admin.Username == "" {
		return fmt.Errorf("ADMIN_USERNAME cannot be empty")
	}

	if admin.PasswordHash != "" {
		if !auth.IsHashRecord(admin.PasswordHash) {
			return fmt.Errorf("ADMIN_PASSWORD_HASH is not a recognised hash record")
		}
		return nil
	}

	if admin.Password == "" {
		return fmt.Errorf("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
	}

	if env == "production" {
		if err := auth.ValidatePassword(admin.Password); err != nil {
			return fmt.Errorf("ADMIN_PASSWORD rejected: %w", err)
		}
	}

	return nil
}

// validateTrustedProxies accepts CIDR ranges and bare IP addresses
func validateTrustedProxies(proxies []string) error {
	for _, p := range proxies {
		if _, _, err := net.ParseCIDR(p); err == nil {
			continue
		}
		if net.ParseIP(p) != nil {
			continue
		}
		return fmt.Errorf("TRUSTED_PROXIES entry %q is not an IP or CIDR", p)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseList(value string) []string {
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}
