package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL     string
	DBMaxIdleConns  int
	DBMaxOpenConns  int
	DBRetryAttempts int
	DBRetryBase     time.Duration
	DBRetryMax      time.Duration

	// HTTP
	APIPort int

	// Mailbox sync
	SyncEnabled         bool
	SyncInterval        time.Duration
	HealthCheckInterval time.Duration
	IMAPAuthTimeout     time.Duration
	SMTPTimeout         time.Duration

	// Storage
	AttachmentStoragePath string
	AckJournalPath        string

	// Logging
	LogLevel string

	// Security
	APIKey         string
	AllowedOrigins string
	AppEnv         string

	// Rate Limiting
	RateLimitRequests float64
	RateLimitBurst    int
}

// Load reads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required: DATABASE_URL
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}

	var err error
	if cfg.APIPort, err = getInt("API_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.DBMaxIdleConns, err = getInt("DB_MAX_IDLE_CONNS", 10); err != nil {
		return nil, err
	}
	if cfg.DBMaxOpenConns, err = getInt("DB_MAX_OPEN_CONNS", 100); err != nil {
		return nil, err
	}
	if cfg.DBRetryAttempts, err = getInt("DB_RETRY_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.DBRetryBase, err = getDuration("DB_RETRY_BASE_DELAY", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.DBRetryMax, err = getDuration("DB_RETRY_MAX_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.SyncEnabled, err = getBool("SYNC_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.SyncInterval, err = getDuration("SYNC_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.HealthCheckInterval, err = getDuration("HEALTH_CHECK_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.IMAPAuthTimeout, err = getDuration("IMAP_AUTH_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.SMTPTimeout, err = getDuration("SMTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	cfg.AttachmentStoragePath = getEnv("ATTACHMENT_STORAGE_PATH", "./attachments")
	cfg.AckJournalPath = os.Getenv("ACK_JOURNAL_PATH")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	// Security configuration
	cfg.APIKey = os.Getenv("API_KEY")
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")
	cfg.AppEnv = getEnv("APP_ENV", "development")

	// Rate limiting configuration
	cfg.RateLimitRequests = 10.0
	if rps := os.Getenv("RATE_LIMIT_REQUESTS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimitRequests = v
		}
	}
	cfg.RateLimitBurst = 20
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimitBurst = v
		}
	}

	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if c.DBRetryAttempts < 1 {
		return fmt.Errorf("DBRetryAttempts must be at least 1")
	}
	if c.SyncInterval < time.Second {
		return fmt.Errorf("SyncInterval must be at least 1s")
	}
	if c.HealthCheckInterval < time.Second {
		return fmt.Errorf("HealthCheckInterval must be at least 1s")
	}
	if c.AttachmentStoragePath == "" {
		return fmt.Errorf("AttachmentStoragePath cannot be empty")
	}
	return nil
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required in production")
	}

	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("wildcard (*) origins are not allowed in production")
	}

	if strings.Contains(c.DatabaseURL, "sslmode=disable") {
		return fmt.Errorf("sslmode=disable is not allowed in production")
	}

	return nil
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.Int("api_port", c.APIPort),
		slog.Bool("sync_enabled", c.SyncEnabled),
		slog.Duration("sync_interval", c.SyncInterval),
		slog.Duration("health_check_interval", c.HealthCheckInterval),
		slog.Int("db_retry_attempts", c.DBRetryAttempts),
		slog.String("storage_path", c.AttachmentStoragePath),
		slog.Bool("ack_journal", c.AckJournalPath != ""),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Bool("allowed_origins_set", c.AllowedOrigins != ""),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a valid boolean: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return v, nil
}
