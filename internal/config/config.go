// Package config loads runtime configuration from the environment.
// The .env file, if present, is loaded by the entrypoints before Load is called.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every setting the service and the admin CLI need.
type Config struct {
	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	HTTPAddr  string
	LogLevel  string
	LogFormat string

	SettlementInterval  time.Duration
	NotifyRetryInterval time.Duration
	CallTimeout         time.Duration

	AdminJWTSecret string
	LocalesDir     string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	TelegramBotToken string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
}

// Load reads the configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseDSN:      databaseDSN(),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		AdminJWTSecret:   os.Getenv("ADMIN_JWT_SECRET"),
		LocalesDir:       getEnv("LOCALES_DIR", "internal/localization"),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPUser:         os.Getenv("SMTP_USER"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		MailFrom:         os.Getenv("MAIL_FROM"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.SettlementInterval, err = getDuration("SETTLEMENT_INTERVAL", DefaultSettlementInterval); err != nil {
		return nil, err
	}
	if cfg.NotifyRetryInterval, err = getDuration("NOTIFY_RETRY_INTERVAL", DefaultNotifyRetryInterval); err != nil {
		return nil, err
	}
	if cfg.CallTimeout, err = getDuration("CALL_TIMEOUT", DefaultCallTimeout); err != nil {
		return nil, err
	}

	if err := validateInterval("SETTLEMENT_INTERVAL", cfg.SettlementInterval); err != nil {
		return nil, err
	}
	if err := validateInterval("NOTIFY_RETRY_INTERVAL", cfg.NotifyRetryInterval); err != nil {
		return nil, err
	}
	if cfg.CallTimeout <= 0 {
		return nil, fmt.Errorf("config: CALL_TIMEOUT must be positive, got %s", cfg.CallTimeout)
	}

	return cfg, nil
}

// EmailEnabled reports whether SMTP delivery is configured.
func (c *Config) EmailEnabled() bool { return c.SMTPHost != "" && c.MailFrom != "" }

// TelegramEnabled reports whether the Telegram channel is configured.
func (c *Config) TelegramEnabled() bool { return c.TelegramBotToken != "" }

// SMSEnabled reports whether Twilio SMS is configured.
func (c *Config) SMSEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

func databaseDSN() string {
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_DSN")); dsn != "" {
		return dsn
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "user"),
		getEnv("DB_PASSWORD", "password"),
		getEnv("DB_NAME", "auctionhousedb"),
		getEnv("DB_PORT", "5432"),
	)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: invalid integer %q: %w", key, v, err)
	}
	return i, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: invalid duration %q: %w", key, v, err)
	}
	return d, nil
}

func validateInterval(key string, d time.Duration) error {
	if d <= 0 || d > MaxJobInterval {
		return fmt.Errorf("config: %s must be in (0, %s], got %s", key, MaxJobInterval, d)
	}
	return nil
}
