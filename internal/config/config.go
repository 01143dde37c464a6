package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server     ServerConfig
	Log        LogConfig
	MongoDB    MongoDBConfig
	Reconciler ReconcilerConfig
	Sheets     SheetsConfig
	WhatsApp   WhatsAppConfig
	Kafka      KafkaConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// ReconcilerConfig holds the daily finalization job settings.
type ReconcilerConfig struct {
	CronSchedule string
	Timezone     string
	MaxAttempts  int
	Backoff      time.Duration
	RetryDelay   time.Duration
}

// SheetsConfig contains configuration required to export to Google Sheets.
// Export is disabled when both fields are empty.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether Sheets export is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// WhatsAppConfig contains credentials for the Meta WhatsApp Cloud API used to
// notify the ranch operator. Notifications are disabled without a token.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	OperatorID    string
	BaseURL       string
	APIVersion    string
}

// Enabled reports whether operator notifications are configured.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != ""
}

// KafkaConfig configures the sale event stream. Publishing is disabled
// without brokers.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether sale events are published.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the
		// environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "ranch"),
		},
		Reconciler: ReconcilerConfig{
			CronSchedule: getenvWithDefault("RECONCILE_CRON", "1 0 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "America/Mexico_City"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			OperatorID:    os.Getenv("WHATSAPP_OPERATOR_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenvWithDefault("KAFKA_TOPIC", "ranch.sales"),
		},
	}

	var err error
	if cfg.Reconciler.MaxAttempts, err = strconv.Atoi(getenvWithDefault("RECONCILE_MAX_ATTEMPTS", "5")); err != nil {
		return nil, fmt.Errorf("RECONCILE_MAX_ATTEMPTS must be an integer: %w", err)
	}
	if cfg.Reconciler.Backoff, err = time.ParseDuration(getenvWithDefault("RECONCILE_BACKOFF", "2s")); err != nil {
		return nil, fmt.Errorf("RECONCILE_BACKOFF must be a duration: %w", err)
	}
	if cfg.Reconciler.RetryDelay, err = time.ParseDuration(getenvWithDefault("RECONCILE_RETRY_DELAY", "5m")); err != nil {
		return nil, fmt.Errorf("RECONCILE_RETRY_DELAY must be a duration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.MongoDB.URI == "":
		return errors.New("MONGODB_URI must be provided")
	case c.MongoDB.DBName == "":
		return errors.New("MONGODB_DB_NAME must not be empty")
	}

	switch {
	case c.Reconciler.CronSchedule == "":
		return errors.New("RECONCILE_CRON must be provided")
	case c.Reconciler.MaxAttempts < 1:
		return errors.New("RECONCILE_MAX_ATTEMPTS must be at least 1")
	case c.Reconciler.Backoff <= 0:
		return errors.New("RECONCILE_BACKOFF must be positive")
	case c.Reconciler.RetryDelay <= 0:
		return errors.New("RECONCILE_RETRY_DELAY must be positive")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be provided together")
	}

	if c.WhatsApp.Enabled() {
		switch {
		case c.WhatsApp.PhoneNumberID == "":
			return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided")
		case c.WhatsApp.OperatorID == "":
			return errors.New("WHATSAPP_OPERATOR_ID must be provided")
		case c.WhatsApp.BaseURL == "":
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		case c.WhatsApp.APIVersion == "":
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return errors.New("KAFKA_TOPIC must not be empty")
	}

	return nil
}

// Location resolves the time zone that defines the ranch's calendar day.
func (c *Config) Location() (*time.Location, error) {
	if c.Reconciler.Timezone == "" {
		return nil, errors.New("TIMEZONE must be provided")
	}
	loc, err := time.LoadLocation(c.Reconciler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Reconciler.Timezone, err)
	}
	return loc, nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
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
