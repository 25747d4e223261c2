// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gurkanbulca/taskflow/pkg/email"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Scanner      ScannerConfig
	Notification NotificationConfig
	Email        EmailConfig
}

type ServerConfig struct {
	HTTPPort    string
	Environment string
	AutoMigrate bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type ScannerConfig struct {
	Interval   time.Duration
	Thresholds []time.Duration
}

type NotificationConfig struct {
	AdminRecipient string
	RetryLimit     int
	RetryBackoff   time.Duration
	DedupWindow    time.Duration
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	AppName      string
	TestingMode  bool
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			HTTPPort:    getEnv("HTTP_PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			AutoMigrate: getEnvAsBool("AUTO_MIGRATE", true),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "taskflow"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Scanner: ScannerConfig{
			Interval:   getEnvAsDuration("SCAN_INTERVAL", 5*time.Minute),
			Thresholds: getEnvAsDurations("WARNING_THRESHOLDS", []time.Duration{24 * time.Hour}),
		},
		Notification: NotificationConfig{
			AdminRecipient: getEnv("ADMIN_RECIPIENT", "admin@example.com"),
			RetryLimit:     getEnvAsInt("DELIVERY_RETRY_LIMIT", 3),
			RetryBackoff:   getEnvAsDuration("DELIVERY_RETRY_BACKOFF", 2*time.Second),
			DedupWindow:    getEnvAsDuration("DEDUP_WINDOW", 10*time.Minute),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", "localhost"),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("EMAIL_FROM", "noreply@example.com"),
			FromName:     getEnv("EMAIL_FROM_NAME", "TaskFlow"),
			AppName:      getEnv("APP_NAME", "TaskFlow"),
			TestingMode:  getEnvAsBool("EMAIL_TESTING_MODE", false),
		},
	}, nil
}

// DSN builds the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// ToEmailConfig converts the email section to the email package's config.
func (c *Config) ToEmailConfig() *email.Config {
	return &email.Config{
		SMTPHost:     c.Email.SMTPHost,
		SMTPPort:     c.Email.SMTPPort,
		SMTPUsername: c.Email.SMTPUsername,
		SMTPPassword: c.Email.SMTPPassword,
		FromEmail:    c.Email.FromEmail,
		FromName:     c.Email.FromName,
		AppName:      c.Email.AppName,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	// Try parsing as duration string (e.g., "15m", "24h")
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}

	return defaultValue
}

// getEnvAsDurations parses a comma-separated duration list, e.g. "24h,1h".
func getEnvAsDurations(key string, defaultValue []time.Duration) []time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []time.Duration
	for _, part := range strings.Split(valueStr, ",") {
		duration, err := time.ParseDuration(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		out = append(out, duration)
	}
	return out
}
