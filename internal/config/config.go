package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lorrc/service-desk-notifier/internal/adapters/secondary/webhook"
	"github.com/lorrc/service-desk-notifier/internal/core/domain"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Helpdesk database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// Chat notification settings
	Notifier NotifierConfig

	// Outbound webhook transport
	Webhook WebhookConfig

	// WebSocket configuration
	WebSocket WebSocketConfig

	// CORS configuration for the preview API
	CORS CORSConfig

	// Logging configuration
	Logging LoggingConfig

	// Application metadata
	App AppConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret   string
	TokenTTL time.Duration
}

// NotifierConfig holds the operator settings read by the notification pipeline.
type NotifierConfig struct {
	WebhookURL         string
	APIToken           string
	User               string
	Stream             string
	Channel            string
	SubjectIgnoreRegex string
	MessageTemplate    string
	HelpdeskURL        string
}

// WebhookConfig holds outbound HTTP settings
type WebhookConfig struct {
	// Timeout of zero means no client-side timeout.
	Timeout time.Duration
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	PingInterval    time.Duration
	PongWait        time.Duration
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", ":8080"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 45*time.Second),
			IdleTimeout:     getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxConns:        getIntOrDefault("DB_MAX_CONNS", 10),
			MinConns:        getIntOrDefault("DB_MIN_CONNS", 1),
			ConnMaxLifetime: getDurationOrDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getDurationOrDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret:   os.Getenv("JWT_SECRET"),
			TokenTTL: getDurationOrDefault("JWT_TOKEN_TTL", 24*time.Hour),
		},
		Notifier: NotifierConfig{
			WebhookURL:         strings.TrimSpace(os.Getenv("ZULIP_WEBHOOK_URL")),
			APIToken:           os.Getenv("ZULIP_API_TOKEN"),
			User:               os.Getenv("ZULIP_USER"),
			Stream:             os.Getenv("ZULIP_STREAM"),
			Channel:            os.Getenv("ZULIP_CHANNEL"),
			SubjectIgnoreRegex: os.Getenv("ZULIP_REGEX_SUBJECT_IGNORE"),
			MessageTemplate:    getEnvOrDefault("ZULIP_MESSAGE_TEMPLATE", domain.DefaultMessageTemplate),
			HelpdeskURL:        os.Getenv("HELPDESK_URL"),
		},
		Webhook: WebhookConfig{
			Timeout: getDurationOrDefault("WEBHOOK_TIMEOUT", 0),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:  getStringSliceOrDefault("WS_ALLOWED_ORIGINS", []string{}),
			ReadBufferSize:  getIntOrDefault("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getIntOrDefault("WS_WRITE_BUFFER_SIZE", 1024),
			PingInterval:    getDurationOrDefault("WS_PING_INTERVAL", 54*time.Second),
			PongWait:        getDurationOrDefault("WS_PONG_WAIT", 60*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getStringSliceOrDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "service-desk-notifier"),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration. A missing webhook URL is not an
// error here: the pipeline reports it on every event instead.
func (c *Config) Validate() error {
	var errs []string

	// Required fields
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}

	if c.Notifier.WebhookURL != "" {
		if err := webhook.ValidateURL(c.Notifier.WebhookURL); err != nil {
			errs = append(errs, "ZULIP_WEBHOOK_URL: "+err.Error())
		}
	}

	if c.Notifier.HelpdeskURL != "" {
		if err := validateHTTPURL(c.Notifier.HelpdeskURL); err != nil {
			errs = append(errs, "HELPDESK_URL "+err.Error())
		}
	}

	if c.Webhook.Timeout < 0 {
		errs = append(errs, "WEBHOOK_TIMEOUT must not be negative")
	}

	// Security validations
	if c.IsProduction() {
		if len(c.JWT.Secret) < 32 {
			errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
		}

		if len(c.WebSocket.AllowedOrigins) == 0 {
			errs = append(errs, "WS_ALLOWED_ORIGINS must be set in production")
		}
	}

	// Logical validations
	if c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, "DB_MIN_CONNS cannot be greater than DB_MAX_CONNS")
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// Settings returns the notifier settings handed to the pipeline.
func (c *Config) Settings() domain.NotifierSettings {
	return domain.NotifierSettings{
		WebhookURL:         c.Notifier.WebhookURL,
		APIToken:           c.Notifier.APIToken,
		User:               c.Notifier.User,
		Stream:             c.Notifier.Stream,
		Channel:            c.Notifier.Channel,
		SubjectIgnoreRegex: c.Notifier.SubjectIgnoreRegex,
		MessageTemplate:    c.Notifier.MessageTemplate,
		HelpdeskURL:        c.Notifier.HelpdeskURL,
	}
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is not a valid URL: %v", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, DB: %s, JWT: [REDACTED], Webhook: %s, Stream: %s, Environment: %s}",
		c.Server.Port,
		webhook.RedactURL(c.Database.URL),
		webhook.RedactURL(c.Notifier.WebhookURL),
		c.Notifier.Stream,
		c.App.Environment,
	)
}
