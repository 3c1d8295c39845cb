// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Environment string `validate:"required"`
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Push        PushConfig
	Dashboard   DashboardConfig
	Log         LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int `validate:"min=1,max=65535"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration `validate:"gt=0"`
	CorsOrigins     []string      `validate:"min=1"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string `validate:"required"`
	Port         int    `validate:"min=1,max=65535"`
	User         string `validate:"required"`
	Password     string
	Database     string `validate:"required"`
	MaxOpenConns int    `validate:"min=1"`
	MaxIdleConns int    `validate:"min=0"`
	MaxLifetime  time.Duration
	SSLMode      string `validate:"oneof=disable allow prefer require verify-ca verify-full"`
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string `validate:"required"`
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// PushConfig selects and configures the push channel
type PushConfig struct {
	// Source is nats or postgres
	Source string `validate:"oneof=nats postgres"`

	// SubjectPrefix prefixes NATS insert subjects: <prefix>.<kind>.insert
	SubjectPrefix string `validate:"required"`

	// ChannelPrefix prefixes Postgres NOTIFY channels: <prefix>_<kind>
	ChannelPrefix string `validate:"required"`

	// Buffer is the capacity of the session event queue
	Buffer int `validate:"min=1"`
}

// DashboardConfig holds filtering and session behaviour
type DashboardConfig struct {
	// Timezone is the IANA zone date-range bounds are evaluated in
	Timezone string

	// Dedupe drops push events for entities already present
	Dedupe bool

	// FetchTimeout bounds each bulk load
	FetchTimeout time.Duration `validate:"gt=0"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `validate:"oneof=trace debug info warn error disabled"`
	Format string `validate:"oneof=json console"`
}

// Load loads configuration from environment variables, after reading an
// optional .env file
func Load() (Config, error) {
	// Missing .env is fine; the environment may already be populated
	_ = godotenv.Load()

	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "sightmap"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Push: PushConfig{
			Source:        getEnv("PUSH_SOURCE", "nats"),
			SubjectPrefix: getEnv("PUSH_SUBJECT_PREFIX", "observations"),
			ChannelPrefix: getEnv("PUSH_CHANNEL_PREFIX", "insert"),
			Buffer:        getEnvAsInt("PUSH_BUFFER", 256),
		},
		Dashboard: DashboardConfig{
			Timezone:     getEnv("DASHBOARD_TIMEZONE", "UTC"),
			Dedupe:       getEnvAsBool("DASHBOARD_DEDUPE", true),
			FetchTimeout: getEnvAsDuration("DASHBOARD_FETCH_TIMEOUT", 30*time.Second),
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	return config, validate(config)
}

// Location returns the dashboard time zone
func (c DashboardConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// validate checks if config is valid
func validate(config Config) error {
	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := config.Dashboard.Location(); err != nil {
		return fmt.Errorf("invalid DASHBOARD_TIMEZONE %q: %w", config.Dashboard.Timezone, err)
	}

	if config.Database.Password == "postgres" && config.Environment == "production" {
		return fmt.Errorf("database password must be set in production")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
