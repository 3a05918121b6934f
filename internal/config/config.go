// Package config provides configuration management for the liveness broker.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Encryption EncryptionConfig
	Redis      RedisConfig
	Postgres   PostgresConfig
	Nats       NatsConfig
	Provider   ProviderConfig
	Lifecycle  LifecycleConfig
	RateLimit  RateLimitConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// EncryptionConfig holds symmetric codec configuration
type EncryptionConfig struct {
	// Key is the passphrase the cipher key is derived from. The derived
	// key, not the passphrase, is what touches the cipher.
	Key string
}

// RedisConfig holds Redis configuration. An empty Host disables Redis and
// the server falls back to the in-process store.
type RedisConfig struct {
	Host           string
	Port           string
	Password       string
	DB             int
	MaxConnections int
}

// PostgresConfig holds audit database configuration. An empty Host disables
// the durable audit trail.
type PostgresConfig struct {
	Host           string
	Port           string
	Database       string
	User           string
	Password       string
	MaxConnections int
	MigrationsPath string
}

// NatsConfig holds event publishing configuration. An empty URL disables
// event publishing.
type NatsConfig struct {
	URL string
}

// ProviderConfig holds external verification provider configuration
type ProviderConfig struct {
	BaseURL  string
	Timeout  time.Duration
	Simulate bool
}

// LifecycleConfig holds submission lifecycle tuning
type LifecycleConfig struct {
	SubmissionCap int
	StatusTTL     time.Duration // 0 means status records never expire
	SessionTTL    time.Duration
	DataTTL       time.Duration
}

// RateLimitConfig holds per-client rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// Load .env file (optional in production)
	if err := godotenv.Load(); err != nil {
		// .env file is optional - environment variables can be set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Redis: RedisConfig{
			Host:           getEnv("REDIS_HOST", ""),
			Port:           getEnv("REDIS_PORT", "6379"),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvAsInt("REDIS_DB", 0),
			MaxConnections: getEnvAsInt("REDIS_MAX_CONNECTIONS", 50),
		},
		Postgres: PostgresConfig{
			Host:           getEnv("POSTGRES_HOST", ""),
			Port:           getEnv("POSTGRES_PORT", "5432"),
			Database:       getEnv("POSTGRES_DB", "liveness_broker"),
			User:           getEnv("POSTGRES_USER", "broker"),
			Password:       getEnv("POSTGRES_PASSWORD", ""),
			MaxConnections: getEnvAsInt("POSTGRES_MAX_CONNECTIONS", 20),
			MigrationsPath: getEnv("POSTGRES_MIGRATIONS_PATH", "migrations"),
		},
		Nats: NatsConfig{
			URL: getEnv("NATS_URL", ""),
		},
		Provider: ProviderConfig{
			BaseURL:  getEnv("PROVIDER_BASE_URL", "https://verify.example.com"),
			Timeout:  getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),
			Simulate: getEnvAsBool("SIMULATE_PROVIDER", false),
		},
		Lifecycle: LifecycleConfig{
			SubmissionCap: getEnvAsInt("SUBMISSION_CAP", 1000),
			StatusTTL:     getEnvAsDuration("STATUS_TTL", 0),
			SessionTTL:    getEnvAsDuration("SESSION_TTL", time.Hour),
			DataTTL:       getEnvAsDuration("DATA_TTL", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("RATE_LIMIT_RPS", 50),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if config.Encryption.Key == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if config.Lifecycle.SubmissionCap <= 0 {
		return nil, fmt.Errorf("SUBMISSION_CAP must be positive")
	}

	return config, nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
