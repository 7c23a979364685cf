// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	Cache      CacheConfig
	DocDB      DocDBConfig
	Vault      VaultConfig
	Completion CompletionConfig
	Pipeline   PipelineConfig
	Auth       AuthConfig
	CORS       CORSConfig
	Log        LogConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string
	Port            int
	GinMode         string
	APIPrefix       string
	ShutdownTimeout time.Duration
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig holds the redis configuration backing the conversation cache.
type CacheConfig struct {
	Type     string
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
	Enabled  bool
}

// DocDBConfig holds document database configuration.
type DocDBConfig struct {
	Type           string
	URI            string
	Database       string
	ChatCollection string
}

// VaultConfig holds vault configuration.
type VaultConfig struct {
	Type          string
	EncryptionKey string
}

// CompletionConfig holds the Azure OpenAI completion backend configuration.
// APIKeyRef is resolved through the vault when APIKey is empty.
type CompletionConfig struct {
	APIBase     string
	APIKey      string
	APIKeyRef   string
	APIVersion  string
	Deployment  string
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
}

// PipelineConfig holds the chat message-processing pipeline settings.
type PipelineConfig struct {
	ResponseCacheTTL  time.Duration
	ResponseCacheSize int
	QueueTimeout      time.Duration
	WorkRoot          string
	MaxSessions       int
	SessionIdleTTL    time.Duration
	SweepSchedule     string
	PoolSize          int
	PoolQueueSize     int
}

// AuthConfig holds bearer token validation settings.
type AuthConfig struct {
	SecretKey string
	Algorithm string
}

// CORSConfig holds the allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8000),
			GinMode:         getEnv("GIN_MODE", "release"),
			APIPrefix:       getEnv("API_PREFIX", "/api/v1"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 10*time.Second),
		},
		Cache: CacheConfig{
			Type:     getEnv("CACHE_TYPE", "redis"),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("CACHE_TTL_SECONDS", 180*time.Second),
			Enabled:  getEnvAsBool("CACHE_ENABLED", true),
		},
		DocDB: DocDBConfig{
			Type:           getEnv("DOCDB_TYPE", "mongodb"),
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "steel_ecosystem"),
			ChatCollection: getEnv("MONGODB_CHAT_COLLECTION", "chat_sessions"),
		},
		Vault: VaultConfig{
			Type:          getEnv("VAULT_TYPE", "dotenv"),
			EncryptionKey: getEnv("SECRETS_ENCRYPTION_KEY", ""),
		},
		Completion: CompletionConfig{
			APIBase:     getEnv("AZURE_API_BASE", ""),
			APIKey:      getEnv("AZURE_API_KEY", ""),
			APIKeyRef:   getEnv("AZURE_API_KEY_REF", "dotenv://AZURE_OPENAI_KEY"),
			APIVersion:  getEnv("AZURE_API_VERSION", "2023-05-15"),
			Deployment:  getEnv("AZURE_DEPLOYMENT_NAME", "gpt-4"),
			Timeout:     getEnvAsDuration("AZURE_TIMEOUT_SECONDS", 60*time.Second),
			Temperature: float32(getEnvAsFloat("COMPLETION_TEMPERATURE", 0.7)),
			MaxTokens:   getEnvAsInt("COMPLETION_MAX_TOKENS", 800),
		},
		Pipeline: PipelineConfig{
			ResponseCacheTTL:  getEnvAsDuration("RESPONSE_CACHE_TTL_SECONDS", time.Hour),
			ResponseCacheSize: getEnvAsInt("RESPONSE_CACHE_SIZE", 1024),
			QueueTimeout:      getEnvAsDuration("QUEUE_TIMEOUT_SECONDS", 120*time.Second),
			WorkRoot:          getEnv("SESSION_WORK_ROOT", os.TempDir()),
			MaxSessions:       getEnvAsInt("MAX_SESSIONS", 512),
			SessionIdleTTL:    getEnvAsDuration("SESSION_IDLE_TTL_SECONDS", 30*time.Minute),
			SweepSchedule:     getEnv("SESSION_SWEEP_SCHEDULE", "@every 1m"),
			PoolSize:          getEnvAsInt("SESSION_POOL_SIZE", 0),
			PoolQueueSize:     getEnvAsInt("SESSION_POOL_QUEUE_SIZE", 64),
		},
		Auth: AuthConfig{
			SecretKey: getEnv("SECRET_KEY", ""),
			Algorithm: getEnv("ALGORITHM", "HS256"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.Auth.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	if c.Pipeline.QueueTimeout <= 0 {
		return fmt.Errorf("QUEUE_TIMEOUT_SECONDS must be positive")
	}
	if c.Pipeline.ResponseCacheSize <= 0 {
		return fmt.Errorf("RESPONSE_CACHE_SIZE must be positive")
	}
	return nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as a float with a default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a bool with a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration reads a whole number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
