// Package config provides configuration management for the locking-system.
package config

import (
	"os"
	"strconv"
	"time"
)

const (
	// DefaultLockTTL is how long an unrenewed edit lock stays valid.
	DefaultLockTTL = 5 * time.Minute

	// DefaultSweepInterval is how often stale lock records are swept.
	DefaultSweepInterval = time.Minute

	// DefaultMaxPayloadSize is the default max request body size (100KB).
	DefaultMaxPayloadSize int64 = 100 * 1024

	// StoreMemory, StorePostgres, StoreRedis name the lock store backends.
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config holds the application configuration.
type Config struct {
	// Port is the HTTP server port.
	Port string

	// LogLevel is the zerolog level name (debug, info, warn, error).
	LogLevel string

	// LockTTL is how long an unrenewed edit lock stays valid.
	LockTTL time.Duration

	// SweepInterval is how often the background sweeper runs.
	// Zero disables the background sweep job.
	SweepInterval time.Duration

	// StoreBackend selects the lock store: memory, postgres, or redis.
	StoreBackend string

	// DatabaseURL is the PostgreSQL connection string (postgres backend).
	DatabaseURL string

	// RedisAddr is the Redis host:port (redis backend).
	RedisAddr string

	// MaxPayloadSize is the maximum request body size in bytes.
	MaxPayloadSize int64
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		LockTTL:        getEnvDurationOrDefault("LOCK_TTL", DefaultLockTTL),
		SweepInterval:  getEnvDurationOrDefault("SWEEP_INTERVAL", DefaultSweepInterval),
		StoreBackend:   getEnvOrDefault("STORE_BACKEND", StoreMemory),
		DatabaseURL:    getEnvOrDefault("DATABASE_URL", ""),
		RedisAddr:      getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		MaxPayloadSize: getEnvInt64OrDefault("MAX_PAYLOAD_SIZE", DefaultMaxPayloadSize),
	}

	return cfg
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt64OrDefault returns the environment variable value as int64 or the default if not set or invalid.
func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault returns the environment variable value as a
// time.Duration ("5m", "30s") or the default if not set or invalid.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
