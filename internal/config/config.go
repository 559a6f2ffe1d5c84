package config

import (
	"fmt"
	"os"
	"strconv"
)

// Store backend selection
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	// Postgres connection string for the deployment ledger
	DatabaseURL string

	// Store backend: postgres or memory
	StoreBackend string

	// HTTP port for the ledger API
	Port int

	// Log level: debug, info, warn, error
	LogLevel string
}

// Load returns the configuration for the ledger daemon from env vars
func Load() *Config {
	return &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		StoreBackend: getEnv("STORE_BACKEND", StorePostgres),
		Port:         getEnvAsInt("PORT", 5000),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store backend %q", c.StoreBackend)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d is out of range", c.Port)
	}
	return nil
}

// Helper: get string from env
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Helper: get int from env
func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}
