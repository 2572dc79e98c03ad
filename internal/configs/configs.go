/*
Package configs loads the application's configuration from environment
variables.

Every setting has a development default; production deployments must provide
the store address explicitly.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store backend selectors.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// AppConfig contains all configuration parameters required to run the server.
type AppConfig struct {
	// General server settings
	Environment string
	Port        int

	// Security settings
	AllowedOrigins []string

	// Store settings
	StoreBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// StaticDir is the directory of client assets served at /.
	// Empty disables static hosting.
	StaticDir string
}

// LoadConfig reads and validates the configuration from the environment.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General server settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the allowed range (1024-65535)", cfg.Port)
	}

	// --- Security settings ---
	if originsStr := os.Getenv("ALLOWED_ORIGINS"); originsStr != "" {
		for _, origin := range strings.Split(originsStr, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}

	// --- Store settings ---
	cfg.StoreBackend = os.Getenv("STORE")
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = StoreRedis
	}
	if cfg.StoreBackend != StoreRedis && cfg.StoreBackend != StoreMemory {
		return nil, fmt.Errorf("unknown STORE backend %q (want %q or %q)", cfg.StoreBackend, StoreRedis, StoreMemory)
	}
	if cfg.StoreBackend == StoreMemory && cfg.Environment != "development" {
		return nil, fmt.Errorf("STORE=memory is not durable and is only allowed in the development environment")
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	if cfg.RedisAddr == "" {
		if cfg.Environment == "development" {
			cfg.RedisAddr = "localhost:6379"
		} else if cfg.StoreBackend == StoreRedis {
			return nil, fmt.Errorf("REDIS_ADDR environment variable is required in %s environment", cfg.Environment)
		}
	}

	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	dbStr := os.Getenv("REDIS_DB")
	if dbStr == "" {
		dbStr = "0"
	}
	db, err := strconv.Atoi(dbStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB environment variable: %w", err)
	}
	cfg.RedisDB = db

	// --- Static hosting ---
	cfg.StaticDir = os.Getenv("STATIC_DIR")
	if cfg.StaticDir == "" && cfg.Environment == "development" {
		cfg.StaticDir = "./public"
	}

	return cfg, nil
}
