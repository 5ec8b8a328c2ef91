// internal/config/config.go

// Package config reads service configuration from the environment.
// main loads .env via godotenv/autoload before calling Load.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dlevitt/radar/internal/geo"
)

// Config is the full service configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// PostgresURL is the accounts database connection string.
	PostgresURL string

	// RedisAddr and RedisDB select the live document store backend.
	// Empty RedisAddr switches to the in-process memory store.
	RedisAddr string
	RedisDB   int

	// TokenExpiry bounds session tokens; zero means no expiry.
	TokenExpiry time.Duration

	// ReportMinInterval throttles per-account position writes.
	ReportMinInterval time.Duration

	// Fallback seeds a session when the one-shot fix fails.
	Fallback geo.Point

	LogLevel string
}

// Load builds a Config from environment variables with defaults.
func Load() Config {
	return Config{
		Addr:        ":" + getEnv("PORT", "8080"),
		PostgresURL: postgresURL(),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),

		TokenExpiry:       getEnvDuration("TOKEN_EXPIRE_TIME", 72*time.Hour),
		ReportMinInterval: getEnvDuration("REPORT_MIN_INTERVAL", 2*time.Second),

		Fallback: geo.Point{
			Latitude:  getEnvFloat("FALLBACK_LAT", 50.0),
			Longitude: getEnvFloat("FALLBACK_LON", 5.0),
		},

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func postgresURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		getEnv("POSTGRES_USER", "postgres"),
		getEnv("POSTGRES_PASSWORD", "postgres"),
		getEnv("PG_HOST", "localhost"),
		getEnv("PG_PORT", "5432"),
		getEnv("PG_DATABASE", "radar"),
	)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	if s == "never" || s == "0" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
