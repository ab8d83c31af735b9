/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	DBBackend   DatabaseBackend
	DBDSN       string
	MetricsBind string

	// MaxGenerationDays bounds the date range one generation run may span.
	MaxGenerationDays int

	// Cache configuration
	CacheEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the
// result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:       getEnv("LINECREW_ENV", "development"),
		DBBackend:         DatabaseBackend(getEnv("LINECREW_DB_BACKEND", string(DatabasePostgres))),
		DBDSN:             getEnv("LINECREW_DB_DSN", ""),
		MetricsBind:       getEnv("LINECREW_METRICS_BIND", "127.0.0.1:9000"),
		MaxGenerationDays: getEnvInt("LINECREW_MAX_GENERATION_DAYS", 730),

		CacheEnabled:  getEnvBool("LINECREW_CACHE_ENABLED", false),
		RedisAddr:     getEnv("LINECREW_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("LINECREW_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("LINECREW_REDIS_DB", 0),

		TracingEnabled:    getEnvBool("LINECREW_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("LINECREW_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("LINECREW_TRACING_SAMPLE_RATE", 1.0),
	}

	switch cfg.DBBackend {
	case DatabasePostgres, DatabaseMySQL, DatabaseSQLite:
	default:
		return nil, fmt.Errorf("unknown database backend: %s", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("LINECREW_DB_DSN must be provided")
	}

	if cfg.MaxGenerationDays <= 0 {
		return nil, fmt.Errorf("LINECREW_MAX_GENERATION_DAYS must be positive")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
