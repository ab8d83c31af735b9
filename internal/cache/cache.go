/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for roster and
// working-hours lookups, which the generator hits once per crew per run.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/linecrew/internal/models"
)

// Default TTL values for different cache types
const (
	DefaultRosterTTL       = 10 * time.Minute
	DefaultWorkingHoursTTL = 30 * time.Minute
)

// Key prefixes for Redis cache
const (
	KeyRoster       = "linecrew:cache:roster:"        // + crew_id:from:to
	KeyWorkingHours = "linecrew:cache:working_hours:" // + crew_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	RosterTTL       time.Duration
	WorkingHoursTTL time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:       "localhost:6379",
		RosterTTL:       DefaultRosterTTL,
		WorkingHoursTTL: DefaultWorkingHoursTTL,
		DisableOnError:  true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// New creates a new cache instance.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// CachedMember is one roster entry with its rotation phasing.
type CachedMember struct {
	WorkerID            string `json:"worker_id"`
	FirstRestOffsetDays int    `json:"first_rest_offset_days"`
}

// GetRoster returns the cached roster for a (crew, window) key, if present.
func (c *Cache) GetRoster(ctx context.Context, key string) ([]CachedMember, bool) {
	if !c.IsAvailable() {
		return nil, false
	}

	raw, err := c.client.Get(ctx, KeyRoster+key).Bytes()
	if err != nil {
		c.handleError(err, "get_roster")
		return nil, false
	}

	var members []CachedMember
	if err := json.Unmarshal(raw, &members); err != nil {
		c.logger.Debug().Err(err).Msg("corrupt roster cache entry")
		return nil, false
	}
	return members, true
}

// SetRoster caches the roster for a (crew, window) key.
func (c *Cache) SetRoster(ctx context.Context, key string, members []CachedMember) error {
	if !c.IsAvailable() {
		return nil
	}

	raw, err := json.Marshal(members)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, KeyRoster+key, raw, c.config.RosterTTL).Err(); err != nil {
		c.handleError(err, "set_roster")
		return err
	}
	return nil
}

// GetWorkingHours returns the cached working-hours rules of a crew.
func (c *Cache) GetWorkingHours(ctx context.Context, crewID string) ([]models.WorkingHoursRule, bool) {
	if !c.IsAvailable() {
		return nil, false
	}

	raw, err := c.client.Get(ctx, KeyWorkingHours+crewID).Bytes()
	if err != nil {
		c.handleError(err, "get_working_hours")
		return nil, false
	}

	var rules []models.WorkingHoursRule
	if err := json.Unmarshal(raw, &rules); err != nil {
		c.logger.Debug().Err(err).Msg("corrupt working-hours cache entry")
		return nil, false
	}
	return rules, true
}

// SetWorkingHours caches the working-hours rules of a crew.
func (c *Cache) SetWorkingHours(ctx context.Context, crewID string, rules []models.WorkingHoursRule) error {
	if !c.IsAvailable() {
		return nil
	}

	raw, err := json.Marshal(rules)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, KeyWorkingHours+crewID, raw, c.config.WorkingHoursTTL).Err(); err != nil {
		c.handleError(err, "set_working_hours")
		return err
	}
	return nil
}
