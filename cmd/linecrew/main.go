/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/friendsincode/linecrew/internal/cache"
	"github.com/friendsincode/linecrew/internal/clock"
	"github.com/friendsincode/linecrew/internal/composition"
	"github.com/friendsincode/linecrew/internal/config"
	"github.com/friendsincode/linecrew/internal/db"
	"github.com/friendsincode/linecrew/internal/deviation"
	"github.com/friendsincode/linecrew/internal/events"
	"github.com/friendsincode/linecrew/internal/generation"
	"github.com/friendsincode/linecrew/internal/hours"
	"github.com/friendsincode/linecrew/internal/lifecycle"
	"github.com/friendsincode/linecrew/internal/logging"
	"github.com/friendsincode/linecrew/internal/roster"
	"github.com/friendsincode/linecrew/internal/store"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "linecrew",
	Short: "Linecrew - shift rotation scheduling for utility field crews",
	Long:  "Linecrew computes, validates, and publishes shift rotation schedules for electrical-utility field crews, and records real-world deviations without corrupting published history.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it)
func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.Setup(cfg.Environment)
	return nil
}

// engine bundles the wired services a command needs.
type engine struct {
	database  *gorm.DB
	store     *store.Store
	lifecycle *lifecycle.Service
	generator *generation.Service
	validator *composition.Validator
	deviation *deviation.Service
	cache     *cache.Cache
	bus       *events.Bus
}

func openEngine() (*engine, error) {
	database, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.RegisterCallbacks(database); err != nil {
		return nil, fmt.Errorf("register db callbacks: %w", err)
	}

	st := store.New(database)
	hoursSvc := hours.New(database, logger)
	rosterSvc := roster.New(database, logger)

	var c *cache.Cache
	if cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = cfg.RedisAddr
		cacheCfg.RedisPassword = cfg.RedisPassword
		cacheCfg.RedisDB = cfg.RedisDB
		c, err = cache.New(cacheCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize cache: %w", err)
		}
		hoursSvc.SetCache(c)
		rosterSvc.SetCache(c)
	}

	bus := events.NewBus()
	generator := generation.New(st, hoursSvc, rosterSvc, cfg.MaxGenerationDays, logger)
	generator.SetBus(bus)
	validator := composition.NewValidator(st, logger)
	lifecycleSvc := lifecycle.New(st, generator, validator, rosterSvc, logger)
	lifecycleSvc.SetBus(bus)
	deviationSvc := deviation.New(st, clock.System{}, logger)
	deviationSvc.SetBus(bus)

	return &engine{
		database:  database,
		store:     st,
		lifecycle: lifecycleSvc,
		generator: generator,
		validator: validator,
		deviation: deviationSvc,
		cache:     c,
		bus:       bus,
	}, nil
}

func (e *engine) close() {
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			logger.Warn().Err(err).Msg("cache close failed")
		}
	}
	if err := db.Close(e.database); err != nil {
		logger.Warn().Err(err).Msg("database close failed")
	}
}
