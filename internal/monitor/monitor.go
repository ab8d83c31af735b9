/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package monitor periodically re-validates the composition of published
// periods so drift introduced by deviations surfaces in logs and metrics
// before the crew is short-handed in the field.
package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/linecrew/internal/composition"
	"github.com/friendsincode/linecrew/internal/models"
	"github.com/friendsincode/linecrew/internal/store"
)

// Service watches published periods.
type Service struct {
	store     *store.Store
	validator *composition.Validator
	interval  time.Duration
	logger    zerolog.Logger
}

// New constructs the monitor. interval defaults to 30 minutes when
// non-positive.
func New(st *store.Store, validator *composition.Validator, interval time.Duration, logger zerolog.Logger) *Service {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Service{
		store:     st,
		validator: validator,
		interval:  interval,
		logger:    logger.With().Str("component", "monitor").Logger(),
	}
}

// Run executes the monitor loop until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("composition monitor started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("composition monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	var periods []models.SchedulePeriod
	err := s.store.DB().WithContext(ctx).
		Where("status = ?", models.PeriodPublished).
		Find(&periods).Error
	if err != nil {
		s.logger.Error().Err(err).Msg("monitor failed to load published periods")
		return
	}

	for _, period := range periods {
		report, err := s.validator.Validate(ctx, period.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("period", period.ID).Msg("composition check failed")
			continue
		}
		if !report.Valid {
			s.logger.Warn().
				Str("period", period.ID).
				Str("crew", period.CrewID).
				Int("violations", len(report.Violations)).
				Msg("published period no longer satisfies composition")
		}
	}
}
