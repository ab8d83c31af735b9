/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package hours resolves the effective working window of a crew on a given
// day. The generator stamps the window onto WORK slots as predicted hours.
package hours

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/linecrew/internal/cache"
	"github.com/friendsincode/linecrew/internal/models"
)

// Window is a resolved working window, HH:MM.
type Window struct {
	Start string
	End   string
}

// Service looks up working-hours rules.
type Service struct {
	db     *gorm.DB
	cache  *cache.Cache
	logger zerolog.Logger
}

// New constructs the working-hours lookup.
func New(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "working_hours").Logger(),
	}
}

// SetCache enables the optional Redis cache for rule lookups.
func (s *Service) SetCache(c *cache.Cache) {
	s.cache = c
}

// Resolve returns the effective working window for (crew, day), or nil when
// no rule matches. A date-specific rule overrides the weekday rule.
func (s *Service) Resolve(ctx context.Context, crewID string, day time.Time) (*Window, error) {
	rules, err := s.rulesFor(ctx, crewID)
	if err != nil {
		return nil, err
	}

	d := models.Day(day)
	dow := int(d.Weekday())

	var weekday *models.WorkingHoursRule
	for i := range rules {
		rule := &rules[i]
		if !rule.Active {
			continue
		}
		if rule.SpecificDate != nil && models.Day(*rule.SpecificDate).Equal(d) {
			return &Window{Start: rule.StartTime, End: rule.EndTime}, nil
		}
		if rule.DayOfWeek != nil && *rule.DayOfWeek == dow && weekday == nil {
			weekday = rule
		}
	}
	if weekday != nil {
		return &Window{Start: weekday.StartTime, End: weekday.EndTime}, nil
	}
	return nil, nil
}

func (s *Service) rulesFor(ctx context.Context, crewID string) ([]models.WorkingHoursRule, error) {
	if s.cache != nil {
		if rules, ok := s.cache.GetWorkingHours(ctx, crewID); ok {
			return rules, nil
		}
	}

	// Oldest rule wins when several cover the same weekday; without the
	// ordering the winner depends on driver row order.
	var rules []models.WorkingHoursRule
	err := s.db.WithContext(ctx).
		Where("crew_id = ? AND active = ?", crewID, true).
		Order("created_at ASC, id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetWorkingHours(ctx, crewID, rules); err != nil {
			s.logger.Debug().Err(err).Msg("failed to cache working-hours rules")
		}
	}
	return rules, nil
}
