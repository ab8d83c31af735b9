/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package roster resolves the currently-effective members of a crew. The
// generator falls back to it when a caller supplies no explicit worker list.
package roster

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/linecrew/internal/cache"
	"github.com/friendsincode/linecrew/internal/models"
)

// Member is one crew member with the phasing the rotation needs.
type Member struct {
	WorkerID            string
	FirstRestOffsetDays int
}

// Service looks up crew membership.
type Service struct {
	db     *gorm.DB
	cache  *cache.Cache
	logger zerolog.Logger
}

// New constructs the roster lookup.
func New(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "roster").Logger(),
	}
}

// SetCache enables the optional Redis cache for membership lookups.
func (s *Service) SetCache(c *cache.Cache) {
	s.cache = c
}

// CurrentMembers returns the workers whose membership covers the whole
// [from, to] window, with their first-rest offsets.
func (s *Service) CurrentMembers(ctx context.Context, crewID string, from, to time.Time) ([]Member, error) {
	cacheKey := crewID + ":" + models.Day(from).Format("2006-01-02") + ":" + models.Day(to).Format("2006-01-02")
	if s.cache != nil {
		if cached, ok := s.cache.GetRoster(ctx, cacheKey); ok {
			members := make([]Member, len(cached))
			for i, m := range cached {
				members[i] = Member{WorkerID: m.WorkerID, FirstRestOffsetDays: m.FirstRestOffsetDays}
			}
			return members, nil
		}
	}

	var rows []models.CrewMembership
	err := s.db.WithContext(ctx).
		Where("crew_id = ?", crewID).
		Where("starts_on <= ?", models.Day(from)).
		Where("ends_on IS NULL OR ends_on >= ?", models.Day(to)).
		Order("worker_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	members := make([]Member, len(rows))
	for i, row := range rows {
		members[i] = Member{
			WorkerID:            row.WorkerID,
			FirstRestOffsetDays: row.FirstRestOffsetDays,
		}
	}

	if s.cache != nil {
		cached := make([]cache.CachedMember, len(members))
		for i, m := range members {
			cached[i] = cache.CachedMember{WorkerID: m.WorkerID, FirstRestOffsetDays: m.FirstRestOffsetDays}
		}
		if err := s.cache.SetRoster(ctx, cacheKey, cached); err != nil {
			s.logger.Debug().Err(err).Msg("failed to cache roster")
		}
	}
	return members, nil
}
