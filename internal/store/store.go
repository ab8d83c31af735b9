/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store is the durable home of periods, slots, and coverage events.
// Every multi-row mutation the engine performs runs through Transaction so a
// half-applied generation run or transfer is never observable.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/friendsincode/linecrew/internal/models"
)

// ErrNotFound is returned when a period, slot, or pattern does not resolve.
var ErrNotFound = errors.New("record not found")

// Store wraps a gorm handle with the engine's query surface.
type Store struct {
	db *gorm.DB
}

// New constructs a store over the given database handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for wiring concerns (migrations, seeds).
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn against a transactional store. The transaction commits
// when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// CreatePeriod inserts a new schedule period.
func (s *Store) CreatePeriod(ctx context.Context, period *models.SchedulePeriod) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(period).Error
}

// GetPeriod loads a period with its pattern definition.
func (s *Store) GetPeriod(ctx context.Context, id string) (*models.SchedulePeriod, error) {
	var period models.SchedulePeriod
	err := s.db.WithContext(ctx).
		Preload("Pattern").
		Preload("Pattern.Positions").
		Preload("Pattern.WeekEntries").
		First(&period, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &period, nil
}

// SavePeriod persists changed period fields.
func (s *Store) SavePeriod(ctx context.Context, period *models.SchedulePeriod) error {
	return s.db.WithContext(ctx).Save(period).Error
}

// FindOverlapping returns the non-archived periods of a crew whose inclusive
// date range intersects [start, end]. excludePeriodID, when non-empty, skips
// the period being edited.
func (s *Store) FindOverlapping(ctx context.Context, crewID string, start, end time.Time, excludePeriodID string) ([]models.SchedulePeriod, error) {
	q := s.db.WithContext(ctx).
		Where("crew_id = ?", crewID).
		Where("status <> ?", models.PeriodArchived).
		Where("period_start <= ? AND period_end >= ?", models.Day(end), models.Day(start))
	if excludePeriodID != "" {
		q = q.Where("id <> ?", excludePeriodID)
	}

	var periods []models.SchedulePeriod
	if err := q.Find(&periods).Error; err != nil {
		return nil, err
	}
	return periods, nil
}

// GetPattern loads a pattern with its positions and week mask.
func (s *Store) GetPattern(ctx context.Context, id string) (*models.SchedulePattern, error) {
	var pattern models.SchedulePattern
	err := s.db.WithContext(ctx).
		Preload("Positions").
		Preload("WeekEntries").
		First(&pattern, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pattern, nil
}
