/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/friendsincode/linecrew/internal/models"
)

// UpsertSlots writes a batch of generated slots by natural key
// (period, day, worker). Existing active rows only update state and the
// predicted working window; origin markers on rows outside the generated
// batch are never touched. Returns the number of rows written.
func (s *Store) UpsertSlots(ctx context.Context, periodID string, slots []models.ScheduleSlot) (int, error) {
	written := 0
	for i := range slots {
		slot := &slots[i]
		slot.PeriodID = periodID
		slot.Day = models.Day(slot.Day)

		var existing models.ScheduleSlot
		err := s.db.WithContext(ctx).
			Where("period_id = ? AND day = ? AND worker_id = ? AND retired = ?",
				periodID, slot.Day, slot.WorkerID, false).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if slot.ID == "" {
				slot.ID = uuid.NewString()
			}
			if err := s.db.WithContext(ctx).Create(slot).Error; err != nil {
				return written, err
			}
		case err != nil:
			return written, err
		default:
			update := map[string]any{
				"state":           slot.State,
				"predicted_start": slot.PredictedStart,
				"predicted_end":   slot.PredictedEnd,
			}
			if err := s.db.WithContext(ctx).Model(&existing).Updates(update).Error; err != nil {
				return written, err
			}
		}
		written++
	}
	return written, nil
}

// FindSlot resolves the active slot at (period, day, worker).
func (s *Store) FindSlot(ctx context.Context, periodID string, day time.Time, workerID string) (*models.ScheduleSlot, error) {
	var slot models.ScheduleSlot
	err := s.db.WithContext(ctx).
		Where("period_id = ? AND day = ? AND worker_id = ? AND retired = ?",
			periodID, models.Day(day), workerID, false).
		First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// SaveSlot persists changed slot fields.
func (s *Store) SaveSlot(ctx context.Context, slot *models.ScheduleSlot) error {
	return s.db.WithContext(ctx).Save(slot).Error
}

// ListSlots returns a period's active slots ordered by day then worker.
func (s *Store) ListSlots(ctx context.Context, periodID string) ([]models.ScheduleSlot, error) {
	var slots []models.ScheduleSlot
	err := s.db.WithContext(ctx).
		Where("period_id = ? AND retired = ?", periodID, false).
		Order("day ASC, worker_id ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// ListSlotsByWorkerFrom returns a worker's active slots in a period on or
// after fromDate, ordered by day.
func (s *Store) ListSlotsByWorkerFrom(ctx context.Context, periodID, workerID string, fromDate time.Time) ([]models.ScheduleSlot, error) {
	var slots []models.ScheduleSlot
	err := s.db.WithContext(ctx).
		Where("period_id = ? AND worker_id = ? AND day >= ? AND retired = ?",
			periodID, workerID, models.Day(fromDate), false).
		Order("day ASC").
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// ListRecentSlots returns a worker's active slots strictly before the given
// day, newest first, capped at limit. The generator walks these to find the
// most recent rest run when continuing a published rotation.
func (s *Store) ListRecentSlots(ctx context.Context, periodID, workerID string, before time.Time, limit int) ([]models.ScheduleSlot, error) {
	var slots []models.ScheduleSlot
	err := s.db.WithContext(ctx).
		Where("period_id = ? AND worker_id = ? AND day < ? AND retired = ?",
			periodID, workerID, models.Day(before), false).
		Order("day DESC").
		Limit(limit).
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// FindActiveSlotElsewhere looks for an active slot held by the worker on the
// given day inside any other non-archived period. A worker cannot be booked
// in two active periods on the same day.
func (s *Store) FindActiveSlotElsewhere(ctx context.Context, workerID string, day time.Time, excludePeriodID string) (*models.ScheduleSlot, error) {
	var slot models.ScheduleSlot
	err := s.db.WithContext(ctx).
		Joins("JOIN schedule_periods ON schedule_periods.id = schedule_slots.period_id").
		Where("schedule_slots.worker_id = ? AND schedule_slots.day = ? AND schedule_slots.retired = ?",
			workerID, models.Day(day), false).
		Where("schedule_slots.period_id <> ?", excludePeriodID).
		Where("schedule_periods.status <> ?", models.PeriodArchived).
		First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// DistinctWorkerIDs returns the workers holding active slots in a period.
// Extension regenerates for exactly this set; it never recruits new workers.
func (s *Store) DistinctWorkerIDs(ctx context.Context, periodID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.ScheduleSlot{}).
		Where("period_id = ? AND retired = ?", periodID, false).
		Distinct().
		Order("worker_id ASC").
		Pluck("worker_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CountAbsences counts a period's active slots in absence state. Publish
// refuses periods that already carry absences.
func (s *Store) CountAbsences(ctx context.Context, periodID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.ScheduleSlot{}).
		Where("period_id = ? AND state = ? AND retired = ?", periodID, models.SlotAbsence, false).
		Count(&count).Error
	return count, err
}

// AppendCoverageEvent records a deviation. Coverage events are append-only:
// nothing in the engine updates or deletes them.
func (s *Store) AppendCoverageEvent(ctx context.Context, event *models.CoverageEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(event).Error
}

// ListCoverageEvents returns the audit trail of a slot, oldest first.
func (s *Store) ListCoverageEvents(ctx context.Context, slotID string) ([]models.CoverageEvent, error) {
	var events []models.CoverageEvent
	err := s.db.WithContext(ctx).
		Where("slot_id = ?", slotID).
		Order("recorded_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
