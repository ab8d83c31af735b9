/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// SlotOrigin records how a slot came to exist.
type SlotOrigin string

const (
	// OriginGenerated marks slots written by the rotation generator.
	OriginGenerated SlotOrigin = "generated"
	// OriginReassigned marks slots whose worker was changed by a transfer.
	OriginReassigned SlotOrigin = "reassigned"
)

// ScheduleSlot is the planned state of one worker on one day within one
// period. The natural key is (PeriodID, Day, WorkerID); the generator
// upserts against it.
type ScheduleSlot struct {
	ID       string `gorm:"type:uuid;primaryKey"`
	PeriodID string `gorm:"type:uuid;index:idx_schedule_slots_natural,priority:1;not null"`
	Day      time.Time `gorm:"type:date;index:idx_schedule_slots_natural,priority:2;not null"`
	WorkerID string `gorm:"type:uuid;index:idx_schedule_slots_natural,priority:3;index:idx_schedule_slots_worker;not null"`

	State  SlotStatus `gorm:"type:varchar(16);not null"`
	Origin SlotOrigin `gorm:"type:varchar(16);not null;default:'generated'"`

	// Predicted working window, HH:MM, set only while State is work and the
	// crew has an effective working-hours rule for the day.
	PredictedStart string `gorm:"type:varchar(5)"`
	PredictedEnd   string `gorm:"type:varchar(5)"`

	Note string `gorm:"type:text"`

	// Soft-retire markers. A retired slot is kept as history and excluded
	// from every active-schedule query.
	Retired     bool       `gorm:"not null;default:false;index:idx_schedule_slots_retired"`
	RetiredAt   *time.Time
	RetiredNote string `gorm:"type:text"`

	Period *SchedulePeriod `gorm:"foreignKey:PeriodID"`
	Worker *Worker         `gorm:"foreignKey:WorkerID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (ScheduleSlot) TableName() string {
	return "schedule_slots"
}

// HasPredictedHours reports whether the slot carries a resolved working
// window.
func (s *ScheduleSlot) HasPredictedHours() bool {
	return s.PredictedStart != "" && s.PredictedEnd != ""
}
