/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// CoverageEventType classifies a recorded deviation.
type CoverageEventType string

const (
	CoverageAbsence  CoverageEventType = "absence"
	CoverageSwap     CoverageEventType = "swap"
	CoverageTransfer CoverageEventType = "transfer"
)

// CoverageResolution states whether a deviation left the day covered.
// Meaningful for absence and swap events.
type CoverageResolution string

const (
	ResolutionCovered      CoverageResolution = "covered"
	ResolutionUncoveredGap CoverageResolution = "uncovered_gap"
)

// CoverageEvent is an append-only record of a deviation from the generated
// baseline. Events reference a slot weakly and outlive its state changes;
// together they form the audit trail of a published schedule. Rows are never
// updated or deleted.
type CoverageEvent struct {
	ID     string `gorm:"type:uuid;primaryKey"`
	SlotID string `gorm:"type:uuid;index:idx_coverage_events_slot;not null"`

	Type       CoverageEventType  `gorm:"type:varchar(16);not null"`
	Resolution CoverageResolution `gorm:"type:varchar(16)"`

	// CoveringWorkerID is the substitute (absence) or executor (swap), when
	// one exists.
	CoveringWorkerID *string `gorm:"type:uuid;index:idx_coverage_events_covering"`

	Justification string `gorm:"type:text"`

	RecordedAt time.Time `gorm:"not null"`

	Slot           *ScheduleSlot `gorm:"foreignKey:SlotID"`
	CoveringWorker *Worker       `gorm:"foreignKey:CoveringWorkerID"`
}

// TableName returns the table name for GORM.
func (CoverageEvent) TableName() string {
	return "coverage_events"
}
