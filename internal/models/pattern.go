/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// RotationMode selects the periodic algorithm a pattern uses.
type RotationMode string

const (
	// RotationFixedCycle repeats an N-day cycle of WORK/REST positions.
	RotationFixedCycle RotationMode = "fixed_cycle"
	// RotationWeekIndexed repeats a per-weekday mask every M weeks.
	RotationWeekIndexed RotationMode = "week_indexed"
)

// SlotStatus is the planned state of a worker on a day.
type SlotStatus string

const (
	SlotWork    SlotStatus = "work"
	SlotRest    SlotStatus = "rest"
	SlotAbsence SlotStatus = "absence"
)

// SchedulePattern is an immutable rotation definition referenced by periods.
type SchedulePattern struct {
	ID   string `gorm:"type:uuid;primaryKey"`
	Name string `gorm:"uniqueIndex"`

	Mode RotationMode `gorm:"type:varchar(16);not null"`

	// Fixed-cycle fields. CycleLength is the cycle size in days; positions
	// are 1..CycleLength.
	CycleLength int `gorm:"not null;default:0"`

	// Week-indexed fields. WeekPeriodicity is the number of weeks before the
	// mask repeats.
	WeekPeriodicity int `gorm:"not null;default:0"`

	// RequiredWorkersPerDay is the crew composition each working day must
	// satisfy.
	RequiredWorkersPerDay int `gorm:"not null"`

	Positions   []PatternPosition      `gorm:"foreignKey:PatternID"`
	WeekEntries []PatternWeekMaskEntry `gorm:"foreignKey:PatternID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (SchedulePattern) TableName() string {
	return "schedule_patterns"
}

// PatternPosition maps one position of a fixed cycle to WORK or REST.
// Positions are 1-indexed.
type PatternPosition struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	PatternID string     `gorm:"type:uuid;index:idx_pattern_positions_pattern;not null"`
	Position  int        `gorm:"not null"`
	Status    SlotStatus `gorm:"type:varchar(16);not null"`
}

// TableName returns the table name for GORM.
func (PatternPosition) TableName() string {
	return "pattern_positions"
}

// PatternWeekMaskEntry maps one (weekIndex, dayOfWeek) pair of a
// week-indexed pattern to WORK or REST. WeekIndex is 0..WeekPeriodicity-1,
// DayOfWeek is 0=Sunday..6=Saturday.
type PatternWeekMaskEntry struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	PatternID string     `gorm:"type:uuid;index:idx_pattern_week_mask_pattern;not null"`
	WeekIndex int        `gorm:"not null"`
	DayOfWeek int        `gorm:"not null"`
	Status    SlotStatus `gorm:"type:varchar(16);not null"`
}

// TableName returns the table name for GORM.
func (PatternWeekMaskEntry) TableName() string {
	return "pattern_week_mask_entries"
}

// FirstRestPosition returns the lowest-numbered REST position of a fixed
// cycle, or 0 when the pattern has none.
func (p *SchedulePattern) FirstRestPosition() int {
	first := 0
	for _, pos := range p.Positions {
		if pos.Status != SlotRest {
			continue
		}
		if first == 0 || pos.Position < first {
			first = pos.Position
		}
	}
	return first
}
