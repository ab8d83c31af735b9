/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// PeriodStatus is the lifecycle state of a schedule period.
type PeriodStatus string

const (
	PeriodDraft           PeriodStatus = "draft"
	PeriodPendingApproval PeriodStatus = "pending_approval"
	PeriodPublished       PeriodStatus = "published"
	PeriodArchived        PeriodStatus = "archived"
)

// SchedulePeriod is a bounded date range during which one rotation pattern
// governs a crew. Periods are never physically deleted; superseded ones are
// archived.
type SchedulePeriod struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	CrewID    string `gorm:"type:uuid;index:idx_schedule_periods_crew;not null"`
	PatternID string `gorm:"type:uuid;index:idx_schedule_periods_pattern;not null"`

	// PeriodStart and PeriodEnd are inclusive calendar days.
	PeriodStart time.Time `gorm:"type:date;not null"`
	PeriodEnd   time.Time `gorm:"type:date;not null"`

	Status PeriodStatus `gorm:"type:varchar(32);not null;default:'draft'"`

	// Version increments on every publish.
	Version int `gorm:"not null;default:0"`

	// PublishedThrough records the original end boundary of the last publish
	// so regeneration after an extension never rewrites published history.
	PublishedThrough *time.Time `gorm:"type:date"`

	Note string `gorm:"type:text"`

	Crew    *Crew            `gorm:"foreignKey:CrewID"`
	Pattern *SchedulePattern `gorm:"foreignKey:PatternID"`
	Slots   []ScheduleSlot   `gorm:"foreignKey:PeriodID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (SchedulePeriod) TableName() string {
	return "schedule_periods"
}

// IsClosed reports whether the period no longer accepts slot generation.
func (p *SchedulePeriod) IsClosed() bool {
	return p.Status == PeriodPublished || p.Status == PeriodArchived
}

// Contains reports whether the given day falls inside the period bounds.
func (p *SchedulePeriod) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(Day(p.PeriodStart)) && !d.After(Day(p.PeriodEnd))
}

// Days returns the inclusive number of calendar days the period spans.
func (p *SchedulePeriod) Days() int {
	return int(Day(p.PeriodEnd).Sub(Day(p.PeriodStart)).Hours()/24) + 1
}
