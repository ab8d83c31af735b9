/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// WorkingHoursRule defines the effective working window for a crew, either
// recurring by weekday or pinned to a specific date. A date-specific rule
// overrides the weekday rule for that day.
type WorkingHoursRule struct {
	ID     string `gorm:"type:uuid;primaryKey"`
	CrewID string `gorm:"type:uuid;index:idx_working_hours_crew;not null"`

	// Recurring rule (DayOfWeek set, SpecificDate null). 0=Sunday, 6=Saturday.
	DayOfWeek *int `gorm:"index"`

	// One-off rule (SpecificDate set, DayOfWeek null).
	SpecificDate *time.Time `gorm:"type:date"`

	// Working window, HH:MM format.
	StartTime string `gorm:"type:varchar(5);not null"`
	EndTime   string `gorm:"type:varchar(5);not null"`

	Active bool   `gorm:"not null;default:true"`
	Note   string `gorm:"type:text"`

	Crew *Crew `gorm:"foreignKey:CrewID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (WorkingHoursRule) TableName() string {
	return "working_hours_rules"
}
