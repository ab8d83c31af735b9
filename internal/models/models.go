/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// Crew is a field team that schedules are built for.
type Crew struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Name        string `gorm:"uniqueIndex"`
	Description string `gorm:"type:text"`
	Region      string `gorm:"type:varchar(64)"`
	Timezone    string `gorm:"type:varchar(32)"`
	Active      bool   `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM.
func (Crew) TableName() string {
	return "crews"
}

// Worker is a rostered field employee.
type Worker struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	Badge      string `gorm:"uniqueIndex;type:varchar(32)"`
	Name       string `gorm:"index"`
	Occupation string `gorm:"type:varchar(64)"`
	Active     bool   `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table name for GORM.
func (Worker) TableName() string {
	return "workers"
}

// CrewMembership binds a worker to a crew for a validity window.
// A nil EndsOn means the membership is open-ended.
type CrewMembership struct {
	ID       string `gorm:"type:uuid;primaryKey"`
	CrewID   string `gorm:"type:uuid;index:idx_crew_memberships_crew;not null"`
	WorkerID string `gorm:"type:uuid;index:idx_crew_memberships_worker;not null"`

	StartsOn time.Time  `gorm:"type:date;not null"`
	EndsOn   *time.Time `gorm:"type:date"`

	// FirstRestOffsetDays is the number of days from a period start to the
	// worker's first rest day, used to phase the rotation for this worker.
	FirstRestOffsetDays int `gorm:"not null;default:0"`

	Crew   *Crew   `gorm:"foreignKey:CrewID"`
	Worker *Worker `gorm:"foreignKey:WorkerID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (CrewMembership) TableName() string {
	return "crew_memberships"
}

// Day normalizes a timestamp to its calendar day (UTC midnight). All
// date-keyed rows store days in this form so natural-key lookups compare
// cleanly across drivers.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
