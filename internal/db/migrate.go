/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"github.com/friendsincode/linecrew/internal/models"
	"gorm.io/gorm"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(
		// People and teams
		&models.Crew{},
		&models.Worker{},
		&models.CrewMembership{},
		&models.WorkingHoursRule{},

		// Rotation definitions
		&models.SchedulePattern{},
		&models.PatternPosition{},
		&models.PatternWeekMaskEntry{},

		// Schedules
		&models.SchedulePeriod{},
		&models.ScheduleSlot{},
		&models.CoverageEvent{},
	)
}
