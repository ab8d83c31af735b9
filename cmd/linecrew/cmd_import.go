/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/friendsincode/linecrew/internal/models"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Seed crews, workers, and rotation patterns from a YAML file",
	Long:  "Import crews with their rosters and working-hours rules, plus rotation pattern definitions, from a YAML seed document.",
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "Path to the YAML seed file (required)")
	importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}

// seedDocument is the YAML shape the import command accepts.
type seedDocument struct {
	Crews    []seedCrew    `yaml:"crews"`
	Patterns []seedPattern `yaml:"patterns"`
}

type seedCrew struct {
	Name         string          `yaml:"name"`
	Region       string          `yaml:"region"`
	Timezone     string          `yaml:"timezone"`
	WorkingHours []seedHoursRule `yaml:"working_hours"`
	Members      []seedMember    `yaml:"members"`
}

type seedHoursRule struct {
	DayOfWeek *int    `yaml:"day_of_week"`
	Date      *string `yaml:"date"`
	Start     string  `yaml:"start"`
	End       string  `yaml:"end"`
}

type seedMember struct {
	Badge               string `yaml:"badge"`
	Name                string `yaml:"name"`
	Occupation          string `yaml:"occupation"`
	StartsOn            string `yaml:"starts_on"`
	FirstRestOffsetDays int    `yaml:"first_rest_offset_days"`
}

type seedPattern struct {
	Name                  string             `yaml:"name"`
	Mode                  string             `yaml:"mode"`
	CycleLength           int                `yaml:"cycle_length"`
	WeekPeriodicity       int                `yaml:"week_periodicity"`
	RequiredWorkersPerDay int                `yaml:"required_workers_per_day"`
	Cycle                 []seedCyclePos     `yaml:"cycle"`
	WeekMask              []seedWeekMaskCell `yaml:"week_mask"`
}

type seedCyclePos struct {
	Position int    `yaml:"position"`
	Status   string `yaml:"status"`
}

type seedWeekMaskCell struct {
	Week      int    `yaml:"week"`
	DayOfWeek int    `yaml:"day_of_week"`
	Status    string `yaml:"status"`
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	raw, err := os.ReadFile(importFile)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var doc seedDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	err = eng.database.Transaction(func(tx *gorm.DB) error {
		for _, crew := range doc.Crews {
			if err := importCrew(tx, crew); err != nil {
				return fmt.Errorf("crew %q: %w", crew.Name, err)
			}
		}
		for _, pattern := range doc.Patterns {
			if err := importPattern(tx, pattern); err != nil {
				return fmt.Errorf("pattern %q: %w", pattern.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info().
		Int("crews", len(doc.Crews)).
		Int("patterns", len(doc.Patterns)).
		Msg("seed import complete")
	return nil
}

func importCrew(tx *gorm.DB, doc seedCrew) error {
	crew := models.Crew{
		ID:       uuid.NewString(),
		Name:     doc.Name,
		Region:   doc.Region,
		Timezone: doc.Timezone,
		Active:   true,
	}
	if err := tx.Where("name = ?", doc.Name).FirstOrCreate(&crew).Error; err != nil {
		return err
	}

	for _, rule := range doc.WorkingHours {
		row := models.WorkingHoursRule{
			ID:        uuid.NewString(),
			CrewID:    crew.ID,
			DayOfWeek: rule.DayOfWeek,
			StartTime: rule.Start,
			EndTime:   rule.End,
			Active:    true,
		}
		if rule.Date != nil {
			day, err := time.Parse("2006-01-02", *rule.Date)
			if err != nil {
				return fmt.Errorf("working-hours date %q: %w", *rule.Date, err)
			}
			d := models.Day(day)
			row.SpecificDate = &d
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}

	for _, member := range doc.Members {
		worker := models.Worker{
			ID:         uuid.NewString(),
			Badge:      member.Badge,
			Name:       member.Name,
			Occupation: member.Occupation,
			Active:     true,
		}
		if err := tx.Where("badge = ?", member.Badge).FirstOrCreate(&worker).Error; err != nil {
			return err
		}

		startsOn, err := time.Parse("2006-01-02", member.StartsOn)
		if err != nil {
			return fmt.Errorf("member %q starts_on: %w", member.Badge, err)
		}
		membership := models.CrewMembership{
			ID:                  uuid.NewString(),
			CrewID:              crew.ID,
			WorkerID:            worker.ID,
			StartsOn:            models.Day(startsOn),
			FirstRestOffsetDays: member.FirstRestOffsetDays,
		}
		if err := tx.Where("crew_id = ? AND worker_id = ?", crew.ID, worker.ID).
			FirstOrCreate(&membership).Error; err != nil {
			return err
		}
	}
	return nil
}

func importPattern(tx *gorm.DB, doc seedPattern) error {
	pattern := models.SchedulePattern{
		ID:                    uuid.NewString(),
		Name:                  doc.Name,
		Mode:                  models.RotationMode(doc.Mode),
		CycleLength:           doc.CycleLength,
		WeekPeriodicity:       doc.WeekPeriodicity,
		RequiredWorkersPerDay: doc.RequiredWorkersPerDay,
	}
	if err := tx.Where("name = ?", doc.Name).FirstOrCreate(&pattern).Error; err != nil {
		return err
	}

	for _, pos := range doc.Cycle {
		row := models.PatternPosition{
			ID:        uuid.NewString(),
			PatternID: pattern.ID,
			Position:  pos.Position,
			Status:    models.SlotStatus(pos.Status),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	for _, entry := range doc.WeekMask {
		row := models.PatternWeekMaskEntry{
			ID:        uuid.NewString(),
			PatternID: pattern.ID,
			WeekIndex: entry.Week,
			DayOfWeek: entry.DayOfWeek,
			Status:    models.SlotStatus(entry.Status),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}
