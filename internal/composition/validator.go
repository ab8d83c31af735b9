/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package composition checks that every working day of a period carries
// exactly the crew size its pattern requires.
package composition

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/linecrew/internal/models"
	"github.com/friendsincode/linecrew/internal/store"
	"github.com/friendsincode/linecrew/internal/telemetry"
)

// Error is the typed failure the publish gate surfaces: the full list of
// offending days, never just the first.
type Error struct {
	Violations []models.CompositionViolation
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("composition violated on %d day(s)", len(e.Violations))
}

// Validator scans a period's slots day by day.
type Validator struct {
	store  *store.Store
	logger zerolog.Logger
}

// NewValidator creates a composition validator.
func NewValidator(st *store.Store, logger zerolog.Logger) *Validator {
	return &Validator{
		store:  st,
		logger: logger.With().Str("component", "composition_validator").Logger(),
	}
}

// Validate counts WORK slots for every calendar day of the period and
// reports each day whose count differs from the pattern's required crew
// size. Days without any WORK slot are legitimate all-rest days and are not
// violations. The report lists every offending day so the caller can present
// a complete remediation list.
func (v *Validator) Validate(ctx context.Context, periodID string) (*models.CompositionReport, error) {
	period, err := v.store.GetPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if period.Pattern == nil {
		return nil, fmt.Errorf("period %s: %w", periodID, store.ErrNotFound)
	}
	required := period.Pattern.RequiredWorkersPerDay

	slots, err := v.store.ListSlots(ctx, periodID)
	if err != nil {
		return nil, err
	}

	workByDay := make(map[time.Time]int)
	for _, slot := range slots {
		if slot.State == models.SlotWork {
			workByDay[models.Day(slot.Day)]++
		}
	}

	report := &models.CompositionReport{
		PeriodID:  periodID,
		Valid:     true,
		CheckedAt: time.Now().UTC(),
	}

	end := models.Day(period.PeriodEnd)
	for day := models.Day(period.PeriodStart); !day.After(end); day = day.AddDate(0, 0, 1) {
		actual := workByDay[day]
		if actual == 0 || actual == required {
			continue
		}
		report.Valid = false
		report.Violations = append(report.Violations, models.CompositionViolation{
			Day:      day,
			Actual:   actual,
			Required: required,
		})
	}

	if !report.Valid {
		telemetry.CompositionViolationsTotal.Add(float64(len(report.Violations)))
		v.logger.Debug().
			Str("period", periodID).
			Int("violations", len(report.Violations)).
			Msg("composition validation failed")
	}
	return report, nil
}
