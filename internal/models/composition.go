/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// CompositionViolation reports one day whose WORK head-count does not match
// the pattern's required crew size.
type CompositionViolation struct {
	Day      time.Time `json:"day"`
	Actual   int       `json:"actual"`
	Required int       `json:"required"`
}

// CompositionReport is the result of validating a period's composition.
// An empty Violations list means every day satisfies the pattern.
type CompositionReport struct {
	PeriodID   string                 `json:"period_id"`
	Valid      bool                   `json:"valid"`
	Violations []CompositionViolation `json:"violations"`
	CheckedAt  time.Time              `json:"checked_at"`
}
