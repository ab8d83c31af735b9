/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package rotation

import (
	"errors"
	"testing"
	"time"

	"github.com/friendsincode/linecrew/internal/models"
)

func fixedCyclePattern(t *testing.T, cycleLength int, restPositions ...int) *models.SchedulePattern {
	t.Helper()

	rest := make(map[int]bool, len(restPositions))
	for _, p := range restPositions {
		rest[p] = true
	}

	pattern := &models.SchedulePattern{
		Mode:        models.RotationFixedCycle,
		CycleLength: cycleLength,
	}
	for p := 1; p <= cycleLength; p++ {
		status := models.SlotWork
		if rest[p] {
			status = models.SlotRest
		}
		pattern.Positions = append(pattern.Positions, models.PatternPosition{
			Position: p,
			Status:   status,
		})
	}
	return pattern
}

func TestCompileRejectsInvalidPatterns(t *testing.T) {
	tests := []struct {
		name    string
		pattern *models.SchedulePattern
	}{
		{
			name:    "unknown mode",
			pattern: &models.SchedulePattern{Mode: "lunar"},
		},
		{
			name:    "fixed cycle with zero length",
			pattern: &models.SchedulePattern{Mode: models.RotationFixedCycle},
		},
		{
			name: "fixed cycle without rest position",
			pattern: &models.SchedulePattern{
				Mode:        models.RotationFixedCycle,
				CycleLength: 3,
				Positions: []models.PatternPosition{
					{Position: 1, Status: models.SlotWork},
					{Position: 2, Status: models.SlotWork},
					{Position: 3, Status: models.SlotWork},
				},
			},
		},
		{
			name: "fixed cycle with out-of-range position",
			pattern: &models.SchedulePattern{
				Mode:        models.RotationFixedCycle,
				CycleLength: 2,
				Positions: []models.PatternPosition{
					{Position: 3, Status: models.SlotRest},
				},
			},
		},
		{
			name:    "week indexed with zero periodicity",
			pattern: &models.SchedulePattern{Mode: models.RotationWeekIndexed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compile(tt.pattern); !errors.Is(err, ErrInvalidPattern) {
				t.Fatalf("Compile() error = %v, want ErrInvalidPattern", err)
			}
		})
	}
}

func TestFixedCycleStatusAt(t *testing.T) {
	rot, err := Compile(fixedCyclePattern(t, 6, 5, 6))
	if err != nil {
		t.Fatalf("Compile() returned error: %v", err)
	}

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// Worker's first rest falls on day 5 of the period (index 4).
	anchor := rot.AnchorFromFirstRest(4)
	if anchor != 0 {
		t.Fatalf("AnchorFromFirstRest(4) = %d, want 0", anchor)
	}

	restDays := 0
	var restIdx []int
	for i := 0; i < 12; i++ {
		status := rot.StatusAt(anchor, i, day.AddDate(0, 0, i))
		if status == models.SlotRest {
			restDays++
			restIdx = append(restIdx, i)
		}
	}
	if restDays != 4 {
		t.Fatalf("rest days over 12 generated days = %d, want 4", restDays)
	}
	want := []int{4, 5, 10, 11}
	for i, idx := range restIdx {
		if idx != want[i] {
			t.Fatalf("rest day indexes = %v, want %v", restIdx, want)
		}
	}
}

func TestStatusAtIsDeterministic(t *testing.T) {
	rot, err := Compile(fixedCyclePattern(t, 6, 5, 6))
	if err != nil {
		t.Fatalf("Compile() returned error: %v", err)
	}

	day := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	first := rot.StatusAt(3, 17, day)
	for i := 0; i < 100; i++ {
		if got := rot.StatusAt(3, 17, day); got != first {
			t.Fatalf("StatusAt() = %v on iteration %d, first call returned %v", got, i, first)
		}
	}
}

func TestAnchorFromRestIndexContinuesCycle(t *testing.T) {
	rot, err := Compile(fixedCyclePattern(t, 6, 5, 6))
	if err != nil {
		t.Fatalf("Compile() returned error: %v", err)
	}

	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	anchor := rot.AnchorFromFirstRest(4)

	// The rest block starting at index 28 back-derives the same anchor, so
	// the rotation continues unbroken past the boundary.
	derived := rot.AnchorFromRestIndex(28)
	if derived != anchor {
		t.Fatalf("AnchorFromRestIndex(28) = %d, want %d", derived, anchor)
	}
	for i := 30; i < 40; i++ {
		orig := rot.StatusAt(anchor, i, day.AddDate(0, 0, i))
		cont := rot.StatusAt(derived, i, day.AddDate(0, 0, i))
		if orig != cont {
			t.Fatalf("day index %d: continuation status %v diverges from original %v", i, cont, orig)
		}
	}
}

func TestWeekIndexedStatusAt(t *testing.T) {
	pattern := &models.SchedulePattern{
		Mode:            models.RotationWeekIndexed,
		WeekPeriodicity: 2,
	}
	// Week 0: Monday through Friday work. Week 1: Wednesday only.
	for dow := 1; dow <= 5; dow++ {
		pattern.WeekEntries = append(pattern.WeekEntries, models.PatternWeekMaskEntry{
			WeekIndex: 0, DayOfWeek: dow, Status: models.SlotWork,
		})
	}
	pattern.WeekEntries = append(pattern.WeekEntries,
		models.PatternWeekMaskEntry{WeekIndex: 1, DayOfWeek: 3, Status: models.SlotWork},
	)

	rot, err := Compile(pattern)
	if err != nil {
		t.Fatalf("Compile() returned error: %v", err)
	}

	// 2026-03-02 is a Monday.
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		dayIndex int
		want     models.SlotStatus
	}{
		{"week 0 monday works", 0, models.SlotWork},
		{"week 0 friday works", 4, models.SlotWork},
		{"week 0 saturday missing entry rests", 5, models.SlotRest},
		{"week 1 monday rests", 7, models.SlotRest},
		{"week 1 wednesday works", 9, models.SlotWork},
		{"week 2 wraps to week 0", 14, models.SlotWork},
		{"week 3 wraps to week 1", 21, models.SlotRest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day := start.AddDate(0, 0, tt.dayIndex)
			if got := rot.StatusAt(0, tt.dayIndex, day); got != tt.want {
				t.Errorf("StatusAt(0, %d) = %v, want %v", tt.dayIndex, got, tt.want)
			}
		})
	}
}

func TestMissingCyclePositionDefaultsToRest(t *testing.T) {
	pattern := &models.SchedulePattern{
		Mode:        models.RotationFixedCycle,
		CycleLength: 4,
		Positions: []models.PatternPosition{
			{Position: 1, Status: models.SlotWork},
			{Position: 2, Status: models.SlotRest},
			// Positions 3 and 4 deliberately absent.
		},
	}
	rot, err := Compile(pattern)
	if err != nil {
		t.Fatalf("Compile() returned error: %v", err)
	}

	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	if got := rot.StatusAt(0, 2, day); got != models.SlotRest {
		t.Errorf("StatusAt missing position = %v, want rest", got)
	}
	if got := rot.StatusAt(0, 3, day); got != models.SlotRest {
		t.Errorf("StatusAt missing position = %v, want rest", got)
	}
}

func TestAnchorFromFirstRestNegativeOffsets(t *testing.T) {
	rot, err := Compile(fixedCyclePattern(t, 6, 5, 6))
	if err != nil {
		t.Fatalf("Compile() returned error: %v", err)
	}

	tests := []struct {
		offset int
		want   int
	}{
		{0, 4},
		{4, 0},
		{5, 5},
		{10, 0},
		{-2, 0},
	}
	for _, tt := range tests {
		if got := rot.AnchorFromFirstRest(tt.offset); got != tt.want {
			t.Errorf("AnchorFromFirstRest(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}
