/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package rotation holds the pure pattern math: given a pattern, a worker's
// cycle anchor, and a day index, it resolves WORK or REST. No I/O, no state.
package rotation

import (
	"errors"
	"time"

	"github.com/friendsincode/linecrew/internal/models"
)

// ErrInvalidPattern indicates a pattern whose definition cannot drive a
// rotation (bad mode, non-positive cycle length or periodicity, or a fixed
// cycle without a rest position).
var ErrInvalidPattern = errors.New("invalid rotation pattern")

// Rotation is a compiled pattern ready for repeated lookups.
type Rotation struct {
	mode            models.RotationMode
	cycleLength     int
	weekPeriodicity int
	firstRest       int
	positions       map[int]models.SlotStatus
	weekMask        map[weekMaskKey]models.SlotStatus
}

type weekMaskKey struct {
	weekIndex int
	dayOfWeek int
}

// Compile indexes a pattern's positions or week mask for constant-time
// status lookups.
func Compile(pattern *models.SchedulePattern) (*Rotation, error) {
	r := &Rotation{
		mode:            pattern.Mode,
		cycleLength:     pattern.CycleLength,
		weekPeriodicity: pattern.WeekPeriodicity,
	}

	switch pattern.Mode {
	case models.RotationFixedCycle:
		if pattern.CycleLength <= 0 {
			return nil, ErrInvalidPattern
		}
		r.positions = make(map[int]models.SlotStatus, len(pattern.Positions))
		for _, pos := range pattern.Positions {
			if pos.Position < 1 || pos.Position > pattern.CycleLength {
				return nil, ErrInvalidPattern
			}
			r.positions[pos.Position] = pos.Status
		}
		r.firstRest = pattern.FirstRestPosition()
		if r.firstRest == 0 {
			return nil, ErrInvalidPattern
		}
	case models.RotationWeekIndexed:
		if pattern.WeekPeriodicity <= 0 {
			return nil, ErrInvalidPattern
		}
		r.weekMask = make(map[weekMaskKey]models.SlotStatus, len(pattern.WeekEntries))
		for _, entry := range pattern.WeekEntries {
			r.weekMask[weekMaskKey{entry.WeekIndex, entry.DayOfWeek}] = entry.Status
		}
	default:
		return nil, ErrInvalidPattern
	}

	return r, nil
}

// CycleLength returns the fixed cycle size, 0 for week-indexed patterns.
func (r *Rotation) CycleLength() int {
	return r.cycleLength
}

// FirstRestPosition returns the lowest-numbered REST position of a fixed
// cycle.
func (r *Rotation) FirstRestPosition() int {
	return r.firstRest
}

// StatusAt resolves a worker's planned status for one day. dayIndex counts
// from the period start (0 = the first day), day is the calendar date for
// the weekday lookup of week-indexed patterns. Missing pattern entries
// resolve to REST.
func (r *Rotation) StatusAt(anchor, dayIndex int, day time.Time) models.SlotStatus {
	switch r.mode {
	case models.RotationFixedCycle:
		position := mod(anchor+dayIndex, r.cycleLength) + 1
		if status, ok := r.positions[position]; ok {
			return status
		}
		return models.SlotRest
	case models.RotationWeekIndexed:
		weekIndex := mod(dayIndex/7, r.weekPeriodicity)
		key := weekMaskKey{weekIndex, int(day.Weekday())}
		if status, ok := r.weekMask[key]; ok {
			return status
		}
		return models.SlotRest
	}
	return models.SlotRest
}

// AnchorFromFirstRest phases a fixed cycle so the worker's configured first
// rest day lands on the pattern's lowest-numbered REST position. The anchor
// is pattern- and worker-specific and must be recomputed identically on
// every generation run, or the rotation silently shifts.
func (r *Rotation) AnchorFromFirstRest(firstRestOffsetDays int) int {
	if r.cycleLength <= 0 {
		return 0
	}
	return mod(r.firstRest-1-firstRestOffsetDays, r.cycleLength)
}

// AnchorFromRestIndex back-derives the anchor that makes the lowest REST
// position land on the given day index. Used to continue an already
// published rotation unbroken across an extension boundary.
func (r *Rotation) AnchorFromRestIndex(restDayIndex int) int {
	if r.cycleLength <= 0 {
		return 0
	}
	return mod(r.firstRest-1-restDayIndex, r.cycleLength)
}

// mod is the floored modulo; Go's % operator keeps the dividend's sign.
func mod(a, n int) int {
	return ((a % n) + n) % n
}
