/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package generation turns a period's rotation pattern into concrete
// schedule slots, one per worker per day.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/linecrew/internal/events"
	"github.com/friendsincode/linecrew/internal/hours"
	"github.com/friendsincode/linecrew/internal/models"
	"github.com/friendsincode/linecrew/internal/roster"
	"github.com/friendsincode/linecrew/internal/rotation"
	"github.com/friendsincode/linecrew/internal/store"
	"github.com/friendsincode/linecrew/internal/telemetry"
)

// DefaultMaxDays bounds the generated range; a misconfigured period end must
// not fan out into an unbounded write batch.
const DefaultMaxDays = 730

var (
	// ErrClosedPeriod is returned when generation targets a published or
	// archived period.
	ErrClosedPeriod = errors.New("cannot generate slots for a closed period")

	// ErrInsufficientCrew is returned when fewer workers are available than
	// the pattern's required composition.
	ErrInsufficientCrew = errors.New("insufficient crew for required composition")

	// ErrInvalidRange is returned for from-dates outside the period bounds
	// or ranges exceeding the safety bound.
	ErrInvalidRange = errors.New("invalid generation range")

	// ErrFromDateRequired is returned when from-date mode is requested
	// without a date.
	ErrFromDateRequired = errors.New("from-date mode requires a from date")
)

// Mode selects how much of the period a run regenerates.
type Mode string

const (
	// ModeFull regenerates the whole period.
	ModeFull Mode = "full"
	// ModeFromDate regenerates from a given day to the period end.
	ModeFromDate Mode = "from_date"
)

// Worker is one generation candidate with its rotation phasing.
type Worker struct {
	WorkerID            string
	FirstRestOffsetDays int
}

// Options tune a generation run.
type Options struct {
	Mode     Mode
	FromDate time.Time
}

// Result summarizes a generation run.
type Result struct {
	SlotsWritten int
}

// HoursLookup resolves a crew's effective working window for a day.
type HoursLookup interface {
	Resolve(ctx context.Context, crewID string, day time.Time) (*hours.Window, error)
}

// RosterLookup resolves the currently-effective members of a crew.
type RosterLookup interface {
	CurrentMembers(ctx context.Context, crewID string, from, to time.Time) ([]roster.Member, error)
}

// Service generates schedule slots.
type Service struct {
	store   *store.Store
	hours   HoursLookup
	roster  RosterLookup
	bus     *events.Bus
	maxDays int
	logger  zerolog.Logger
}

// New constructs the generator. maxDays bounds the generated range and
// defaults to DefaultMaxDays when non-positive.
func New(st *store.Store, hoursLookup HoursLookup, rosterLookup RosterLookup, maxDays int, logger zerolog.Logger) *Service {
	if maxDays <= 0 {
		maxDays = DefaultMaxDays
	}
	return &Service{
		store:   st,
		hours:   hoursLookup,
		roster:  rosterLookup,
		maxDays: maxDays,
		logger:  logger.With().Str("component", "generator").Logger(),
	}
}

// SetBus enables generation event publication.
func (s *Service) SetBus(bus *events.Bus) {
	s.bus = bus
}

// Generate populates the slots of a draft or pending period. Workers may be
// nil, in which case the crew's currently-effective roster is used. The
// whole batch is written in one transaction; on failure nothing is
// persisted.
func (s *Service) Generate(ctx context.Context, periodID string, workers []Worker, opts Options) (*Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "generation", "Generate")
	defer span.End()

	started := time.Now()

	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.AddSpanAttributes(span, map[string]any{
		"period_id": periodID,
		"crew_id":   period.CrewID,
		"mode":      string(opts.Mode),
	})

	result, err := s.generate(ctx, period, workers, opts)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		telemetry.RecordError(span, err)
	}
	telemetry.GenerationRunsTotal.WithLabelValues(period.CrewID, outcome).Inc()
	telemetry.GenerationDuration.WithLabelValues(period.CrewID).Observe(time.Since(started).Seconds())
	if result != nil {
		telemetry.SlotsWrittenTotal.WithLabelValues(period.CrewID).Add(float64(result.SlotsWritten))
	}
	return result, err
}

func (s *Service) generate(ctx context.Context, period *models.SchedulePeriod, workers []Worker, opts Options) (*Result, error) {
	if period.IsClosed() {
		return nil, ErrClosedPeriod
	}
	if period.Pattern == nil {
		return nil, fmt.Errorf("period %s: %w", period.ID, store.ErrNotFound)
	}

	rot, err := rotation.Compile(period.Pattern)
	if err != nil {
		return nil, err
	}

	generationStart, err := s.resolveStart(period, opts)
	if err != nil {
		return nil, err
	}
	periodEnd := models.Day(period.PeriodEnd)

	if period.Days() > s.maxDays {
		return nil, fmt.Errorf("%w: period spans %d days, maximum is %d", ErrInvalidRange, period.Days(), s.maxDays)
	}

	if workers == nil {
		members, err := s.roster.CurrentMembers(ctx, period.CrewID, generationStart, periodEnd)
		if err != nil {
			return nil, fmt.Errorf("resolve roster: %w", err)
		}
		for _, m := range members {
			workers = append(workers, Worker{WorkerID: m.WorkerID, FirstRestOffsetDays: m.FirstRestOffsetDays})
		}
	}
	if len(workers) < period.Pattern.RequiredWorkersPerDay {
		return nil, fmt.Errorf("%w: have %d workers, need %d",
			ErrInsufficientCrew, len(workers), period.Pattern.RequiredWorkersPerDay)
	}

	anchors, err := s.resolveAnchors(ctx, period, rot, workers, generationStart, opts)
	if err != nil {
		return nil, err
	}

	periodStart := models.Day(period.PeriodStart)
	var slots []models.ScheduleSlot
	for day := generationStart; !day.After(periodEnd); day = day.AddDate(0, 0, 1) {
		dayIndex := daysBetween(periodStart, day)

		var window *hours.Window
		windowResolved := false

		for _, worker := range workers {
			status := rot.StatusAt(anchors[worker.WorkerID], dayIndex, day)
			slot := models.ScheduleSlot{
				PeriodID: period.ID,
				Day:      day,
				WorkerID: worker.WorkerID,
				State:    status,
				Origin:   models.OriginGenerated,
			}
			if status == models.SlotWork {
				if !windowResolved {
					window, err = s.hours.Resolve(ctx, period.CrewID, day)
					if err != nil {
						return nil, fmt.Errorf("resolve working hours: %w", err)
					}
					windowResolved = true
				}
				if window != nil {
					slot.PredictedStart = window.Start
					slot.PredictedEnd = window.End
				}
			}
			slots = append(slots, slot)
		}
	}

	written := 0
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		var txErr error
		written, txErr = tx.UpsertSlots(ctx, period.ID, slots)
		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("upsert slots: %w", err)
	}

	s.logger.Info().
		Str("period", period.ID).
		Str("crew", period.CrewID).
		Str("mode", string(opts.Mode)).
		Int("slots_written", written).
		Msg("generation run complete")

	if s.bus != nil {
		s.bus.Publish(events.EventGenerationComplete, events.Payload{
			"period_id":     period.ID,
			"crew_id":       period.CrewID,
			"mode":          string(opts.Mode),
			"slots_written": written,
		})
	}
	return &Result{SlotsWritten: written}, nil
}

// resolveStart picks the first generated day and clamps it so published
// history is never regenerated.
func (s *Service) resolveStart(period *models.SchedulePeriod, opts Options) (time.Time, error) {
	start := models.Day(period.PeriodStart)

	switch opts.Mode {
	case ModeFromDate:
		if opts.FromDate.IsZero() {
			return time.Time{}, ErrFromDateRequired
		}
		from := models.Day(opts.FromDate)
		if from.After(models.Day(period.PeriodEnd)) {
			return time.Time{}, fmt.Errorf("%w: from date %s is past the period end", ErrInvalidRange, from.Format("2006-01-02"))
		}
		if from.After(start) {
			start = from
		}
	case ModeFull, "":
	default:
		return time.Time{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidRange, opts.Mode)
	}

	if period.PublishedThrough != nil {
		frozen := models.Day(*period.PublishedThrough)
		if !start.After(frozen) {
			start = frozen.AddDate(0, 0, 1)
		}
	}
	return start, nil
}

// resolveAnchors computes the per-worker cycle anchor for this run. On a
// plain run the anchor comes from the worker's configured first-rest offset.
// When generating into the tail of a period that has already been published
// (an extension), the anchor is instead back-derived from the worker's most
// recent rest run before the generation start, so the rotation continues
// unbroken across the boundary.
func (s *Service) resolveAnchors(ctx context.Context, period *models.SchedulePeriod, rot *rotation.Rotation, workers []Worker, generationStart time.Time, opts Options) (map[string]int, error) {
	anchors := make(map[string]int, len(workers))

	continuity := opts.Mode == ModeFromDate &&
		period.Pattern.Mode == models.RotationFixedCycle &&
		period.PublishedThrough != nil

	periodStart := models.Day(period.PeriodStart)

	for _, worker := range workers {
		if !continuity {
			anchors[worker.WorkerID] = rot.AnchorFromFirstRest(worker.FirstRestOffsetDays)
			continue
		}

		restStart, found, err := s.lastRestRunStart(ctx, period.ID, worker.WorkerID, generationStart, rot.CycleLength())
		if err != nil {
			return nil, err
		}
		if !found {
			anchors[worker.WorkerID] = rot.AnchorFromFirstRest(worker.FirstRestOffsetDays)
			continue
		}
		anchors[worker.WorkerID] = rot.AnchorFromRestIndex(daysBetween(periodStart, restStart))
	}
	return anchors, nil
}

// lastRestRunStart finds the first day of the most recent run of
// consecutive rest days strictly before the given day. Rest blocks span
// consecutive cycle positions, so the run's first day is the one that maps
// to the pattern's lowest rest position.
func (s *Service) lastRestRunStart(ctx context.Context, periodID, workerID string, before time.Time, cycleLength int) (time.Time, bool, error) {
	recent, err := s.store.ListRecentSlots(ctx, periodID, workerID, before, 2*cycleLength)
	if err != nil {
		return time.Time{}, false, err
	}

	// recent is newest-first. Skip trailing work days, then walk the rest
	// run back to its first day.
	i := 0
	for i < len(recent) && recent[i].State != models.SlotRest {
		i++
	}
	if i == len(recent) {
		return time.Time{}, false, nil
	}

	runStart := models.Day(recent[i].Day)
	for j := i + 1; j < len(recent); j++ {
		if recent[j].State != models.SlotRest {
			break
		}
		if daysBetween(models.Day(recent[j].Day), runStart) != 1 {
			break
		}
		runStart = models.Day(recent[j].Day)
	}
	return runStart, true, nil
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
