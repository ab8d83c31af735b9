/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package lifecycle drives a schedule period through draft, approval,
// publish, extension, and archival. Once published, a period is frozen:
// archive and extend are the only legal mutations of the period itself, and
// the deviation engine is the only legal mutator of its slots.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/linecrew/internal/composition"
	"github.com/friendsincode/linecrew/internal/events"
	"github.com/friendsincode/linecrew/internal/generation"
	"github.com/friendsincode/linecrew/internal/models"
	"github.com/friendsincode/linecrew/internal/roster"
	"github.com/friendsincode/linecrew/internal/store"
	"github.com/friendsincode/linecrew/internal/telemetry"
)

var (
	// ErrInvalidTransition is returned for lifecycle moves the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrOverlap is returned when two non-archived periods of the same crew
	// would intersect in time.
	ErrOverlap = errors.New("crew already has an active period in this range")

	// ErrImmutable rejects edits to published periods.
	ErrImmutable = errors.New("published periods are immutable; archive or extend instead")

	// ErrInvalidRange is returned for inverted or non-growing period
	// bounds.
	ErrInvalidRange = errors.New("invalid period range")
)

// Generator populates a period's slots.
type Generator interface {
	Generate(ctx context.Context, periodID string, workers []generation.Worker, opts generation.Options) (*generation.Result, error)
}

// CompositionValidator gates publication.
type CompositionValidator interface {
	Validate(ctx context.Context, periodID string) (*models.CompositionReport, error)
}

// Roster resolves crew membership, with each worker's rotation phasing.
type Roster interface {
	CurrentMembers(ctx context.Context, crewID string, from, to time.Time) ([]roster.Member, error)
}

// Service is the period lifecycle controller.
type Service struct {
	store     *store.Store
	generator Generator
	validator CompositionValidator
	roster    Roster
	bus       *events.Bus
	logger    zerolog.Logger
}

// New constructs the lifecycle service.
func New(st *store.Store, gen Generator, validator CompositionValidator, rosterLookup Roster, logger zerolog.Logger) *Service {
	return &Service{
		store:     st,
		generator: gen,
		validator: validator,
		roster:    rosterLookup,
		logger:    logger.With().Str("component", "lifecycle").Logger(),
	}
}

// SetBus enables lifecycle event publication.
func (s *Service) SetBus(bus *events.Bus) {
	s.bus = bus
}

func (s *Service) emit(eventType events.EventType, payload events.Payload) {
	if s.bus != nil {
		s.bus.Publish(eventType, payload)
	}
}

// CreatePeriodInput carries the fields of a new draft period.
type CreatePeriodInput struct {
	CrewID      string
	PatternID   string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Note        string
}

// CreatePeriod opens a new draft period after checking that no other active
// period of the crew overlaps the range. The overlap check and the insert
// run in one transaction so two concurrent creates cannot both pass.
func (s *Service) CreatePeriod(ctx context.Context, input CreatePeriodInput) (*models.SchedulePeriod, error) {
	start := models.Day(input.PeriodStart)
	end := models.Day(input.PeriodEnd)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: period end precedes period start", ErrInvalidRange)
	}

	if _, err := s.store.GetPattern(ctx, input.PatternID); err != nil {
		return nil, fmt.Errorf("pattern %s: %w", input.PatternID, err)
	}

	period := &models.SchedulePeriod{
		CrewID:      input.CrewID,
		PatternID:   input.PatternID,
		PeriodStart: start,
		PeriodEnd:   end,
		Status:      models.PeriodDraft,
		Note:        input.Note,
	}

	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		overlapping, err := tx.FindOverlapping(ctx, input.CrewID, start, end, "")
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return fmt.Errorf("%w: conflicts with period %s", ErrOverlap, overlapping[0].ID)
		}
		return tx.CreatePeriod(ctx, period)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("period", period.ID).
		Str("crew", period.CrewID).
		Str("start", start.Format("2006-01-02")).
		Str("end", end.Format("2006-01-02")).
		Msg("period created")
	s.emit(events.EventPeriodCreated, events.Payload{
		"period_id": period.ID,
		"crew_id":   period.CrewID,
	})
	return period, nil
}

// GetPeriod loads a period with its pattern.
func (s *Service) GetPeriod(ctx context.Context, id string) (*models.SchedulePeriod, error) {
	return s.store.GetPeriod(ctx, id)
}

// ListSlots returns a period's active slots.
func (s *Service) ListSlots(ctx context.Context, periodID string) ([]models.ScheduleSlot, error) {
	return s.store.ListSlots(ctx, periodID)
}

// SubmitForApproval moves a draft to pending approval.
func (s *Service) SubmitForApproval(ctx context.Context, periodID string) error {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return err
	}
	if period.Status != models.PeriodDraft {
		return fmt.Errorf("%w: cannot submit a %s period", ErrInvalidTransition, period.Status)
	}
	period.Status = models.PeriodPendingApproval
	return s.store.SavePeriod(ctx, period)
}

// PublishOptions tune a publish call.
type PublishOptions struct {
	// SkipCompositionCheck bypasses the composition gate. Escape hatch for
	// administrative bulk loads; normal publishes must not set it.
	SkipCompositionCheck bool
}

// Publish freezes a draft or pending period. Preconditions: the period
// carries no absence slots (absences are only legal post-publish) and the
// composition validator reports no violations, unless explicitly skipped.
// On success the version increments and the end boundary is recorded so
// later extensions never regenerate published history.
func (s *Service) Publish(ctx context.Context, periodID string, opts PublishOptions) error {
	err := s.publish(ctx, periodID, opts)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	telemetry.PublishesTotal.WithLabelValues(outcome).Inc()
	return err
}

func (s *Service) publish(ctx context.Context, periodID string, opts PublishOptions) error {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return err
	}
	if period.Status != models.PeriodDraft && period.Status != models.PeriodPendingApproval {
		return fmt.Errorf("%w: cannot publish a %s period", ErrInvalidTransition, period.Status)
	}

	absences, err := s.store.CountAbsences(ctx, periodID)
	if err != nil {
		return err
	}
	if absences > 0 {
		return fmt.Errorf("%w: period carries %d absence slot(s)", ErrInvalidTransition, absences)
	}

	if !opts.SkipCompositionCheck {
		report, err := s.validator.Validate(ctx, periodID)
		if err != nil {
			return err
		}
		if !report.Valid {
			return &composition.Error{Violations: report.Violations}
		}
	}

	end := models.Day(period.PeriodEnd)
	period.Status = models.PeriodPublished
	period.Version++
	period.PublishedThrough = &end
	if err := s.store.SavePeriod(ctx, period); err != nil {
		return err
	}

	s.logger.Info().
		Str("period", period.ID).
		Int("version", period.Version).
		Bool("composition_skipped", opts.SkipCompositionCheck).
		Msg("period published")
	s.emit(events.EventPeriodPublished, events.Payload{
		"period_id": period.ID,
		"crew_id":   period.CrewID,
		"version":   period.Version,
	})
	return nil
}

// Archive retires a published period. Archived periods are read-only
// history; nothing reopens them.
func (s *Service) Archive(ctx context.Context, periodID string) error {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return err
	}
	if period.Status != models.PeriodPublished {
		return fmt.Errorf("%w: cannot archive a %s period", ErrInvalidTransition, period.Status)
	}
	period.Status = models.PeriodArchived
	if err := s.store.SavePeriod(ctx, period); err != nil {
		return err
	}

	s.logger.Info().Str("period", period.ID).Msg("period archived")
	s.emit(events.EventPeriodArchived, events.Payload{
		"period_id": period.ID,
		"crew_id":   period.CrewID,
	})
	return nil
}

// Extend reopens a published period with a later end boundary. The widened
// range is re-checked for overlaps, the status drops back to draft, and the
// tail is regenerated from the day after the old end for exactly the worker
// set already holding slots: an extension never silently recruits new
// workers. The caller must publish again to re-freeze.
func (s *Service) Extend(ctx context.Context, periodID string, newPeriodEnd time.Time) error {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return err
	}
	if period.Status != models.PeriodPublished {
		return fmt.Errorf("%w: cannot extend a %s period", ErrInvalidTransition, period.Status)
	}

	oldEnd := models.Day(period.PeriodEnd)
	newEnd := models.Day(newPeriodEnd)
	if !newEnd.After(oldEnd) {
		return fmt.Errorf("%w: new end %s does not extend the period", ErrInvalidRange, newEnd.Format("2006-01-02"))
	}
	tailStart := oldEnd.AddDate(0, 0, 1)

	// The tail is generated for the workers already holding slots, each
	// with their configured first-rest offset. The offset is the anchor
	// fallback when the published segment is too short to contain a rest
	// day yet; losing it would phase-shift the tail.
	workerIDs, err := s.store.DistinctWorkerIDs(ctx, periodID)
	if err != nil {
		return err
	}
	members, err := s.roster.CurrentMembers(ctx, period.CrewID, tailStart, tailStart)
	if err != nil {
		return fmt.Errorf("resolve roster: %w", err)
	}
	offsets := make(map[string]int, len(members))
	for _, m := range members {
		offsets[m.WorkerID] = m.FirstRestOffsetDays
	}
	workers := make([]generation.Worker, len(workerIDs))
	for i, id := range workerIDs {
		workers[i] = generation.Worker{WorkerID: id, FirstRestOffsetDays: offsets[id]}
	}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		overlapping, err := tx.FindOverlapping(ctx, period.CrewID, models.Day(period.PeriodStart), newEnd, period.ID)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return fmt.Errorf("%w: conflicts with period %s", ErrOverlap, overlapping[0].ID)
		}

		period.PeriodEnd = newEnd
		period.Status = models.PeriodDraft
		return tx.SavePeriod(ctx, period)
	})
	if err != nil {
		return err
	}

	if _, err := s.generator.Generate(ctx, periodID, workers, generation.Options{
		Mode:     generation.ModeFromDate,
		FromDate: tailStart,
	}); err != nil {
		// A failed extension must leave the period exactly as it was:
		// published, with the old end. The generator's own transaction has
		// already rolled back its slots.
		period.PeriodEnd = oldEnd
		period.Status = models.PeriodPublished
		if restoreErr := s.store.SavePeriod(ctx, period); restoreErr != nil {
			s.logger.Error().Err(restoreErr).Str("period", period.ID).Msg("could not restore period after failed extension")
			return fmt.Errorf("regenerate extension tail: %v; restore period: %w", err, restoreErr)
		}
		return fmt.Errorf("regenerate extension tail: %w", err)
	}

	s.logger.Info().
		Str("period", period.ID).
		Str("old_end", oldEnd.Format("2006-01-02")).
		Str("new_end", newEnd.Format("2006-01-02")).
		Msg("period extended, back in draft")
	s.emit(events.EventPeriodExtended, events.Payload{
		"period_id": period.ID,
		"crew_id":   period.CrewID,
		"old_end":   oldEnd.Format("2006-01-02"),
		"new_end":   newEnd.Format("2006-01-02"),
	})
	return nil
}

// UpdateDraft edits the bounds or note of a period still in draft. Published
// periods are immutable outside Archive and Extend.
type UpdateDraftInput struct {
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	Note        *string
}

// UpdateDraft applies the edit after re-checking range and overlap rules.
func (s *Service) UpdateDraft(ctx context.Context, periodID string, input UpdateDraftInput) error {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return err
	}
	switch period.Status {
	case models.PeriodPublished:
		return ErrImmutable
	case models.PeriodArchived:
		return fmt.Errorf("%w: archived periods are read-only", ErrInvalidTransition)
	}

	start := models.Day(period.PeriodStart)
	end := models.Day(period.PeriodEnd)
	if input.PeriodStart != nil {
		start = models.Day(*input.PeriodStart)
	}
	if input.PeriodEnd != nil {
		end = models.Day(*input.PeriodEnd)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: period end precedes period start", ErrInvalidRange)
	}

	return s.store.Transaction(ctx, func(tx *store.Store) error {
		overlapping, err := tx.FindOverlapping(ctx, period.CrewID, start, end, period.ID)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return fmt.Errorf("%w: conflicts with period %s", ErrOverlap, overlapping[0].ID)
		}

		period.PeriodStart = start
		period.PeriodEnd = end
		if input.Note != nil {
			period.Note = *input.Note
		}
		return tx.SavePeriod(ctx, period)
	})
}
