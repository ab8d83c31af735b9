/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package deviation records real-world departures from a published schedule:
// absences, swaps, and transfers. It is the only legal mutator of slot state
// after publish, and every deviation leaves an append-only coverage event
// behind as the audit trail.
package deviation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/linecrew/internal/clock"
	"github.com/friendsincode/linecrew/internal/events"
	"github.com/friendsincode/linecrew/internal/models"
	"github.com/friendsincode/linecrew/internal/store"
	"github.com/friendsincode/linecrew/internal/telemetry"
)

var (
	// ErrNotPublished rejects deviations against draft, pending, or
	// archived periods.
	ErrNotPublished = errors.New("deviations require a published period")

	// ErrNotFuture rejects transfer effective dates not strictly after
	// today.
	ErrNotFuture = errors.New("transfer effective date must be in the future")

	// ErrOutOfBounds rejects dates outside the period's range.
	ErrOutOfBounds = errors.New("date falls outside the period")
)

// Service is the deviation engine.
type Service struct {
	store  *store.Store
	clock  clock.Clock
	bus    *events.Bus
	logger zerolog.Logger
}

// New constructs the deviation engine.
func New(st *store.Store, clk clock.Clock, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		clock:  clk,
		logger: logger.With().Str("component", "deviation").Logger(),
	}
}

// SetBus enables deviation event publication.
func (s *Service) SetBus(bus *events.Bus) {
	s.bus = bus
}

func (s *Service) emit(eventType events.EventType, payload events.Payload) {
	if s.bus != nil {
		s.bus.Publish(eventType, payload)
	}
}

func (s *Service) publishedPeriod(ctx context.Context, periodID string) (*models.SchedulePeriod, error) {
	period, err := s.store.GetPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if period.Status != models.PeriodPublished {
		return nil, fmt.Errorf("%w: period is %s", ErrNotPublished, period.Status)
	}
	return period, nil
}

// AbsenceInput identifies the slot going absent and its optional cover.
type AbsenceInput struct {
	PeriodID           string
	Day                time.Time
	WorkerID           string
	SubstituteWorkerID *string
	Justification      string
}

// RecordAbsence flips the slot at (period, day, worker) to absence and
// appends the coverage event. This is the only operation that changes a
// slot's state after publish. With a substitute the event resolves covered,
// without one it records an uncovered gap.
func (s *Service) RecordAbsence(ctx context.Context, input AbsenceInput) (*models.CoverageEvent, error) {
	if _, err := s.publishedPeriod(ctx, input.PeriodID); err != nil {
		return nil, err
	}

	slot, err := s.store.FindSlot(ctx, input.PeriodID, input.Day, input.WorkerID)
	if err != nil {
		return nil, fmt.Errorf("worker has no slot on %s: %w", models.Day(input.Day).Format("2006-01-02"), err)
	}

	resolution := models.ResolutionUncoveredGap
	if input.SubstituteWorkerID != nil {
		resolution = models.ResolutionCovered
	}
	event := &models.CoverageEvent{
		SlotID:           slot.ID,
		Type:             models.CoverageAbsence,
		Resolution:       resolution,
		CoveringWorkerID: input.SubstituteWorkerID,
		Justification:    input.Justification,
		RecordedAt:       s.clock.Now(),
	}

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		slot.State = models.SlotAbsence
		if err := tx.SaveSlot(ctx, slot); err != nil {
			return err
		}
		return tx.AppendCoverageEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	telemetry.DeviationsTotal.WithLabelValues(string(models.CoverageAbsence)).Inc()
	s.logger.Info().
		Str("period", input.PeriodID).
		Str("worker", input.WorkerID).
		Str("day", models.Day(input.Day).Format("2006-01-02")).
		Str("resolution", string(resolution)).
		Msg("absence recorded")
	s.emit(events.EventAbsenceRecorded, events.Payload{
		"period_id":  input.PeriodID,
		"worker_id":  input.WorkerID,
		"day":        models.Day(input.Day).Format("2006-01-02"),
		"resolution": string(resolution),
	})
	return event, nil
}

// SwapInput identifies the rostered worker and the one executing the shift.
type SwapInput struct {
	PeriodID      string
	Day           time.Time
	TitularID     string
	ExecutorID    string
	Justification string
}

// RecordSwap registers that the executor worked the titular's shift. The
// titular's slot is left untouched: the historical truth of who was
// originally rostered is preserved, and the coverage event referencing the
// titular's slot carries the executor.
func (s *Service) RecordSwap(ctx context.Context, input SwapInput) (*models.CoverageEvent, error) {
	if _, err := s.publishedPeriod(ctx, input.PeriodID); err != nil {
		return nil, err
	}

	titularSlot, err := s.store.FindSlot(ctx, input.PeriodID, input.Day, input.TitularID)
	if err != nil {
		return nil, fmt.Errorf("titular has no slot on %s: %w", models.Day(input.Day).Format("2006-01-02"), err)
	}
	if _, err := s.store.FindSlot(ctx, input.PeriodID, input.Day, input.ExecutorID); err != nil {
		return nil, fmt.Errorf("executor has no slot on %s: %w", models.Day(input.Day).Format("2006-01-02"), err)
	}

	executorID := input.ExecutorID
	event := &models.CoverageEvent{
		SlotID:           titularSlot.ID,
		Type:             models.CoverageSwap,
		Resolution:       models.ResolutionCovered,
		CoveringWorkerID: &executorID,
		Justification:    input.Justification,
		RecordedAt:       s.clock.Now(),
	}
	if err := s.store.AppendCoverageEvent(ctx, event); err != nil {
		return nil, err
	}

	telemetry.DeviationsTotal.WithLabelValues(string(models.CoverageSwap)).Inc()
	s.logger.Info().
		Str("period", input.PeriodID).
		Str("titular", input.TitularID).
		Str("executor", input.ExecutorID).
		Str("day", models.Day(input.Day).Format("2006-01-02")).
		Msg("swap recorded")
	s.emit(events.EventSwapRecorded, events.Payload{
		"period_id": input.PeriodID,
		"titular":   input.TitularID,
		"executor":  input.ExecutorID,
		"day":       models.Day(input.Day).Format("2006-01-02"),
	})
	return event, nil
}

// TransferInput moves a worker's future slots to another worker.
type TransferInput struct {
	PeriodID      string
	FromWorkerID  string
	ToWorkerID    string
	EffectiveFrom time.Time
	Justification string
}

// TransferResult counts the rows a transfer touched.
type TransferResult struct {
	SlotsTransferred int
	SlotsLiberated   int
}

// Transfer reassigns all of a worker's slots from the effective date to the
// receiving worker. Pre-existing slots of the receiver on those days, in
// this period or any other active one, are soft-retired first so the
// receiver is never double-booked. The whole retire-then-reassign sequence
// runs in one transaction.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "deviation", "Transfer")
	defer span.End()
	telemetry.AddSpanAttributes(span, map[string]any{
		"period_id":   input.PeriodID,
		"from_worker": input.FromWorkerID,
		"to_worker":   input.ToWorkerID,
	})

	period, err := s.publishedPeriod(ctx, input.PeriodID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	effective := models.Day(input.EffectiveFrom)
	today := models.Day(s.clock.Now())
	if !effective.After(today) {
		return nil, ErrNotFuture
	}
	if !period.Contains(effective) {
		return nil, fmt.Errorf("%w: effective date %s", ErrOutOfBounds, effective.Format("2006-01-02"))
	}

	result := &TransferResult{}
	now := s.clock.Now()

	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		slots, err := tx.ListSlotsByWorkerFrom(ctx, input.PeriodID, input.FromWorkerID, effective)
		if err != nil {
			return err
		}

		for i := range slots {
			slot := &slots[i]

			// Liberate any slot the receiver already holds that day, in
			// this period or elsewhere.
			if existing, err := tx.FindSlot(ctx, input.PeriodID, slot.Day, input.ToWorkerID); err == nil {
				if err := s.retire(ctx, tx, existing, now, "superseded by transfer from "+input.FromWorkerID); err != nil {
					return err
				}
				result.SlotsLiberated++
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}

			if foreign, err := tx.FindActiveSlotElsewhere(ctx, input.ToWorkerID, slot.Day, input.PeriodID); err == nil {
				if err := s.retire(ctx, tx, foreign, now, "liberated by transfer into period "+input.PeriodID); err != nil {
					return err
				}
				result.SlotsLiberated++
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}

			slot.WorkerID = input.ToWorkerID
			slot.Origin = models.OriginReassigned
			if err := tx.SaveSlot(ctx, slot); err != nil {
				return err
			}
			result.SlotsTransferred++

			toWorker := input.ToWorkerID
			event := &models.CoverageEvent{
				SlotID:           slot.ID,
				Type:             models.CoverageTransfer,
				CoveringWorkerID: &toWorker,
				Justification:    input.Justification,
				RecordedAt:       now,
			}
			if err := tx.AppendCoverageEvent(ctx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.DeviationsTotal.WithLabelValues(string(models.CoverageTransfer)).Inc()
	telemetry.TransferredSlotsTotal.Add(float64(result.SlotsTransferred))
	s.logger.Info().
		Str("period", input.PeriodID).
		Str("from", input.FromWorkerID).
		Str("to", input.ToWorkerID).
		Int("transferred", result.SlotsTransferred).
		Int("liberated", result.SlotsLiberated).
		Msg("transfer complete")
	s.emit(events.EventTransferComplete, events.Payload{
		"period_id":   input.PeriodID,
		"from_worker": input.FromWorkerID,
		"to_worker":   input.ToWorkerID,
		"transferred": result.SlotsTransferred,
		"liberated":   result.SlotsLiberated,
	})
	return result, nil
}

func (s *Service) retire(ctx context.Context, tx *store.Store, slot *models.ScheduleSlot, at time.Time, note string) error {
	slot.Retired = true
	slot.RetiredAt = &at
	slot.RetiredNote = note
	return tx.SaveSlot(ctx, slot)
}
