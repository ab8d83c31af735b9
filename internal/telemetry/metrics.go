/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GenerationRunsTotal counts slot generation runs by crew and outcome.
	GenerationRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linecrew_generation_runs_total",
		Help: "Slot generation runs, labelled by crew and outcome.",
	}, []string{"crew", "outcome"})

	// SlotsWrittenTotal counts slots upserted by generation runs.
	SlotsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linecrew_slots_written_total",
		Help: "Schedule slots written by the generator.",
	}, []string{"crew"})

	// GenerationDuration observes how long a generation run takes.
	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "linecrew_generation_duration_seconds",
		Help:    "Duration of slot generation runs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"crew"})

	// PublishesTotal counts lifecycle publishes by outcome.
	PublishesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linecrew_publishes_total",
		Help: "Period publish attempts, labelled by outcome.",
	}, []string{"outcome"})

	// CompositionViolationsTotal counts days flagged by the composition
	// validator.
	CompositionViolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linecrew_composition_violations_total",
		Help: "Days whose WORK head-count failed composition validation.",
	})

	// DeviationsTotal counts recorded deviations by type.
	DeviationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linecrew_deviations_total",
		Help: "Coverage deviations recorded, labelled by type.",
	}, []string{"type"})

	// TransferredSlotsTotal counts slots moved between workers by transfers.
	TransferredSlotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linecrew_transferred_slots_total",
		Help: "Slots reassigned by transfer operations.",
	})

	// DatabaseQueryDuration observes gorm operation latency by table.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "linecrew_database_query_duration_seconds",
		Help:    "Database operation latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts failed gorm operations.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linecrew_database_errors_total",
		Help: "Database operations that returned an error.",
	}, []string{"operation"})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
