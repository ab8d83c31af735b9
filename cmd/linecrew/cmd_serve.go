/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/linecrew/internal/events"
	"github.com/friendsincode/linecrew/internal/monitor"
	"github.com/friendsincode/linecrew/internal/telemetry"
	"github.com/friendsincode/linecrew/internal/version"
)

var serveInterval time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the composition monitor and metrics endpoint",
	Long:  "Periodically re-validate the composition of published periods and expose Prometheus metrics.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 30*time.Minute, "Composition re-check interval")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "linecrew",
		ServiceVersion: version.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	mon := monitor.New(eng.store, eng.validator, serveInterval, logger)

	eventTypes := []events.EventType{
		events.EventPeriodCreated,
		events.EventPeriodPublished,
		events.EventPeriodArchived,
		events.EventPeriodExtended,
		events.EventGenerationComplete,
		events.EventAbsenceRecorded,
		events.EventSwapRecorded,
		events.EventTransferComplete,
	}
	for _, eventType := range eventTypes {
		et := eventType
		sub := eng.bus.Subscribe(et)
		go func() {
			for payload := range sub {
				logger.Info().Str("event", string(et)).Fields(map[string]any(payload)).Msg("schedule event")
			}
		}()
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", telemetry.Handler())
	metricsServer := &http.Server{
		Addr:    cfg.MetricsBind,
		Handler: metricsMux,
	}
	go func() {
		logger.Info().Str("addr", cfg.MetricsBind).Msg("metrics endpoint listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("metrics server error")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	if err := mon.Run(ctx); err != nil && err != context.Canceled {
		return err
	}

	logger.Info().Msg("shutting down gracefully...")
	timeoutCtx, cancelTimeout := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelTimeout()
	return metricsServer.Shutdown(timeoutCtx)
}
