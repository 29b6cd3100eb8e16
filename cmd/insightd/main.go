// Command insightd serves the weather insight API: POST /v1/reports runs the
// generate-clean-detect-report pipeline and returns the resulting report.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/weather-insights/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-insights/internal/adapter/kafka"
	"github.com/couchcryptid/weather-insights/internal/adapter/narrative"
	"github.com/couchcryptid/weather-insights/internal/anomaly"
	"github.com/couchcryptid/weather-insights/internal/cleaner"
	"github.com/couchcryptid/weather-insights/internal/config"
	"github.com/couchcryptid/weather-insights/internal/domain"
	"github.com/couchcryptid/weather-insights/internal/generator"
	"github.com/couchcryptid/weather-insights/internal/insight"
	"github.com/couchcryptid/weather-insights/internal/observability"
	"github.com/couchcryptid/weather-insights/internal/pipeline"
)

func main() {
	// A .env file is a local-development convenience; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Narrative service is feature-flagged via NARRATIVE_ENABLED /
	// NARRATIVE_API_KEY; without it every report uses the template narrative.
	var narrator domain.Narrator
	if cfg.NarrativeEnabled {
		narrator = narrative.NewClient(narrative.Config{
			APIKey:    cfg.NarrativeAPIKey,
			BaseURL:   cfg.NarrativeBaseURL,
			Model:     cfg.NarrativeModel,
			Timeout:   cfg.NarrativeTimeout,
			MaxTokens: cfg.NarrativeMaxTokens,
		}, metrics, logger)
		metrics.NarrativeEnabled.Set(1)
		logger.Info("narrative service enabled", "model", cfg.NarrativeModel, "timeout", cfg.NarrativeTimeout)
	} else {
		logger.Info("narrative service disabled, using template narratives")
	}

	var publisher pipeline.AlertPublisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)
		publisher = kafkaWriter
		logger.Info("anomaly alerting enabled", "topic", cfg.KafkaAlertTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("anomaly alerting disabled")
	}

	p := pipeline.New(
		generator.New(logger),
		cleaner.New(logger),
		anomaly.New(logger),
		insight.NewGenerator(narrator, logger),
		publisher,
		cfg.Contamination,
		logger,
		metrics,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
