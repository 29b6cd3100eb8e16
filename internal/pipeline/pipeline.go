// Package pipeline orchestrates the generate-clean-detect-report cycle that
// turns a requested date range into an insight report.
package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/weather-insights/internal/anomaly"
	"github.com/couchcryptid/weather-insights/internal/cleaner"
	"github.com/couchcryptid/weather-insights/internal/domain"
	"github.com/couchcryptid/weather-insights/internal/generator"
	"github.com/couchcryptid/weather-insights/internal/insight"
	"github.com/couchcryptid/weather-insights/internal/observability"
)

// Request describes one report run. Zero Contamination and an empty Features
// list select the detector defaults.
type Request struct {
	Start         time.Time
	End           time.Time
	Seed          int64
	Contamination float64
	Features      []domain.FieldName
}

// AlertPublisher fans flagged days out to interested consumers. A publish
// failure never fails the report; the report is the source of truth and
// alerts are best effort.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, reportID string, anomalies []domain.AnomalyResult) error
}

// Pipeline wires the stages together. It holds no per-request state, so one
// Pipeline serves concurrent requests.
type Pipeline struct {
	generator     *generator.Generator
	cleaner       *cleaner.Cleaner
	detector      *anomaly.Detector
	reporter      *insight.Generator
	publisher     AlertPublisher // nil disables alerting
	contamination float64        // applied when a request leaves it unset
	logger        *slog.Logger
	metrics       *observability.Metrics
	ready         atomic.Bool
}

// New creates a Pipeline with the given stages and observability. Pass a nil
// publisher to disable anomaly alerting; a zero contamination defers to the
// detector default.
func New(
	gen *generator.Generator,
	cln *cleaner.Cleaner,
	det *anomaly.Detector,
	rep *insight.Generator,
	publisher AlertPublisher,
	contamination float64,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Pipeline {
	return &Pipeline{
		generator:     gen,
		cleaner:       cln,
		detector:      det,
		reporter:      rep,
		publisher:     publisher,
		contamination: contamination,
		logger:        logger,
		metrics:       metrics,
	}
}

// Run executes one full cycle and returns the report. Validation problems
// surface as domain errors for the transport layer to map; alert publishing
// failures are logged and absorbed.
func (p *Pipeline) Run(ctx context.Context, req Request) (domain.InsightReport, error) {
	start := time.Now()

	report, err := p.run(ctx, req)
	if err != nil {
		p.metrics.PipelineErrors.Inc()
		return domain.InsightReport{}, err
	}

	p.metrics.ReportsGenerated.Inc()
	p.metrics.ReportDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)

	p.logger.Info("report generated",
		"report_id", report.ID,
		"records", report.Records,
		"anomalies", report.Anomalies.Flagged,
		"provenance", report.Provenance,
	)
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, req Request) (domain.InsightReport, error) {
	raw, err := p.generator.Generate(req.Start, req.End, req.Seed)
	if err != nil {
		return domain.InsightReport{}, err
	}

	series, stats, err := p.cleaner.CleanWithStats(raw)
	if err != nil {
		return domain.InsightReport{}, err
	}
	p.metrics.RecordsProcessed.Add(float64(stats.Input))
	p.metrics.DuplicatesDropped.Add(float64(stats.DuplicatesDropped))
	p.metrics.ValuesImputed.Add(float64(stats.ValuesImputed))
	p.metrics.ValuesClipped.Add(float64(stats.ValuesClipped))

	features := req.Features
	if len(features) == 0 {
		features = domain.Features()
	}
	contamination := req.Contamination
	if contamination == 0 {
		contamination = p.contamination
	}
	anomalies, summary, err := p.detector.Detect(series, features, contamination, req.Seed)
	if err != nil {
		return domain.InsightReport{}, err
	}
	p.metrics.AnomaliesFlagged.Add(float64(summary.Flagged))

	report, err := p.reporter.Generate(ctx, series, summary)
	if err != nil {
		return domain.InsightReport{}, err
	}

	p.publishAlerts(ctx, report.ID, anomalies)
	return report, nil
}

func (p *Pipeline) publishAlerts(ctx context.Context, reportID string, anomalies []domain.AnomalyResult) {
	if p.publisher == nil || len(anomalies) == 0 {
		return
	}
	if err := p.publisher.PublishAlerts(ctx, reportID, anomalies); err != nil {
		p.metrics.AlertErrors.Inc()
		p.logger.Error("publish anomaly alerts failed", "report_id", reportID, "error", err)
		return
	}
	p.metrics.AlertsPublished.Add(float64(len(anomalies)))
}

// CheckReadiness reports whether the pipeline can serve requests. Before the
// first real report it runs a small synthetic cycle to prove the stages are
// wired; afterwards readiness sticks.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.ready.Load() {
		return nil
	}

	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	raw, err := p.generator.Generate(start, start.AddDate(0, 0, 13), 1)
	if err != nil {
		return err
	}
	series, err := p.cleaner.Clean(raw)
	if err != nil {
		return err
	}
	if _, _, err := p.detector.Detect(series, domain.Features(), 0, 1); err != nil {
		return err
	}

	p.ready.Store(true)
	return nil
}
