package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// insight pipeline.
type Metrics struct {
	ReportsGenerated prometheus.Counter
	ReportDuration   prometheus.Histogram
	PipelineErrors   prometheus.Counter

	// Cleaning metrics.
	RecordsProcessed  prometheus.Counter
	DuplicatesDropped prometheus.Counter
	ValuesImputed     prometheus.Counter
	ValuesClipped     prometheus.Counter

	// Anomaly detection metrics.
	AnomaliesFlagged prometheus.Counter

	// Narrative service metrics.
	NarrativeRequests    *prometheus.CounterVec // labels: outcome={success,error}
	NarrativeAPIDuration prometheus.Histogram
	NarrativeEnabled     prometheus.Gauge

	// Alert publishing metrics.
	AlertsPublished prometheus.Counter
	AlertErrors     prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReportsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_insights",
			Name:      "reports_generated_total",
			Help:      "Total insight reports produced.",
		}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_insights",
			Name:      "report_duration_seconds",
			Help:      "Duration of a complete generate-clean-detect-report cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		PipelineErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_insights",
			Name:      "pipeline_errors_total",
			Help:      "Total pipeline runs that ended in an error.",
		}),
		RecordsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_insights",
			Name:      "records_processed_total",
			Help:      "Total weather records passed through cleaning.",
		}),
		DuplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_insights",
			Name:      "duplicates_dropped_total",
			Help:      "Total duplicate-date records dropped during cleaning.",
		}),
		ValuesImputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_insights",
			Name:      "values_imputed_total",
			Help:      "Total missing values filled by interpolation.",
		}),
		ValuesClipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_insights",
			Name:      "values_clipped_total",
			Help:      "Total out-of-range values clipped to physical bounds.",
		}),
		AnomaliesFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_insights",
			Name:      "anomalies_flagged_total",
			Help:      "Total records flagged as anomalous.",
		}),
		NarrativeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_insights",
			Name:      "narrative_requests_total",
			Help:      "Narrative service requests by outcome.",
		}, []string{"outcome"}),
		NarrativeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_insights",
			Name:      "narrative_api_duration_seconds",
			Help:      "Narrative service request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		NarrativeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_insights",
			Name:      "narrative_enabled",
			Help:      "1 when the narrative service is configured, 0 otherwise.",
		}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_insights",
			Name:      "alerts_published_total",
			Help:      "Total anomaly alerts written to the alert topic.",
		}),
		AlertErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_insights",
			Name:      "alert_errors_total",
			Help:      "Total failed anomaly alert publishes.",
		}),
	}

	prometheus.MustRegister(
		m.ReportsGenerated,
		m.ReportDuration,
		m.PipelineErrors,
		m.RecordsProcessed,
		m.DuplicatesDropped,
		m.ValuesImputed,
		m.ValuesClipped,
		m.AnomaliesFlagged,
		m.NarrativeRequests,
		m.NarrativeAPIDuration,
		m.NarrativeEnabled,
		m.AlertsPublished,
		m.AlertErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with unregistered collectors to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReportsGenerated:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_insights", Name: "reports_generated_total"}),
		ReportDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "weather_insights", Name: "report_duration_seconds"}),
		PipelineErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_insights", Name: "pipeline_errors_total"}),
		RecordsProcessed:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_insights", Name: "records_processed_total"}),
		DuplicatesDropped:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_insights", Name: "duplicates_dropped_total"}),
		ValuesImputed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_insights", Name: "values_imputed_total"}),
		ValuesClipped:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_insights", Name: "values_clipped_total"}),
		AnomaliesFlagged:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_insights", Name: "anomalies_flagged_total"}),
		NarrativeRequests:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_insights", Name: "narrative_requests_total"}, []string{"outcome"}),
		NarrativeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "weather_insights", Name: "narrative_api_duration_seconds"}),
		NarrativeEnabled:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_insights", Name: "narrative_enabled"}),
		AlertsPublished:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_insights", Name: "alerts_published_total"}),
		AlertErrors:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_insights", Name: "alert_errors_total"}),
	}
}
