package domain

import (
	"context"
	"time"
)

// NarrativeInput carries the computed report sections a narrator turns into
// prose. Narrators read it; they never recompute statistics.
type NarrativeInput struct {
	RangeStart time.Time
	RangeEnd   time.Time
	Records    int

	Stats  []FeatureStats
	Trends []FeatureTrend

	TotalPrecipitation float64
	RainyDays          int
	HeavyRainDays      int

	Anomalies AnomalySummary
}

// Narrator produces the free-text section of an insight report.
type Narrator interface {
	// Narrate renders the input as prose. Implementations backed by an
	// external service return an error on failure; the report generator
	// recovers by falling back to the template narrator.
	Narrate(ctx context.Context, input NarrativeInput) (string, error)
}
