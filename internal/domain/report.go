package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// AnomalyResult is one flagged day from the detector. Score is higher for
// more anomalous records; IsAnomaly reflects the contamination threshold.
type AnomalyResult struct {
	Date      time.Time
	Score     float64
	Features  []FieldName
	IsAnomaly bool
}

type anomalyResultJSON struct {
	Date      string      `json:"date"`
	Score     float64     `json:"score"`
	Features  []FieldName `json:"features"`
	IsAnomaly bool        `json:"is_anomaly"`
}

func (a AnomalyResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(anomalyResultJSON{
		Date:      a.Date.Format(DateLayout),
		Score:     a.Score,
		Features:  a.Features,
		IsAnomaly: a.IsAnomaly,
	})
}

func (a *AnomalyResult) UnmarshalJSON(data []byte) error {
	var w anomalyResultJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	date, err := time.Parse(DateLayout, w.Date)
	if err != nil {
		return fmt.Errorf("parse anomaly date %q: %w", w.Date, err)
	}
	*a = AnomalyResult{Date: date, Score: w.Score, Features: w.Features, IsAnomaly: w.IsAnomaly}
	return nil
}

// AnomalySummary describes one detector invocation: how much data was
// analyzed, with which settings, and what stood out.
type AnomalySummary struct {
	Records       int             `json:"records"`
	Flagged       int             `json:"flagged"`
	Contamination float64         `json:"contamination"`
	Features      []FieldName     `json:"features"`
	Top           []AnomalyResult `json:"top,omitempty"` // highest scoring, at most three
}

// FeatureStats is the descriptive-statistics block for one feature.
type FeatureStats struct {
	Feature FieldName `json:"feature"`
	Mean    float64   `json:"mean"`
	Median  float64   `json:"median"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
}

// TrendDirection classifies the sign of a feature's linear fit over time.
type TrendDirection string

const (
	TrendRising  TrendDirection = "rising"
	TrendFalling TrendDirection = "falling"
	TrendFlat    TrendDirection = "flat"
)

// FeatureTrend is the slope of a simple linear fit of one feature over the
// series, expressed per day.
type FeatureTrend struct {
	Feature      FieldName      `json:"feature"`
	SlopePerDay  float64        `json:"slope_per_day"`
	Direction    TrendDirection `json:"direction"`
}

// Provenance marks how a report's narrative was produced.
type Provenance string

const (
	ProvenanceGenerated        Provenance = "generated"
	ProvenanceTemplateFallback Provenance = "template-fallback"
)

// InsightReport is the structured output of the report generator. Both
// narrative strategies populate every section so consumers see a stable
// schema regardless of provenance.
type InsightReport struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`

	RangeStart time.Time `json:"range_start"`
	RangeEnd   time.Time `json:"range_end"`
	Records    int       `json:"records"`

	Stats  []FeatureStats `json:"stats"`
	Trends []FeatureTrend `json:"trends"`

	TotalPrecipitation float64 `json:"total_precipitation"`
	RainyDays          int     `json:"rainy_days"`

	Anomalies  AnomalySummary `json:"anomalies"`
	Narrative  string         `json:"narrative"`
	Provenance Provenance     `json:"provenance"`
}
