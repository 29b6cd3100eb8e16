// Package insight turns cleaned weather series and anomaly summaries into
// structured reports with a human-readable narrative.
package insight

import (
	"math"
	"sort"

	"github.com/couchcryptid/weather-insights/internal/domain"
)

// flatSlopeEps is the per-day slope magnitude below which a trend is
// reported as flat rather than rising or falling.
const flatSlopeEps = 0.001

// rainyDayThreshold separates dry days from days with measurable rain, mm.
const rainyDayThreshold = 0.0

// heavyRainThreshold marks days of operationally heavy precipitation, mm.
const heavyRainThreshold = 20.0

// computeStats produces the descriptive-statistics block for every measured
// feature. Missing values are skipped; a feature with no valid values
// reports NaN throughout.
func computeStats(series domain.Series) []domain.FeatureStats {
	stats := make([]domain.FeatureStats, 0, len(domain.Features()))
	for _, f := range domain.Features() {
		valid := validValues(series.Column(f))
		stats = append(stats, domain.FeatureStats{
			Feature: f,
			Mean:    mean(valid),
			Median:  median(valid),
			Min:     minOf(valid),
			Max:     maxOf(valid),
		})
	}
	return stats
}

// computeTrends fits a least-squares line per feature over the day index
// and classifies its direction.
func computeTrends(series domain.Series) []domain.FeatureTrend {
	trends := make([]domain.FeatureTrend, 0, len(domain.Features()))
	for _, f := range domain.Features() {
		slope := linearSlope(series.Column(f))
		trends = append(trends, domain.FeatureTrend{
			Feature:     f,
			SlopePerDay: slope,
			Direction:   classifySlope(slope),
		})
	}
	return trends
}

func classifySlope(slope float64) domain.TrendDirection {
	switch {
	case math.IsNaN(slope) || math.Abs(slope) < flatSlopeEps:
		return domain.TrendFlat
	case slope > 0:
		return domain.TrendRising
	default:
		return domain.TrendFalling
	}
}

// linearSlope is the ordinary least-squares slope of the valid values over
// their day index. Returns NaN for fewer than two valid points.
func linearSlope(col []float64) float64 {
	var n, sumX, sumY, sumXY, sumXX float64
	for i, v := range col {
		if domain.IsMissing(v) {
			continue
		}
		x := float64(i)
		n++
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	if n < 2 {
		return math.NaN()
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return math.NaN()
	}
	return (n*sumXY - sumX*sumY) / denom
}

// precipSummary totals precipitation and counts days with measurable rain.
func precipSummary(series domain.Series) (total float64, rainyDays int) {
	for _, rec := range series {
		if domain.IsMissing(rec.Precipitation) {
			continue
		}
		total += rec.Precipitation
		if rec.Precipitation > rainyDayThreshold {
			rainyDays++
		}
	}
	return total, rainyDays
}

// heavyRainDays counts days above the heavy-precipitation threshold.
func heavyRainDays(series domain.Series) int {
	var n int
	for _, rec := range series {
		if !domain.IsMissing(rec.Precipitation) && rec.Precipitation > heavyRainThreshold {
			n++
		}
	}
	return n
}

func validValues(col []float64) []float64 {
	out := make([]float64, 0, len(col))
	for _, v := range col {
		if !domain.IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func minOf(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
