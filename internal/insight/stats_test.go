package insight

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-insights/internal/domain"
)

// seriesFromTemps builds consecutive days starting 2023-06-01 with the given
// temperatures and otherwise unremarkable weather.
func seriesFromTemps(temps ...float64) domain.Series {
	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	series := make(domain.Series, 0, len(temps))
	for i, temp := range temps {
		date := start.AddDate(0, 0, i)
		series = append(series, domain.WeatherRecord{
			Date:          date,
			Temperature:   temp,
			Humidity:      60,
			Precipitation: 0,
			WindSpeed:     3,
			Season:        domain.SeasonForDate(date),
		})
	}
	return series
}

func tempStats(t *testing.T, series domain.Series) domain.FeatureStats {
	t.Helper()
	for _, s := range computeStats(series) {
		if s.Feature == domain.FieldTemperature {
			return s
		}
	}
	t.Fatal("temperature stats missing")
	return domain.FeatureStats{}
}

func TestComputeStats(t *testing.T) {
	series := seriesFromTemps(10, 20, 30, 40)

	s := tempStats(t, series)
	assert.Equal(t, 25.0, s.Mean)
	assert.Equal(t, 25.0, s.Median)
	assert.Equal(t, 10.0, s.Min)
	assert.Equal(t, 40.0, s.Max)
}

func TestComputeStats_OddMedianAndMissing(t *testing.T) {
	series := seriesFromTemps(10, 30, 20, 50, 40)
	series[1].Temperature = math.NaN()

	s := tempStats(t, series)
	assert.Equal(t, 30.0, s.Median) // median of 10, 20, 40, 50 valid values is 30
	assert.Equal(t, 30.0, s.Mean)
}

func TestComputeStats_AllMissingFeature(t *testing.T) {
	series := seriesFromTemps(10, 20, 30)
	for i := range series {
		series[i].Temperature = math.NaN()
	}

	s := tempStats(t, series)
	assert.True(t, math.IsNaN(s.Mean))
	assert.True(t, math.IsNaN(s.Median))
	assert.True(t, math.IsNaN(s.Min))
	assert.True(t, math.IsNaN(s.Max))
}

func TestComputeTrends(t *testing.T) {
	tests := []struct {
		name     string
		temps    []float64
		expected domain.TrendDirection
	}{
		{"steadily rising", []float64{10, 11, 12, 13, 14}, domain.TrendRising},
		{"steadily falling", []float64{14, 13, 12, 11, 10}, domain.TrendFalling},
		{"constant", []float64{12, 12, 12, 12}, domain.TrendFlat},
		{"noise around a level", []float64{12.0001, 11.9999, 12.0001, 11.9999}, domain.TrendFlat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trends := computeTrends(seriesFromTemps(tt.temps...))
			for _, tr := range trends {
				if tr.Feature == domain.FieldTemperature {
					assert.Equal(t, tt.expected, tr.Direction)
					return
				}
			}
			t.Fatal("temperature trend missing")
		})
	}
}

func TestLinearSlope(t *testing.T) {
	assert.InDelta(t, 1.0, linearSlope([]float64{5, 6, 7, 8}), 1e-9)
	assert.InDelta(t, -0.5, linearSlope([]float64{3, 2.5, 2, 1.5}), 1e-9)
	assert.True(t, math.IsNaN(linearSlope([]float64{7})), "single point has no slope")
	assert.True(t, math.IsNaN(linearSlope(nil)))
}

func TestPrecipSummary(t *testing.T) {
	series := seriesFromTemps(10, 10, 10, 10, 10)
	series[0].Precipitation = 5
	series[2].Precipitation = 25
	series[3].Precipitation = math.NaN()

	total, rainy := precipSummary(series)
	require.InDelta(t, 30.0, total, 1e-9)
	assert.Equal(t, 2, rainy)
	assert.Equal(t, 1, heavyRainDays(series))
}
