package anomaly

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/weather-insights/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDetector() *Detector {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// flatSeries builds n days of mildly varying weather starting 2023-01-01.
func flatSeries(n int) domain.Series {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(domain.Series, 0, n)
	for i := 0; i < n; i++ {
		date := start.AddDate(0, 0, i)
		series = append(series, domain.WeatherRecord{
			Date:          date,
			Temperature:   10 + float64(i%5),
			Humidity:      60 + float64(i%7),
			Precipitation: float64(i % 3),
			WindSpeed:     3 + float64(i%4)*0.5,
			Season:        domain.SeasonForDate(date),
		})
	}
	return series
}

func allFeatures() []domain.FieldName {
	return domain.Features()
}

func TestDetect_EmptyFeatureSet(t *testing.T) {
	_, _, err := testDetector().Detect(flatSeries(50), nil, 0.05, 42)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "features", verr.Field)
}

func TestDetect_UnknownFeature(t *testing.T) {
	_, _, err := testDetector().Detect(flatSeries(50), []domain.FieldName{"pressure"}, 0.05, 42)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "pressure")
}

func TestDetect_DuplicateFeature(t *testing.T) {
	features := []domain.FieldName{domain.FieldTemperature, domain.FieldTemperature}

	_, _, err := testDetector().Detect(flatSeries(50), features, 0.05, 42)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "features", verr.Field)
	assert.Contains(t, err.Error(), "duplicate feature")
}

func TestDetect_TooFewRecords(t *testing.T) {
	_, _, err := testDetector().Detect(flatSeries(9), allFeatures(), 0.05, 42)

	var ierr *domain.InsufficientDataError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, 9, ierr.Records)
	assert.Equal(t, MinRecords, ierr.Min)
	assert.Contains(t, err.Error(), "need at least 10")
}

func TestDetect_InvalidContamination(t *testing.T) {
	_, _, err := testDetector().Detect(flatSeries(50), allFeatures(), 0.9, 42)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "contamination", verr.Field)
}

func TestDetect_ZeroContaminationUsesDefault(t *testing.T) {
	_, summary, err := testDetector().Detect(flatSeries(100), allFeatures(), 0, 42)

	require.NoError(t, err)
	assert.Equal(t, DefaultContamination, summary.Contamination)
}

func TestDetect_NoVarianceFlagsNothing(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(domain.Series, 0, 20)
	for i := 0; i < 20; i++ {
		series = append(series, domain.WeatherRecord{
			Date:          start.AddDate(0, 0, i),
			Temperature:   15,
			Humidity:      60,
			Precipitation: 0,
			WindSpeed:     2,
		})
	}

	results, summary, err := testDetector().Detect(series, allFeatures(), 0.1, 42)

	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, summary.Flagged)
	assert.Equal(t, 20, summary.Records)
}

func TestDetect_FlagsObviousOutlier(t *testing.T) {
	series := flatSeries(100)
	outlierDate := series[37].Date
	series[37].Temperature = 55 // far outside the 10-14 band
	series[37].Precipitation = 80

	results, summary, err := testDetector().Detect(series, allFeatures(), 0.05, 42)

	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, 5, summary.Flagged)

	var found bool
	for _, r := range results {
		assert.True(t, r.IsAnomaly)
		assert.Equal(t, allFeatures(), r.Features)
		if r.Date.Equal(outlierDate) {
			found = true
		}
	}
	assert.True(t, found, "planted outlier should be flagged")

	require.NotEmpty(t, summary.Top)
	assert.LessOrEqual(t, len(summary.Top), 3)
	assert.True(t, summary.Top[0].Date.Equal(outlierDate), "planted outlier should score highest")
}

func TestDetect_ThresholdBound(t *testing.T) {
	tests := []struct {
		name          string
		records       int
		contamination float64
	}{
		{"5 percent of 100", 100, 0.05},
		{"10 percent of 73", 73, 0.10},
		{"tiny fraction flags nothing", 50, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, summary, err := testDetector().Detect(flatSeries(tt.records), allFeatures(), tt.contamination, 42)
			require.NoError(t, err)

			expected := tt.contamination * float64(tt.records)
			assert.InDelta(t, expected, float64(len(results)), 1.0)
			assert.Equal(t, len(results), summary.Flagged)
		})
	}
}

func TestDetect_Deterministic(t *testing.T) {
	series := flatSeries(120)
	series[11].WindSpeed = 40

	first, firstSummary, err := testDetector().Detect(series, allFeatures(), 0.05, 7)
	require.NoError(t, err)
	second, secondSummary, err := testDetector().Detect(series, allFeatures(), 0.05, 7)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated detection differs (-first +second):\n%s", diff)
	}
	assert.Equal(t, firstSummary, secondSummary)
}

// TestDetect_CutoffTiesBrokenByAscendingDate plants one outlier among
// otherwise identical records. The identical records all share one score, so
// the cutoff lands inside the tied group and date order decides which of them
// are flagged.
func TestDetect_CutoffTiesBrokenByAscendingDate(t *testing.T) {
	start := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	series := make(domain.Series, 0, 20)
	for i := 0; i < 20; i++ {
		date := start.AddDate(0, 0, i)
		series = append(series, domain.WeatherRecord{
			Date:          date,
			Temperature:   12,
			Humidity:      60,
			Precipitation: 1,
			WindSpeed:     4,
			Season:        domain.SeasonForDate(date),
		})
	}
	outlierDate := series[10].Date
	series[10].Temperature = 55
	series[10].Precipitation = 90
	series[10].WindSpeed = 30

	// contamination 0.25 of 20 records flags 5: the outlier plus 4 of the
	// 19 tied records.
	first, summary, err := testDetector().Detect(series, allFeatures(), 0.25, 42)
	require.NoError(t, err)
	require.Equal(t, 5, summary.Flagged)

	got := make([]time.Time, 0, len(first))
	for _, r := range first {
		got = append(got, r.Date)
	}
	want := []time.Time{series[0].Date, series[1].Date, series[2].Date, series[3].Date, outlierDate}
	assert.Equal(t, want, got, "earliest tied dates win at the cutoff")

	second, _, err := testDetector().Detect(series, allFeatures(), 0.25, 42)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("tied flagged set differs between runs (-first +second):\n%s", diff)
	}
}

func TestDetect_ResultsOrderedByDate(t *testing.T) {
	series := flatSeries(100)
	series[80].Temperature = 50
	series[10].Temperature = -30

	results, _, err := testDetector().Detect(series, allFeatures(), 0.05, 42)
	require.NoError(t, err)

	for i := 1; i < len(results); i++ {
		assert.True(t, results[i-1].Date.Before(results[i].Date))
	}
}

func TestDetect_DoesNotMutateInput(t *testing.T) {
	series := flatSeries(50)
	before := series.Clone()

	_, _, err := testDetector().Detect(series, allFeatures(), 0.05, 42)
	require.NoError(t, err)

	if diff := cmp.Diff(before, series); diff != "" {
		t.Fatalf("detector mutated its input (-before +after):\n%s", diff)
	}
}

func TestDetect_SingleFeature(t *testing.T) {
	series := flatSeries(60)
	series[30].Humidity = 5

	results, summary, err := testDetector().Detect(series, []domain.FieldName{domain.FieldHumidity}, 0.05, 42)
	require.NoError(t, err)

	assert.Equal(t, []domain.FieldName{domain.FieldHumidity}, summary.Features)
	require.NotEmpty(t, results)
	assert.True(t, summary.Top[0].Date.Equal(series[30].Date))
}
