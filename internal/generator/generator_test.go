package generator

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

func testGenerator() *Generator {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGenerate_TenWinterDays(t *testing.T) {
	g := testGenerator()
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)

	series, err := g.Generate(start, end, 42)
	require.NoError(t, err)
	require.Len(t, series, 10)

	for i, rec := range series {
		assert.Equal(t, start.AddDate(0, 0, i), rec.Date)
		assert.Equal(t, domain.SeasonWinter, rec.Season)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	g := testGenerator()
	start := time.Date(2022, 3, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2022, 9, 15, 0, 0, 0, 0, time.UTC)

	first, err := g.Generate(start, end, 7)
	require.NoError(t, err)
	second, err := g.Generate(start, end, 7)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated generation differs (-first +second):\n%s", diff)
	}
}

func TestGenerate_SeedChangesOutput(t *testing.T) {
	g := testGenerator()
	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)

	a, err := g.Generate(start, end, 1)
	require.NoError(t, err)
	b, err := g.Generate(start, end, 2)
	require.NoError(t, err)

	assert.NotEqual(t, a.Column(domain.FieldTemperature), b.Column(domain.FieldTemperature))
}

func TestGenerate_InvalidRange(t *testing.T) {
	g := testGenerator()
	start := time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := g.Generate(start, end, 42)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date_range", verr.Field)
}

func TestGenerate_SingleDay(t *testing.T) {
	g := testGenerator()
	day := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)

	series, err := g.Generate(day, day, 42)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, domain.SeasonSummer, series[0].Season)
}

func TestGenerate_ValuesWithinModelBounds(t *testing.T) {
	g := testGenerator()
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	series, err := g.Generate(start, end, 99)
	require.NoError(t, err)
	require.Len(t, series, 730)

	for _, rec := range series {
		assert.GreaterOrEqual(t, rec.Humidity, 0.0)
		assert.LessOrEqual(t, rec.Humidity, 100.0)
		assert.GreaterOrEqual(t, rec.Precipitation, 0.0)
		assert.GreaterOrEqual(t, rec.WindSpeed, 0.0)
		assert.Equal(t, domain.SeasonForDate(rec.Date), rec.Season)
	}
}

func TestGenerate_InjectsExtremeEvents(t *testing.T) {
	g := testGenerator()
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	series, err := g.Generate(start, end, 42)
	require.NoError(t, err)

	// Ordinary wet days rarely exceed 30mm under the exponential model, so
	// heavy-precipitation days indicate injected extremes.
	var heavy int
	for _, rec := range series {
		if rec.Precipitation > 30 {
			heavy++
		}
	}
	assert.Greater(t, heavy, 0, "expected at least one extreme-event day in two years")
	assert.Less(t, heavy, 60, "extreme days should stay rare")
}
