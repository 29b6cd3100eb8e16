// Package cleaner normalizes raw weather series into validated, gap-free,
// range-checked series. Cleaning is idempotent: a second pass over already
// clean data is a no-op.
package cleaner

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/weather-insights/internal/domain"
)

// Stats counts what a cleaning pass changed, for logging and the validate
// command.
type Stats struct {
	Input             int
	DuplicatesDropped int
	GapDaysFilled     int
	ValuesImputed     int
	ValuesClipped     int
}

// Cleaner normalizes weather series. It holds no mutable state and is safe
// for concurrent use.
type Cleaner struct {
	logger *slog.Logger
}

// New creates a Cleaner.
func New(logger *slog.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean returns a cleaned copy of the series. The input is never mutated.
// An empty series cleans to an empty series.
func (c *Cleaner) Clean(series domain.Series) (domain.Series, error) {
	out, _, err := c.CleanWithStats(series)
	return out, err
}

// CleanRaw parses untyped rows and cleans the result. A row with an
// unparseable date fails with a ValidationError naming the row.
func (c *Cleaner) CleanRaw(rows []domain.RawRecord) (domain.Series, error) {
	series := make(domain.Series, 0, len(rows))
	for i, raw := range rows {
		rec, err := domain.ParseRawRecord(raw, i)
		if err != nil {
			return nil, err
		}
		series = append(series, rec)
	}
	return c.Clean(series)
}

// CleanWithStats runs the cleaning steps in order: drop duplicate dates
// (keeping the first occurrence), fill calendar gaps, impute missing values
// by linear interpolation (nearest-valid fill at the boundaries), clip to
// hard physical bounds, and recompute season from date.
func (c *Cleaner) CleanWithStats(series domain.Series) (domain.Series, Stats, error) {
	stats := Stats{Input: len(series)}
	if len(series) == 0 {
		return domain.Series{}, stats, nil
	}

	deduped, err := dedupKeepFirst(series, &stats)
	if err != nil {
		return nil, stats, err
	}

	sort.Slice(deduped, func(i, j int) bool { return deduped[i].Date.Before(deduped[j].Date) })

	filled := fillCalendarGaps(deduped, &stats)

	for _, f := range domain.Features() {
		imputeFeature(filled, f, &stats)
		clipFeature(filled, f, &stats)
	}

	for i := range filled {
		filled[i].Season = domain.SeasonForDate(filled[i].Date)
	}

	if stats.DuplicatesDropped > 0 || stats.GapDaysFilled > 0 || stats.ValuesImputed > 0 || stats.ValuesClipped > 0 {
		c.logger.Info("series cleaned",
			"input", stats.Input,
			"output", len(filled),
			"duplicates_dropped", stats.DuplicatesDropped,
			"gap_days_filled", stats.GapDaysFilled,
			"values_imputed", stats.ValuesImputed,
			"values_clipped", stats.ValuesClipped,
		)
	}
	return filled, stats, nil
}

// dedupKeepFirst drops records whose calendar date already appeared earlier
// in the input. First occurrence wins; later duplicates are discarded, never
// merged. Dates are normalized to midnight UTC.
func dedupKeepFirst(series domain.Series, stats *Stats) (domain.Series, error) {
	seen := make(map[time.Time]bool, len(series))
	out := make(domain.Series, 0, len(series))
	for i, rec := range series {
		if rec.Date.IsZero() {
			return nil, &domain.ValidationError{Field: "date", Row: i, Msg: "missing date"}
		}
		day := time.Date(rec.Date.Year(), rec.Date.Month(), rec.Date.Day(), 0, 0, 0, 0, time.UTC)
		if seen[day] {
			stats.DuplicatesDropped++
			continue
		}
		seen[day] = true
		rec.Date = day
		out = append(out, rec)
	}
	return out, nil
}

// fillCalendarGaps inserts all-missing records for absent days so the
// series covers every calendar day between its first and last date.
func fillCalendarGaps(series domain.Series, stats *Stats) domain.Series {
	if len(series) < 2 {
		return series
	}

	first, last := series[0].Date, series[len(series)-1].Date
	days := int(last.Sub(first).Hours()/24) + 1
	out := make(domain.Series, 0, days)

	next := 0
	for d := 0; d < days; d++ {
		date := first.AddDate(0, 0, d)
		if next < len(series) && series[next].Date.Equal(date) {
			out = append(out, series[next])
			next++
			continue
		}
		stats.GapDaysFilled++
		out = append(out, missingRecord(date))
	}
	return out
}

func missingRecord(date time.Time) domain.WeatherRecord {
	rec := domain.WeatherRecord{Date: date}
	for _, f := range domain.Features() {
		rec.SetValue(f, math.NaN())
	}
	return rec
}

// imputeFeature replaces missing values with the linear interpolation
// between the nearest valid neighbors. Runs of missing values at either
// boundary take the nearest valid value. A feature with no valid
// observations at all is left missing.
func imputeFeature(series domain.Series, f domain.FieldName, stats *Stats) {
	n := len(series)
	prevValid := -1
	for i := 0; i <= n; i++ {
		if i < n && !domain.IsMissing(series[i].Value(f)) {
			fillGap(series, f, prevValid, i, stats)
			prevValid = i
			continue
		}
		if i == n {
			fillGap(series, f, prevValid, n, stats)
		}
	}
}

// fillGap imputes positions (from, to) exclusive. from == -1 means a leading
// gap (backfill from the record at to); to == len means a trailing gap
// (forward-fill from the record at from).
func fillGap(series domain.Series, f domain.FieldName, from, to int, stats *Stats) {
	if to-from <= 1 {
		return
	}
	switch {
	case from == -1 && to == len(series):
		// No valid observation for this feature anywhere.
		return
	case from == -1:
		v := series[to].Value(f)
		for i := 0; i < to; i++ {
			series[i].SetValue(f, v)
			stats.ValuesImputed++
		}
	case to == len(series):
		v := series[from].Value(f)
		for i := from + 1; i < to; i++ {
			series[i].SetValue(f, v)
			stats.ValuesImputed++
		}
	default:
		lo, hi := series[from].Value(f), series[to].Value(f)
		span := float64(to - from)
		for i := from + 1; i < to; i++ {
			frac := float64(i-from) / span
			series[i].SetValue(f, lo+(hi-lo)*frac)
			stats.ValuesImputed++
		}
	}
}

// clipFeature clamps out-of-bound values to the hard physical limits.
// Records are clipped, never deleted.
func clipFeature(series domain.Series, f domain.FieldName, stats *Stats) {
	bounds, ok := domain.FieldBounds(f)
	if !ok {
		return
	}
	for i := range series {
		v := series[i].Value(f)
		if domain.IsMissing(v) {
			continue
		}
		switch {
		case v < bounds.Min:
			series[i].SetValue(f, bounds.Min)
			stats.ValuesClipped++
		case v > bounds.Max:
			series[i].SetValue(f, bounds.Max)
			stats.ValuesClipped++
		}
	}
}
