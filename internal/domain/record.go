package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date format used in all serialized records.
const DateLayout = "2006-01-02"

// Season labels the meteorological season of a record's date.
type Season string

const (
	SeasonWinter Season = "winter"
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
)

// SeasonForDate maps a date to its meteorological season:
// Dec–Feb winter, Mar–May spring, Jun–Aug summer, Sep–Nov autumn.
func SeasonForDate(t time.Time) Season {
	switch t.Month() {
	case time.December, time.January, time.February:
		return SeasonWinter
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	default:
		return SeasonAutumn
	}
}

// FieldName identifies one of the measured weather features.
type FieldName string

const (
	FieldTemperature   FieldName = "temperature"
	FieldHumidity      FieldName = "humidity"
	FieldPrecipitation FieldName = "precipitation"
	FieldWindSpeed     FieldName = "wind_speed"
)

// Features returns the measured fields in canonical order.
func Features() []FieldName {
	return []FieldName{FieldTemperature, FieldHumidity, FieldPrecipitation, FieldWindSpeed}
}

// Bounds holds the hard physical limits for a feature.
type Bounds struct {
	Min float64
	Max float64
}

// FieldBounds returns the physical bounds for a feature. Unknown fields
// return ok=false.
func FieldBounds(f FieldName) (Bounds, bool) {
	switch f {
	case FieldTemperature:
		return Bounds{Min: -60, Max: 60}, true
	case FieldHumidity:
		return Bounds{Min: 0, Max: 100}, true
	case FieldPrecipitation:
		return Bounds{Min: 0, Max: 500}, true
	case FieldWindSpeed:
		return Bounds{Min: 0, Max: 150}, true
	default:
		return Bounds{}, false
	}
}

// sentinelMagnitude marks the cutoff beyond which values are considered
// encoding sentinels (e.g. -9999) rather than measurements.
const sentinelMagnitude = 9000

// IsMissing reports whether a value represents a missing observation:
// NaN, or a legacy sentinel with magnitude >= 9000.
func IsMissing(v float64) bool {
	return math.IsNaN(v) || math.Abs(v) >= sentinelMagnitude
}

// WeatherRecord is one calendar day's observation.
type WeatherRecord struct {
	Date          time.Time
	Temperature   float64
	Humidity      float64
	Precipitation float64
	WindSpeed     float64
	Season        Season
}

// Value returns the named feature of the record. Unknown fields return NaN.
func (r WeatherRecord) Value(f FieldName) float64 {
	switch f {
	case FieldTemperature:
		return r.Temperature
	case FieldHumidity:
		return r.Humidity
	case FieldPrecipitation:
		return r.Precipitation
	case FieldWindSpeed:
		return r.WindSpeed
	default:
		return math.NaN()
	}
}

// SetValue assigns the named feature of the record. Unknown fields are ignored.
func (r *WeatherRecord) SetValue(f FieldName, v float64) {
	switch f {
	case FieldTemperature:
		r.Temperature = v
	case FieldHumidity:
		r.Humidity = v
	case FieldPrecipitation:
		r.Precipitation = v
	case FieldWindSpeed:
		r.WindSpeed = v
	}
}

// recordJSON is the wire form of a WeatherRecord. Dates are calendar dates,
// not timestamps, and NaN (which JSON cannot carry) round-trips as null.
type recordJSON struct {
	Date          string   `json:"date"`
	Temperature   *float64 `json:"temperature"`
	Humidity      *float64 `json:"humidity"`
	Precipitation *float64 `json:"precipitation"`
	WindSpeed     *float64 `json:"wind_speed"`
	Season        Season   `json:"season"`
}

func floatPtr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func floatVal(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// MarshalJSON encodes the record with an ISO calendar date and null for
// missing values.
func (r WeatherRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Date:          r.Date.Format(DateLayout),
		Temperature:   floatPtr(r.Temperature),
		Humidity:      floatPtr(r.Humidity),
		Precipitation: floatPtr(r.Precipitation),
		WindSpeed:     floatPtr(r.WindSpeed),
		Season:        r.Season,
	})
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (r *WeatherRecord) UnmarshalJSON(data []byte) error {
	var w recordJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	date, err := time.Parse(DateLayout, w.Date)
	if err != nil {
		return fmt.Errorf("parse record date %q: %w", w.Date, err)
	}
	*r = WeatherRecord{
		Date:          date,
		Temperature:   floatVal(w.Temperature),
		Humidity:      floatVal(w.Humidity),
		Precipitation: floatVal(w.Precipitation),
		WindSpeed:     floatVal(w.WindSpeed),
		Season:        w.Season,
	}
	return nil
}

// Series is an ordered run of daily records, one per calendar day.
type Series []WeatherRecord

// Clone returns an independent copy of the series.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// Column extracts one feature across the series in record order.
func (s Series) Column(f FieldName) []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i].Value(f)
	}
	return out
}

// RawRecord is an untyped row as ingested from CSV or flat JSON, before
// validation. Empty or unparseable measurement strings become missing
// values; an unparseable date is a validation failure.
type RawRecord struct {
	Date          string `json:"date"`
	Temperature   string `json:"temperature"`
	Humidity      string `json:"humidity"`
	Precipitation string `json:"precipitation"`
	WindSpeed     string `json:"wind_speed"`
}

// ParseRawRecord converts a raw row into a typed record. The row number is
// used only for error reporting. Season is derived from the date.
func ParseRawRecord(raw RawRecord, row int) (WeatherRecord, error) {
	dateStr := strings.TrimSpace(raw.Date)
	date, err := time.Parse(DateLayout, dateStr)
	if err != nil {
		return WeatherRecord{}, &ValidationError{
			Field: "date",
			Row:   row,
			Msg:   fmt.Sprintf("unparseable date %q", raw.Date),
		}
	}

	return WeatherRecord{
		Date:          date,
		Temperature:   parseFloatOrMissing(raw.Temperature),
		Humidity:      parseFloatOrMissing(raw.Humidity),
		Precipitation: parseFloatOrMissing(raw.Precipitation),
		WindSpeed:     parseFloatOrMissing(raw.WindSpeed),
		Season:        SeasonForDate(date),
	}, nil
}

// parseFloatOrMissing parses a measurement string, returning NaN for empty
// or malformed input.
func parseFloatOrMissing(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
