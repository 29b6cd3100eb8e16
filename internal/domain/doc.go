// Package domain models daily weather observations and the results of the
// analysis pipeline built on top of them.
//
// # Record Schema
//
// A WeatherRecord holds one calendar day's observation:
//
//	date          ISO calendar date (unique, strictly increasing in a Series)
//	temperature   °C, physically bounded to [-60, 60]
//	humidity      %, bounded to [0, 100]
//	precipitation mm, bounded to [0, 500]
//	wind_speed    m/s, bounded to [0, 150]
//	season        derived from date, never set independently
//
// Seasons follow the meteorological calendar: December–February winter,
// March–May spring, June–August summer, September–November autumn.
//
// # Missing Values
//
// Missing observations are represented as NaN in the float fields. Legacy
// sentinel values (magnitudes of 9000 or more, e.g. -9999) are also treated
// as missing. Values that are merely outside the physical bounds are clipped
// during cleaning, not deleted. See [IsMissing].
//
// # Series Lifecycle
//
// A Series is created by the generator (or parsed from raw rows), mutated
// only by the cleaner, and treated as read-only by the detector and the
// report generator. Pipeline stages that need derived values compute them
// into separate structures and never write back into their input.
package domain
