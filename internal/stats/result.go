package stats

import (
	"time"
)

// UTCOffset is one UTC offset observed at the station during the requested
// month, e.g. {PST -8} or {PDT -7}.
type UTCOffset struct {
	Abbr           string  `json:"abbr"`
	UTCOffsetHours float64 `json:"utc_offset_hours"`
}

// Daylight holds UTC sunrise and sunset as fractional hours for the
// representative day of the month. Display-only; it never affects the
// statistics themselves.
type Daylight struct {
	Sunrise float64 `json:"sunrise"`
	Sunset  float64 `json:"sunset"`
}

// Result is the complete statistics payload for one station and month.
// HourlyStats is indexed by UTC hour; entries are null in JSON for hours
// with no observations.
type Result struct {
	Airport     string          `json:"airport"`
	Month       time.Month      `json:"month"`
	HourlyStats [24]*HourlyStat `json:"hourly_stats"`
	UTCOffsets  []UTCOffset     `json:"utc_offsets"`
	DaylightUTC *Daylight       `json:"daylight_utc,omitempty"`
}

// Assemble composes aggregated counts and almanac annotations into a Result.
// Returns *NoDataError when no hour has any observations.
func Assemble(airport string, month time.Month, counts *HourlyCounts, offsets []UTCOffset, daylight *Daylight) (*Result, error) {
	if counts.Total() == 0 {
		return nil, &NoDataError{Station: airport, Month: month}
	}
	return &Result{
		Airport:     airport,
		Month:       month,
		HourlyStats: counts.Snapshot(),
		UTCOffsets:  offsets,
		DaylightUTC: daylight,
	}, nil
}
