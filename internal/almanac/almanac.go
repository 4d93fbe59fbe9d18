// Package almanac derives display-only annotations for a station: the UTC
// offsets in effect during a month (including daylight-saving variants) and
// UTC sunrise/sunset for a representative day. Nothing here affects
// classification or aggregation.
package almanac

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/ringsaturn/tzf"

	"github.com/jelson/metar-calendar/internal/stats"
	"github.com/jelson/metar-calendar/pkg/logger"
)

// representativeDay is the day of month used for sunrise/sunset.
const representativeDay = 15

// Almanac resolves timezone and daylight information from station
// coordinates.
type Almanac struct {
	finder tzf.F
	logger *logger.Logger
}

// New creates an Almanac backed by the embedded timezone boundary data.
func New(log *logger.Logger) (*Almanac, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("failed to build timezone finder: %w", err)
	}
	return &Almanac{
		finder: finder,
		logger: log.Named("almanac"),
	}, nil
}

// UTCOffsets returns the distinct (abbreviation, offset) pairs in effect at
// the given coordinates during the target month across the requested years.
// Standard-time offsets are listed before daylight variants. Returns nil when
// the coordinates cannot be resolved to a timezone.
func (a *Almanac) UTCOffsets(lat, lon float64, month time.Month, years []int) []stats.UTCOffset {
	name := a.finder.GetTimezoneName(lon, lat)
	if name == "" {
		a.logger.Warn("No timezone found for coordinates",
			logger.Float64("lat", lat),
			logger.Float64("lon", lon))
		return nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		a.logger.Warn("Failed to load timezone",
			logger.String("zone", name),
			logger.Error(err))
		return nil
	}

	return offsetsForZone(loc, month, years)
}

// offsetsForZone samples local noon on the first and last day of the month
// for each year. A month contains at most one daylight-saving transition, so
// two samples per year are enough to observe both sides of it.
func offsetsForZone(loc *time.Location, month time.Month, years []int) []stats.UTCOffset {
	type zoneEntry struct {
		offset stats.UTCOffset
		dst    bool
	}

	seen := make(map[string]bool)
	var entries []zoneEntry

	for _, year := range years {
		samples := []time.Time{
			time.Date(year, month, 1, 12, 0, 0, 0, loc),
			time.Date(year, month, daysIn(month, year), 12, 0, 0, 0, loc),
		}
		for _, dt := range samples {
			abbr, offsetSecs := dt.Zone()
			if seen[abbr] {
				continue
			}
			seen[abbr] = true
			entries = append(entries, zoneEntry{
				offset: stats.UTCOffset{
					Abbr:           abbr,
					UTCOffsetHours: float64(offsetSecs) / 3600,
				},
				dst: dt.IsDST(),
			})
		}
	}

	// Standard offset first, then daylight; ties break toward UTC.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].dst != entries[j].dst {
			return !entries[i].dst
		}
		return entries[i].offset.UTCOffsetHours > entries[j].offset.UTCOffsetHours
	})

	out := make([]stats.UTCOffset, len(entries))
	for i, e := range entries {
		out[i] = e.offset
	}
	return out
}

// Daylight computes UTC sunrise and sunset as fractional hours for the 15th
// of the target month. Returns nil during polar day or polar night.
func (a *Almanac) Daylight(lat, lon float64, month time.Month, year int) *stats.Daylight {
	rise, set := sunrise.SunriseSunset(lat, lon, year, month, representativeDay)
	if rise.IsZero() || set.IsZero() {
		return nil
	}
	return &stats.Daylight{
		Sunrise: round2(fractionalHourUTC(rise)),
		Sunset:  round2(fractionalHourUTC(set)),
	}
}

func fractionalHourUTC(t time.Time) float64 {
	t = t.UTC()
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// daysIn returns the number of days in the given month.
func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
