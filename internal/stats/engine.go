package stats

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jelson/metar-calendar/internal/airports"
	"github.com/jelson/metar-calendar/internal/fetcher"
	"github.com/jelson/metar-calendar/internal/metar"
	"github.com/jelson/metar-calendar/internal/observability"
	"github.com/jelson/metar-calendar/pkg/logger"
)

// Fetcher retrieves raw report lines for one station-year-month.
type Fetcher interface {
	FetchMonth(ctx context.Context, station string, year int, month time.Month) ([]string, error)
}

// StationDirectory resolves a station code to its coordinates and elevation.
type StationDirectory interface {
	Lookup(code string) (airports.Station, bool)
}

// Annotator supplies the display-only timezone and daylight annotations.
type Annotator interface {
	UTCOffsets(lat, lon float64, month time.Month, years []int) []UTCOffset
	Daylight(lat, lon float64, month time.Month, year int) *Daylight
}

// Engine computes hourly flight-category statistics for a station and
// month. Each request is an independent batch transform; the engine itself
// holds no per-request state.
type Engine struct {
	fetcher      Fetcher
	directory    StationDirectory
	almanac      Annotator
	defaultYears int
	clock        clockwork.Clock
	metrics      *observability.Metrics
	logger       *logger.Logger
}

// NewEngine creates a statistics engine.
func NewEngine(f Fetcher, directory StationDirectory, almanac Annotator, defaultYears int, clock clockwork.Clock, metrics *observability.Metrics, log *logger.Logger) *Engine {
	return &Engine{
		fetcher:      f,
		directory:    directory,
		almanac:      almanac,
		defaultYears: defaultYears,
		clock:        clock,
		metrics:      metrics,
		logger:       log.Named("stats-engine"),
	}
}

// DefaultYears returns the configured default history depth.
func (e *Engine) DefaultYears() int {
	return e.defaultYears
}

// yearResult carries one year's fetch outcome back from its goroutine.
type yearResult struct {
	year  int
	lines []string
	err   error
}

// HourlyStatistics fetches, parses, classifies, and aggregates the station's
// reports for the target month across the requested number of years.
func (e *Engine) HourlyStatistics(ctx context.Context, station string, month time.Month, years int) (*Result, error) {
	start := e.clock.Now()

	station = strings.ToUpper(strings.TrimSpace(station))
	if station == "" {
		return nil, &ValidationError{Field: "airport_code", Reason: "must not be empty"}
	}
	if month < time.January || month > time.December {
		return nil, &ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}
	if years <= 0 {
		return nil, &ValidationError{Field: "years", Reason: "must be a positive integer"}
	}

	yearRange := e.historyYears(month, years)

	e.logger.Debug("Computing hourly statistics",
		logger.String("station", station),
		logger.Int("month", int(month)),
		logger.Any("years", yearRange))

	// Fetch all years concurrently. Results are independent, and the
	// aggregation below is a commutative reduction over counts, so
	// arrival order does not matter.
	results := make(chan yearResult, len(yearRange))
	for _, year := range yearRange {
		go func(year int) {
			lines, err := e.fetcher.FetchMonth(ctx, station, year, month)
			results <- yearResult{year: year, lines: lines, err: err}
		}(year)
	}

	var (
		fetched      = make(map[int][]string, len(yearRange))
		fetchedYears []int
		lastErr      error
		allNotFound  = true
	)
	for range yearRange {
		r := <-results
		if r.err != nil {
			lastErr = r.err
			if errors.Is(r.err, fetcher.ErrNotFound) {
				e.metrics.FetchRequests.WithLabelValues("not_found").Inc()
			} else {
				allNotFound = false
				e.metrics.FetchRequests.WithLabelValues("error").Inc()
			}
			e.logger.Warn("Year fetch failed, continuing with remaining years",
				logger.String("station", station),
				logger.Int("year", r.year),
				logger.Error(r.err))
			continue
		}
		e.metrics.FetchRequests.WithLabelValues("success").Inc()
		fetched[r.year] = r.lines
		fetchedYears = append(fetchedYears, r.year)
	}

	if len(fetchedYears) == 0 {
		// A station the archive has never heard of is a "no data"
		// condition; anything else is a transport failure.
		if allNotFound {
			return nil, &NoDataError{Station: station, Month: month}
		}
		return nil, lastErr
	}

	info, known := e.directory.Lookup(station)
	if !known {
		e.logger.Warn("Station not in airport directory, skipping annotations",
			logger.String("station", station))
	}

	parser := metar.NewParser(info.ElevationFt)
	counts := NewHourlyCounts()
	var parsed, failed int
	for _, year := range fetchedYears {
		for _, line := range fetched[year] {
			obs, err := parser.ParseReport(line)
			if err != nil {
				failed++
				e.metrics.ParseFailures.Inc()
				continue
			}
			if obs.Time.Month() != month {
				continue
			}
			parsed++
			e.metrics.ReportsParsed.Inc()
			counts.Add(obs.Time.Hour(), metar.Classify(obs))
		}
	}

	var offsets []UTCOffset
	var daylight *Daylight
	if known {
		offsets = e.almanac.UTCOffsets(info.Latitude, info.Longitude, month, fetchedYears)
		daylight = e.almanac.Daylight(info.Latitude, info.Longitude, month, latest(fetchedYears))
	}

	result, err := Assemble(station, month, counts, offsets, daylight)
	if err != nil {
		return nil, err
	}

	duration := e.clock.Now().Sub(start)
	e.metrics.RequestDuration.Observe(duration.Seconds())
	e.logger.Info("Hourly statistics computed",
		logger.String("station", station),
		logger.Int("month", int(month)),
		logger.Int("years_fetched", len(fetchedYears)),
		logger.Int("years_requested", len(yearRange)),
		logger.Int("observations", parsed),
		logger.Int("parse_failures", failed),
		logger.Duration("duration", duration))

	return result, nil
}

// historyYears selects the most recent `years` calendar years whose copy of
// the target month is already complete. The current year's month is excluded
// while it is still in progress (or has not started).
func (e *Engine) historyYears(month time.Month, years int) []int {
	now := e.clock.Now().UTC()
	latest := now.Year()
	if month >= now.Month() {
		latest--
	}

	out := make([]int, 0, years)
	for y := latest - years + 1; y <= latest; y++ {
		out = append(out, y)
	}
	return out
}

func latest(years []int) int {
	max := years[0]
	for _, y := range years[1:] {
		if y > max {
			max = y
		}
	}
	return max
}
