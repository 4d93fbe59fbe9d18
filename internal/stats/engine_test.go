package stats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jelson/metar-calendar/internal/airports"
	"github.com/jelson/metar-calendar/internal/fetcher"
	"github.com/jelson/metar-calendar/internal/observability"
	"github.com/jelson/metar-calendar/pkg/logger"
)

type fakeFetcher struct {
	mu        sync.Mutex
	linesByYr map[int][]string
	errByYr   map[int]error
	calls     []int
}

func (f *fakeFetcher) FetchMonth(_ context.Context, _ string, year int, _ time.Month) ([]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, year)
	f.mu.Unlock()

	if err, ok := f.errByYr[year]; ok {
		return nil, err
	}
	return f.linesByYr[year], nil
}

func (f *fakeFetcher) calledYears() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]int(nil), f.calls...)
	sort.Ints(out)
	return out
}

type fakeDirectory struct {
	stations map[string]airports.Station
}

func (d *fakeDirectory) Lookup(code string) (airports.Station, bool) {
	st, ok := d.stations[code]
	return st, ok
}

type fakeAnnotator struct {
	offsets  []UTCOffset
	daylight *Daylight
}

func (a *fakeAnnotator) UTCOffsets(_, _ float64, _ time.Month, _ []int) []UTCOffset {
	return a.offsets
}

func (a *fakeAnnotator) Daylight(_, _ float64, _ time.Month, _ int) *Daylight {
	return a.daylight
}

// now is 2026-08-31: August is still in progress, June 2026 is complete.
var testNow = time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC)

func newTestEngine(f Fetcher) *Engine {
	dir := &fakeDirectory{stations: map[string]airports.Station{
		"KSFO": {Code: "KSFO", Latitude: 37.619, Longitude: -122.375, ElevationFt: 13},
	}}
	ann := &fakeAnnotator{
		offsets:  []UTCOffset{{Abbr: "PDT", UTCOffsetHours: -7}},
		daylight: &Daylight{Sunrise: 12.8, Sunset: 3.42},
	}
	return NewEngine(f, dir, ann, 3,
		clockwork.NewFakeClockAt(testNow),
		observability.NewMetricsForTesting(),
		logger.NewNop())
}

func reportLine(year int, day, hour int, weather string) string {
	return fmt.Sprintf("KSFO,%d-06-%02d %02d:56,KSFO %02d%02d56Z 28010KT %s 17/12 A2993",
		year, day, hour, day, hour, weather)
}

func TestHourlyStatisticsConcreteScenario(t *testing.T) {
	// 10 observations at UTC hour 0: 7 VFR, 2 MVFR, 1 IFR, 0 LIFR.
	var lines []string
	for day := 1; day <= 7; day++ {
		lines = append(lines, reportLine(2025, day, 0, "10SM FEW012")) // VFR
	}
	lines = append(lines, reportLine(2025, 8, 0, "4SM BKN025"))  // MVFR by visibility
	lines = append(lines, reportLine(2025, 9, 0, "10SM BKN025")) // MVFR by ceiling
	lines = append(lines, reportLine(2025, 10, 0, "10SM OVC008")) // IFR by ceiling

	ff := &fakeFetcher{linesByYr: map[int][]string{2025: lines}, errByYr: map[int]error{
		2024: &fetcher.FetchError{Station: "KSFO", Year: 2024, Month: time.June, Err: fetcher.ErrNotFound},
		2026: &fetcher.FetchError{Station: "KSFO", Year: 2026, Month: time.June, Err: fetcher.ErrNotFound},
	}}

	result, err := newTestEngine(ff).HourlyStatistics(context.Background(), "ksfo", time.June, 3)
	require.NoError(t, err)

	require.NotNil(t, result.HourlyStats[0])
	assert.InDelta(t, 0.7, result.HourlyStats[0].VFR, 1e-6)
	assert.InDelta(t, 0.2, result.HourlyStats[0].MVFR, 1e-6)
	assert.InDelta(t, 0.1, result.HourlyStats[0].IFR, 1e-6)
	assert.InDelta(t, 0.0, result.HourlyStats[0].LIFR, 1e-6)
	assert.Equal(t, 10, result.HourlyStats[0].SampleCount)

	assert.Nil(t, result.HourlyStats[12], "hour with no observations must be missing")
	assert.Equal(t, "KSFO", result.Airport)
	assert.Equal(t, []UTCOffset{{Abbr: "PDT", UTCOffsetHours: -7}}, result.UTCOffsets)
	require.NotNil(t, result.DaylightUTC)
}

func TestHourlyStatisticsPoolsYearsEqually(t *testing.T) {
	ff := &fakeFetcher{linesByYr: map[int][]string{
		2024: {reportLine(2024, 1, 6, "10SM CLR")},
		2025: {reportLine(2025, 1, 6, "1/2SM FG VV002"), reportLine(2025, 2, 6, "1/2SM FG VV002")},
		2026: {reportLine(2026, 1, 6, "10SM CLR")},
	}}

	result, err := newTestEngine(ff).HourlyStatistics(context.Background(), "KSFO", time.June, 3)
	require.NoError(t, err)

	require.NotNil(t, result.HourlyStats[6])
	assert.Equal(t, 4, result.HourlyStats[6].SampleCount)
	assert.InDelta(t, 0.5, result.HourlyStats[6].VFR, 1e-6)
	assert.InDelta(t, 0.5, result.HourlyStats[6].LIFR, 1e-6)
}

func TestHourlyStatisticsYearSelection(t *testing.T) {
	t.Run("completed month includes current year", func(t *testing.T) {
		ff := &fakeFetcher{linesByYr: map[int][]string{
			2026: {reportLine(2026, 1, 0, "10SM CLR")},
		}}
		_, err := newTestEngine(ff).HourlyStatistics(context.Background(), "KSFO", time.June, 3)
		require.NoError(t, err)
		assert.Equal(t, []int{2024, 2025, 2026}, ff.calledYears())
	})

	t.Run("in-progress month excludes current year", func(t *testing.T) {
		ff := &fakeFetcher{linesByYr: map[int][]string{
			2025: {"KSFO,2025-08-01 00:56,KSFO 010056Z 28010KT 10SM CLR 17/12 A2993"},
		}}
		_, err := newTestEngine(ff).HourlyStatistics(context.Background(), "KSFO", time.August, 3)
		require.NoError(t, err)
		assert.Equal(t, []int{2023, 2024, 2025}, ff.calledYears())
	})

	t.Run("future month excludes current year", func(t *testing.T) {
		ff := &fakeFetcher{linesByYr: map[int][]string{
			2025: {"KSFO,2025-12-01 00:56,KSFO 010056Z 28010KT 10SM CLR 17/12 A2993"},
		}}
		_, err := newTestEngine(ff).HourlyStatistics(context.Background(), "KSFO", time.December, 3)
		require.NoError(t, err)
		assert.Equal(t, []int{2023, 2024, 2025}, ff.calledYears())
	})
}

func TestHourlyStatisticsPartialFetchFailure(t *testing.T) {
	ff := &fakeFetcher{
		linesByYr: map[int][]string{
			2024: {reportLine(2024, 1, 3, "10SM CLR")},
			2026: {reportLine(2026, 1, 3, "10SM CLR")},
		},
		errByYr: map[int]error{
			2025: &fetcher.FetchError{Station: "KSFO", Year: 2025, Month: time.June, Err: errors.New("connection reset")},
		},
	}

	result, err := newTestEngine(ff).HourlyStatistics(context.Background(), "KSFO", time.June, 3)
	require.NoError(t, err, "one failed year out of three must not fail the request")
	require.NotNil(t, result.HourlyStats[3])
	assert.Equal(t, 2, result.HourlyStats[3].SampleCount)
}

func TestHourlyStatisticsAllFetchesFail(t *testing.T) {
	transportErr := &fetcher.FetchError{Station: "KSFO", Year: 2025, Month: time.June, Err: errors.New("timeout")}
	ff := &fakeFetcher{errByYr: map[int]error{
		2024: transportErr, 2025: transportErr, 2026: transportErr,
	}}

	_, err := newTestEngine(ff).HourlyStatistics(context.Background(), "KSFO", time.June, 3)
	require.Error(t, err)

	var noData *NoDataError
	assert.False(t, errors.As(err, &noData), "transport failure must not masquerade as no-data")
}

func TestHourlyStatisticsUnknownStationNoData(t *testing.T) {
	notFound := func(y int) error {
		return &fetcher.FetchError{Station: "KXYZ", Year: y, Month: time.June, Err: fetcher.ErrNotFound}
	}
	ff := &fakeFetcher{errByYr: map[int]error{
		2024: notFound(2024), 2025: notFound(2025), 2026: notFound(2026),
	}}

	_, err := newTestEngine(ff).HourlyStatistics(context.Background(), "KXYZ", time.June, 3)
	var noData *NoDataError
	require.ErrorAs(t, err, &noData)
	assert.Equal(t, "KXYZ", noData.Station)
}

func TestHourlyStatisticsNothingParsable(t *testing.T) {
	ff := &fakeFetcher{linesByYr: map[int][]string{
		2025: {"garbage", "KSFO,2025-06-01 00:56,KSFO 010056Z 28010KT BKN008"},
		2024: {}, 2026: {},
	}}

	_, err := newTestEngine(ff).HourlyStatistics(context.Background(), "KSFO", time.June, 3)
	var noData *NoDataError
	require.ErrorAs(t, err, &noData)
}

func TestHourlyStatisticsValidation(t *testing.T) {
	ff := &fakeFetcher{}
	e := newTestEngine(ff)

	tests := []struct {
		name    string
		station string
		month   time.Month
		years   int
	}{
		{"empty station", "", time.June, 3},
		{"blank station", "   ", time.June, 3},
		{"month zero", "KSFO", 0, 3},
		{"month thirteen", "KSFO", 13, 3},
		{"zero years", "KSFO", time.June, 0},
		{"negative years", "KSFO", time.June, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.HourlyStatistics(context.Background(), tt.station, tt.month, tt.years)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Empty(t, ff.calledYears(), "validation must reject before any fetch")
		})
	}
}

func TestHourlyStatisticsUnknownDirectoryStation(t *testing.T) {
	ff := &fakeFetcher{linesByYr: map[int][]string{
		2024: {}, 2026: {},
		2025: {"CXXX,2025-06-01 00:56,CXXX 010056Z 28010KT 10SM CLR 17/12 A2993"},
	}}

	result, err := newTestEngine(ff).HourlyStatistics(context.Background(), "CXXX", time.June, 3)
	require.NoError(t, err)
	assert.Empty(t, result.UTCOffsets, "no annotations without directory entry")
	assert.Nil(t, result.DaylightUTC)
	require.NotNil(t, result.HourlyStats[0])
}
