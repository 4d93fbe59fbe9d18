package fetcher

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jelson/metar-calendar/internal/observability"
	"github.com/jelson/metar-calendar/pkg/logger"
)

// MonthFetcher retrieves the raw report lines for one station-year-month.
type MonthFetcher interface {
	FetchMonth(ctx context.Context, station string, year int, month time.Month) ([]string, error)
}

// ReportStore persists fetched raw report lines keyed by
// (station, year, month). Entries are immutable once written: a request
// window always covers a completed calendar month, so the archive content
// never changes.
type ReportStore interface {
	Get(station string, year int, month time.Month) ([]string, bool, error)
	Put(station string, year int, month time.Month, lines []string) error
}

// CachingFetcher wraps an archive client with a persistent report store.
// Concurrent requests for the same key share one in-flight fetch; there is
// never more than one outstanding archive request per (station, year, month).
type CachingFetcher struct {
	client  MonthFetcher
	store   ReportStore
	group   singleflight.Group
	metrics *observability.Metrics
	logger  *logger.Logger
}

// NewCachingFetcher creates a caching fetcher in front of the given client.
func NewCachingFetcher(client MonthFetcher, store ReportStore, metrics *observability.Metrics, log *logger.Logger) *CachingFetcher {
	return &CachingFetcher{
		client:  client,
		store:   store,
		metrics: metrics,
		logger:  log.Named("report-cache"),
	}
}

// FetchMonth returns cached lines when available, fetching and storing them
// otherwise.
func (f *CachingFetcher) FetchMonth(ctx context.Context, station string, year int, month time.Month) ([]string, error) {
	key := fmt.Sprintf("%s-%04d-%02d", station, year, int(month))

	v, err, shared := f.group.Do(key, func() (any, error) {
		lines, ok, err := f.store.Get(station, year, month)
		if err != nil {
			// A broken store degrades to a plain fetch.
			f.logger.Warn("Report store read failed",
				logger.String("key", key),
				logger.Error(err))
		} else if ok {
			f.metrics.CacheLookups.WithLabelValues("hit").Inc()
			return lines, nil
		}
		f.metrics.CacheLookups.WithLabelValues("miss").Inc()

		lines, err = f.client.FetchMonth(ctx, station, year, month)
		if err != nil {
			return nil, err
		}

		if err := f.store.Put(station, year, month, lines); err != nil {
			f.logger.Warn("Report store write failed",
				logger.String("key", key),
				logger.Error(err))
		}
		return lines, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		f.logger.Debug("Shared in-flight fetch result", logger.String("key", key))
	}

	return v.([]string), nil
}
