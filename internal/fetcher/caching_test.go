package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jelson/metar-calendar/internal/observability"
	"github.com/jelson/metar-calendar/pkg/logger"
)

type stubClient struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	lines   []string
	err     error
}

func (c *stubClient) FetchMonth(_ context.Context, _ string, _ int, _ time.Month) ([]string, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.release != nil {
		<-c.release
	}
	return c.lines, c.err
}

func (c *stubClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type memStore struct {
	mu      sync.Mutex
	entries map[string][]string
	getErr  error
	putErr  error
	puts    int
}

func newMemStore() *memStore {
	return &memStore{entries: map[string][]string{}}
}

func storeKey(station string, year int, month time.Month) string {
	return fmt.Sprintf("%s-%04d-%02d", station, year, int(month))
}

func (s *memStore) Get(station string, year int, month time.Month) ([]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	lines, ok := s.entries[storeKey(station, year, month)]
	return lines, ok, nil
}

func (s *memStore) Put(station string, year int, month time.Month, lines []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	s.entries[storeKey(station, year, month)] = lines
	return nil
}

func newCachingFetcher(client MonthFetcher, store ReportStore) *CachingFetcher {
	return NewCachingFetcher(client, store, observability.NewMetricsForTesting(), logger.NewNop())
}

func TestCachingFetcherMissThenHit(t *testing.T) {
	client := &stubClient{lines: []string{"KSFO,2025-06-01 00:56,KSFO 010056Z 10SM CLR"}}
	store := newMemStore()
	cf := newCachingFetcher(client, store)

	lines, err := cf.FetchMonth(context.Background(), "KSFO", 2025, time.June)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
	assert.Equal(t, 1, client.callCount())

	// Second lookup is served from the store.
	lines, err = cf.FetchMonth(context.Background(), "KSFO", 2025, time.June)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
	assert.Equal(t, 1, client.callCount())
}

func TestCachingFetcherKeysAreIndependent(t *testing.T) {
	client := &stubClient{lines: []string{"line"}}
	cf := newCachingFetcher(client, newMemStore())

	_, err := cf.FetchMonth(context.Background(), "KSFO", 2025, time.June)
	require.NoError(t, err)
	_, err = cf.FetchMonth(context.Background(), "KSFO", 2024, time.June)
	require.NoError(t, err)
	_, err = cf.FetchMonth(context.Background(), "KPAO", 2025, time.June)
	require.NoError(t, err)

	assert.Equal(t, 3, client.callCount())
}

func TestCachingFetcherSharesInFlightFetch(t *testing.T) {
	client := &stubClient{
		lines:   []string{"line"},
		release: make(chan struct{}),
	}
	store := newMemStore()
	cf := newCachingFetcher(client, store)

	const callers = 8
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lines, err := cf.FetchMonth(context.Background(), "KSFO", 2025, time.June)
			if err != nil || len(lines) != 1 {
				failures.Add(1)
			}
		}()
	}

	// Let the callers pile up behind the single in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(client.release)
	wg.Wait()

	assert.Zero(t, failures.Load())
	assert.Equal(t, 1, client.callCount(), "concurrent callers must share one fetch")
}

func TestCachingFetcherBrokenStoreReadDegradesToFetch(t *testing.T) {
	client := &stubClient{lines: []string{"line"}}
	store := newMemStore()
	store.getErr = errors.New("database is locked")
	cf := newCachingFetcher(client, store)

	lines, err := cf.FetchMonth(context.Background(), "KSFO", 2025, time.June)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
	assert.Equal(t, 1, client.callCount())
}

func TestCachingFetcherBrokenStoreWriteNotFatal(t *testing.T) {
	client := &stubClient{lines: []string{"line"}}
	store := newMemStore()
	store.putErr = errors.New("disk full")
	cf := newCachingFetcher(client, store)

	lines, err := cf.FetchMonth(context.Background(), "KSFO", 2025, time.June)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestCachingFetcherFetchErrorNotCached(t *testing.T) {
	client := &stubClient{err: &FetchError{Station: "KSFO", Year: 2025, Month: time.June, Err: ErrNotFound}}
	store := newMemStore()
	cf := newCachingFetcher(client, store)

	_, err := cf.FetchMonth(context.Background(), "KSFO", 2025, time.June)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, store.puts, "failed fetches must not be persisted")

	// The failure is not memoized either; the next call retries.
	_, err = cf.FetchMonth(context.Background(), "KSFO", 2025, time.June)
	require.Error(t, err)
	assert.Equal(t, 2, client.callCount())
}
