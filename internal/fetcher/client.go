// Package fetcher retrieves raw historical report lines for one station,
// year, and month from the IEM ASOS archive.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jelson/metar-calendar/pkg/logger"
)

// ErrNotFound indicates the archive has no data for the requested station
// and period.
var ErrNotFound = errors.New("no archive data for station/period")

// FetchError wraps a failure to retrieve one station-year-month of raw data.
type FetchError struct {
	Station string
	Year    int
	Month   time.Month
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s %04d-%02d: %v", e.Station, e.Year, int(e.Month), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Config contains archive client configuration.
type Config struct {
	BaseURL               string
	RequestTimeoutSeconds int
	MaxRetries            int
}

// DefaultConfig returns the default archive client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:               "https://mesonet.agron.iastate.edu/cgi-bin/request/asos.py",
		RequestTimeoutSeconds: 60,
		MaxRetries:            2,
	}
}

// Client handles HTTP requests to the historical archive.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new archive client.
func NewClient(config Config, log *logger.Logger) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.RequestTimeoutSeconds) * time.Second,
		},
		logger: log.Named("archive-client"),
	}
}

// FetchMonth returns the raw report lines for the given station restricted
// to one calendar month. Header and comment lines are stripped; each
// returned line is "station,timestamp,raw report".
func (c *Client) FetchMonth(ctx context.Context, station string, year int, month time.Month) ([]string, error) {
	requestURL := c.buildURL(station, year, month)

	body, err := c.fetchWithRetry(ctx, requestURL, station)
	if err != nil {
		return nil, &FetchError{Station: station, Year: year, Month: month, Err: err}
	}

	lines := dataLines(body)
	if len(lines) == 0 {
		return nil, &FetchError{Station: station, Year: year, Month: month, Err: ErrNotFound}
	}

	c.logger.Debug("Fetched archive month",
		logger.String("station", station),
		logger.Int("year", year),
		logger.Int("month", int(month)),
		logger.Int("lines", len(lines)))

	return lines, nil
}

// buildURL assembles the archive query for one station-month window,
// requesting raw METAR text in UTC.
func (c *Client) buildURL(station string, year int, month time.Month) string {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	params := url.Values{}
	params.Set("station", station)
	params.Set("data", "metar")
	params.Set("year1", fmt.Sprintf("%d", year))
	params.Set("month1", fmt.Sprintf("%d", int(month)))
	params.Set("day1", "1")
	params.Set("year2", fmt.Sprintf("%d", year))
	params.Set("month2", fmt.Sprintf("%d", int(month)))
	params.Set("day2", fmt.Sprintf("%d", lastDay))
	params.Set("tz", "Etc/UTC")
	params.Set("format", "onlycomma")
	params.Set("latlon", "no")
	params.Set("elev", "no")
	params.Set("missing", "empty")
	params.Set("trace", "T")
	params.Set("direct", "no")
	params.Add("report_type", "3")
	params.Add("report_type", "4")

	return c.config.BaseURL + "?" + params.Encode()
}

// fetchWithRetry performs the HTTP request with retry and exponential
// backoff.
func (c *Client) fetchWithRetry(ctx context.Context, requestURL, station string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
			c.logger.Info("Retrying archive fetch",
				logger.String("station", station),
				logger.Int("attempt", attempt),
				logger.String("backoff", backoffDuration.String()))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoffDuration):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return "", fmt.Errorf("error building archive request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("error making request to archive: %w", err)
			c.logger.Warn("Archive request failed, may retry",
				logger.String("station", station),
				logger.Error(err),
				logger.Int("attempt", attempt+1),
				logger.Int("max_attempts", c.config.MaxRetries+1))
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			c.logger.Warn("Archive returned non-OK status, may retry",
				logger.String("station", station),
				logger.Int("status_code", resp.StatusCode),
				logger.Int("attempt", attempt+1),
				logger.Int("max_attempts", c.config.MaxRetries+1))
			continue
		}

		if readErr != nil {
			lastErr = fmt.Errorf("error reading archive response: %w", readErr)
			continue
		}

		text := string(body)
		if strings.HasPrefix(strings.TrimSpace(text), "ERROR") {
			return "", fmt.Errorf("%w: %s", ErrNotFound, strings.TrimSpace(text))
		}

		if attempt > 0 {
			c.logger.Info("Archive fetch succeeded after retries",
				logger.String("station", station),
				logger.Int("attempts_needed", attempt+1))
		}
		return text, nil
	}

	return "", lastErr
}

// dataLines strips the CSV header, comment lines, and blank lines from an
// archive response body.
func dataLines(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if strings.HasPrefix(trimmed, "station,") {
			continue
		}
		out = append(out, line)
	}
	return out
}
