package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jelson/metar-calendar/internal/stats"
	"github.com/jelson/metar-calendar/pkg/logger"
)

// StatisticsProvider computes hourly flight-category statistics for one
// station and month.
type StatisticsProvider interface {
	HourlyStatistics(ctx context.Context, station string, month time.Month, years int) (*stats.Result, error)
	DefaultYears() int
}

// Handler contains the API handlers
type Handler struct {
	stats  StatisticsProvider
	logger *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(stats StatisticsProvider, log *logger.Logger) *Handler {
	return &Handler{
		stats:  stats,
		logger: log.Named("api-handler"),
	}
}

// GetStatistics computes and returns the hourly flight-category statistics
// for one airport and calendar month.
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	station := q.Get("airport_code")

	monthStr := q.Get("month")
	monthNum, err := strconv.Atoi(monthStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "month must be an integer between 1 and 12")
		return
	}

	years := h.stats.DefaultYears()
	if yearsStr := q.Get("years"); yearsStr != "" {
		years, err = strconv.Atoi(yearsStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "years must be a positive integer")
			return
		}
	}

	result, err := h.stats.HourlyStatistics(r.Context(), station, time.Month(monthNum), years)
	if err != nil {
		var verr *stats.ValidationError
		var noData *stats.NoDataError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		case errors.As(err, &noData):
			writeError(w, http.StatusNotFound, noData.Error())
		default:
			h.logger.Error("Statistics computation failed",
				logger.String("station", station),
				logger.String("month", monthStr),
				logger.Error(err))
			writeError(w, http.StatusBadGateway, "failed to retrieve archive data")
		}
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}

	WriteJSON(w, http.StatusOK, response)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeError writes a structured JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}
