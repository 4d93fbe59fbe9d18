package stats

import (
	"fmt"
	"time"
)

// NoDataError means nothing could be parsed and classified for the
// requested station and month, across every requested year. It is the
// "no historical data available" condition, distinct from a fetch failure.
type NoDataError struct {
	Station string
	Month   time.Month
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no historical data for %s in %s", e.Station, e.Month)
}

// ValidationError rejects a malformed request before any fetch is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
