package metar

import (
	"fmt"
	"time"
)

const (
	// CeilingUnlimited is the ceiling assigned when no broken, overcast, or
	// vertical-visibility layer is reported.
	CeilingUnlimited = 100000

	// VisibilityUnlimited is the visibility assigned by an explicit
	// sky-clear-and-unlimited code such as CAVOK.
	VisibilityUnlimited = 999.0
)

// Observation is a single parsed weather report. Immutable once constructed.
type Observation struct {
	Time         time.Time // UTC
	CeilingFt    int       // AGL, CeilingUnlimited when no qualifying layer
	VisibilitySM float64   // statute miles, VisibilityUnlimited for CAVOK
	SkyTokens    []string  // raw sky-cover groups as reported, e.g. "BKN012"
}

// ParseError describes a report line that could not be turned into an
// Observation. Callers count these and move on; a bad line is never fatal.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparsable report: %s (%s)", e.Reason, truncate(e.Line, 60))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
