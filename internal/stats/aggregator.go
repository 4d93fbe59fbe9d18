package stats

import (
	"github.com/jelson/metar-calendar/internal/metar"
)

// HourlyStat is the distribution of flight categories for one UTC hour.
// Fractions sum to 1.0 when SampleCount > 0. An hour with SampleCount == 0
// has no data; callers must not read zero fractions as "zero percent".
type HourlyStat struct {
	VFR         float64 `json:"VFR"`
	MVFR        float64 `json:"MVFR"`
	IFR         float64 `json:"IFR"`
	LIFR        float64 `json:"LIFR"`
	SampleCount int     `json:"sample_count"`
}

// Fraction returns the fraction for the given category.
func (s *HourlyStat) Fraction(c metar.FlightCategory) float64 {
	switch c {
	case metar.VFR:
		return s.VFR
	case metar.MVFR:
		return s.MVFR
	case metar.IFR:
		return s.IFR
	case metar.LIFR:
		return s.LIFR
	}
	return 0
}

// HourlyCounts accumulates classified observations into UTC hour-of-day
// buckets. Addition is commutative, so the supply order of observations
// never affects the snapshot.
type HourlyCounts struct {
	counts [24][len(metar.Categories)]int
	totals [24]int
}

// NewHourlyCounts returns an empty accumulator.
func NewHourlyCounts() *HourlyCounts {
	return &HourlyCounts{}
}

// Add records one observation classified as cat during the given UTC hour.
func (h *HourlyCounts) Add(hour int, cat metar.FlightCategory) {
	if hour < 0 || hour > 23 {
		return
	}
	h.counts[hour][cat]++
	h.totals[hour]++
}

// Total returns the number of observations recorded across all hours.
func (h *HourlyCounts) Total() int {
	var n int
	for _, t := range h.totals {
		n += t
	}
	return n
}

// Snapshot converts raw counts into per-hour category fractions. Hours with
// no observations yield a nil entry.
func (h *HourlyCounts) Snapshot() [24]*HourlyStat {
	var out [24]*HourlyStat
	for hour := 0; hour < 24; hour++ {
		total := h.totals[hour]
		if total == 0 {
			continue
		}
		out[hour] = &HourlyStat{
			VFR:         float64(h.counts[hour][metar.VFR]) / float64(total),
			MVFR:        float64(h.counts[hour][metar.MVFR]) / float64(total),
			IFR:         float64(h.counts[hour][metar.IFR]) / float64(total),
			LIFR:        float64(h.counts[hour][metar.LIFR]) / float64(total),
			SampleCount: total,
		}
	}
	return out
}
