// Package analytics is the pure, deterministic kernel: a collection of
// side-effect-free functions over a records window, each safe to evaluate
// concurrently. Every function returns either a result object or an
// InsufficientData marker — callers distinguish the two by which pointer
// is non-nil, never by a sentinel zero value.
package analytics

import (
	"math"
	"time"

	"wattwise/internal/domain"
)

// InsufficientData is returned instead of a result when a function's
// window does not meet its minimum sample requirement.
type InsufficientData struct {
	InsufficientData bool `json:"insufficient_data"`
	MinimumRequired  int  `json:"minimumRequired"`
	Actual           int  `json:"actual"`
}

func insufficient(minimum, actual int) *InsufficientData {
	return &InsufficientData{InsufficientData: true, MinimumRequired: minimum, Actual: actual}
}

const (
	nightStartHour = 18
	nightEndHour   = 6

	dischargeCurrentThreshold = -0.5 // A; samples below this are counted as discharge
	chargeCurrentThreshold    = 0.5  // A; samples above this are counted as charging

	solarHourStart = 6
	solarHourEnd   = 18

	minDeltaT = 0.0
	maxDeltaT = 2 * time.Hour
)

// isNightHour reports whether an hour-of-day (0-23) falls in [18:00,06:00).
func isNightHour(hour int) bool {
	return hour >= nightStartHour || hour < nightEndHour
}

// isSolarHour reports whether an hour-of-day falls in [06:00,18:00).
func isSolarHour(hour int) bool {
	return hour >= solarHourStart && hour < solarHourEnd
}

// clampedDelta returns the duration between two adjacent timestamps,
// clamped to (0,2h]; deltas outside that range are reported as dropped via
// the second return value.
func clampedDelta(prev, cur time.Time) (time.Duration, bool) {
	d := cur.Sub(prev)
	if d <= minDeltaT || d > maxDeltaT {
		return 0, false
	}
	return d, true
}

// mean returns the arithmetic mean of xs, or 0 for an empty slice.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev returns the population standard deviation of xs.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

// recordsWithKnown filters a window to records whose selector yields a
// known value, returning the values in input order alongside their source
// records.
func recordsWithKnown(records []domain.HistoricalRecord, selector func(domain.Snapshot) (float64, bool)) ([]float64, []domain.HistoricalRecord) {
	var vals []float64
	var recs []domain.HistoricalRecord
	for _, r := range records {
		if v, ok := selector(r.Analysis); ok {
			vals = append(vals, v)
			recs = append(recs, r)
		}
	}
	return vals, recs
}
