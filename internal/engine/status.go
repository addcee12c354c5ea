// Package engine derives the dashboard view model from raw tracker rows.
//
// Every function in this package is pure: it reads immutable input
// snapshots and returns fresh values. Nothing here performs I/O, keeps
// caches, or returns errors for ordinary input. Callers re-run the engine
// after every mutation and discard the previous output.
package engine

import "math"

// Status classifies a value against a marker's reference range.
type Status string

// Statuses produced by Classify.
const (
	StatusLow    Status = "low"
	StatusNormal Status = "normal"
	StatusHigh   Status = "high"
)

// Display-level statuses understood by UrgencyRank. Classify never
// produces these; they exist for clients that refine low/high further.
const (
	StatusCritical   Status = "critical"
	StatusVeryHigh   Status = "very-high"
	StatusVeryLow    Status = "very-low"
	StatusBorderline Status = "borderline"
	StatusWarning    Status = "warning"
	StatusUnknown    Status = "unknown"
)

// Classify returns low, normal or high for value within [minRef, maxRef].
// Both bounds are inclusive. Malformed input (any non-finite argument)
// is classified normal so one bad catalog row cannot break the dashboard.
func Classify(value, minRef, maxRef float64) Status {
	if !isFinite(value) || !isFinite(minRef) || !isFinite(maxRef) {
		return StatusNormal
	}
	switch {
	case value < minRef:
		return StatusLow
	case value > maxRef:
		return StatusHigh
	default:
		return StatusNormal
	}
}

// Distance returns how far value lies outside [minRef, maxRef], or 0 when
// it is inside the range or any argument is non-finite.
func Distance(value, minRef, maxRef float64) float64 {
	if !isFinite(value) || !isFinite(minRef) || !isFinite(maxRef) {
		return 0
	}
	return math.Max(math.Max(minRef-value, value-maxRef), 0)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
