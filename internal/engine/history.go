package engine

import (
	"cmp"
	"slices"

	"github.com/starford/laguz/internal/models"
)

// MarkerHistory is a tracked marker joined with its measurements and notes.
// Measurements and Notes are newest first. Latest is always set: markers
// without measurements never become a MarkerHistory.
type MarkerHistory struct {
	Marker       models.Marker        `json:"marker"`
	Measurements []models.Measurement `json:"measurements"`
	Notes        []models.MarkerNote  `json:"notes"`
	Latest       models.Measurement   `json:"latest"`
	Previous     *models.Measurement  `json:"previous,omitempty"`
	Status       Status               `json:"status"`
	Trend        *Trend               `json:"trend,omitempty"`
}

// newestFirst is the only measurement ordering in the engine. It compares
// calendar days, so time of day never decides order; same-day readings
// fall back to entry time and then ID.
func newestFirst(a, b models.Measurement) int {
	if c := b.Day().Compare(a.Day()); c != 0 {
		return c
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// oldestFirst is the exact reverse of newestFirst.
func oldestFirst(a, b models.Measurement) int {
	return newestFirst(b, a)
}

func newestNoteFirst(a, b models.MarkerNote) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// SortNewestFirst returns a sorted copy of ms, latest measurement first.
func SortNewestFirst(ms []models.Measurement) []models.Measurement {
	out := slices.Clone(ms)
	slices.SortStableFunc(out, newestFirst)
	return out
}

// BuildHistories joins the catalog with measurements and notes.
//
// Output follows catalog order. Markers with no measurements are dropped,
// and measurements or notes for markers outside the catalog are ignored.
func BuildHistories(markers []models.Marker, measurements []models.Measurement, notes []models.MarkerNote) []MarkerHistory {
	byMarker := make(map[string][]models.Measurement)
	for _, m := range measurements {
		byMarker[m.MarkerID] = append(byMarker[m.MarkerID], m)
	}
	notesByMarker := make(map[string][]models.MarkerNote)
	for _, n := range notes {
		notesByMarker[n.MarkerID] = append(notesByMarker[n.MarkerID], n)
	}

	out := make([]MarkerHistory, 0, len(byMarker))
	for _, marker := range markers {
		group := byMarker[marker.ID]
		if len(group) == 0 {
			continue
		}
		out = append(out, buildHistory(marker, group, notesByMarker[marker.ID]))
	}
	return out
}

func buildHistory(marker models.Marker, group []models.Measurement, notes []models.MarkerNote) MarkerHistory {
	sorted := SortNewestFirst(group)

	ns := slices.Clone(notes)
	slices.SortStableFunc(ns, newestNoteFirst)
	if ns == nil {
		ns = []models.MarkerNote{}
	}

	h := MarkerHistory{
		Marker:       marker,
		Measurements: sorted,
		Notes:        ns,
		Latest:       sorted[0],
		Status:       Classify(sorted[0].Value, marker.MinRef, marker.MaxRef),
		Trend:        ComputeTrend(sorted, marker.MinRef, marker.MaxRef),
	}
	if len(sorted) > 1 {
		prev := sorted[1]
		h.Previous = &prev
	}
	return h
}

// FindHistory returns the history for markerID, if tracked.
func FindHistory(histories []MarkerHistory, markerID string) (MarkerHistory, bool) {
	for _, h := range histories {
		if h.Marker.ID == markerID {
			return h, true
		}
	}
	return MarkerHistory{}, false
}
