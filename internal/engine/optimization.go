package engine

import (
	"cmp"
	"slices"
	"time"

	"github.com/starford/laguz/internal/models"
)

// OptimizationEvent records a marker returning to its reference range
// between two consecutive measurements.
type OptimizationEvent struct {
	MarkerID   string    `json:"marker_id"`
	MarkerName string    `json:"marker_name"`
	FromStatus Status    `json:"from_status"`
	BadDate    time.Time `json:"bad_date"`
	BadValue   float64   `json:"bad_value"`
	GoodDate   time.Time `json:"good_date"`
	GoodValue  float64   `json:"good_value"`
}

// DetectOptimizations scans one marker's measurements oldest first and
// emits an event for every out-of-range → normal transition. Input order
// does not matter; a marker that oscillates yields one event per recovery.
func DetectOptimizations(marker models.Marker, measurements []models.Measurement) []OptimizationEvent {
	if len(measurements) < 2 {
		return nil
	}
	seq := slices.Clone(measurements)
	slices.SortStableFunc(seq, oldestFirst)

	var out []OptimizationEvent
	for i := 1; i < len(seq); i++ {
		prev, curr := seq[i-1], seq[i]
		from := Classify(prev.Value, marker.MinRef, marker.MaxRef)
		to := Classify(curr.Value, marker.MinRef, marker.MaxRef)
		if from == StatusNormal || to != StatusNormal {
			continue
		}
		out = append(out, OptimizationEvent{
			MarkerID:   marker.ID,
			MarkerName: marker.Name,
			FromStatus: from,
			BadDate:    prev.Date,
			BadValue:   prev.Value,
			GoodDate:   curr.Date,
			GoodValue:  curr.Value,
		})
	}
	return out
}

// CollectOptimizations pools events across all histories, most recent
// recovery first.
func CollectOptimizations(histories []MarkerHistory) []OptimizationEvent {
	var out []OptimizationEvent
	for _, h := range histories {
		out = append(out, DetectOptimizations(h.Marker, h.Measurements)...)
	}
	slices.SortStableFunc(out, func(a, b OptimizationEvent) int {
		if c := models.TruncateDay(b.GoodDate).Compare(models.TruncateDay(a.GoodDate)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.MarkerName, b.MarkerName); c != 0 {
			return c
		}
		return cmp.Compare(a.MarkerID, b.MarkerID)
	})
	if out == nil {
		out = []OptimizationEvent{}
	}
	return out
}
