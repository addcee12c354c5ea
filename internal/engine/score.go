package engine

import "math"

// Points awarded per tracked marker. Out-of-range markers still earn
// partial credit: tracked but off, not failing.
const (
	pointsNormal   = 100
	pointsAbnormal = 50
)

// Summary holds the aggregate counters shown in the stats panel.
type Summary struct {
	HealthScore int `json:"health_score"`
	Tracked     int `json:"tracked"`
	Normal      int `json:"normal"`
	Attention   int `json:"attention"`
}

// HealthScore returns an integer in [0, 100]: the rounded mean of the
// per-marker points, or 0 when nothing is tracked.
func HealthScore(histories []MarkerHistory) int {
	if len(histories) == 0 {
		return 0
	}
	sum := 0
	for _, h := range histories {
		if h.Status == StatusNormal {
			sum += pointsNormal
		} else {
			sum += pointsAbnormal
		}
	}
	return int(math.Round(float64(sum) / float64(len(histories))))
}

// NeedsAttention returns the histories whose status is not normal, in
// input order.
func NeedsAttention(histories []MarkerHistory) []MarkerHistory {
	out := []MarkerHistory{}
	for _, h := range histories {
		if h.Status != StatusNormal {
			out = append(out, h)
		}
	}
	return out
}

// Summarize computes the health score and status counters.
func Summarize(histories []MarkerHistory) Summary {
	s := Summary{
		HealthScore: HealthScore(histories),
		Tracked:     len(histories),
	}
	for _, h := range histories {
		if h.Status == StatusNormal {
			s.Normal++
		} else {
			s.Attention++
		}
	}
	return s
}
