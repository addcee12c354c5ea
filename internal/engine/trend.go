package engine

import (
	"github.com/shopspring/decimal"

	"github.com/starford/laguz/internal/models"
)

// TrendDirection reports whether a marker moved toward its reference range.
type TrendDirection string

// Trend directions.
const (
	TrendImproving TrendDirection = "improving"
	TrendWorsening TrendDirection = "worsening"
	TrendNeutral   TrendDirection = "neutral"
)

// Trend compares the two most recent measurements of a marker.
type Trend struct {
	Delta         float64            `json:"delta"`
	PercentChange float64            `json:"percent_change"`
	Direction     TrendDirection     `json:"direction"`
	Latest        models.Measurement `json:"latest"`
	Previous      models.Measurement `json:"previous"`
}

// ComputeTrend expects measurements newest first, as produced by
// BuildHistories, and returns nil when fewer than two exist.
//
// Direction is judged by distance to the reference range, not by the sign
// of the delta: 200 → 180 against a [70, 100] range is improving.
func ComputeTrend(newestFirst []models.Measurement, minRef, maxRef float64) *Trend {
	if len(newestFirst) < 2 {
		return nil
	}
	latest, previous := newestFirst[0], newestFirst[1]

	t := &Trend{
		Latest:    latest,
		Previous:  previous,
		Direction: TrendNeutral,
	}
	if isFinite(latest.Value) && isFinite(previous.Value) {
		delta := decimal.NewFromFloat(latest.Value).Sub(decimal.NewFromFloat(previous.Value))
		t.Delta = delta.InexactFloat64()
		if previous.Value != 0 {
			t.PercentChange = delta.Div(decimal.NewFromFloat(previous.Value).Abs()).
				Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
		}
	}

	dl := Distance(latest.Value, minRef, maxRef)
	dp := Distance(previous.Value, minRef, maxRef)
	switch {
	case dl < dp:
		t.Direction = TrendImproving
	case dl > dp:
		t.Direction = TrendWorsening
	}
	return t
}
