package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/laguz/internal/models"
)

func TestEvaluateGoal(t *testing.T) {
	rangeGoal := models.Goal{ID: "g", MarkerID: "m", Direction: models.GoalRange, TargetValue: 4, TargetValueUpper: ptr(6.0)}
	higher := models.Goal{ID: "g", MarkerID: "m", Direction: models.GoalHigher, TargetValue: 80}
	lower := models.Goal{ID: "g", MarkerID: "m", Direction: models.GoalLower, TargetValue: 2.5}

	tests := []struct {
		name     string
		goal     models.Goal
		latest   *float64
		achieved bool
		progress float64
	}{
		{"range inside", rangeGoal, ptr(5.0), true, 1},
		{"range lower edge", rangeGoal, ptr(4.0), true, 1},
		{"range upper edge", rangeGoal, ptr(6.0), true, 1},
		{"range above", rangeGoal, ptr(8.0), false, progressPlaceholder},
		{"range below", rangeGoal, ptr(1.0), false, progressPlaceholder},
		{"higher met", higher, ptr(90.0), true, 1},
		{"higher exact", higher, ptr(80.0), true, 1},
		{"higher partial", higher, ptr(60.0), false, 0.75},
		{"higher negative clamps", higher, ptr(-5.0), false, 0},
		{"lower met", lower, ptr(2.0), true, 1},
		{"lower unmet", lower, ptr(3.0), false, progressPlaceholder},
		{"untracked", higher, nil, false, 0},
		{"non-finite latest", lower, ptr(math.NaN()), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gp := EvaluateGoal(tt.goal, tt.latest)
			assert.Equal(t, tt.achieved, gp.Achieved)
			assert.InDelta(t, tt.progress, gp.Progress, 1e-9)
			assert.GreaterOrEqual(t, gp.Progress, 0.0)
			assert.LessOrEqual(t, gp.Progress, 1.0)
		})
	}
}

func TestEvaluateGoal_HigherNonPositiveTarget(t *testing.T) {
	g := models.Goal{MarkerID: "m", Direction: models.GoalHigher, TargetValue: 0}
	gp := EvaluateGoal(g, ptr(-1.0))
	assert.False(t, gp.Achieved)
	assert.Equal(t, 0.0, gp.Progress)
}

func TestEvaluatePlanGoals(t *testing.T) {
	hs := BuildHistories([]models.Marker{marker("vitd", "Vitamin D", "Vitaminer", 50, 125)},
		[]models.Measurement{meas("vitd", 1, 40), meas("vitd", 2, 60)}, nil)
	plan := models.Plan{
		ID: "plans/winter.md",
		Goals: []models.Goal{
			{ID: "g1", MarkerID: "vitd", Direction: models.GoalHigher, TargetValue: 75},
			{ID: "g2", MarkerID: "ferritin", Direction: models.GoalHigher, TargetValue: 50},
		},
	}

	got := EvaluatePlanGoals(plan, hs)
	assert.Len(t, got, 2)
	assert.Equal(t, "plans/winter.md", got[0].PlanID)
	assert.InDelta(t, 0.8, got[0].Progress, 1e-9)
	assert.Equal(t, 60.0, *got[0].LatestValue)
	assert.Nil(t, got[1].LatestValue)
	assert.False(t, got[1].Achieved)
}
