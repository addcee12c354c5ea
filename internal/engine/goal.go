package engine

import "github.com/starford/laguz/internal/models"

// progressPlaceholder is shown for unmet lower and range goals. Neither
// direction tracks a baseline, so there is nothing to measure progress
// from yet.
const progressPlaceholder = 0.5

// GoalProgress is the evaluated state of one goal.
type GoalProgress struct {
	GoalID      string               `json:"goal_id"`
	PlanID      string               `json:"plan_id"`
	MarkerID    string               `json:"marker_id"`
	Direction   models.GoalDirection `json:"direction"`
	Achieved    bool                 `json:"achieved"`
	Progress    float64              `json:"progress"`
	LatestValue *float64             `json:"latest_value,omitempty"`
}

// EvaluateGoal scores a goal against the marker's latest value.
// A nil latest value means the marker is untracked: in progress, 0 shown.
// Goals are assumed valid; see models.Goal.Validate.
func EvaluateGoal(goal models.Goal, latest *float64) GoalProgress {
	gp := GoalProgress{
		GoalID:    goal.ID,
		PlanID:    goal.PlanID,
		MarkerID:  goal.MarkerID,
		Direction: goal.Direction,
	}
	if latest == nil || !isFinite(*latest) {
		return gp
	}
	v := *latest
	gp.LatestValue = &v

	switch goal.Direction {
	case models.GoalHigher:
		gp.Achieved = v >= goal.TargetValue
		if !gp.Achieved && goal.TargetValue > 0 {
			gp.Progress = clamp01(v / goal.TargetValue)
		}
	case models.GoalLower:
		gp.Achieved = v <= goal.TargetValue
		if !gp.Achieved {
			gp.Progress = progressPlaceholder
		}
	case models.GoalRange:
		upper := goal.TargetValue
		if goal.TargetValueUpper != nil {
			upper = *goal.TargetValueUpper
		}
		gp.Achieved = goal.TargetValue <= v && v <= upper
		if !gp.Achieved {
			gp.Progress = progressPlaceholder
		}
	}
	if gp.Achieved {
		gp.Progress = 1
	}
	return gp
}

// EvaluatePlanGoals evaluates every goal of plan against the histories.
func EvaluatePlanGoals(plan models.Plan, histories []MarkerHistory) []GoalProgress {
	out := make([]GoalProgress, 0, len(plan.Goals))
	for _, g := range plan.Goals {
		if g.PlanID == "" {
			g.PlanID = plan.ID
		}
		var latest *float64
		if h, ok := FindHistory(histories, g.MarkerID); ok {
			v := h.Latest.Value
			latest = &v
		}
		out = append(out, EvaluateGoal(g, latest))
	}
	return out
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
