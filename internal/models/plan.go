package models

import (
	"errors"
	"math"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// GoalDirection says which way a marker value should move.
type GoalDirection string

// Goal directions.
const (
	GoalHigher GoalDirection = "higher"
	GoalLower  GoalDirection = "lower"
	GoalRange  GoalDirection = "range"
)

// Goal is a target value for one marker, owned by a Plan.
type Goal struct {
	ID               string        `json:"id"`
	PlanID           string        `json:"plan_id"`
	MarkerID         string        `json:"marker_id"`
	Direction        GoalDirection `json:"direction"`
	TargetValue      float64       `json:"target_value"`
	TargetValueUpper *float64      `json:"target_value_upper,omitempty"`
}

// Validate rejects goals the progress evaluator cannot interpret.
// A range goal must have an upper bound strictly above its lower bound.
func (g *Goal) Validate() error {
	err := validation.ValidateStruct(g,
		validation.Field(&g.MarkerID, validation.Required),
		validation.Field(&g.Direction, validation.Required, validation.In(GoalHigher, GoalLower, GoalRange)),
		validation.Field(&g.TargetValue, validation.By(finite)),
		validation.Field(&g.TargetValueUpper,
			validation.When(g.Direction == GoalRange, validation.NotNil, validation.By(finite)).
				Else(validation.Nil)),
	)
	if err != nil {
		return err
	}
	if g.Direction == GoalRange && !(g.TargetValue < *g.TargetValueUpper) {
		return errors.New("target_value_upper: must be greater than target_value")
	}
	return nil
}

// Plan is a journal entry: a Markdown document with dated goals.
// ID is the document's path inside the journal vault.
type Plan struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Body       string     `json:"body,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	TargetDate *time.Time `json:"target_date,omitempty"`
	MarkerIDs  []string   `json:"marker_ids"`
	Goals      []Goal     `json:"goals"`
	Checksum   string     `json:"checksum"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// FileMeta is a lightweight listing entry for a journal vault file.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

func finite(value interface{}) error {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case *float64:
		if v == nil {
			return nil
		}
		f = *v
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return errors.New("must be a finite number")
	}
	return nil
}
