package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Todo is an actionable task, optionally tagged with markers or a plan.
type Todo struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Done      bool       `json:"done"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	MarkerIDs []string   `json:"marker_ids"`
	PlanID    string     `json:"plan_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Validate checks the user-editable fields of a todo.
func (t *Todo) Validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&t.MarkerIDs, validation.Each(validation.Required)),
	)
}
