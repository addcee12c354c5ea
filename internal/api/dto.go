package api

import (
	"github.com/starford/laguz/internal/engine"
	"github.com/starford/laguz/internal/journal"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/store"
)

// MeasurementRequest is the body for creating or updating a measurement.
// Date is YYYY-MM-DD.
type MeasurementRequest struct {
	MarkerID string  `json:"marker_id" example:"ldl"`
	Value    float64 `json:"value" example:"2.9" validate:"required"`
	Date     string  `json:"date" example:"2024-03-02" validate:"required"`
	Note     string  `json:"note,omitempty" example:"fasting"`
}

// NoteRequest is the body for adding a marker note.
type NoteRequest struct {
	Body string `json:"body" example:"Started statin" validate:"required"`
}

// TodoRequest is the body for creating or updating a todo.
type TodoRequest struct {
	Title     string   `json:"title" example:"Book blood test" validate:"required"`
	Done      bool     `json:"done"`
	DueDate   string   `json:"due_date,omitempty" example:"2024-04-01"`
	MarkerIDs []string `json:"marker_ids,omitempty" example:"ldl,apob"`
	PlanID    string   `json:"plan_id,omitempty" example:"plans/lipids.md"`
}

// CreatePlanRequest is the body for creating a plan.
type CreatePlanRequest struct {
	Path    string `json:"path" example:"plans/lipids.md" validate:"required"`
	Content string `json:"content" example:"---\ntitle: Lipid reset\n---\n" validate:"required"`
}

// UpdatePlanRequest is the body for updating a plan.
type UpdatePlanRequest struct {
	Content string `json:"content" validate:"required"`
}

// MovePlanRequest is the body for renaming a plan.
type MovePlanRequest struct {
	Path string `json:"path" example:"plans/2024/lipids.md" validate:"required"`
}

// Dashboard is the full dashboard response (aliased from the engine).
type Dashboard = engine.Dashboard

// MarkerDetail is the marker drill-down response (aliased from the engine).
type MarkerDetail = engine.MarkerDetail

// PlanDetail is the full plan response (aliased from the journal).
type PlanDetail = journal.PlanDetail

// MarkerListResponse wraps the catalog.
type MarkerListResponse struct {
	Markers []models.Marker `json:"markers" validate:"required"`
}

// TodoListResponse wraps todos.
type TodoListResponse struct {
	Todos []models.Todo `json:"todos" validate:"required"`
}

// PlanListResponse wraps plan listings.
type PlanListResponse struct {
	Plans []models.Plan `json:"plans" validate:"required"`
}

// GoalListResponse wraps goal progress.
type GoalListResponse struct {
	Goals []engine.GoalProgress `json:"goals" validate:"required"`
}

// FocusAreaResponse wraps the focus-area summary.
type FocusAreaResponse struct {
	FocusAreas []engine.FocusAreaSummary `json:"focus_areas" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []store.SearchResult `json:"results" validate:"required"`
}
