package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

// TrackerStore is what the tracker service needs. Consumers depend on the
// interface rather than *DB so tests can substitute it.
type TrackerStore interface {
	ListMarkers(ctx context.Context) ([]models.Marker, error)
	GetMarker(ctx context.Context, id string) (models.Marker, error)

	ListMeasurements(ctx context.Context) ([]models.Measurement, error)
	GetMeasurement(ctx context.Context, id string) (models.Measurement, error)
	InsertMeasurement(ctx context.Context, m models.Measurement) error
	UpdateMeasurement(ctx context.Context, m models.Measurement) error
	DeleteMeasurement(ctx context.Context, id string) error

	ListMarkerNotes(ctx context.Context) ([]models.MarkerNote, error)
	InsertMarkerNote(ctx context.Context, n models.MarkerNote) error
	DeleteMarkerNote(ctx context.Context, id string) error

	ListTodos(ctx context.Context) ([]models.Todo, error)
	GetTodo(ctx context.Context, id string) (models.Todo, error)
	InsertTodo(ctx context.Context, t models.Todo) error
	UpdateTodo(ctx context.Context, t models.Todo) error
	DeleteTodo(ctx context.Context, id string) error

	ListPlans(ctx context.Context) ([]models.Plan, error)
	GetPlan(ctx context.Context, path string) (models.Plan, error)
}

// PlanIndex is the plan side of the store used by the journal.
type PlanIndex interface {
	UpsertPlan(ctx context.Context, p models.Plan) error
	DeletePlan(ctx context.Context, path string) error
	GetPlan(ctx context.Context, path string) (models.Plan, error)
	ListPlans(ctx context.Context) ([]models.Plan, error)
	PlanChecksums(ctx context.Context) (map[string]string, error)
	SearchPlans(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

var (
	_ TrackerStore = (*DB)(nil)
	_ PlanIndex    = (*DB)(nil)
)

// SearchResult is one plan search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

func wrap(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("store: %s: %w", op, apperr.ErrNotFound)
	}
	return fmt.Errorf("store: %s: %w", op, err)
}

// mustAffect turns a zero-row UPDATE or DELETE into ErrNotFound.
func mustAffect(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(op, err)
	}
	if n == 0 {
		return fmt.Errorf("store: %s: %w", op, apperr.ErrNotFound)
	}
	return nil
}
