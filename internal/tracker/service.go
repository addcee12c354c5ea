// Package tracker is the service layer around the engine: it loads
// snapshots from the store, runs the engine and validates every write.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/engine"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/store"
)

// ChangeFunc is called after a successful mutation, e.g.
// ("measurement", "created", id).
type ChangeFunc func(entity, kind, id string)

// Service coordinates the store and the engine.
type Service struct {
	store    store.TrackerStore
	engine   *engine.Engine
	now      func() time.Time
	onChange ChangeFunc
}

// Option configures a Service.
type Option func(*Service)

// WithChangeFunc registers a mutation callback.
func WithChangeFunc(cb ChangeFunc) Option {
	return func(s *Service) { s.onChange = cb }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a tracker service. A nil engine uses engine.New().
func NewService(st store.TrackerStore, eng *engine.Engine, opts ...Option) *Service {
	if eng == nil {
		eng = engine.New()
	}
	s := &Service{store: st, engine: eng, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Snapshot loads everything the engine needs in one pass.
func (s *Service) Snapshot(ctx context.Context) (engine.Snapshot, error) {
	var (
		snap engine.Snapshot
		err  error
	)
	if snap.Markers, err = s.store.ListMarkers(ctx); err != nil {
		return snap, err
	}
	if snap.Measurements, err = s.store.ListMeasurements(ctx); err != nil {
		return snap, err
	}
	if snap.Notes, err = s.store.ListMarkerNotes(ctx); err != nil {
		return snap, err
	}
	if snap.Plans, err = s.store.ListPlans(ctx); err != nil {
		return snap, err
	}
	if snap.Todos, err = s.store.ListTodos(ctx); err != nil {
		return snap, err
	}
	snap.Now = s.now().UTC()
	return snap, nil
}

// ValidateQuery rejects unknown filter, sort and grouping values.
func ValidateQuery(q engine.Query) error {
	err := validation.ValidateStruct(&q,
		validation.Field(&q.Status, validation.In(engine.FilterAll, engine.FilterAttention, engine.FilterNormal)),
		validation.Field(&q.Sort, validation.In(engine.SortAttentionFirst, engine.SortRecent, engine.SortAlphabetical)),
		validation.Field(&q.Grouping, validation.In(engine.GroupFirstSeen, engine.GroupByCategory, engine.GroupByAttention)),
		validation.Field(&q.Text, validation.Length(0, 200)),
	)
	if err != nil {
		return invalid(err)
	}
	return nil
}

// Dashboard computes the full dashboard for q.
func (s *Service) Dashboard(ctx context.Context, q engine.Query) (engine.Dashboard, error) {
	if err := ValidateQuery(q); err != nil {
		return engine.Dashboard{}, err
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return engine.Dashboard{}, err
	}
	return s.engine.Compute(snap, q), nil
}

// MarkerDetail returns the drill-down for one catalog marker.
func (s *Service) MarkerDetail(ctx context.Context, id string) (engine.MarkerDetail, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return engine.MarkerDetail{}, err
	}
	d, ok := s.engine.MarkerDetail(snap, id)
	if !ok {
		return engine.MarkerDetail{}, fmt.Errorf("marker %q: %w", id, apperr.ErrNotFound)
	}
	return d, nil
}

// Markers returns the catalog.
func (s *Service) Markers(ctx context.Context) ([]models.Marker, error) {
	return s.store.ListMarkers(ctx)
}

// FocusSummary returns per-area counts of tracked markers.
func (s *Service) FocusSummary(ctx context.Context) ([]engine.FocusAreaSummary, error) {
	d, err := s.Dashboard(ctx, engine.Query{})
	if err != nil {
		return nil, err
	}
	return d.FocusSummary, nil
}

// GoalProgress evaluates goals of one plan, or of every plan when planID
// is empty.
func (s *Service) GoalProgress(ctx context.Context, planID string) ([]engine.GoalProgress, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	histories := engine.BuildHistories(snap.Markers, snap.Measurements, snap.Notes)
	out := []engine.GoalProgress{}
	found := planID == ""
	for _, p := range snap.Plans {
		if planID != "" && p.ID != planID {
			continue
		}
		found = true
		out = append(out, engine.EvaluatePlanGoals(p, histories)...)
	}
	if !found {
		return nil, fmt.Errorf("plan %q: %w", planID, apperr.ErrNotFound)
	}
	return out, nil
}

// MeasurementInput is the user-editable part of a measurement.
type MeasurementInput struct {
	MarkerID string    `json:"marker_id"`
	Value    float64   `json:"value"`
	Date     time.Time `json:"date"`
	Note     string    `json:"note,omitempty"`
}

// LogMeasurement validates and stores a new measurement.
func (s *Service) LogMeasurement(ctx context.Context, in MeasurementInput) (models.Measurement, error) {
	m := models.Measurement{
		ID:        uuid.NewString(),
		MarkerID:  strings.TrimSpace(in.MarkerID),
		Value:     in.Value,
		Date:      models.CalendarDay(in.Date),
		Note:      strings.TrimSpace(in.Note),
		CreatedAt: s.now().UTC(),
	}
	if err := m.Validate(); err != nil {
		return models.Measurement{}, invalid(err)
	}
	if err := s.requireMarker(ctx, m.MarkerID); err != nil {
		return models.Measurement{}, err
	}
	if err := s.store.InsertMeasurement(ctx, m); err != nil {
		return models.Measurement{}, err
	}
	s.notify("measurement", "created", m.ID)
	return m, nil
}

// UpdateMeasurement changes value, date and note of a measurement.
func (s *Service) UpdateMeasurement(ctx context.Context, id string, in MeasurementInput) (models.Measurement, error) {
	m, err := s.store.GetMeasurement(ctx, id)
	if err != nil {
		return models.Measurement{}, err
	}
	if in.MarkerID != "" && in.MarkerID != m.MarkerID {
		return models.Measurement{}, invalid(errors.New("marker_id: cannot be changed"))
	}
	m.Value = in.Value
	m.Date = models.CalendarDay(in.Date)
	m.Note = strings.TrimSpace(in.Note)
	if err := m.Validate(); err != nil {
		return models.Measurement{}, invalid(err)
	}
	if err := s.store.UpdateMeasurement(ctx, m); err != nil {
		return models.Measurement{}, err
	}
	s.notify("measurement", "updated", m.ID)
	return m, nil
}

// DeleteMeasurement removes a measurement.
func (s *Service) DeleteMeasurement(ctx context.Context, id string) error {
	if err := s.store.DeleteMeasurement(ctx, id); err != nil {
		return err
	}
	s.notify("measurement", "deleted", id)
	return nil
}

// AddNote attaches a note to a catalog marker.
func (s *Service) AddNote(ctx context.Context, markerID, body string) (models.MarkerNote, error) {
	n := models.MarkerNote{
		ID:        uuid.NewString(),
		MarkerID:  strings.TrimSpace(markerID),
		Body:      strings.TrimSpace(body),
		CreatedAt: s.now().UTC(),
	}
	if err := n.Validate(); err != nil {
		return models.MarkerNote{}, invalid(err)
	}
	if err := s.requireMarker(ctx, n.MarkerID); err != nil {
		return models.MarkerNote{}, err
	}
	if err := s.store.InsertMarkerNote(ctx, n); err != nil {
		return models.MarkerNote{}, err
	}
	s.notify("note", "created", n.ID)
	return n, nil
}

// DeleteNote removes a marker note.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	if err := s.store.DeleteMarkerNote(ctx, id); err != nil {
		return err
	}
	s.notify("note", "deleted", id)
	return nil
}

func (s *Service) requireMarker(ctx context.Context, id string) error {
	if _, err := s.store.GetMarker(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return invalid(fmt.Errorf("marker_id: unknown marker %q", id))
		}
		return err
	}
	return nil
}

func (s *Service) notify(entity, kind, id string) {
	if s.onChange != nil {
		s.onChange(entity, kind, id)
	}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
}
