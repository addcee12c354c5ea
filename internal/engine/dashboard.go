package engine

import (
	"cmp"
	"slices"
	"time"

	"golang.org/x/text/language"

	"github.com/starford/laguz/internal/models"
)

// Snapshot is the immutable input to one engine run. Rows are expected
// to be scoped to the current user already.
type Snapshot struct {
	Markers      []models.Marker
	Measurements []models.Measurement
	Notes        []models.MarkerNote
	Plans        []models.Plan
	Todos        []models.Todo
	Now          time.Time
}

// FocusAreaSummary counts tracked markers per focus area.
type FocusAreaSummary struct {
	Area      FocusArea `json:"area"`
	Markers   int       `json:"markers"`
	Attention int       `json:"attention"`
	MarkerIDs []string  `json:"marker_ids"`
}

// Dashboard is the full derived view model.
type Dashboard struct {
	Summary       Summary                `json:"summary"`
	Attention     []MarkerHistory        `json:"attention"`
	Optimizations []OptimizationEvent    `json:"optimizations"`
	FocusAreas    map[string][]FocusArea `json:"focus_areas"`
	FocusSummary  []FocusAreaSummary     `json:"focus_summary"`
	Goals         []GoalProgress         `json:"goals"`
	ActivePlan    *models.Plan           `json:"active_plan,omitempty"`
	OpenTodos     []models.Todo          `json:"open_todos"`
	OverdueTodos  []models.Todo          `json:"overdue_todos"`
	Groups        []Group                `json:"groups"`
	GeneratedAt   time.Time              `json:"generated_at"`
}

// MarkerDetail is the per-marker drill-down. History is nil for a marker
// that is known but untracked.
type MarkerDetail struct {
	Marker        models.Marker       `json:"marker"`
	History       *MarkerHistory      `json:"history,omitempty"`
	Optimizations []OptimizationEvent `json:"optimizations"`
	FocusAreas    []FocusArea         `json:"focus_areas"`
	Goals         []GoalProgress      `json:"goals"`
}

// Engine runs the derivation pipeline. It is immutable after New and
// safe for concurrent use.
type Engine struct {
	focus  *FocusClassifier
	locale language.Tag
}

// Option configures an Engine.
type Option func(*Engine)

// WithFocusClassifier replaces the embedded focus-area keyword table.
func WithFocusClassifier(c *FocusClassifier) Option {
	return func(e *Engine) {
		if c != nil {
			e.focus = c
		}
	}
}

// WithLocale sets the collation locale for name sorting.
func WithLocale(tag language.Tag) Option {
	return func(e *Engine) {
		e.locale = tag
	}
}

// New builds an Engine. The defaults are the embedded keyword table and
// Swedish collation.
func New(opts ...Option) *Engine {
	e := &Engine{
		focus:  DefaultFocusClassifier(),
		locale: language.Swedish,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FocusAreas classifies one marker.
func (e *Engine) FocusAreas(m models.Marker) []FocusArea {
	return e.focus.Classify(m.Name, m.Category)
}

// Present groups and sorts histories using the engine's locale.
func (e *Engine) Present(histories []MarkerHistory, q Query) []Group {
	return Present(histories, q, e.locale)
}

// Compute derives the dashboard from s.
func (e *Engine) Compute(s Snapshot, q Query) Dashboard {
	histories := BuildHistories(s.Markers, s.Measurements, s.Notes)

	focus := make(map[string][]FocusArea, len(histories))
	for _, h := range histories {
		focus[h.Marker.ID] = e.FocusAreas(h.Marker)
	}

	goals := []GoalProgress{}
	for _, p := range s.Plans {
		goals = append(goals, EvaluatePlanGoals(p, histories)...)
	}

	return Dashboard{
		Summary:       Summarize(histories),
		Attention:     NeedsAttention(histories),
		Optimizations: CollectOptimizations(histories),
		FocusAreas:    focus,
		FocusSummary:  summarizeFocus(histories, focus),
		Goals:         goals,
		ActivePlan:    ActivePlan(s.Plans, s.Now),
		OpenTodos:     OpenTodos(s.Todos),
		OverdueTodos:  OverdueTodos(s.Todos, s.Now),
		Groups:        e.Present(histories, q),
		GeneratedAt:   s.Now,
	}
}

// MarkerDetail derives the drill-down for markerID. It reports false when
// the marker is not in the catalog.
func (e *Engine) MarkerDetail(s Snapshot, markerID string) (MarkerDetail, bool) {
	idx := slices.IndexFunc(s.Markers, func(m models.Marker) bool { return m.ID == markerID })
	if idx < 0 {
		return MarkerDetail{}, false
	}
	marker := s.Markers[idx]

	histories := BuildHistories([]models.Marker{marker}, s.Measurements, s.Notes)
	d := MarkerDetail{
		Marker:        marker,
		Optimizations: []OptimizationEvent{},
		FocusAreas:    e.FocusAreas(marker),
		Goals:         []GoalProgress{},
	}
	if len(histories) == 1 {
		d.History = &histories[0]
		d.Optimizations = CollectOptimizations(histories)
	}
	for _, p := range s.Plans {
		for _, gp := range EvaluatePlanGoals(p, histories) {
			if gp.MarkerID == markerID {
				d.Goals = append(d.Goals, gp)
			}
		}
	}
	return d, true
}

// ActivePlan picks the plan the UI treats as current: the most recently
// updated plan that is undated or whose target date has not passed.
func ActivePlan(plans []models.Plan, now time.Time) *models.Plan {
	today := models.TruncateDay(now)
	var best *models.Plan
	for i := range plans {
		p := plans[i]
		if p.TargetDate != nil && models.TruncateDay(*p.TargetDate).Before(today) {
			continue
		}
		if best == nil || p.UpdatedAt.After(best.UpdatedAt) ||
			(p.UpdatedAt.Equal(best.UpdatedAt) && p.ID < best.ID) {
			best = &p
		}
	}
	return best
}

// OpenTodos returns todos that are not done, soonest due first and
// undated last.
func OpenTodos(todos []models.Todo) []models.Todo {
	out := []models.Todo{}
	for _, t := range todos {
		if !t.Done {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Todo) int {
		switch {
		case a.DueDate == nil && b.DueDate != nil:
			return 1
		case a.DueDate != nil && b.DueDate == nil:
			return -1
		case a.DueDate != nil && b.DueDate != nil:
			if c := models.TruncateDay(*a.DueDate).Compare(models.TruncateDay(*b.DueDate)); c != 0 {
				return c
			}
		}
		if c := cmp.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// OverdueTodos returns open todos due before now's calendar day.
func OverdueTodos(todos []models.Todo, now time.Time) []models.Todo {
	today := models.TruncateDay(now)
	out := []models.Todo{}
	for _, t := range OpenTodos(todos) {
		if t.DueDate != nil && models.TruncateDay(*t.DueDate).Before(today) {
			out = append(out, t)
		}
	}
	return out
}

func summarizeFocus(histories []MarkerHistory, focus map[string][]FocusArea) []FocusAreaSummary {
	sums := make([]FocusAreaSummary, len(canonicalAreas))
	for i, a := range canonicalAreas {
		sums[i] = FocusAreaSummary{Area: a, MarkerIDs: []string{}}
	}
	for _, h := range histories {
		for _, a := range focus[h.Marker.ID] {
			i := areaIndex(a)
			sums[i].Markers++
			sums[i].MarkerIDs = append(sums[i].MarkerIDs, h.Marker.ID)
			if h.Status != StatusNormal {
				sums[i].Attention++
			}
		}
	}
	out := []FocusAreaSummary{}
	for _, s := range sums {
		if s.Markers > 0 {
			out = append(out, s)
		}
	}
	return out
}
