package tracker

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/laguz/internal/engine"
	"github.com/starford/laguz/internal/models"
)

// TodoInput is the user-editable part of a todo.
type TodoInput struct {
	Title     string     `json:"title"`
	Done      bool       `json:"done"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	MarkerIDs []string   `json:"marker_ids"`
	PlanID    string     `json:"plan_id,omitempty"`
}

func (in TodoInput) apply(t *models.Todo) {
	t.Title = strings.TrimSpace(in.Title)
	t.Done = in.Done
	t.DueDate = nil
	if in.DueDate != nil {
		d := models.CalendarDay(*in.DueDate)
		t.DueDate = &d
	}
	t.MarkerIDs = make([]string, 0, len(in.MarkerIDs))
	for _, id := range in.MarkerIDs {
		t.MarkerIDs = append(t.MarkerIDs, strings.TrimSpace(id))
	}
	t.PlanID = strings.TrimSpace(in.PlanID)
}

// Todos lists todos. With openOnly, done todos are dropped and the rest
// are ordered by due date.
func (s *Service) Todos(ctx context.Context, openOnly bool) ([]models.Todo, error) {
	todos, err := s.store.ListTodos(ctx)
	if err != nil {
		return nil, err
	}
	if openOnly {
		return engine.OpenTodos(todos), nil
	}
	return todos, nil
}

// CreateTodo validates and stores a new todo.
func (s *Service) CreateTodo(ctx context.Context, in TodoInput) (models.Todo, error) {
	t := models.Todo{ID: uuid.NewString(), CreatedAt: s.now().UTC()}
	in.apply(&t)
	if err := t.Validate(); err != nil {
		return models.Todo{}, invalid(err)
	}
	if err := s.store.InsertTodo(ctx, t); err != nil {
		return models.Todo{}, err
	}
	s.notify("todo", "created", t.ID)
	return t, nil
}

// UpdateTodo replaces the editable fields of a todo.
func (s *Service) UpdateTodo(ctx context.Context, id string, in TodoInput) (models.Todo, error) {
	t, err := s.store.GetTodo(ctx, id)
	if err != nil {
		return models.Todo{}, err
	}
	in.apply(&t)
	if err := t.Validate(); err != nil {
		return models.Todo{}, invalid(err)
	}
	if err := s.store.UpdateTodo(ctx, t); err != nil {
		return models.Todo{}, err
	}
	s.notify("todo", "updated", t.ID)
	return t, nil
}

// DeleteTodo removes a todo.
func (s *Service) DeleteTodo(ctx context.Context, id string) error {
	if err := s.store.DeleteTodo(ctx, id); err != nil {
		return err
	}
	s.notify("todo", "deleted", id)
	return nil
}
