package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/tracker"
)

func (req TodoRequest) input() (tracker.TodoInput, error) {
	in := tracker.TodoInput{Title: req.Title, Done: req.Done, MarkerIDs: req.MarkerIDs, PlanID: req.PlanID}
	due, err := parseDay("due_date", req.DueDate)
	if err != nil {
		return in, err
	}
	if !due.IsZero() {
		in.DueDate = &due
	}
	return in, nil
}

// ListTodos handles GET /api/todos.
//
//	@Summary		List todos
//	@Tags			todos
//	@Produce		json
//	@Param			open	query		bool	false	"Only open todos, ordered by due date"
//	@Success		200		{object}	TodoListResponse
//	@Security		BearerAuth
//	@Router			/todos [get]
func (h *Handler) ListTodos(w http.ResponseWriter, r *http.Request) {
	open := r.URL.Query().Get("open")
	todos, err := h.tracker.Todos(r.Context(), open == "1" || open == "true")
	if err != nil {
		writeError(w, "list todos", err)
		return
	}
	writeJSON(w, http.StatusOK, TodoListResponse{Todos: todos})
}

// CreateTodo handles POST /api/todos.
func (h *Handler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var req TodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, "create todo", err)
		return
	}
	t, err := h.tracker.CreateTodo(r.Context(), in)
	if err != nil {
		writeError(w, "create todo", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// UpdateTodo handles PUT /api/todos/{id}.
func (h *Handler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req TodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, "update todo", err)
		return
	}
	t, err := h.tracker.UpdateTodo(r.Context(), id, in)
	if err != nil {
		writeError(w, "update todo", err, "id", id)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTodo handles DELETE /api/todos/{id}.
func (h *Handler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.tracker.DeleteTodo(r.Context(), id); err != nil {
		writeError(w, "delete todo", err, "id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
