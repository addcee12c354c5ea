package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/journal"
	"github.com/starford/laguz/internal/reports"
	"github.com/starford/laguz/internal/tracker"
)

// RouterConfig carries the services and settings the API is built from.
type RouterConfig struct {
	Tracker *tracker.Service
	Journal *journal.Service
	Reports *reports.Store

	AuthEnabled bool
	Token       string
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(cfg RouterConfig) chi.Router {
	h := &Handler{tracker: cfg.Tracker, journal: cfg.Journal, reports: cfg.Reports}

	r := chi.NewRouter()
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))

	// Derived views.
	r.Get("/dashboard", h.Dashboard)
	r.Get("/markers", h.ListMarkers)
	r.Get("/markers/{id}", h.GetMarker)
	r.Get("/focus-areas", h.FocusAreas)
	r.Get("/goals", h.Goals)

	// Measurements and notes.
	r.Post("/measurements", h.CreateMeasurement)
	r.Put("/measurements/{id}", h.UpdateMeasurement)
	r.Delete("/measurements/{id}", h.DeleteMeasurement)
	r.Post("/markers/{id}/notes", h.CreateNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	// Todos.
	r.Get("/todos", h.ListTodos)
	r.Post("/todos", h.CreateTodo)
	r.Put("/todos/{id}", h.UpdateTodo)
	r.Delete("/todos/{id}", h.DeleteTodo)

	// Plans.
	r.Get("/plans", h.ListPlans)
	r.Post("/plans", h.CreatePlan)
	r.Get("/plans/*", h.GetPlan)
	r.Put("/plans/*", h.UpdatePlan)
	r.Patch("/plans/*", h.MovePlan)
	r.Delete("/plans/*", h.DeletePlan)
	r.Get("/search", h.Search)

	// Lab reports.
	r.Post("/reports", h.UploadReport)
	r.Get("/reports/{filename}", h.ServeReport)

	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	return r
}

// Handler holds API route handlers.
type Handler struct {
	tracker *tracker.Service
	journal *journal.Service
	reports *reports.Store
}
