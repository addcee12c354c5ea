package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/engine"
)

// Dashboard handles GET /api/dashboard.
//
//	@Summary		Compute the dashboard
//	@Tags			dashboard
//	@Produce		json
//	@Param			q		query		string	false	"Free-text marker filter"
//	@Param			status	query		string	false	"Status filter"	Enums(all, attention, normal)
//	@Param			sort	query		string	false	"Sort mode"		Enums(attention-first, recent, alphabetical)
//	@Param			group	query		string	false	"Group order"	Enums(first-seen, category, attention-count)
//	@Success		200		{object}	Dashboard
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dashboard [get]
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d, err := h.tracker.Dashboard(r.Context(), engine.Query{
		Text:     q.Get("q"),
		Status:   engine.StatusFilter(q.Get("status")),
		Sort:     engine.SortMode(q.Get("sort")),
		Grouping: engine.Grouping(q.Get("group")),
	})
	if err != nil {
		writeError(w, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ListMarkers handles GET /api/markers.
//
//	@Summary		List the marker catalog
//	@Tags			markers
//	@Produce		json
//	@Success		200	{object}	MarkerListResponse
//	@Security		BearerAuth
//	@Router			/markers [get]
func (h *Handler) ListMarkers(w http.ResponseWriter, r *http.Request) {
	markers, err := h.tracker.Markers(r.Context())
	if err != nil {
		writeError(w, "list markers", err)
		return
	}
	writeJSON(w, http.StatusOK, MarkerListResponse{Markers: markers})
}

// GetMarker handles GET /api/markers/{id}.
//
//	@Summary		Marker history, trend, optimizations and goals
//	@Tags			markers
//	@Produce		json
//	@Param			id	path		string	true	"Marker ID"
//	@Success		200	{object}	MarkerDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/markers/{id} [get]
func (h *Handler) GetMarker(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	d, err := h.tracker.MarkerDetail(r.Context(), id)
	if err != nil {
		writeError(w, "get marker", err, "marker_id", id)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// FocusAreas handles GET /api/focus-areas.
func (h *Handler) FocusAreas(w http.ResponseWriter, r *http.Request) {
	summary, err := h.tracker.FocusSummary(r.Context())
	if err != nil {
		writeError(w, "focus areas", err)
		return
	}
	if summary == nil {
		summary = []engine.FocusAreaSummary{}
	}
	writeJSON(w, http.StatusOK, FocusAreaResponse{FocusAreas: summary})
}

// Goals handles GET /api/goals.
//
//	@Summary		Goal progress for one plan, or all plans
//	@Tags			goals
//	@Produce		json
//	@Param			plan	query		string	false	"Plan path"
//	@Success		200		{object}	GoalListResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/goals [get]
func (h *Handler) Goals(w http.ResponseWriter, r *http.Request) {
	plan := r.URL.Query().Get("plan")
	goals, err := h.tracker.GoalProgress(r.Context(), plan)
	if err != nil {
		writeError(w, "goal progress", err, "plan", plan)
		return
	}
	writeJSON(w, http.StatusOK, GoalListResponse{Goals: goals})
}
