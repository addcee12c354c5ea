package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// planPath extracts the plan path from the URL (everything after /api/plans/).
// Supports encoded slashes (e.g. 2024%2Flipids.md).
func planPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func setETag(w http.ResponseWriter, checksum string) {
	w.Header().Set("ETag", `"`+checksum+`"`)
}

// ListPlans handles GET /api/plans.
//
//	@Summary		List plans, most recently updated first
//	@Tags			plans
//	@Produce		json
//	@Success		200	{object}	PlanListResponse
//	@Security		BearerAuth
//	@Router			/plans [get]
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.journal.List(r.Context())
	if err != nil {
		writeError(w, "list plans", err)
		return
	}
	writeJSON(w, http.StatusOK, PlanListResponse{Plans: plans})
}

// GetPlan handles GET /api/plans/*.
//
//	@Summary		Get a plan document
//	@Tags			plans
//	@Produce		json
//	@Param			path	path		string	true	"Plan path"
//	@Success		200		{object}	PlanDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plans/{path} [get]
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	path := planPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	plan, err := h.journal.Get(r.Context(), path)
	if err != nil {
		writeError(w, "get plan", err, "path", path)
		return
	}
	setETag(w, plan.Checksum)
	writeJSON(w, http.StatusOK, plan)
}

// CreatePlan handles POST /api/plans.
//
//	@Summary		Create a plan document
//	@Tags			plans
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreatePlanRequest	true	"Plan to create"
//	@Success		201		{object}	PlanDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plans [post]
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	plan, err := h.journal.Create(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		writeError(w, "create plan", err, "path", req.Path)
		return
	}
	setETag(w, plan.Checksum)
	writeJSON(w, http.StatusCreated, plan)
}

// UpdatePlan handles PUT /api/plans/*.
//
//	@Summary		Update a plan with optimistic concurrency
//	@Tags			plans
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string				true	"Plan path"
//	@Param			If-Match	header		string				false	"SHA-256 checksum of the current content"
//	@Param			body		body		UpdatePlanRequest	true	"Updated content"
//	@Success		200			{object}	PlanDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plans/{path} [put]
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	path := planPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdatePlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}
	plan, err := h.journal.Update(r.Context(), path, []byte(req.Content), r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "update plan", err, "path", path)
		return
	}
	setETag(w, plan.Checksum)
	writeJSON(w, http.StatusOK, plan)
}

// MovePlan handles PATCH /api/plans/*: renames the document.
func (h *Handler) MovePlan(w http.ResponseWriter, r *http.Request) {
	path := planPath(r)
	var req MovePlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if path == "" || req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("source and destination paths are required"))
		return
	}
	plan, err := h.journal.Move(r.Context(), path, req.Path)
	if err != nil {
		writeError(w, "move plan", err, "from", path, "to", req.Path)
		return
	}
	setETag(w, plan.Checksum)
	writeJSON(w, http.StatusOK, plan)
}

// DeletePlan handles DELETE /api/plans/*.
func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	path := planPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.journal.Delete(r.Context(), path); err != nil {
		writeError(w, "delete plan", err, "path", path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across plans
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.journal.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, "query", q)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
