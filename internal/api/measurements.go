package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/tracker"
)

func (req MeasurementRequest) input() (tracker.MeasurementInput, error) {
	date, err := parseDay("date", req.Date)
	if err != nil {
		return tracker.MeasurementInput{}, err
	}
	return tracker.MeasurementInput{MarkerID: req.MarkerID, Value: req.Value, Date: date, Note: req.Note}, nil
}

// CreateMeasurement handles POST /api/measurements.
//
//	@Summary		Log a lab value
//	@Tags			measurements
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MeasurementRequest	true	"Measurement"
//	@Success		201		{object}	models.Measurement
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/measurements [post]
func (h *Handler) CreateMeasurement(w http.ResponseWriter, r *http.Request) {
	var req MeasurementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, "create measurement", err)
		return
	}
	m, err := h.tracker.LogMeasurement(r.Context(), in)
	if err != nil {
		writeError(w, "create measurement", err, "marker_id", req.MarkerID)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// UpdateMeasurement handles PUT /api/measurements/{id}.
func (h *Handler) UpdateMeasurement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req MeasurementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, "update measurement", err)
		return
	}
	m, err := h.tracker.UpdateMeasurement(r.Context(), id, in)
	if err != nil {
		writeError(w, "update measurement", err, "id", id)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteMeasurement handles DELETE /api/measurements/{id}.
func (h *Handler) DeleteMeasurement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.tracker.DeleteMeasurement(r.Context(), id); err != nil {
		writeError(w, "delete measurement", err, "id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateNote handles POST /api/markers/{id}/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	markerID := chi.URLParam(r, "id")
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.tracker.AddNote(r.Context(), markerID, req.Body)
	if err != nil {
		writeError(w, "create note", err, "marker_id", markerID)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.tracker.DeleteNote(r.Context(), id); err != nil {
		writeError(w, "delete note", err, "id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
