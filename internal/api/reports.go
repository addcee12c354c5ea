package api

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/reports"
)

// UploadReport handles POST /api/reports (multipart/form-data, field "file").
//
//	@Summary		Upload a lab report (PDF or image)
//	@Tags			reports
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Report file"
//	@Success		201		{object}	reports.Report
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reports [post]
func (h *Handler) UploadReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, reports.MaxSize+1<<20)

	if err := r.ParseMultipartForm(reports.MaxSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, reports.MaxSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	rep, err := h.reports.Save(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, "upload report", err, "filename", header.Filename)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

// ServeReport handles GET /api/reports/{filename}.
func (h *Handler) ServeReport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	data, contentType, err := h.reports.Read(name)
	if err != nil {
		writeError(w, "serve report", err, "filename", name)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
}
