package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/parser"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps service errors to status codes. Unexpected errors are
// logged under op and hidden from the client.
func writeError(w http.ResponseWriter, op string, err error, attrs ...any) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", append(attrs, slog.String("error", err.Error()))...)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// decodeJSON reads a size-limited JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// parseDay accepts YYYY-MM-DD or RFC 3339.
func parseDay(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := parser.ParseDay(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: expected YYYY-MM-DD", apperr.ErrInvalid, field)
	}
	return t, nil
}
