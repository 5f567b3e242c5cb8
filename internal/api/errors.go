package api

import (
	"encoding/json"
	"net/http"

	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// errorResponse is the JSON envelope for all API failures
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain error kinds onto HTTP status codes. Only server
// faults are logged; client errors already surface in the response.
func writeError(w http.ResponseWriter, log *logger.Logger, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.Errorw("Request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, errors.ErrResearchNotFound),
		errors.Is(err, errors.ErrProfileNotFound),
		errors.Is(err, errors.ErrWorkflowNotFound),
		errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrInvalidInput),
		errors.Is(err, errors.ErrWorkflowValidation),
		errors.Is(err, errors.ErrToolValidation):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, errors.ErrProviderUnavailable),
		errors.Is(err, errors.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
