package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"QrestAPI/internal/apperr"
	"QrestAPI/internal/logger"
)

// writeError converts the error taxonomy into HTTP responses at the
// dispatcher boundary. Nothing below this layer knows about status codes,
// and server faults never leak detail to the client.
func writeError(w http.ResponseWriter, err error) {
	var invalid *apperr.InvalidDirective
	var mismatch *apperr.SchemaMismatch
	var notFound *apperr.NotFound
	var validation *apperr.Validation

	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": invalid.Error()})
	case errors.As(err, &mismatch):
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": mismatch.Error()})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"errors": notFound.Error()})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": validation.Fields})
	default:
		logger.Error("server_fault", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]any{"errors": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write_response_failed", map[string]any{"error": err.Error()})
	}
}
