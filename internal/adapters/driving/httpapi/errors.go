package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/logger"
)

// errorResponse is the error envelope of every endpoint.
type errorResponse struct {
	Error string `json:"error"`
}

// statusFor classifies a service error.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrIndexUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as an error envelope with its classified status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	requestLogger(r).Warn("request failed", "status", status, "error", err)
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeMessage writes a fixed client error message.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debug("writing response: %v", err)
	}
}
