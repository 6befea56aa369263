// Package handler exposes the ledger over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"shopledger/internal/middleware"
	"shopledger/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes a structured error response carrying the stable
// error code and the request's correlation ID.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	correlationID := middleware.CorrelationIDFrom(r.Context())
	logger.Error().
		Str("error_code", code).
		Str("error", message).
		Int("status", status).
		Str("correlation_id", correlationID).
		Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: correlationID,
	})
}

// writeDomainError maps a service error onto an HTTP status and the
// standard error envelope.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
		return
	}

	status := http.StatusInternalServerError
	switch domainErr.Code {
	case model.ErrCodeOrderNotFound, model.ErrCodeCertificateNotFound:
		status = http.StatusNotFound
	case model.ErrCodeConflictingFinalize, model.ErrCodeVersionMismatch, model.ErrCodeOrderCancelled:
		status = http.StatusConflict
	case model.ErrCodeEmptyPatch, model.ErrCodeInvalidQuantity, model.ErrCodeInvalidAmount, model.ErrCodeInvalidStatus:
		status = http.StatusBadRequest
	case model.ErrCodeStoreUnavailable:
		status = http.StatusServiceUnavailable
	}

	writeError(w, r, status, domainErr.Code, domainErr.Message, logger)
}
