package handler

import (
	"encoding/json"
	"net/http"

	"shopledger/internal/model"
	"shopledger/internal/service"

	"github.com/rs/zerolog"
)

// CertificateHandler handles gift certificate HTTP requests.
type CertificateHandler struct {
	service service.CertificateService
	logger  zerolog.Logger
}

// NewCertificateHandler creates a new certificate handler.
func NewCertificateHandler(service service.CertificateService, logger zerolog.Logger) *CertificateHandler {
	return &CertificateHandler{
		service: service,
		logger:  logger.With().Str("handler", "certificate").Logger(),
	}
}

// Issue handles POST /api/certificates requests.
func (h *CertificateHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req model.CertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	cert, err := h.service.Issue(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, cert)
}

// Validate handles POST /api/certificates/validate requests. Bad codes
// come back as structured results with HTTP 200, never as errors.
func (h *CertificateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req model.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	if req.Code == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "certificate code is required", h.logger)
		return
	}

	result, err := h.service.Validate(r.Context(), &req)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetByCode handles GET /api/certificates/{code} requests.
func (h *CertificateHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "certificate code is required", h.logger)
		return
	}

	cert, err := h.service.GetByCode(r.Context(), code)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, cert)
}
