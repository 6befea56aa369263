package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"shopledger/internal/model"
	"shopledger/internal/service"

	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.service.Create(r.Context(), &req)
	if err != nil {
		if strings.Contains(err.Error(), "required") ||
			strings.Contains(err.Error(), "must contain") ||
			strings.Contains(err.Error(), "nil") {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, err.Error(), h.logger)
			return
		}
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "order ID is required", h.logger)
		return
	}

	order, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Patch handles PATCH /api/orders/{id} requests. Only the fields present
// in the body change; everything else on the order is preserved.
func (h *OrderHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "order ID is required", h.logger)
		return
	}

	var patch model.OrderPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.service.MergeUpdate(r.Context(), id, &patch)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Finalize handles POST /api/orders/{id}/finalize requests, settling the
// order's applied gift certificates.
func (h *OrderHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "order ID is required", h.logger)
		return
	}

	result, err := h.service.Finalize(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Recalculate handles POST /api/orders/{id}/recalculate requests,
// recomputing the order's totals from its current items.
func (h *OrderHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "order ID is required", h.logger)
		return
	}

	order, err := h.service.Recalculate(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}
