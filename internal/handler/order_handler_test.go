package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"shopledger/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderService is a mock implementation of service.OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Create(ctx context.Context, req *model.OrderRequest) (*model.OrderResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) GetByID(ctx context.Context, id string) (*model.OrderResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) MergeUpdate(ctx context.Context, id string, patch *model.OrderPatch) (*model.OrderResponse, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) Finalize(ctx context.Context, id string) (*model.SettlementResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SettlementResult), args.Error(1)
}

func (m *MockOrderService) Recalculate(ctx context.Context, id string) (*model.OrderResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func orderResponseFixture(id string) *model.OrderResponse {
	return model.NewOrderResponse(&model.Order{
		ID:     id,
		Status: model.StatusPending,
		Totals: &model.Totals{Total: decimal.RequireFromString("22.40")},
	})
}

func TestOrderHandler_Create_Success(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("Create", mock.Anything, mock.AnythingOfType("*model.OrderRequest")).
		Return(orderResponseFixture("ORD-2026-000001-1234"), nil)

	body, _ := json.Marshal(model.OrderRequest{
		Customer: model.Customer{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		Items: []model.OrderItemRequest{
			{ID: "P001", Name: "Notebook", UnitPrice: decimal.RequireFromString("20.00"), Quantity: 1},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp model.OrderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ORD-2026-000001-1234", resp.ID)
}

func TestOrderHandler_Create_InvalidJSON(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp model.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, model.ErrCodeInvalidJSON, resp.Error)
	mockService.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderHandler_Create_ValidationErrors(t *testing.T) {
	tests := []struct {
		name         string
		serviceErr   error
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "missing field",
			serviceErr:   assert.AnError,
			expectedCode: http.StatusInternalServerError,
			expectedErr:  model.ErrCodeInternalError,
		},
		{
			name:         "invalid quantity",
			serviceErr:   model.ErrInvalidQuantity,
			expectedCode: http.StatusBadRequest,
			expectedErr:  model.ErrCodeInvalidQuantity,
		},
		{
			name:         "store unavailable",
			serviceErr:   model.ErrStoreUnavailable,
			expectedCode: http.StatusServiceUnavailable,
			expectedErr:  model.ErrCodeStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			h := NewOrderHandler(mockService, zerolog.Nop())

			mockService.On("Create", mock.Anything, mock.Anything).Return(nil, tt.serviceErr)

			body, _ := json.Marshal(model.OrderRequest{})
			req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
			w := httptest.NewRecorder()

			h.Create(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)

			var resp model.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.expectedErr, resp.Error)
		})
	}
}

func TestOrderHandler_GetByID_Success(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("GetByID", mock.Anything, "ORD-2026-000001-1234").
		Return(orderResponseFixture("ORD-2026-000001-1234"), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/ORD-2026-000001-1234", nil)
	req.SetPathValue("id", "ORD-2026-000001-1234")
	w := httptest.NewRecorder()

	h.GetByID(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOrderHandler_GetByID_NotFound(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("GetByID", mock.Anything, "ORD-2026-000099-0000").
		Return(nil, model.ErrOrderNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/ORD-2026-000099-0000", nil)
	req.SetPathValue("id", "ORD-2026-000099-0000")
	w := httptest.NewRecorder()

	h.GetByID(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp model.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, model.ErrCodeOrderNotFound, resp.Error)
}

func TestOrderHandler_Patch_Success(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("MergeUpdate", mock.Anything, "ORD-2026-000001-1234", mock.AnythingOfType("*model.OrderPatch")).
		Return(orderResponseFixture("ORD-2026-000001-1234"), nil)

	body := []byte(`{"payment": {"method": "e-transfer"}}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/orders/ORD-2026-000001-1234", bytes.NewReader(body))
	req.SetPathValue("id", "ORD-2026-000001-1234")
	w := httptest.NewRecorder()

	h.Patch(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestOrderHandler_Patch_UnknownStatusRejected(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	body := []byte(`{"status": "Teleported"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/orders/ORD-2026-000001-1234", bytes.NewReader(body))
	req.SetPathValue("id", "ORD-2026-000001-1234")
	w := httptest.NewRecorder()

	h.Patch(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "MergeUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderHandler_Patch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name         string
		serviceErr   error
		expectedCode int
	}{
		{"empty patch", model.ErrEmptyPatch, http.StatusBadRequest},
		{"not found", model.ErrOrderNotFound, http.StatusNotFound},
		{"frozen fields", model.ErrConflictingFinalize, http.StatusConflict},
		{"version mismatch", model.ErrVersionMismatch, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			h := NewOrderHandler(mockService, zerolog.Nop())

			mockService.On("MergeUpdate", mock.Anything, mock.Anything, mock.Anything).
				Return(nil, tt.serviceErr)

			body := []byte(`{"payment": {"method": "card"}}`)
			req := httptest.NewRequest(http.MethodPatch, "/api/orders/ORD-2026-000001-1234", bytes.NewReader(body))
			req.SetPathValue("id", "ORD-2026-000001-1234")
			w := httptest.NewRecorder()

			h.Patch(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestOrderHandler_Finalize_Success(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("Finalize", mock.Anything, "ORD-2026-000001-1234").
		Return(&model.SettlementResult{
			SettlementID: "s-1",
			OrderID:      "ORD-2026-000001-1234",
		}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/ORD-2026-000001-1234/finalize", nil)
	req.SetPathValue("id", "ORD-2026-000001-1234")
	w := httptest.NewRecorder()

	h.Finalize(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var result model.SettlementResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&result))
	assert.Equal(t, "s-1", result.SettlementID)
}

func TestOrderHandler_Finalize_Cancelled(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("Finalize", mock.Anything, "ORD-2026-000002-1234").
		Return(nil, model.ErrOrderCancelled)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/ORD-2026-000002-1234/finalize", nil)
	req.SetPathValue("id", "ORD-2026-000002-1234")
	w := httptest.NewRecorder()

	h.Finalize(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOrderHandler_Recalculate_Success(t *testing.T) {
	mockService := new(MockOrderService)
	h := NewOrderHandler(mockService, zerolog.Nop())

	mockService.On("Recalculate", mock.Anything, "ORD-2026-000001-1234").
		Return(orderResponseFixture("ORD-2026-000001-1234"), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/ORD-2026-000001-1234/recalculate", nil)
	req.SetPathValue("id", "ORD-2026-000001-1234")
	w := httptest.NewRecorder()

	h.Recalculate(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
