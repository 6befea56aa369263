package service

import (
	"context"
	"fmt"
	"time"

	"shopledger/internal/certificate"
	"shopledger/internal/event"
	"shopledger/internal/identifier"
	"shopledger/internal/inventory"
	"shopledger/internal/metrics"
	"shopledger/internal/model"
	"shopledger/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// orderService implements OrderService.
type orderService struct {
	orders    repository.OrderRepository
	allocator certificate.Allocator
	settler   certificate.Settler
	ids       *identifier.Generator
	stock     inventory.Client
	mail      event.Publisher
	taxRate   decimal.Decimal
	now       func() time.Time
	logger    zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	allocator certificate.Allocator,
	settler certificate.Settler,
	ids *identifier.Generator,
	stock inventory.Client,
	mail event.Publisher,
	taxRate decimal.Decimal,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orders:    orders,
		allocator: allocator,
		settler:   settler,
		ids:       ids,
		stock:     stock,
		mail:      mail,
		taxRate:   taxRate,
		now:       time.Now,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// Create creates a new order with optional gift certificate allocation.
func (s *orderService) Create(ctx context.Context, req *model.OrderRequest) (*model.OrderResponse, error) {
	if err := s.validateOrderRequest(req); err != nil {
		return nil, err
	}

	items := make([]model.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = model.OrderItem{
			ID:        item.ID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		}
	}
	s.annotateStock(ctx, items)

	totals := s.computeTotals(items)

	// Allocate certificates against the total. Bad codes are reported
	// back to the caller, not fatal.
	var allocation *model.AllocationResult
	if len(req.CertificateCodes) > 0 {
		var err error
		allocation, err = s.allocator.Allocate(ctx, totals.Total, req.CertificateCodes)
		if err != nil {
			s.logger.Error().Err(err).Msg("certificate allocation failed")
			return nil, err
		}
	}

	year := s.now().Year()
	existing, err := s.orders.IDsForYear(ctx, year)
	if err != nil {
		s.logger.Error().Err(err).Int("year", year).Msg("failed to list order ids")
		return nil, err
	}

	order := &model.Order{
		ID:       s.ids.NextOrderID(existing, year),
		Status:   model.StatusPending,
		Customer: &req.Customer,
		Items:    items,
		Totals:   &totals,
	}
	if allocation != nil {
		order.AppliedCertificates = allocation.Applied()
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to create order")
		return nil, err
	}

	metrics.OrdersCreatedTotal.Inc()
	s.logger.Info().
		Str("order_id", order.ID).
		Int("item_count", len(items)).
		Str("total", totals.Total.String()).
		Msg("order created successfully")

	s.sendConfirmation(ctx, order)

	resp := model.NewOrderResponse(order)
	if allocation != nil {
		resp.CertificateErrors = allocation.Errors
	}
	return resp, nil
}

// GetByID retrieves an order by its identifier.
func (s *orderService) GetByID(ctx context.Context, id string) (*model.OrderResponse, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.NewOrderResponse(order), nil
}

// MergeUpdate applies a partial update to an order.
func (s *orderService) MergeUpdate(ctx context.Context, id string, patch *model.OrderPatch) (*model.OrderResponse, error) {
	if patch.IsEmpty() {
		return nil, model.ErrEmptyPatch
	}

	// Payment changes carry a server-side timestamp; the caller's clock
	// is not trusted.
	if patch.Payment != nil {
		patch.Payment.UpdatedAt = s.now()
	}

	order, err := s.orders.Merge(ctx, id, patch)
	if err != nil {
		s.logger.Warn().Err(err).Str("order_id", id).Msg("merge update rejected")
		return nil, err
	}

	s.logger.Info().Str("order_id", id).Int64("version", order.Version).Msg("order updated")
	return model.NewOrderResponse(order), nil
}

// Finalize settles the order's applied certificates.
func (s *orderService) Finalize(ctx context.Context, id string) (*model.SettlementResult, error) {
	result, err := s.settler.Settle(ctx, id)
	if err != nil {
		return nil, err
	}

	if !result.AlreadySettled {
		for _, entry := range result.Entries {
			outcome := "full"
			if entry.Shortfall {
				outcome = "shortfall"
			}
			metrics.CertificatesSettledTotal.WithLabelValues(outcome).Inc()
		}
		if result.NeedsReconciliation {
			metrics.SettlementReconciliationsTotal.Inc()
		}
	}

	return result, nil
}

// Recalculate recomputes an order's totals from its current items.
func (s *orderService) Recalculate(ctx context.Context, id string) (*model.OrderResponse, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status.Terminal() {
		s.logger.Warn().
			Str("order_id", id).
			Str("status", string(order.Status)).
			Msg("recalculation rejected on finalized order")
		return nil, model.ErrConflictingFinalize
	}

	totals := s.computeTotals(order.Items)
	order.Totals = &totals

	updated, err := s.orders.Replace(ctx, order, order.Version)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", id).
		Str("total", totals.Total.String()).
		Msg("order totals recalculated")
	return model.NewOrderResponse(updated), nil
}

// computeTotals derives subtotal, tax and total from the items. Money
// is rounded to cents once, at the tax step.
func (s *orderService) computeTotals(items []model.OrderItem) model.Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	tax := subtotal.Mul(s.taxRate).Round(2)
	return model.Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// annotateStock attaches the inventory snapshot to the items. The
// snapshot is advisory; a dead inventory service never blocks checkout.
func (s *orderService) annotateStock(ctx context.Context, items []model.OrderItem) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	statuses, err := s.stock.Snapshot(ctx, ids)
	if err != nil {
		// The client still returns a complete map on failure, with
		// every product marked unknown.
		s.logger.Warn().Err(err).Msg("inventory snapshot unavailable")
	}
	for i := range items {
		if status, ok := statuses[items[i].ID]; ok {
			items[i].InventoryStatus = status
		} else {
			items[i].InventoryStatus = inventory.StatusUnknown
		}
	}
}

// sendConfirmation publishes the order confirmation mail event.
// Delivery trouble is logged and swallowed; the order already exists.
func (s *orderService) sendConfirmation(ctx context.Context, order *model.Order) {
	evt := event.MailEvent{
		To:      order.Customer.Email,
		Subject: fmt.Sprintf("Order confirmation %s", order.ID),
		TemplateData: map[string]any{
			"orderId":   order.ID,
			"firstName": order.Customer.FirstName,
			"total":     order.Totals.Total.String(),
		},
	}
	if err := s.mail.PublishMail(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID).Msg("failed to publish confirmation mail")
	}
}

// validateOrderRequest validates the order request.
func (s *orderService) validateOrderRequest(req *model.OrderRequest) error {
	if req == nil {
		return fmt.Errorf("order request is nil")
	}

	if req.Customer.FirstName == "" || req.Customer.LastName == "" {
		return fmt.Errorf("customer name is required")
	}
	if req.Customer.Email == "" {
		return fmt.Errorf("customer email is required")
	}

	if len(req.Items) == 0 {
		return fmt.Errorf("order must contain at least one item")
	}

	for i, item := range req.Items {
		if item.ID == "" {
			return fmt.Errorf("item %d: product ID is required", i)
		}

		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ID).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}

		if item.UnitPrice.IsNegative() {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ID).
				Msg("negative unit price")
			return model.ErrInvalidAmount
		}
	}

	return nil
}
