package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the closed set of order lifecycle states.
type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusProcessing OrderStatus = "Processing"
	StatusCompleted  OrderStatus = "Completed"
	StatusShipped    OrderStatus = "Shipped"
	StatusCancelled  OrderStatus = "Cancelled"
)

// ParseOrderStatus converts a raw string into an OrderStatus.
// Unknown values are rejected so typos cannot create orphan statuses.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch OrderStatus(raw) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusShipped, StatusCancelled:
		return OrderStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// Terminal reports whether the status freezes items and totals.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// UnmarshalJSON enforces the closed status set at decode time.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Customer identifies the person the order belongs to.
// Once set it is never implicitly cleared by unrelated updates.
type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

// OrderItem is a priced line item on an order.
type OrderItem struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Quantity        int             `json:"quantity"`
	InventoryStatus string          `json:"inventoryStatus,omitempty"`
}

// Totals holds the derived money fields of an order. They are computed
// from items at creation and change only through explicit recalculation.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// AppliedCertificate records how much of one certificate's balance was
// allocated to this order at checkout.
type AppliedCertificate struct {
	Code          string          `json:"code"`
	AppliedAmount decimal.Decimal `json:"appliedAmount"`
}

// Payment describes how the remainder of the order is paid. It may be
// attached or changed after the order exists.
type Payment struct {
	Method    string    `json:"method"`
	Timing    string    `json:"timing,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Order is the persisted order document. CreatedAt, UpdatedAt and Version
// live in dedicated columns, not in the document, so a field merge can
// never touch them.
type Order struct {
	ID                  string               `json:"id"`
	Status              OrderStatus          `json:"status"`
	Customer            *Customer            `json:"customer,omitempty"`
	Items               []OrderItem          `json:"items,omitempty"`
	Totals              *Totals              `json:"totals,omitempty"`
	AppliedCertificates []AppliedCertificate `json:"appliedCertificates,omitempty"`
	Payment             *Payment             `json:"payment,omitempty"`
	Settled             bool                 `json:"settled"`
	Settlement          *SettlementResult    `json:"settlement,omitempty"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
	Version   int64     `json:"-"`
}

// OrderPatch is the typed merge payload for partial order updates.
// A nil field means "leave untouched"; only non-nil fields reach the store.
// Settlement state is deliberately absent: it can only change through the
// settlement path.
type OrderPatch struct {
	Status              *OrderStatus          `json:"status,omitempty"`
	Customer            *Customer             `json:"customer,omitempty"`
	Items               *[]OrderItem          `json:"items,omitempty"`
	Totals              *Totals               `json:"totals,omitempty"`
	AppliedCertificates *[]AppliedCertificate `json:"appliedCertificates,omitempty"`
	Payment             *Payment              `json:"payment,omitempty"`
}

// IsEmpty reports whether the patch carries no fields at all.
func (p *OrderPatch) IsEmpty() bool {
	return p == nil ||
		(p.Status == nil && p.Customer == nil && p.Items == nil &&
			p.Totals == nil && p.AppliedCertificates == nil && p.Payment == nil)
}

// TouchesFrozen reports whether the patch would modify fields that are
// frozen once an order reaches a terminal status.
func (p *OrderPatch) TouchesFrozen() bool {
	return p != nil && (p.Items != nil || p.Totals != nil)
}

// OrderRequest is the checkout payload for creating an order.
type OrderRequest struct {
	Customer         Customer           `json:"customer"`
	Items            []OrderItemRequest `json:"items"`
	CertificateCodes []string           `json:"certificateCodes,omitempty"`
}

// OrderItemRequest is a single line item in a checkout request.
type OrderItemRequest struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// OrderResponse is the API representation of an order, exposing the
// column-backed metadata alongside the document fields.
type OrderResponse struct {
	*Order
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int64     `json:"version"`

	// CertificateErrors reports codes that were rejected during
	// allocation. Present on creation responses only.
	CertificateErrors []AllocationError `json:"certificateErrors,omitempty"`
}

// NewOrderResponse lifts a stored order into its API shape.
func NewOrderResponse(order *Order) *OrderResponse {
	return &OrderResponse{
		Order:     order,
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
		Version:   order.Version,
	}
}
