// Package service implements the business logic of the ledger.
package service

import (
	"context"

	"shopledger/internal/model"
)

// OrderService defines the interface for order business operations.
type OrderService interface {
	// Create validates and persists a new order, allocating any
	// certificate codes supplied with the request.
	Create(ctx context.Context, req *model.OrderRequest) (*model.OrderResponse, error)

	// GetByID retrieves an order by its identifier.
	GetByID(ctx context.Context, id string) (*model.OrderResponse, error)

	// MergeUpdate applies a partial update to an order. Fields absent
	// from the patch are never touched.
	MergeUpdate(ctx context.Context, id string, patch *model.OrderPatch) (*model.OrderResponse, error)

	// Finalize settles an order's applied certificates, decrementing
	// the referenced balances exactly once.
	Finalize(ctx context.Context, id string) (*model.SettlementResult, error)

	// Recalculate recomputes an order's totals from its items and
	// persists them, guarded by the version it read.
	Recalculate(ctx context.Context, id string) (*model.OrderResponse, error)
}

// CertificateService defines the interface for gift certificate
// business operations.
type CertificateService interface {
	// Issue creates a new gift certificate with a fresh code.
	Issue(ctx context.Context, req *model.CertificateRequest) (*model.GiftCertificate, error)

	// Validate checks a certificate code without reserving balance.
	Validate(ctx context.Context, req *model.ValidateRequest) (*model.ValidationResult, error)

	// GetByCode retrieves a certificate by its case-insensitive code.
	GetByCode(ctx context.Context, code string) (*model.GiftCertificate, error)
}
