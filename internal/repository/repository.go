package repository

import (
	"context"
	"fmt"

	"shopledger/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// OrderRepository defines the interface for order data access operations.
//
// Merge and Replace are deliberately distinct operations: Merge applies a
// field-level patch inside the store and can never clear fields it was
// not given, while Replace rewrites the whole document and is guarded by
// the version the caller last read. There is no unguarded overwrite.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Create inserts a new order document.
	Create(ctx context.Context, order *model.Order) error

	// GetByID retrieves an order by its identifier.
	GetByID(ctx context.Context, id string) (*model.Order, error)

	// Merge applies a partial update to an order. Only fields present
	// on the patch change; every other top-level field is untouched.
	// Fails with ErrConflictingFinalize when the patch touches items
	// or totals on an order in a terminal status.
	Merge(ctx context.Context, id string, patch *model.OrderPatch) (*model.Order, error)

	// Replace rewrites the full order document, guarded by the version
	// the caller read. Fails with ErrVersionMismatch when the order
	// changed in between.
	Replace(ctx context.Context, order *model.Order, expectedVersion int64) (*model.Order, error)

	// GetForSettlement reads an order inside the transaction and locks
	// its row, serializing settlements per order.
	GetForSettlement(ctx context.Context, tx pgx.Tx, id string) (*model.Order, error)

	// RecordSettlement marks the order settled and stores the
	// settlement result, within the provided transaction.
	RecordSettlement(ctx context.Context, tx pgx.Tx, id string, result *model.SettlementResult) error

	// IDsForYear lists existing order identifiers for a year, feeding
	// the identifier allocator.
	IDsForYear(ctx context.Context, year int) ([]string, error)
}

// CertificateRepository defines the interface for gift certificate data
// access operations.
type CertificateRepository interface {
	// Create inserts a newly issued certificate.
	Create(ctx context.Context, cert *model.GiftCertificate) error

	// GetByCode retrieves a certificate by its case-insensitive code.
	GetByCode(ctx context.Context, code string) (*model.GiftCertificate, error)

	// Decrement atomically reduces a certificate's balance by amount,
	// clamped at zero, within the provided transaction. It returns the
	// balance before and after the decrement.
	Decrement(ctx context.Context, tx pgx.Tx, code string, amount decimal.Decimal) (before, after decimal.Decimal, err error)

	// ListCodes lists all certificate codes, feeding the identifier
	// allocator's collision check.
	ListCodes(ctx context.Context) ([]string, error)
}

// storeErr wraps a storage failure as a transient, caller-retryable
// error. The original error text is preserved for the logs.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", model.ErrStoreUnavailable, op, err)
}
