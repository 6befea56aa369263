// Package certificate holds the gift-certificate ledger logic:
// validation, redemption allocation, and settlement.
package certificate

import (
	"context"

	"shopledger/internal/model"

	"github.com/shopspring/decimal"
)

// Validator checks whether a certificate code can be redeemed.
type Validator interface {
	// Validate checks a code and reports its available balance. It is
	// a pure read: calling it any number of times alters no balance
	// and places no hold. The requested amount is informational only.
	// Business-rule failures come back in the result, never as an
	// error; errors are reserved for store trouble.
	Validate(ctx context.Context, code string, requested decimal.Decimal) (*model.ValidationResult, error)
}

// Allocator computes how much of each certificate in a batch to apply
// against an order total.
type Allocator interface {
	// Allocate processes codes in the order supplied, so the first
	// code has priority on scarce order balance. Invalid codes are
	// recorded and skipped; the batch never aborts on one bad code.
	Allocate(ctx context.Context, orderTotal decimal.Decimal, codes []string) (*model.AllocationResult, error)
}

// Settler makes an order's allocations durable by decrementing the
// referenced certificate balances, exactly once per order.
type Settler interface {
	// Settle decrements each applied certificate's balance. Settling
	// an already-settled order is a no-op that returns the prior
	// result. A certificate that can no longer cover its allocation
	// is settled for what it has and flagged for reconciliation; it
	// does not block the order.
	Settle(ctx context.Context, orderID string) (*model.SettlementResult, error)
}
