package certificate

import (
	"context"
	"strings"

	"shopledger/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// allocator implements Allocator on top of a Validator. It only computes
// amounts; nothing durable happens until settlement.
type allocator struct {
	validator Validator
	logger    zerolog.Logger
}

// NewAllocator creates a redemption allocator.
func NewAllocator(v Validator, logger zerolog.Logger) Allocator {
	return &allocator{
		validator: v,
		logger:    logger.With().Str("component", "redemption-allocator").Logger(),
	}
}

// Allocate walks the codes in the order supplied, applying
// min(available balance, remaining order total) for each valid code.
func (a *allocator) Allocate(ctx context.Context, orderTotal decimal.Decimal, codes []string) (*model.AllocationResult, error) {
	result := &model.AllocationResult{
		Allocations: []model.Allocation{},
		Remaining:   orderTotal,
	}
	if result.Remaining.IsNegative() {
		result.Remaining = decimal.Zero
	}

	seen := make(map[string]struct{}, len(codes))

	for _, raw := range codes {
		key := strings.ToUpper(strings.TrimSpace(raw))

		if _, dup := seen[key]; dup {
			result.Errors = append(result.Errors, model.AllocationError{
				Code:   key,
				Reason: model.ReasonDuplicateCode,
			})
			continue
		}
		seen[key] = struct{}{}

		if result.Remaining.IsZero() {
			result.Errors = append(result.Errors, model.AllocationError{
				Code:   key,
				Reason: model.ReasonOrderFullyCovered,
			})
			continue
		}

		check, err := a.validator.Validate(ctx, raw, result.Remaining)
		if err != nil {
			return nil, err
		}
		if !check.Valid {
			a.logger.Debug().
				Str("code", check.Code).
				Str("reason", check.Reason).
				Msg("certificate code rejected")
			result.Errors = append(result.Errors, model.AllocationError{
				Code:   check.Code,
				Reason: check.Reason,
			})
			continue
		}

		applied := decimal.Min(check.AvailableBalance, result.Remaining)
		result.Allocations = append(result.Allocations, model.Allocation{
			Code:          check.Code,
			AppliedAmount: applied,
		})
		result.Remaining = result.Remaining.Sub(applied)

		a.logger.Debug().
			Str("code", check.Code).
			Str("applied", applied.String()).
			Str("order_remaining", result.Remaining.String()).
			Msg("certificate allocated")
	}

	return result, nil
}
