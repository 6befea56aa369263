package certificate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopledger/internal/model"
	"shopledger/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// settler implements Settler. A settlement runs in one transaction: the
// order row is locked, balances are decremented with a clamped
// conditional update, and the settled flag plus the result are recorded
// before commit. Re-entry after a failed commit is safe because the flag
// only becomes visible together with the decrements.
type settler struct {
	orders repository.OrderRepository
	certs  repository.CertificateRepository
	now    func() time.Time
	logger zerolog.Logger
}

// NewSettler creates a certificate settler.
func NewSettler(orders repository.OrderRepository, certs repository.CertificateRepository, logger zerolog.Logger) Settler {
	return &settler{
		orders: orders,
		certs:  certs,
		now:    time.Now,
		logger: logger.With().Str("component", "certificate-settlement").Logger(),
	}
}

// Settle decrements each applied certificate's balance exactly once.
func (s *settler) Settle(ctx context.Context, orderID string) (result *model.SettlementResult, err error) {
	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Str("order_id", orderID).Msg("failed to rollback settlement transaction")
			}
		}
	}()

	order, err := s.orders.GetForSettlement(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == model.StatusCancelled {
		err = model.ErrOrderCancelled
		return nil, err
	}

	if order.Settled {
		prior := order.Settlement
		if prior == nil {
			// Settled flag without a stored result should not happen;
			// synthesize an empty one rather than decrementing again.
			prior = &model.SettlementResult{OrderID: orderID, SettledAt: order.UpdatedAt}
		}
		replay := *prior
		replay.AlreadySettled = true

		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error().Err(rbErr).Str("order_id", orderID).Msg("failed to release settlement lock")
		}

		s.logger.Info().Str("order_id", orderID).Msg("order already settled, returning prior result")
		return &replay, nil
	}

	result = &model.SettlementResult{
		SettlementID: uuid.NewString(),
		OrderID:      orderID,
		Entries:      make([]model.SettlementEntry, 0, len(order.AppliedCertificates)),
		SettledAt:    s.now().UTC(),
	}

	for _, applied := range order.AppliedCertificates {
		entry, entryErr := s.settleOne(ctx, tx, applied)
		if entryErr != nil {
			err = entryErr
			return nil, err
		}
		if entry.Shortfall {
			result.NeedsReconciliation = true
		}
		result.Entries = append(result.Entries, entry)
	}

	if err = s.orders.RecordSettlement(ctx, tx, orderID, result); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		err = fmt.Errorf("%w: commit settlement: %v", model.ErrStoreUnavailable, err)
		return nil, err
	}

	s.logger.Info().
		Str("order_id", orderID).
		Str("settlement_id", result.SettlementID).
		Int("certificates", len(result.Entries)).
		Bool("needs_reconciliation", result.NeedsReconciliation).
		Msg("order settled")

	return result, nil
}

// settleOne decrements one certificate and classifies the outcome. An
// insufficient balance is recoverable: the certificate is drained for
// what it has and the shortfall is flagged, so one shifted balance never
// blocks order completion.
func (s *settler) settleOne(ctx context.Context, tx pgx.Tx, applied model.AppliedCertificate) (model.SettlementEntry, error) {
	before, after, err := s.certs.Decrement(ctx, tx, applied.Code, applied.AppliedAmount)
	if err != nil {
		if errors.Is(err, model.ErrCertificateNotFound) {
			// The certificate vanished between allocation and
			// settlement. Flag it instead of failing the order.
			s.logger.Warn().
				Str("code", applied.Code).
				Str("requested", applied.AppliedAmount.String()).
				Msg("certificate missing at settlement, flagged for reconciliation")
			return model.SettlementEntry{
				Code:      applied.Code,
				Requested: applied.AppliedAmount,
				Applied:   decimal.Zero,
				Shortfall: true,
			}, nil
		}
		return model.SettlementEntry{}, err
	}

	consumed := before.Sub(after)
	entry := model.SettlementEntry{
		Code:             applied.Code,
		Requested:        applied.AppliedAmount,
		Applied:          consumed,
		RemainingBalance: after,
		Shortfall:        consumed.LessThan(applied.AppliedAmount),
	}

	if entry.Shortfall {
		s.logger.Warn().
			Str("code", applied.Code).
			Str("requested", applied.AppliedAmount.String()).
			Str("applied", consumed.String()).
			Msg("insufficient balance at settlement, flagged for reconciliation")
	}

	return entry, nil
}
