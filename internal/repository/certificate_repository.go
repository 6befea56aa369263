package repository

import (
	"context"
	"errors"
	"strings"

	"shopledger/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// certificateRepository implements CertificateRepository using PostgreSQL.
type certificateRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCertificateRepository creates a new PostgreSQL-backed certificate
// repository.
func NewCertificateRepository(pool *pgxpool.Pool, logger zerolog.Logger) CertificateRepository {
	return &certificateRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "certificate").Logger(),
	}
}

// Create inserts a newly issued certificate with its full balance.
func (r *certificateRepository) Create(ctx context.Context, cert *model.GiftCertificate) error {
	query := `
		INSERT INTO gift_certificates
			(code, initial_value, remaining_balance, recipient_name,
			 recipient_email, sender_name, message, date_issued, date_expires)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		cert.Code,
		cert.InitialValue,
		cert.RemainingBalance,
		cert.RecipientName,
		cert.RecipientEmail,
		cert.SenderName,
		cert.Message,
		cert.DateIssued,
		cert.DateExpires,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("code", cert.Code).Msg("failed to create certificate")
		return storeErr("create certificate", err)
	}

	r.logger.Debug().Str("code", cert.Code).Msg("certificate created")
	return nil
}

// GetByCode retrieves a certificate by its code, case-insensitively.
func (r *certificateRepository) GetByCode(ctx context.Context, code string) (*model.GiftCertificate, error) {
	query := `
		SELECT code, initial_value, remaining_balance, recipient_name,
		       recipient_email, sender_name, message, date_issued, date_expires
		FROM gift_certificates
		WHERE lower(code) = lower($1)
	`

	var cert model.GiftCertificate
	err := r.pool.QueryRow(ctx, query, strings.TrimSpace(code)).Scan(
		&cert.Code,
		&cert.InitialValue,
		&cert.RemainingBalance,
		&cert.RecipientName,
		&cert.RecipientEmail,
		&cert.SenderName,
		&cert.Message,
		&cert.DateIssued,
		&cert.DateExpires,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrCertificateNotFound
		}
		r.logger.Error().Err(err).Str("code", code).Msg("failed to query certificate")
		return nil, storeErr("query certificate", err)
	}

	return &cert, nil
}

// Decrement reduces the balance by amount, clamped at zero, as one
// conditional statement. The row lock taken by the CTE makes concurrent
// settlements against the same certificate serialize instead of both
// reading the same balance.
func (r *certificateRepository) Decrement(ctx context.Context, tx pgx.Tx, code string, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	query := `
		WITH current AS (
			SELECT code, remaining_balance
			FROM gift_certificates
			WHERE lower(code) = lower($1)
			FOR UPDATE
		)
		UPDATE gift_certificates g
		SET remaining_balance = GREATEST(current.remaining_balance - $2, 0)
		FROM current
		WHERE g.code = current.code
		RETURNING current.remaining_balance, g.remaining_balance
	`

	var before, after decimal.Decimal
	err := tx.QueryRow(ctx, query, code, amount).Scan(&before, &after)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, decimal.Zero, model.ErrCertificateNotFound
		}
		r.logger.Error().Err(err).Str("code", code).Msg("failed to decrement certificate balance")
		return decimal.Zero, decimal.Zero, storeErr("decrement certificate", err)
	}

	r.logger.Debug().
		Str("code", code).
		Str("amount", amount.String()).
		Str("balance_before", before.String()).
		Str("balance_after", after.String()).
		Msg("certificate balance decremented")

	return before, after, nil
}

// ListCodes lists every certificate code.
func (r *certificateRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT code FROM gift_certificates`)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query certificate codes")
		return nil, storeErr("query certificate codes", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, storeErr("scan certificate code", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate certificate codes", err)
	}

	return codes, nil
}
