package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"shopledger/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements OrderRepository using PostgreSQL. Orders are
// stored as JSONB documents so that a partial update is a single atomic
// `doc || patch` inside the store, never a read-modify-write of the whole
// document in application code.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, storeErr("begin transaction", err)
	}
	return tx, nil
}

// Create inserts a new order document.
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	doc, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order document: %w", err)
	}

	query := `
		INSERT INTO orders (id, doc)
		VALUES ($1, $2)
		RETURNING version, created_at, updated_at
	`

	err = r.pool.QueryRow(ctx, query, order.ID, doc).
		Scan(&order.Version, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to create order")
		return storeErr("create order", err)
	}

	r.logger.Debug().Str("order_id", order.ID).Msg("order created")
	return nil
}

// GetByID retrieves an order by its identifier.
func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	query := `
		SELECT doc, version, created_at, updated_at
		FROM orders
		WHERE id = $1
	`
	return r.scanOrder(r.pool.QueryRow(ctx, query, id), id)
}

// Merge applies a partial update as a single atomic JSONB merge. The
// WHERE clause rejects patches that touch frozen fields on a terminal
// order, so the guard and the write cannot race.
func (r *orderRepository) Merge(ctx context.Context, id string, patch *model.OrderPatch) (*model.Order, error) {
	patchDoc, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order patch: %w", err)
	}

	query := `
		UPDATE orders
		SET doc = doc || $2::jsonb,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1
		  AND NOT ($3 AND doc->>'status' IN ('Completed', 'Cancelled'))
		RETURNING doc, version, created_at, updated_at
	`

	order, err := r.scanOrder(r.pool.QueryRow(ctx, query, id, patchDoc, patch.TouchesFrozen()), id)
	if errors.Is(err, model.ErrOrderNotFound) {
		// Either the order is missing or the frozen-field guard fired.
		return nil, r.classifyMissingRow(ctx, id, model.ErrConflictingFinalize)
	}
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id).Msg("failed to merge order")
		return nil, err
	}

	r.logger.Debug().
		Str("order_id", id).
		Int64("version", order.Version).
		Msg("order merged")

	return order, nil
}

// Replace rewrites the full document under an optimistic version guard.
func (r *orderRepository) Replace(ctx context.Context, order *model.Order, expectedVersion int64) (*model.Order, error) {
	doc, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order document: %w", err)
	}

	query := `
		UPDATE orders
		SET doc = $2,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1 AND version = $3
		RETURNING doc, version, created_at, updated_at
	`

	updated, err := r.scanOrder(r.pool.QueryRow(ctx, query, order.ID, doc, expectedVersion), order.ID)
	if errors.Is(err, model.ErrOrderNotFound) {
		return nil, r.classifyMissingRow(ctx, order.ID, model.ErrVersionMismatch)
	}
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to replace order")
		return nil, err
	}

	r.logger.Debug().
		Str("order_id", order.ID).
		Int64("version", updated.Version).
		Msg("order replaced")

	return updated, nil
}

// GetForSettlement reads the order inside the transaction with a row
// lock, so concurrent settlements of the same order serialize.
func (r *orderRepository) GetForSettlement(ctx context.Context, tx pgx.Tx, id string) (*model.Order, error) {
	query := `
		SELECT doc, version, created_at, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`
	return r.scanOrder(tx.QueryRow(ctx, query, id), id)
}

// RecordSettlement marks the order settled and stores the result. The
// settled flag and the settlement record land in the same merge, which
// commits together with the balance decrements of the transaction.
func (r *orderRepository) RecordSettlement(ctx context.Context, tx pgx.Tx, id string, result *model.SettlementResult) error {
	patch, err := json.Marshal(map[string]any{
		"settled":    true,
		"settlement": result,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal settlement record: %w", err)
	}

	query := `
		UPDATE orders
		SET doc = doc || $2::jsonb,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, id, patch)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id).Msg("failed to record settlement")
		return storeErr("record settlement", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	return nil
}

// IDsForYear lists order identifiers created in the given year.
func (r *orderRepository) IDsForYear(ctx context.Context, year int) ([]string, error) {
	query := `
		SELECT id
		FROM orders
		WHERE id LIKE 'ORD-' || $1::text || '-%'
	`

	rows, err := r.pool.Query(ctx, query, year)
	if err != nil {
		r.logger.Error().Err(err).Int("year", year).Msg("failed to query order ids")
		return nil, storeErr("query order ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("scan order id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate order ids", err)
	}

	return ids, nil
}

// scanOrder decodes one order row into the model, carrying the column
// metadata alongside the document fields.
func (r *orderRepository) scanOrder(row pgx.Row, id string) (*model.Order, error) {
	var (
		doc   []byte
		order model.Order
	)

	err := row.Scan(&doc, &order.Version, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		r.logger.Error().Err(err).Str("order_id", id).Msg("failed to scan order row")
		return nil, storeErr("scan order", err)
	}

	if err := json.Unmarshal(doc, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order document %s: %w", id, err)
	}

	return &order, nil
}

// classifyMissingRow decides whether a zero-row update meant "no such
// order" or "the guard fired", returning guardErr in the latter case.
func (r *orderRepository) classifyMissingRow(ctx context.Context, id string, guardErr error) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return storeErr("check order existence", err)
	}
	if !exists {
		return model.ErrOrderNotFound
	}
	return guardErr
}
