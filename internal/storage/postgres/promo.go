package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/promo"
)

const (
	promoColumns = `id, code, discount_amount, status, end_date, created_at`

	createPromoSQL = `INSERT INTO promocode (code, discount_amount, end_date)
		VALUES ($1, $2, $3)
		RETURNING ` + promoColumns

	listPromosSQL = `SELECT ` + promoColumns + ` FROM promocode ORDER BY id DESC`

	getPromoSQL = `SELECT ` + promoColumns + ` FROM promocode WHERE id = $1`

	findPromoByCodeSQL = `SELECT ` + promoColumns + ` FROM promocode WHERE code = $1`

	updatePromoSQL = `UPDATE promocode
		SET end_date = $2, status = $3, discount_amount = $4
		WHERE id = $1
		RETURNING ` + promoColumns

	setPromoStatusSQL = `UPDATE promocode SET status = $2 WHERE id = $1
		RETURNING ` + promoColumns

	deletePromoSQL = `DELETE FROM promocode WHERE id = $1
		RETURNING ` + promoColumns

	// Only still-active rows are flipped, so a concurrent admin override wins.
	markExpiredSQL = `UPDATE promocode SET status = 'expired'
		WHERE id = $1 AND status = 'active'`

	hasUsedSQL = `SELECT EXISTS (
		SELECT 1 FROM user_promocode
		WHERE guest_user_id = $1 AND promocode_id = $2 AND status = 'used')`

	deletePendingSQL = `DELETE FROM user_promocode
		WHERE guest_user_id = $1 AND status = 'pending'`

	upsertPendingSQL = `INSERT INTO user_promocode (guest_user_id, promocode_id, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (guest_user_id, promocode_id)
		DO UPDATE SET status = 'pending', used_at = NULL`
)

var _ promo.Repository = (*PromoRepository)(nil)

// PromoRepository implements promo.Repository backed by PostgreSQL.
type PromoRepository struct {
	pool *pgxpool.Pool
}

// NewPromoRepository returns a PromoRepository that uses the given pool.
func NewPromoRepository(pool *pgxpool.Pool) *PromoRepository {
	return &PromoRepository{pool: pool}
}

// Create inserts a new code definition with status active.
func (r *PromoRepository) Create(ctx context.Context, code string, percent decimal.Decimal, endDate *time.Time) (*promo.Code, error) {
	rows, err := r.pool.Query(ctx, createPromoSQL, code, percent, endDate)
	if err != nil {
		return nil, errors.Wrap(err, "create promo code")
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanPromo)
	if err != nil {
		return nil, errors.Wrap(err, "create promo code")
	}
	return &c, nil
}

// List returns all code definitions, newest first.
func (r *PromoRepository) List(ctx context.Context) ([]promo.Code, error) {
	rows, err := r.pool.Query(ctx, listPromosSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list promo codes")
	}
	return pgx.CollectRows(rows, scanPromo)
}

// GetByID returns a code by id, or promo.ErrNotFound.
func (r *PromoRepository) GetByID(ctx context.Context, id int64) (*promo.Code, error) {
	return r.one(ctx, getPromoSQL, id)
}

// FindByCode returns the code with the given text regardless of status, or
// promo.ErrNotFound. Status-specific failures are the engine's concern.
func (r *PromoRepository) FindByCode(ctx context.Context, code string) (*promo.Code, error) {
	return r.one(ctx, findPromoByCodeSQL, code)
}

// Update overwrites end date, status, and percentage; nil params keep the
// current value.
func (r *PromoRepository) Update(ctx context.Context, id int64, p promo.UpdateParams) (*promo.Code, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	endDate := current.EndDate
	if p.EndDate != nil {
		endDate = p.EndDate
	}
	if p.ClearEndDate {
		endDate = nil
	}
	status := current.Status
	if p.Status != nil {
		status = *p.Status
	}
	percent := current.DiscountPercent
	if p.DiscountPercent != nil {
		percent = *p.DiscountPercent
	}

	return r.one(ctx, updatePromoSQL, id, endDate, status, percent)
}

// SetStatus overwrites the status, or promo.ErrNotFound.
func (r *PromoRepository) SetStatus(ctx context.Context, id int64, status promo.Status) (*promo.Code, error) {
	return r.one(ctx, setPromoStatusSQL, id, status)
}

// Delete removes the code definition, returning the deleted row.
func (r *PromoRepository) Delete(ctx context.Context, id int64) (*promo.Code, error) {
	return r.one(ctx, deletePromoSQL, id)
}

// MarkExpired persists the lazy active -> expired transition.
func (r *PromoRepository) MarkExpired(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, markExpiredSQL, id)
	return errors.Wrap(err, "mark promo expired")
}

// HasUsed reports whether the shopper holds a used record for the code.
func (r *PromoRepository) HasUsed(ctx context.Context, shopperID string, codeID int64) (bool, error) {
	var used bool
	if err := r.pool.QueryRow(ctx, hasUsedSQL, shopperID, codeID).Scan(&used); err != nil {
		return false, errors.Wrap(err, "check promo usage")
	}
	return used, nil
}

// ReplacePending deletes any other pending usage for the shopper and upserts
// the new one, atomically, so at most one pending record exists per shopper.
func (r *PromoRepository) ReplacePending(ctx context.Context, shopperID string, codeID int64) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deletePendingSQL, shopperID); err != nil {
			return errors.Wrap(err, "delete pending usage")
		}
		if _, err := tx.Exec(ctx, upsertPendingSQL, shopperID, codeID); err != nil {
			return errors.Wrap(err, "upsert pending usage")
		}
		return nil
	})
}

// DeletePending removes the shopper's pending usage record, if any.
func (r *PromoRepository) DeletePending(ctx context.Context, shopperID string) error {
	_, err := r.pool.Exec(ctx, deletePendingSQL, shopperID)
	return errors.Wrap(err, "delete pending usage")
}

func (r *PromoRepository) one(ctx context.Context, sql string, args ...any) (*promo.Code, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query promo code")
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanPromo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, errors.Wrap(err, "query promo code")
	}
	return &c, nil
}

func scanPromo(row pgx.CollectableRow) (promo.Code, error) {
	var c promo.Code
	err := row.Scan(&c.ID, &c.Code, &c.DiscountPercent, &c.Status, &c.EndDate, &c.CreatedAt)
	return c, err
}
