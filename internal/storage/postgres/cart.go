package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/pricing"
)

const (
	getCartSQL = `SELECT id, guest_user_id, status, total_price, created_at
		FROM cart WHERE id = $1`

	getActiveCartSQL = `SELECT id, guest_user_id, status, total_price, created_at
		FROM cart WHERE guest_user_id = $1 AND status = 'active'
		ORDER BY id DESC LIMIT 1`

	lockCartSQL = `SELECT id, status FROM cart WHERE id = $1 FOR UPDATE`

	lockActiveCartSQL = `SELECT id FROM cart
		WHERE guest_user_id = $1 AND status = 'active'
		ORDER BY id DESC LIMIT 1 FOR UPDATE`

	createCartSQL = `INSERT INTO cart (guest_user_id, total_price, status)
		VALUES ($1, 0, 'active') RETURNING id`

	upsertItemSQL = `INSERT INTO cart_items
		(cart_id, product_id, size_label, quantity, price_per_unit, total_price, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cart_id, product_id, size_label) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity,
		    total_price = cart_items.total_price + EXCLUDED.total_price
		RETURNING id, cart_id, product_id, size_label, quantity, price_per_unit, total_price, notes`

	deleteItemSQL = `DELETE FROM cart_items
		WHERE cart_id = $1 AND product_id = $2 AND size_label = $3`

	updateItemQuantitySQL = `UPDATE cart_items
		SET quantity = $4, total_price = price_per_unit * $4
		WHERE cart_id = $1 AND product_id = $2 AND size_label = $3
		RETURNING id, cart_id, product_id, size_label, quantity, price_per_unit, total_price, notes`

	countItemsSQL = `SELECT COUNT(*) FROM cart_items WHERE cart_id = $1`

	// The cart total is always overwritten with the aggregate of its items,
	// never incremented in place, so it cannot drift.
	recomputeCartTotalSQL = `UPDATE cart
		SET total_price = (SELECT COALESCE(SUM(total_price), 0) FROM cart_items WHERE cart_id = $1)
		WHERE id = $1`

	deleteCartSQL = `DELETE FROM cart WHERE id = $1`

	listItemsSQL = `SELECT ci.id, ci.cart_id, ci.product_id, ci.size_label,
			ci.quantity, ci.price_per_unit, ci.total_price, ci.notes,
			p.name, p.image_url, p.category_name
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// FindActiveByShopper returns the shopper's active cart, or cart.ErrNotFound.
func (r *CartRepository) FindActiveByShopper(ctx context.Context, shopperID string) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, getActiveCartSQL, shopperID)
	if err != nil {
		return nil, errors.Wrap(err, "find active cart")
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrap(err, "find active cart")
	}
	return &c, nil
}

// GetByID returns a cart by id, or cart.ErrNotFound.
func (r *CartRepository) GetByID(ctx context.Context, id int64) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, getCartSQL, id)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrap(err, "get cart")
	}
	return &c, nil
}

// UpsertItem resolves the shopper's active cart (validating a supplied id,
// else find-or-create), inserts or increments the (product, size) line, and
// recomputes the cart total. One transaction, cart row locked.
func (r *CartRepository) UpsertItem(ctx context.Context, p cart.AddItemParams) (*cart.AddItemResult, error) {
	var res cart.AddItemResult
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		cartID, err := resolveActiveCart(ctx, tx, p.ShopperID, p.CartID)
		if err != nil {
			return err
		}

		lineTotal := pricing.LineTotal(p.PricePerUnit, p.Quantity)
		rows, err := tx.Query(ctx, upsertItemSQL,
			cartID, p.ProductID, p.SizeLabel, p.Quantity, p.PricePerUnit, lineTotal, p.Notes,
		)
		if err != nil {
			return errors.Wrap(err, "upsert cart item")
		}
		item, err := pgx.CollectExactlyOneRow(rows, scanItem)
		if err != nil {
			return errors.Wrap(err, "upsert cart item")
		}

		if _, err := tx.Exec(ctx, recomputeCartTotalSQL, cartID); err != nil {
			return errors.Wrap(err, "recompute cart total")
		}

		res.CartID = cartID
		res.Item = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// resolveActiveCart locks and returns the cart the mutation should target.
// A supplied cart id is used only while still active; otherwise the shopper's
// active cart is locked, or a fresh one created.
func resolveActiveCart(ctx context.Context, tx pgx.Tx, shopperID string, cartID int64) (int64, error) {
	if cartID != 0 {
		var id int64
		var status string
		err := tx.QueryRow(ctx, lockCartSQL, cartID).Scan(&id, &status)
		switch {
		case err == nil && status == string(cart.StatusActive):
			return id, nil
		case err != nil && !errors.Is(err, pgx.ErrNoRows):
			return 0, errors.Wrap(err, "lock cart")
		}
		// Stale or unknown id: fall through to find-or-create.
	}

	var id int64
	err := tx.QueryRow(ctx, lockActiveCartSQL, shopperID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, errors.Wrap(err, "lock active cart")
	}

	if err := tx.QueryRow(ctx, createCartSQL, shopperID).Scan(&id); err != nil {
		return 0, errors.Wrap(err, "create cart")
	}
	return id, nil
}

// DeleteItem removes the matching item and recomputes the cart total. When a
// previously non-empty cart ends up empty, the cart row itself is deleted and
// the result reports it. Deleting from a nonexistent cart or a nonexistent
// item is a successful no-op.
func (r *CartRepository) DeleteItem(ctx context.Context, cartID, productID int64, sizeLabel string) (*cart.RemoveItemResult, error) {
	var res cart.RemoveItemResult
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var id int64
		var status string
		err := tx.QueryRow(ctx, lockCartSQL, cartID).Scan(&id, &status)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "lock cart")
		}

		var before int
		if err := tx.QueryRow(ctx, countItemsSQL, cartID).Scan(&before); err != nil {
			return errors.Wrap(err, "count items")
		}

		if _, err := tx.Exec(ctx, deleteItemSQL, cartID, productID, sizeLabel); err != nil {
			return errors.Wrap(err, "delete cart item")
		}

		var after int
		if err := tx.QueryRow(ctx, countItemsSQL, cartID).Scan(&after); err != nil {
			return errors.Wrap(err, "count items")
		}

		if before > 0 && after == 0 {
			if _, err := tx.Exec(ctx, deleteCartSQL, cartID); err != nil {
				return errors.Wrap(err, "delete cart")
			}
			res.CartDeleted = true
			return nil
		}

		_, err = tx.Exec(ctx, recomputeCartTotalSQL, cartID)
		return errors.Wrap(err, "recompute cart total")
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateItemQuantity sets the quantity, recomputes the line total from the
// stored unit price, and recomputes the cart total. Returns
// cart.ErrItemNotFound when the (cart, product, size) triple does not exist.
func (r *CartRepository) UpdateItemQuantity(ctx context.Context, cartID, productID int64, sizeLabel string, quantity int) (*cart.Item, error) {
	var item cart.Item
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var id int64
		var status string
		err := tx.QueryRow(ctx, lockCartSQL, cartID).Scan(&id, &status)
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.ErrNotFound
		}
		if err != nil {
			return errors.Wrap(err, "lock cart")
		}

		rows, err := tx.Query(ctx, updateItemQuantitySQL, cartID, productID, sizeLabel, quantity)
		if err != nil {
			return errors.Wrap(err, "update item quantity")
		}
		item, err = pgx.CollectExactlyOneRow(rows, scanItem)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return cart.ErrItemNotFound
			}
			return errors.Wrap(err, "update item quantity")
		}

		_, err = tx.Exec(ctx, recomputeCartTotalSQL, cartID)
		return errors.Wrap(err, "recompute cart total")
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems returns the cart's items joined with current catalog display
// fields (name, image, category). The join is for display only.
func (r *CartRepository) ListItems(ctx context.Context, cartID int64) ([]cart.ItemView, error) {
	rows, err := r.pool.Query(ctx, listItemsSQL, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}
	return pgx.CollectRows(rows, scanItemView)
}

func scanCart(row pgx.CollectableRow) (cart.Cart, error) {
	var c cart.Cart
	err := row.Scan(&c.ID, &c.ShopperID, &c.Status, &c.TotalPrice, &c.CreatedAt)
	return c, err
}

func scanItem(row pgx.CollectableRow) (cart.Item, error) {
	var it cart.Item
	err := row.Scan(
		&it.ID, &it.CartID, &it.ProductID, &it.SizeLabel,
		&it.Quantity, &it.PricePerUnit, &it.TotalPrice, &it.Notes,
	)
	return it, err
}

func scanItemView(row pgx.CollectableRow) (cart.ItemView, error) {
	var v cart.ItemView
	err := row.Scan(
		&v.ID, &v.CartID, &v.ProductID, &v.SizeLabel,
		&v.Quantity, &v.PricePerUnit, &v.TotalPrice, &v.Notes,
		&v.ProductName, &v.ProductImage, &v.CategoryName,
	)
	return v, err
}
