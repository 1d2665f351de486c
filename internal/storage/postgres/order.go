package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/order"
	"github.com/xenking/storefront-checkout/internal/pricing"
)

const (
	orderColumns = `id, cart_id, guest_user_id, status, payment_method, delivery_method,
		customer_name, customer_mobile, shipping_amount, tax_amount,
		subtotal_before_promo, subtotal_after_promo, total_price,
		promocode_id, address, notes, created_at`

	// Locks the cart row for the duration of the checkout so two concurrent
	// attempts serialize; the active check happens under the lock.
	lockCartForCheckoutSQL = `SELECT guest_user_id, status FROM cart WHERE id = $1 FOR UPDATE`

	checkoutItemsSQL = `SELECT ci.product_id, p.name, ci.size_label, ci.quantity,
			ci.price_per_unit, ci.total_price
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`

	promoPercentSQL = `SELECT discount_amount FROM promocode WHERE id = $1`

	lockUsageSQL = `SELECT status FROM user_promocode
		WHERE guest_user_id = $1 AND promocode_id = $2 FOR UPDATE`

	insertOrderSQL = `INSERT INTO orders (cart_id, guest_user_id, status,
			payment_method, delivery_method, customer_name, customer_mobile,
			shipping_amount, tax_amount, subtotal_before_promo,
			subtotal_after_promo, total_price, promocode_id, address, notes)
		VALUES ($1, $2, 'pending', $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`

	insertOrderItemSQL = `INSERT INTO order_items
		(order_id, product_id, product_name, size_label, quantity, price_per_unit, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	clearCartItemsSQL = `DELETE FROM cart_items WHERE cart_id = $1`

	retireCartSQL = `UPDATE cart SET status = 'checked_out', total_price = 0 WHERE id = $1`

	consumeUsageSQL = `UPDATE user_promocode SET status = 'used', used_at = NOW()
		WHERE guest_user_id = $1 AND promocode_id = $2`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1
		RETURNING ` + orderColumns

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`

	listOrdersByShopperSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE guest_user_id = $1 ORDER BY created_at DESC`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrderItemsSQL = `SELECT id, order_id, product_id, product_name, size_label,
			quantity, price_per_unit, total_price
		FROM order_items WHERE order_id = $1 ORDER BY id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Checkout finalizes the cart into an order inside one transaction:
//
//  1. Lock the cart row and re-check it is still active under the lock.
//  2. Read the items joined with product names for the snapshot.
//  3. Validate the promo usage record, locked, when a promo id is supplied.
//  4. Recompute the subtotal from the items, ignoring the cart's cached total.
//  5. Insert the order and one snapshot row per item.
//  6. Delete the cart items, retire the cart, consume the promo usage.
//
// Any failure rolls the whole sequence back.
func (r *OrderRepository) Checkout(ctx context.Context, req order.CheckoutRequest) (*order.Order, error) {
	var o order.Order
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var shopperID, status string
		err := tx.QueryRow(ctx, lockCartForCheckoutSQL, req.CartID).Scan(&shopperID, &status)
		if errors.Is(err, pgx.ErrNoRows) {
			return order.ErrCartNotFound
		}
		if err != nil {
			return errors.Wrap(err, "lock cart")
		}
		if status != string(cart.StatusActive) {
			return order.ErrCartNotFound
		}

		items, err := checkoutItems(ctx, tx, req.CartID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return order.ErrEmptyCart
		}

		percent := decimal.Zero
		if req.PromoCodeID != nil {
			percent, err = validatePromo(ctx, tx, shopperID, *req.PromoCodeID)
			if err != nil {
				return err
			}
		}

		lineTotals := make([]decimal.Decimal, len(items))
		for i, it := range items {
			lineTotals[i] = it.TotalPrice
		}
		subtotalBefore := pricing.Subtotal(lineTotals)
		discount := decimal.Zero
		if req.PromoCodeID != nil {
			discount = pricing.PercentDiscount(subtotalBefore, percent)
		}
		subtotalAfter := pricing.ApplyDiscount(subtotalBefore, discount)
		total := subtotalAfter.Add(req.ShippingAmount).Add(req.TaxAmount)

		o = order.Order{
			CartID:              req.CartID,
			ShopperID:           shopperID,
			Status:              order.StatusPending,
			PaymentMethod:       req.PaymentMethod,
			DeliveryMethod:      req.DeliveryMethod,
			CustomerName:        req.CustomerName,
			CustomerMobile:      req.CustomerMobile,
			ShippingAmount:      req.ShippingAmount,
			TaxAmount:           req.TaxAmount,
			SubtotalBeforePromo: subtotalBefore,
			SubtotalAfterPromo:  subtotalAfter,
			TotalPrice:          total,
			PromoCodeID:         req.PromoCodeID,
			Address:             req.Address,
			Notes:               req.Notes,
		}
		err = tx.QueryRow(ctx, insertOrderSQL,
			o.CartID, o.ShopperID, o.PaymentMethod, o.DeliveryMethod,
			o.CustomerName, o.CustomerMobile, o.ShippingAmount, o.TaxAmount,
			o.SubtotalBeforePromo, o.SubtotalAfterPromo, o.TotalPrice,
			o.PromoCodeID, o.Address, o.Notes,
		).Scan(&o.ID, &o.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "insert order")
		}

		batch := &pgx.Batch{}
		for _, it := range items {
			batch.Queue(insertOrderItemSQL,
				o.ID, it.ProductID, it.ProductName, it.SizeLabel,
				it.Quantity, it.PricePerUnit, it.TotalPrice,
			)
		}
		batch.Queue(clearCartItemsSQL, req.CartID)
		batch.Queue(retireCartSQL, req.CartID)
		if req.PromoCodeID != nil {
			batch.Queue(consumeUsageSQL, shopperID, *req.PromoCodeID)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "finalize checkout")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// checkoutItems reads the cart items with product names for snapshotting.
func checkoutItems(ctx context.Context, tx pgx.Tx, cartID int64) ([]order.Item, error) {
	rows, err := tx.Query(ctx, checkoutItemsSQL, cartID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart items")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.ProductID, &it.ProductName, &it.SizeLabel,
			&it.Quantity, &it.PricePerUnit, &it.TotalPrice)
		return it, err
	})
}

// validatePromo checks the promo exists and the shopper holds a usage record
// for it that is not already used, returning the discount percentage. The
// usage row is locked so a concurrent checkout cannot consume it twice.
func validatePromo(ctx context.Context, tx pgx.Tx, shopperID string, promoID int64) (decimal.Decimal, error) {
	var percent decimal.Decimal
	err := tx.QueryRow(ctx, promoPercentSQL, promoID).Scan(&percent)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, order.ErrPromoNotFound
	}
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "load promo")
	}

	var usageStatus string
	err = tx.QueryRow(ctx, lockUsageSQL, shopperID, promoID).Scan(&usageStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, order.ErrPromoNotUsable
	}
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "load promo usage")
	}
	if usageStatus == "used" {
		return decimal.Zero, order.ErrPromoNotUsable
	}
	return percent, nil
}

// UpdateStatus overwrites the fulfillment status, or order.ErrNotFound.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status order.Status) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, updateOrderStatusSQL, id, status)
	if err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "update order status")
	}
	return &o, nil
}

// List returns all orders, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListByShopper returns the shopper's orders, newest first.
func (r *OrderRepository) ListByShopper(ctx context.Context, shopperID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByShopperSQL, shopperID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders by shopper")
	}
	return pgx.CollectRows(rows, scanOrder)
}

// GetByID returns an order by id, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return &o, nil
}

// ListItems returns the order's snapshot items.
func (r *OrderRepository) ListItems(ctx context.Context, orderID int64) ([]order.Item, error) {
	rows, err := r.pool.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "list order items")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.SizeLabel, &it.Quantity, &it.PricePerUnit, &it.TotalPrice)
		return it, err
	})
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.CartID, &o.ShopperID, &o.Status, &o.PaymentMethod, &o.DeliveryMethod,
		&o.CustomerName, &o.CustomerMobile, &o.ShippingAmount, &o.TaxAmount,
		&o.SubtotalBeforePromo, &o.SubtotalAfterPromo, &o.TotalPrice,
		&o.PromoCodeID, &o.Address, &o.Notes, &o.CreatedAt,
	)
	return o, err
}
