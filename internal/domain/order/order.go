// Package order holds the checkout orchestration: the one-way, atomic
// conversion of an active cart into an immutable order.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the post-checkout fulfillment state, independent of cart status.
// There is no enforced ordering between non-terminal states; cancelled and
// failed are terminal by convention only.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusShipped   Status = "shipped"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// ValidStatus reports whether s belongs to the fulfillment vocabulary.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusShipped,
		StatusReady, StatusDelivered, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

var (
	// ErrCartNotFound is returned when the cart does not exist or is not
	// active. Checkout is not idempotent: a second attempt on a checked-out
	// cart fails with this error.
	ErrCartNotFound = errors.New("cart not found or already checked out")
	// ErrEmptyCart is returned when the cart has no items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrPromoNotFound is returned when the supplied promo id does not exist.
	ErrPromoNotFound = errors.New("promo code not found")
	// ErrPromoNotUsable is returned when the shopper holds no usage record for
	// the promo or the record is already used.
	ErrPromoNotUsable = errors.New("promo code is not valid or already used")
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidStatus is returned for a status outside the vocabulary.
	ErrInvalidStatus = errors.New("invalid status value")
	// ErrMissingCart is returned when no cart id is supplied.
	ErrMissingCart = errors.New("cart id is required")
)

// Order is the immutable artifact of a completed checkout. Its totals are
// computed from the cart items at checkout time and never recomputed again.
type Order struct {
	ID                  int64
	CartID              int64
	ShopperID           string
	Status              Status
	PaymentMethod       string
	DeliveryMethod      string
	CustomerName        string
	CustomerMobile      string
	ShippingAmount      decimal.Decimal
	TaxAmount           decimal.Decimal
	SubtotalBeforePromo decimal.Decimal
	SubtotalAfterPromo  decimal.Decimal
	TotalPrice          decimal.Decimal
	PromoCodeID         *int64
	Address             string
	Notes               string
	CreatedAt           time.Time
}

// Item is a frozen snapshot of a cart item at checkout time. Product name and
// price are copied, not referenced, so later catalog edits do not alter
// historical orders.
type Item struct {
	ID           int64
	OrderID      int64
	ProductID    int64
	ProductName  string
	SizeLabel    string
	Quantity     int
	PricePerUnit decimal.Decimal
	TotalPrice   decimal.Decimal
}

// CheckoutRequest holds the checkout input. Monetary totals are recomputed
// from the cart items server-side; only shipping and tax come from the caller.
type CheckoutRequest struct {
	CartID         int64
	DeliveryMethod string
	PaymentMethod  string
	CustomerName   string
	CustomerMobile string
	ShippingAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Notes          string
	PromoCodeID    *int64
	Address        string
}

// Details is an order together with its snapshot items.
type Details struct {
	Order *Order
	Items []Item
}

// Repository defines persistence for orders. Checkout executes the entire
// finalize sequence (lock cart, re-check active, snapshot items, compute
// totals, retire cart, consume promo) as one transaction: on any failure no
// partial order, snapshot, or promo-consumption state is observable.
type Repository interface {
	Checkout(ctx context.Context, req CheckoutRequest) (*Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	ListByShopper(ctx context.Context, shopperID string) ([]Order, error)
	GetByID(ctx context.Context, id int64) (*Order, error)
	ListItems(ctx context.Context, orderID int64) ([]Item, error)
}
