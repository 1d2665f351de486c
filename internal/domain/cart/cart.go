// Package cart owns the lifecycle of a shopper's active cart and its line
// items. The cart total is a derived cache: every mutation recomputes it from
// the items inside the same transaction, it is never incremented in place.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status enumerates the cart lifecycle states.
type Status string

const (
	// StatusActive marks the shopper's single mutable cart.
	StatusActive Status = "active"
	// StatusCheckedOut marks a cart converted into an order. Terminal.
	StatusCheckedOut Status = "checked_out"
)

var (
	// ErrNotFound is returned when a cart does not exist or the shopper has
	// no active cart.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when a (cart, product, size) item does not exist.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrMissingFields is returned when a required input field is absent.
	ErrMissingFields = errors.New("missing required fields")
	// ErrInvalidQuantity is returned for a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Cart is one shopper's in-progress selection. At most one active cart exists
// per shopper at any time.
type Cart struct {
	ID         int64
	ShopperID  string
	Status     Status
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
}

// Item is one product/size selection within a cart. The (cart, product, size)
// triple is unique; re-adding the same triple increments quantity instead of
// duplicating the row.
type Item struct {
	ID           int64
	CartID       int64
	ProductID    int64
	SizeLabel    string
	Quantity     int
	PricePerUnit decimal.Decimal
	TotalPrice   decimal.Decimal
	Notes        string
}

// ItemView is an Item joined with current catalog display fields. The catalog
// fields are denormalized for display only and never persisted on the item.
type ItemView struct {
	Item
	ProductName  string
	ProductImage string
	CategoryName string
}

// AddItemParams holds the input for AddItem. CartID is optional: zero means
// the shopper's active cart is found or created.
type AddItemParams struct {
	ShopperID    string
	CartID       int64
	ProductID    int64
	SizeLabel    string
	Quantity     int
	PricePerUnit decimal.Decimal
	Notes        string
}

// AddItemResult reports the cart the item landed in, which may be newly created.
type AddItemResult struct {
	CartID int64
	Item   *Item
}

// RemoveItemResult reports whether the removal emptied and deleted the cart.
// When CartDeleted is true the caller should clear any pending promotion for
// the shopper.
type RemoveItemResult struct {
	CartDeleted bool
}

// Repository defines the persistence operations for carts. Every mutating
// method executes as a single atomic unit: the item write and the cart total
// recomputation happen in one transaction with the cart row locked.
type Repository interface {
	FindActiveByShopper(ctx context.Context, shopperID string) (*Cart, error)
	GetByID(ctx context.Context, id int64) (*Cart, error)
	UpsertItem(ctx context.Context, p AddItemParams) (*AddItemResult, error)
	DeleteItem(ctx context.Context, cartID, productID int64, sizeLabel string) (*RemoveItemResult, error)
	UpdateItemQuantity(ctx context.Context, cartID, productID int64, sizeLabel string, quantity int) (*Item, error)
	ListItems(ctx context.Context, cartID int64) ([]ItemView, error)
}
