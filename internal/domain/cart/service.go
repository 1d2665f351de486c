package cart

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

// Service validates cart inputs and delegates to the repository.
type Service struct {
	carts Repository
}

// NewService creates a cart Service backed by the given repository.
func NewService(carts Repository) *Service {
	return &Service{carts: carts}
}

// AddItem resolves the shopper's active cart (validating a supplied cart id,
// else finding or creating one), then inserts the item or increments an
// existing (product, size) line. Returns ErrMissingFields when shopper,
// product, size, quantity, or unit price is absent.
func (s *Service) AddItem(ctx context.Context, p AddItemParams) (*AddItemResult, error) {
	p.ShopperID = strings.TrimSpace(p.ShopperID)
	if p.ShopperID == "" || p.ProductID == 0 || p.SizeLabel == "" || p.Quantity == 0 || p.PricePerUnit.IsZero() {
		return nil, ErrMissingFields
	}
	if p.Quantity < 0 || p.PricePerUnit.IsNegative() {
		return nil, ErrMissingFields
	}

	res, err := s.carts.UpsertItem(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "upsert item")
	}
	return res, nil
}

// RemoveItem deletes the matching item and recomputes the cart total. Removing
// a nonexistent item is a no-op returning success. When the removal empties a
// previously non-empty cart, the cart row itself is deleted and the result
// signals that any pending promotion for the shopper should be cleared.
func (s *Service) RemoveItem(ctx context.Context, cartID, productID int64, sizeLabel string) (*RemoveItemResult, error) {
	if cartID == 0 {
		return nil, ErrMissingFields
	}

	res, err := s.carts.DeleteItem(ctx, cartID, productID, sizeLabel)
	if err != nil {
		return nil, errors.Wrap(err, "delete item")
	}
	return res, nil
}

// UpdateQuantity sets the item quantity and recomputes line and cart totals.
// Returns ErrInvalidQuantity unless quantity is a positive integer.
func (s *Service) UpdateQuantity(ctx context.Context, cartID, productID int64, sizeLabel string, quantity int) (*Item, error) {
	if cartID == 0 || productID == 0 || sizeLabel == "" {
		return nil, ErrMissingFields
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	item, err := s.carts.UpdateItemQuantity(ctx, cartID, productID, sizeLabel, quantity)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "update quantity")
	}
	return item, nil
}

// ActiveCart returns the shopper's active cart, or ErrNotFound.
func (s *Service) ActiveCart(ctx context.Context, shopperID string) (*Cart, error) {
	return s.carts.FindActiveByShopper(ctx, shopperID)
}

// Items lists the cart's items joined with catalog display fields.
func (s *Service) Items(ctx context.Context, cartID int64) ([]ItemView, error) {
	return s.carts.ListItems(ctx, cartID)
}
