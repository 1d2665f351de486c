package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Service validates checkout and status inputs and delegates to the repository.
type Service struct {
	orders Repository
}

// NewService creates an order Service backed by the given repository.
func NewService(orders Repository) *Service {
	return &Service{orders: orders}
}

// Checkout finalizes the cart into an order and returns it. Negative shipping
// or tax amounts are clamped to zero before the totals are computed.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	if req.CartID == 0 {
		return nil, ErrMissingCart
	}
	if req.ShippingAmount.IsNegative() {
		req.ShippingAmount = decimal.Zero
	}
	if req.TaxAmount.IsNegative() {
		req.TaxAmount = decimal.Zero
	}

	o, err := s.orders.Checkout(ctx, req)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateStatus sets the fulfillment status. The value must belong to the
// fixed vocabulary; it is rejected before touching storage otherwise.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.orders.UpdateStatus(ctx, id, status)
}

// List returns all orders, newest first.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.orders.List(ctx)
}

// ListByShopper returns the shopper's orders, newest first.
func (s *Service) ListByShopper(ctx context.Context, shopperID string) ([]Order, error) {
	return s.orders.ListByShopper(ctx, shopperID)
}

// Details returns an order with its snapshot items.
func (s *Service) Details(ctx context.Context, id int64) (*Details, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.orders.ListItems(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "list order items")
	}
	return &Details{Order: o, Items: items}, nil
}
