package promo

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/pricing"
)

// CartSource provides the cart lookup the engine needs to preview a discount.
type CartSource interface {
	GetByID(ctx context.Context, id int64) (*cart.Cart, error)
}

// Engine validates promotion codes, tracks per-shopper usage, and computes
// discount previews. Expiry is lazy: any read path that validates or lists
// codes flips an overdue active code to expired before acting on it.
type Engine struct {
	codes Repository
	carts CartSource
	now   func() time.Time
}

// NewEngine creates a promotion Engine.
func NewEngine(codes Repository, carts CartSource) *Engine {
	return &Engine{codes: codes, carts: carts, now: time.Now}
}

// CreateCode defines a new code. The discount is a percentage between 0 and
// 100, not an absolute amount.
func (e *Engine) CreateCode(ctx context.Context, code string, percent decimal.Decimal, endDate *time.Time) (*Code, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrMissingCode
	}
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, ErrInvalidDiscount
	}
	return e.codes.Create(ctx, code, percent, endDate)
}

// ListCodes returns all codes, lazily expiring any active code whose end date
// has passed. The transition is persisted before the list is returned.
func (e *Engine) ListCodes(ctx context.Context) ([]Code, error) {
	codes, err := e.codes.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list codes")
	}

	now := e.now()
	for i := range codes {
		if !e.overdue(&codes[i], now) {
			continue
		}
		if err := e.codes.MarkExpired(ctx, codes[i].ID); err != nil {
			return nil, errors.Wrap(err, "expire code")
		}
		codes[i].Status = StatusExpired
	}
	return codes, nil
}

// PreviewApply validates the code for the shopper, records it as the
// shopper's single pending promotion, and returns the discount computed
// against the cart's current total. The preview does not mutate the cart's
// stored total_price.
func (e *Engine) PreviewApply(ctx context.Context, cartID int64, codeText, shopperID string) (*Preview, error) {
	codeText = strings.TrimSpace(codeText)
	if codeText == "" {
		return nil, ErrMissingCode
	}

	c, err := e.codes.FindByCode(ctx, codeText)
	if err != nil {
		return nil, err
	}

	if e.overdue(c, e.now()) {
		if err := e.codes.MarkExpired(ctx, c.ID); err != nil {
			return nil, errors.Wrap(err, "expire code")
		}
		c.Status = StatusExpired
	}

	switch c.Status {
	case StatusActive:
	case StatusExpired:
		return nil, ErrExpired
	default:
		return nil, ErrInactive
	}

	used, err := e.codes.HasUsed(ctx, shopperID, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "check usage")
	}
	if used {
		return nil, ErrAlreadyUsed
	}

	if err := e.codes.ReplacePending(ctx, shopperID, c.ID); err != nil {
		return nil, errors.Wrap(err, "record pending usage")
	}

	crt, err := e.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}

	discount := pricing.PercentDiscount(crt.TotalPrice, c.DiscountPercent)
	return &Preview{
		CodeID:          c.ID,
		DiscountPercent: c.DiscountPercent,
		DiscountAmount:  discount,
		NewTotal:        pricing.ApplyDiscount(crt.TotalPrice, discount),
	}, nil
}

// RemovePending unconditionally deletes the shopper's pending usage record.
// Idempotent: removing when nothing is pending succeeds.
func (e *Engine) RemovePending(ctx context.Context, shopperID string) error {
	return e.codes.DeletePending(ctx, shopperID)
}

// SetStatus is the administrator status override. The status must belong to
// the fixed vocabulary.
func (e *Engine) SetStatus(ctx context.Context, id int64, status Status) (*Code, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	return e.codes.SetStatus(ctx, id, status)
}

// UpdateCode updates a code's end date, status, or percentage. Moving the end
// date into the future while the code is expired reactivates it.
func (e *Engine) UpdateCode(ctx context.Context, id int64, p UpdateParams) (*Code, error) {
	if p.Status != nil && !ValidStatus(*p.Status) {
		return nil, ErrInvalidStatus
	}
	if p.DiscountPercent != nil &&
		(p.DiscountPercent.IsNegative() || p.DiscountPercent.GreaterThan(decimal.NewFromInt(100))) {
		return nil, ErrInvalidDiscount
	}

	current, err := e.codes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.EndDate != nil && p.EndDate.After(e.now()) && current.Status == StatusExpired {
		active := StatusActive
		p.Status = &active
	}

	return e.codes.Update(ctx, id, p)
}

// DeleteCode removes a code definition entirely.
func (e *Engine) DeleteCode(ctx context.Context, id int64) (*Code, error) {
	return e.codes.Delete(ctx, id)
}

// overdue reports whether an active code's end date has passed.
func (e *Engine) overdue(c *Code, now time.Time) bool {
	return c.Status == StatusActive && c.EndDate != nil && now.After(*c.EndDate)
}
