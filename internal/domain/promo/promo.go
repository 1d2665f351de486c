// Package promo implements the promotion engine: administrator-defined
// percentage discount codes and the per-shopper usage state machine.
//
// Usage state is kept separate from the code definition so the same code can
// be independently pending or used per shopper. A shopper holds at most one
// pending usage at a time; a used record is permanent and blocks reapplication
// of the same code by the same shopper.
package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status enumerates promo code states.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusExpired  Status = "expired"
)

// ValidStatus reports whether s belongs to the code status vocabulary.
func ValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusInactive, StatusExpired:
		return true
	}
	return false
}

// UsageStatus enumerates per-shopper usage states. The only transitions are
// absent -> pending (apply), pending -> absent (remove or a fresh apply of a
// different code), and pending -> used (checkout).
type UsageStatus string

const (
	UsagePending UsageStatus = "pending"
	UsageUsed    UsageStatus = "used"
)

var (
	// ErrNotFound is returned when no code with the given text exists.
	ErrNotFound = errors.New("promo code not found")
	// ErrInactive is returned when the code exists but is inactive.
	ErrInactive = errors.New("promo code is inactive")
	// ErrExpired is returned when the code exists but is expired.
	ErrExpired = errors.New("promo code is expired")
	// ErrAlreadyUsed is returned when the shopper has already consumed the code.
	ErrAlreadyUsed = errors.New("promo code already used")
	// ErrInvalidStatus is returned for a status outside the vocabulary.
	ErrInvalidStatus = errors.New("invalid status value")
	// ErrInvalidDiscount is returned when the percentage is outside 0-100.
	ErrInvalidDiscount = errors.New("discount must be a percentage between 0 and 100")
	// ErrMissingCode is returned when the code text is absent.
	ErrMissingCode = errors.New("promo code is required")
)

// Code is an administrator-defined percentage discount.
type Code struct {
	ID              int64
	Code            string
	DiscountPercent decimal.Decimal
	Status          Status
	EndDate         *time.Time
	CreatedAt       time.Time
}

// Usage tracks one shopper's consumption of one code.
type Usage struct {
	ID        int64
	ShopperID string
	CodeID    int64
	Status    UsageStatus
	UsedAt    *time.Time
}

// UpdateParams holds the mutable fields of a code for administrator updates.
// Nil fields keep their current value.
type UpdateParams struct {
	EndDate         *time.Time
	ClearEndDate    bool
	Status          *Status
	DiscountPercent *decimal.Decimal
}

// Preview is the result of previewing a code against a cart. It never mutates
// the cart's stored total.
type Preview struct {
	CodeID          int64
	DiscountPercent decimal.Decimal
	DiscountAmount  decimal.Decimal
	NewTotal        decimal.Decimal
}

// Repository defines persistence for codes and usage records. ReplacePending
// deletes any other pending usage for the shopper and upserts the new one as a
// single atomic unit.
type Repository interface {
	Create(ctx context.Context, code string, percent decimal.Decimal, endDate *time.Time) (*Code, error)
	List(ctx context.Context) ([]Code, error)
	GetByID(ctx context.Context, id int64) (*Code, error)
	FindByCode(ctx context.Context, code string) (*Code, error)
	Update(ctx context.Context, id int64, p UpdateParams) (*Code, error)
	SetStatus(ctx context.Context, id int64, status Status) (*Code, error)
	Delete(ctx context.Context, id int64) (*Code, error)
	MarkExpired(ctx context.Context, id int64) error
	HasUsed(ctx context.Context, shopperID string, codeID int64) (bool, error)
	ReplacePending(ctx context.Context, shopperID string, codeID int64) error
	DeletePending(ctx context.Context, shopperID string) error
}
