package promo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported promotion discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrInvalidCode is returned when a promotion code is not found,
	// inactive, or outside its validity window.
	ErrInvalidCode = errors.New("invalid or expired promo code")
	// ErrUsageLimitReached is returned when a promotion has exhausted its
	// allowed redemptions.
	ErrUsageLimitReached = errors.New("promo code usage limit reached")
)

// MinPurchaseError indicates a cart subtotal below the promotion's minimum.
type MinPurchaseError struct {
	Min decimal.Decimal
}

func (e *MinPurchaseError) Error() string {
	return fmt.Sprintf("minimum purchase of %s required", e.Min)
}

// Rule defines a promotion's discount behaviour and eligibility constraints.
// Zero values of MinPurchase, MaxDiscount and UsageLimit mean "unset".
type Rule struct {
	ID          string
	Code        string
	Description string
	Type        DiscountType
	Value       decimal.Decimal
	MinPurchase decimal.Decimal
	MaxDiscount decimal.Decimal
	StartDate   time.Time
	EndDate     time.Time
	UsageLimit  int
	UsageCount  int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Eligible reports whether the rule can be applied at now for the given
// cart subtotal. It returns one of the taxonomy errors above when not.
func (r *Rule) Eligible(now time.Time, subtotal decimal.Decimal) error {
	if !r.Active || now.Before(r.StartDate) || now.After(r.EndDate) {
		return ErrInvalidCode
	}
	if r.UsageLimit > 0 && r.UsageCount >= r.UsageLimit {
		return ErrUsageLimitReached
	}
	if r.MinPurchase.IsPositive() && subtotal.LessThan(r.MinPurchase) {
		return &MinPurchaseError{Min: r.MinPurchase}
	}
	return nil
}

// Discount holds a computed discount amount and the rule's description.
type Discount struct {
	Code        string
	Amount      decimal.Decimal
	Description string
}

// Repository provides lookup and mutation of promotion rules.
// FindByCode matches codes case-insensitively and returns ErrInvalidCode
// when no active rule exists.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	List(ctx context.Context) ([]Rule, error)
	ListCodes(ctx context.Context) ([]string, error)
	Create(ctx context.Context, r *Rule) error
	Update(ctx context.Context, r *Rule) error
	Delete(ctx context.Context, id string) error
}
