package promo

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Apply calculates the discount the rule grants for the given cart subtotal.
// The amount is clamped to [0, subtotal]: a percentage discount additionally
// respects the rule's MaxDiscount cap, and a fixed discount never exceeds
// what the cart is worth, so totals cannot go negative downstream.
func Apply(rule *Rule, subtotal decimal.Decimal) (Discount, error) {
	var amount decimal.Decimal

	switch rule.Type {
	case DiscountPercentage:
		amount = subtotal.Mul(rule.Value).Div(hundred)
		if rule.MaxDiscount.IsPositive() && amount.GreaterThan(rule.MaxDiscount) {
			amount = rule.MaxDiscount
		}
	case DiscountFixed:
		amount = rule.Value
	default:
		return Discount{}, errors.Errorf("unsupported discount type: %q", rule.Type)
	}

	amount = decimal.Min(amount, subtotal)
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return Discount{
		Code:        rule.Code,
		Amount:      amount.Round(2),
		Description: rule.Description,
	}, nil
}
