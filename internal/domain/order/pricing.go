package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/solewave/storefront/internal/domain/catalog"
	"github.com/solewave/storefront/internal/domain/promo"
)

// RequestedItem is one cart line as submitted at checkout.
type RequestedItem struct {
	ProductID string
	Quantity  int
	Size      string
	Color     string
}

// Quote is the priced view of a cart. Total is always Subtotal - Discount
// and never negative.
type Quote struct {
	Items       []LineItem
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
	AppliedCode string
}

// ComputeQuote prices the requested items against the given products and
// optional promotion rule. It has no side effects, so the checkout preview
// and the placement transaction produce identical numbers for identical
// state.
//
// products must contain an entry for every requested product ID; the rule
// may be nil when no code was supplied.
func ComputeQuote(items []RequestedItem, products map[string]catalog.Product, rule *promo.Rule, now time.Time) (Quote, error) {
	lines := make([]LineItem, len(items))
	subtotal := decimal.Zero

	for i, item := range items {
		if item.Quantity <= 0 {
			return Quote{}, &InvalidQuantityError{ProductID: item.ProductID}
		}

		p, ok := products[item.ProductID]
		if !ok {
			return Quote{}, catalog.ErrNotFound
		}
		if p.Stock < item.Quantity {
			return Quote{}, &InsufficientStockError{ProductID: p.ID, Name: p.Name}
		}

		image := ""
		if len(p.Images) > 0 {
			image = p.Images[0]
		}
		lines[i] = LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  item.Quantity,
			Size:      item.Size,
			Color:     item.Color,
			Image:     image,
		}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	q := Quote{
		Items:    lines,
		Subtotal: subtotal,
		Discount: decimal.Zero,
		Total:    subtotal,
	}

	if rule == nil {
		return q, nil
	}

	if err := rule.Eligible(now, subtotal); err != nil {
		return Quote{}, err
	}
	d, err := promo.Apply(rule, subtotal)
	if err != nil {
		return Quote{}, err
	}

	q.Discount = d.Amount
	q.Total = subtotal.Sub(d.Amount)
	q.AppliedCode = rule.Code
	return q, nil
}
