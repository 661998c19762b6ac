package repository

import (
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/solewave/storefront/internal/domain/catalog"
)

// jsonStrings marshals a string slice for a JSONB parameter. A nil slice
// becomes an empty JSON array, matching the column defaults.
func jsonStrings(ss []string) []byte {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return b
}

// nullableDecimal maps a zero decimal to SQL NULL.
func nullableDecimal(d decimal.Decimal) any {
	if d.IsZero() {
		return nil
	}
	return d
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p              catalog.Product
		compareAtPrice decimal.NullDecimal
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &compareAtPrice,
		&p.Category, &p.Images, &p.Sizes, &p.Colors, &p.Stock, &p.SKU,
		&p.Brand, &p.Tags, &p.Featured, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if compareAtPrice.Valid {
		p.CompareAtPrice = compareAtPrice.Decimal
	}
	return p, err
}
