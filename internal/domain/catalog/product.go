package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID             string
	Name           string
	Slug           string
	Description    string
	Price          decimal.Decimal
	CompareAtPrice decimal.Decimal
	Category       string
	Images         []string
	Sizes          []string
	Colors         []string
	Stock          int
	SKU            string
	Brand          string
	Tags           []string
	Featured       bool
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Filter narrows down product listings.
type Filter struct {
	Category string
	Featured *bool
	// ActiveOnly hides deactivated products; admin listings set it to false.
	ActiveOnly bool
	Page       int
	Limit      int
}

// Repository defines persistence operations for the product catalog.
// Stock mutations are deliberately absent: they only happen inside an
// order transaction (see the order package).
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, int, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}
