package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrCategoryNotFound is returned when a requested category does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryExists is returned when a category name or slug is taken.
	ErrCategoryExists = errors.New("category already exists")
)

// Category groups products for storefront navigation. Products reference
// their category by slug, so renaming a category does not touch product rows.
type Category struct {
	ID          string
	Name        string
	Slug        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id string) (*Category, error)
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id string) error
}
