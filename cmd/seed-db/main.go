// Command seed-db loads demo catalog data, the matching categories, a set
// of promotions and an admin account into the database. It is idempotent:
// products and categories are matched by slug, promotions by code and the
// admin user by email.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/solewave/storefront/internal/domain/auth"
	"github.com/solewave/storefront/internal/repository"
)

type productJSON struct {
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	CompareAtPrice decimal.Decimal `json:"compareAtPrice"`
	Category       string          `json:"category"`
	Images         []string        `json:"images"`
	Sizes          []string        `json:"sizes"`
	Colors         []string        `json:"colors"`
	Stock          int             `json:"stock"`
	SKU            string          `json:"sku"`
	Brand          string          `json:"brand"`
	Tags           []string        `json:"tags"`
	Featured       bool            `json:"featured"`
}

type promotionSeed struct {
	code         string
	description  string
	discountType string
	value        decimal.Decimal
	minPurchase  decimal.Decimal
	maxDiscount  decimal.Decimal
	usageLimit   int
	validDays    int
}

func main() {
	var (
		databaseURL   string
		productsFile  string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminEmail, "admin-email", "admin@solewave.shop", "admin account email")
	flag.StringVar(&adminPassword, "admin-password", "", "admin account password (or STOREFRONT_ADMIN_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("STOREFRONT_ADMIN_PASSWORD")
	}
	if adminPassword == "" {
		slog.Error("admin password is required: set --admin-password or STOREFRONT_ADMIN_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminEmail, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminEmail, adminPassword string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products, err := loadProducts(productsFile)
	if err != nil {
		return errors.Wrap(err, "load products file")
	}

	if err := seedCategories(ctx, pool, products); err != nil {
		return errors.Wrap(err, "seed categories")
	}

	if err := seedProducts(ctx, pool, products); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedPromotions(ctx, pool); err != nil {
		return errors.Wrap(err, "seed promotions")
	}

	if err := seedAdmin(ctx, pool, adminEmail, adminPassword); err != nil {
		return errors.Wrap(err, "seed admin user")
	}

	return nil
}

const upsertProductSQL = `
INSERT INTO products (id, name, slug, description, price, compare_at_price, category,
                      images, sizes, colors, stock, sku, brand, tags, featured, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, TRUE)
ON CONFLICT (slug) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    compare_at_price = EXCLUDED.compare_at_price,
    category = EXCLUDED.category,
    images = EXCLUDED.images,
    sizes = EXCLUDED.sizes,
    colors = EXCLUDED.colors,
    stock = EXCLUDED.stock,
    brand = EXCLUDED.brand,
    tags = EXCLUDED.tags,
    featured = EXCLUDED.featured,
    updated_at = now()
`

func loadProducts(productsFile string) ([]productJSON, error) {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return nil, errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}
	return products, nil
}

const upsertCategorySQL = `
INSERT INTO categories (id, name, slug)
VALUES ($1, $2, $3)
ON CONFLICT (slug) DO NOTHING
`

// seedCategories creates one category per distinct product category slug so
// the storefront navigation is populated out of the box.
func seedCategories(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	seen := make(map[string]bool)
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true

		name := strings.ToUpper(p.Category[:1]) + p.Category[1:]
		if _, err := pool.Exec(ctx, upsertCategorySQL, uuid.NewString(), name, p.Category); err != nil {
			return errors.Wrapf(err, "upsert category %s", p.Category)
		}

		slog.Info("upserted category", slog.String("slug", p.Category))
	}
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		var compareAt *decimal.Decimal
		if !p.CompareAtPrice.IsZero() {
			compareAt = &p.CompareAtPrice
		}

		images, _ := json.Marshal(orEmpty(p.Images))
		sizes, _ := json.Marshal(orEmpty(p.Sizes))
		colors, _ := json.Marshal(orEmpty(p.Colors))
		tags, _ := json.Marshal(orEmpty(p.Tags))

		if _, err := pool.Exec(ctx, upsertProductSQL,
			uuid.NewString(), p.Name, p.Slug, p.Description, p.Price, compareAt,
			p.Category, images, sizes, colors, p.Stock, p.SKU, p.Brand, tags, p.Featured,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.Slug)
		}

		slog.Info("upserted product", slog.String("slug", p.Slug), slog.String("name", p.Name))
	}

	return nil
}

const upsertPromotionSQL = `
INSERT INTO promotions (id, code, description, discount_type, discount_value,
                        min_purchase, max_discount, start_date, end_date, usage_limit, active)
VALUES ($1, UPPER($2), $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
ON CONFLICT (code) DO UPDATE SET
    description = EXCLUDED.description,
    discount_type = EXCLUDED.discount_type,
    discount_value = EXCLUDED.discount_value,
    min_purchase = EXCLUDED.min_purchase,
    max_discount = EXCLUDED.max_discount,
    start_date = EXCLUDED.start_date,
    end_date = EXCLUDED.end_date,
    usage_limit = EXCLUDED.usage_limit,
    updated_at = now()
`

func seedPromotions(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding promotions")

	promos := []promotionSeed{
		{
			code:         "WELCOME10",
			description:  "Welcome: 10% off your first order",
			discountType: "percentage",
			value:        decimal.NewFromInt(10),
			maxDiscount:  decimal.NewFromInt(15000),
			validDays:    365,
		},
		{
			code:         "SUMMER25",
			description:  "Summer sale: 25% off orders over 50 000 FCFA",
			discountType: "percentage",
			value:        decimal.NewFromInt(25),
			minPurchase:  decimal.NewFromInt(50000),
			maxDiscount:  decimal.NewFromInt(30000),
			usageLimit:   500,
			validDays:    90,
		},
		{
			code:         "FLAT5000",
			description:  "5 000 FCFA off any order",
			discountType: "fixed",
			value:        decimal.NewFromInt(5000),
			minPurchase:  decimal.NewFromInt(20000),
			validDays:    180,
		},
	}

	now := time.Now().UTC()
	for _, p := range promos {
		if _, err := pool.Exec(ctx, upsertPromotionSQL,
			uuid.NewString(), p.code, p.description, p.discountType, p.value,
			p.minPurchase, p.maxDiscount, now, now.AddDate(0, 0, p.validDays), p.usageLimit,
		); err != nil {
			return errors.Wrapf(err, "upsert promotion %s", p.code)
		}

		slog.Info("upserted promotion", slog.String("code", p.code), slog.String("description", p.description))
	}

	return nil
}

const insertAdminSQL = `
INSERT INTO users (id, name, email, password, role)
VALUES ($1, $2, LOWER($3), $4, 'admin')
ON CONFLICT (email) DO NOTHING
`

func seedAdmin(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	slog.Info("seeding admin user", slog.String("email", email))

	hash, err := auth.HashPassword(password)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}

	tag, err := pool.Exec(ctx, insertAdminSQL, uuid.NewString(), "Administrator", email, hash)
	if err != nil {
		return errors.Wrap(err, "insert admin user")
	}
	if tag.RowsAffected() == 0 {
		slog.Info("admin user already exists", slog.String("email", email))
		return nil
	}

	slog.Info("created admin user", slog.String("email", email))
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
