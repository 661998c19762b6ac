package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/solewave/storefront/internal/domain/promo"
)

const (
	promoColumns = `id, code, description, discount_type, discount_value, min_purchase,
		max_discount, start_date, end_date, usage_limit, usage_count, active, created_at, updated_at`

	getPromoByCodeSQL = `SELECT ` + promoColumns + ` FROM promotions
		WHERE UPPER(code) = UPPER($1) AND active = TRUE`

	listPromosSQL = `SELECT ` + promoColumns + ` FROM promotions ORDER BY created_at DESC`

	listPromoCodesSQL = `SELECT code FROM promotions WHERE active = TRUE`

	insertPromoSQL = `INSERT INTO promotions
		(id, code, description, discount_type, discount_value, min_purchase,
		 max_discount, start_date, end_date, usage_limit, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	updatePromoSQL = `UPDATE promotions SET
		code = $2, description = $3, discount_type = $4, discount_value = $5,
		min_purchase = $6, max_discount = $7, start_date = $8, end_date = $9,
		usage_limit = $10, active = $11, updated_at = now()
		WHERE id = $1`

	deletePromoSQL = `DELETE FROM promotions WHERE id = $1`
)

var _ promo.Repository = (*PromoRepository)(nil)

// PromoRepository implements promo.Repository backed by PostgreSQL.
type PromoRepository struct {
	pool *pgxpool.Pool
}

// NewPromoRepository returns a PromoRepository that uses the given pool.
func NewPromoRepository(pool *pgxpool.Pool) *PromoRepository {
	return &PromoRepository{pool: pool}
}

// FindByCode looks up an active promotion by its code (case-insensitive).
// Returns promo.ErrInvalidCode when no matching active promotion exists.
func (r *PromoRepository) FindByCode(ctx context.Context, code string) (*promo.Rule, error) {
	rows, err := r.pool.Query(ctx, getPromoByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding promotion by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanPromoRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrInvalidCode
		}
		return nil, fmt.Errorf("finding promotion by code %q: %w", code, err)
	}
	return &rule, nil
}

// List returns all promotions, newest first.
func (r *PromoRepository) List(ctx context.Context) ([]promo.Rule, error) {
	rows, err := r.pool.Query(ctx, listPromosSQL)
	if err != nil {
		return nil, fmt.Errorf("listing promotions: %w", err)
	}
	return pgx.CollectRows(rows, scanPromoRule)
}

// ListCodes returns the codes of all active promotions.
func (r *PromoRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listPromoCodesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing promotion codes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Create inserts a new promotion. Codes are stored upper-cased.
func (r *PromoRepository) Create(ctx context.Context, rule *promo.Rule) error {
	_, err := r.pool.Exec(ctx, insertPromoSQL,
		rule.ID, strings.ToUpper(rule.Code), rule.Description, string(rule.Type),
		rule.Value, rule.MinPurchase, rule.MaxDiscount,
		rule.StartDate, rule.EndDate, rule.UsageLimit, rule.Active,
	)
	if err != nil {
		return fmt.Errorf("creating promotion %q: %w", rule.Code, err)
	}
	return nil
}

// Update rewrites the mutable fields of a promotion. The usage counter is
// excluded: only redemption inside an order transaction moves it.
func (r *PromoRepository) Update(ctx context.Context, rule *promo.Rule) error {
	tag, err := r.pool.Exec(ctx, updatePromoSQL,
		rule.ID, strings.ToUpper(rule.Code), rule.Description, string(rule.Type),
		rule.Value, rule.MinPurchase, rule.MaxDiscount,
		rule.StartDate, rule.EndDate, rule.UsageLimit, rule.Active,
	)
	if err != nil {
		return fmt.Errorf("updating promotion %q: %w", rule.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrInvalidCode
	}
	return nil
}

// Delete removes a promotion permanently.
func (r *PromoRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deletePromoSQL, id)
	if err != nil {
		return fmt.Errorf("deleting promotion %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrInvalidCode
	}
	return nil
}

func scanPromoRule(row pgx.CollectableRow) (promo.Rule, error) {
	var (
		rule         promo.Rule
		discountType string
		value        decimal.Decimal
		minPurchase  decimal.Decimal
		maxDiscount  decimal.Decimal
	)
	err := row.Scan(
		&rule.ID, &rule.Code, &rule.Description, &discountType, &value,
		&minPurchase, &maxDiscount, &rule.StartDate, &rule.EndDate,
		&rule.UsageLimit, &rule.UsageCount, &rule.Active,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	rule.Type = promo.DiscountType(discountType)
	rule.Value = value
	rule.MinPurchase = minPurchase
	rule.MaxDiscount = maxDiscount
	return rule, err
}
