package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solewave/storefront/internal/domain/order"
)

const (
	orderColumns = `id, order_number, user_id, items, subtotal, discount, discount_code,
		total, status, payment_method, payment_status, shipping_address, notes, created_at, updated_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderForUpdateSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	insertOrderSQL = `INSERT INTO orders
		(id, order_number, user_id, items, subtotal, discount, discount_code,
		 total, status, payment_method, payment_status, shipping_address, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	setOrderStatusSQL = `UPDATE orders SET status = $2, payment_status = $3, updated_at = now()
		WHERE id = $1`

	insertStatusLogSQL = `INSERT INTO order_status_log (order_id, from_status, to_status, actor, changed_at)
		VALUES ($1, $2, $3, $4, $5)`

	// The stock guard lives in the WHERE clause: the decrement only lands
	// when the remaining stock covers it, so two orders racing for the
	// last unit cannot both win.
	reserveStockSQL = `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND active AND stock >= $2`

	restoreStockSQL = `UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1`

	// Same idea for the usage limit: the counter cannot pass usage_limit
	// no matter how many redemptions race.
	redeemPromotionSQL = `UPDATE promotions SET usage_count = usage_count + 1, updated_at = now()
		WHERE UPPER(code) = UPPER($1) AND active
		AND (usage_limit = 0 OR usage_count < usage_limit)`

	nextOrderNumberSQL = `SELECT nextval('order_number_seq')`
)

var (
	_ order.Store = (*OrderStore)(nil)
	_ order.Tx    = (*orderTx)(nil)
)

// OrderStore implements order.Store backed by PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// InTx runs fn inside a single database transaction. Transient conflicts
// (serialization failures, deadlocks, racing unique inserts) come back as
// order.ErrConflict so the workflow can retry.
func (s *OrderStore) InTx(ctx context.Context, fn func(tx order.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&orderTx{tx: tx}); err != nil {
		if isRetryablePgError(err) {
			return errors.Wrap(order.ErrConflict, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isRetryablePgError(err) {
			return errors.Wrap(order.ErrConflict, err.Error())
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Get returns an order by ID, or order.ErrNotFound.
func (s *OrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	return getOrder(ctx, s.pool, getOrderSQL, id)
}

// List returns orders matching the filter, newest first, plus the total
// match count for pagination.
func (s *OrderStore) List(ctx context.Context, f order.ListFilter) ([]order.Order, int, error) {
	where := "TRUE"
	args := []any{}
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = "user_id = $1"
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM orders WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	query := fmt.Sprintf("SELECT %s FROM orders WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		orderColumns, where, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	return orders, total, nil
}

// orderTx exposes the transactional writes of one placement or lifecycle
// change over an open pgx transaction.
type orderTx struct {
	tx pgx.Tx
}

// ReserveStock conditionally decrements a product's stock inside the
// transaction. It reports false when the guard rejected the decrement,
// which also covers unknown or deactivated products.
func (t *orderTx) ReserveStock(ctx context.Context, productID string, qty int) (bool, error) {
	tag, err := t.tx.Exec(ctx, reserveStockSQL, productID, qty)
	if err != nil {
		return false, fmt.Errorf("reserving stock for %q: %w", productID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// RestoreStock adds qty back to a product's stock inside the transaction.
func (t *orderTx) RestoreStock(ctx context.Context, productID string, qty int) error {
	_, err := t.tx.Exec(ctx, restoreStockSQL, productID, qty)
	if err != nil {
		return fmt.Errorf("restoring stock for %q: %w", productID, err)
	}
	return nil
}

// RedeemPromotion conditionally increments a promotion's usage counter.
// It reports false when the usage limit was already exhausted.
func (t *orderTx) RedeemPromotion(ctx context.Context, code string) (bool, error) {
	tag, err := t.tx.Exec(ctx, redeemPromotionSQL, code)
	if err != nil {
		return false, fmt.Errorf("redeeming promotion %q: %w", code, err)
	}
	return tag.RowsAffected() == 1, nil
}

// NextNumber allocates an order number from the shared sequence. Numbers
// are date-prefixed for humans and sequence-suffixed for uniqueness, so
// concurrent placements in the same millisecond cannot collide.
func (t *orderTx) NextNumber(ctx context.Context, now time.Time) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, nextOrderNumberSQL).Scan(&seq); err != nil {
		return "", fmt.Errorf("allocating order number: %w", err)
	}
	return fmt.Sprintf("ORD-%s-%06d", now.UTC().Format("20060102"), seq), nil
}

// Insert persists a new order. Line items and the shipping address are
// serialized to JSON for storage in JSONB columns.
func (t *orderTx) Insert(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	addressJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}

	_, err = t.tx.Exec(ctx, insertOrderSQL,
		o.ID, o.Number, o.UserID, itemsJSON, o.Subtotal, o.Discount, o.DiscountCode,
		o.Total, string(o.Status), string(o.PaymentMethod), string(o.PaymentStatus),
		addressJSON, o.Notes,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetForUpdate loads an order with its row locked until the transaction
// ends.
func (t *orderTx) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return getOrder(ctx, t.tx, getOrderForUpdateSQL, id)
}

// SetStatus updates both lifecycle fields of an order.
func (t *orderTx) SetStatus(ctx context.Context, id string, status order.Status, payment order.PaymentStatus) error {
	tag, err := t.tx.Exec(ctx, setOrderStatusSQL, id, string(status), string(payment))
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// LogStatusChange appends one audit-log entry.
func (t *orderTx) LogStatusChange(ctx context.Context, ch order.StatusChange) error {
	_, err := t.tx.Exec(ctx, insertStatusLogSQL,
		ch.OrderID, string(ch.From), string(ch.To), ch.Actor, ch.At,
	)
	if err != nil {
		return fmt.Errorf("logging status change for %q: %w", ch.OrderID, err)
	}
	return nil
}

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func getOrder(ctx context.Context, q querier, query, id string) (*order.Order, error) {
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		status        string
		paymentMethod string
		paymentStatus string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &o.Items, &o.Subtotal, &o.Discount,
		&o.DiscountCode, &o.Total, &status, &paymentMethod, &paymentStatus,
		&o.ShippingAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	o.PaymentMethod = order.PaymentMethod(paymentMethod)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	return o, err
}
