package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status enumerates the order lifecycle states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// PaymentStatus tracks settlement state independently of the order status.
// The two are deliberately uncoupled: a delivered order with a pending
// payment is representable.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// PaymentMethod is a label only; settlement happens outside this system.
type PaymentMethod string

const (
	PaymentWave        PaymentMethod = "wave"
	PaymentOrangeMoney PaymentMethod = "orange_money"
	PaymentCard        PaymentMethod = "card"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentWave, PaymentOrangeMoney, PaymentCard:
		return true
	}
	return false
}

// Address is the shipping destination, copied onto the order at placement.
type Address struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
}

// LineItem is an ordered product with name, price and image snapshotted at
// placement time. Later catalog edits do not affect existing orders.
type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size"`
	Color     string          `json:"color,omitempty"`
	Image     string          `json:"image,omitempty"`
}

// Order is a placed customer order.
type Order struct {
	ID              string
	Number          string
	UserID          string
	Items           []LineItem
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	DiscountCode    string
	Total           decimal.Decimal
	Status          Status
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	ShippingAddress Address
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StatusChange is one audit-log entry for a lifecycle transition.
type StatusChange struct {
	OrderID string
	From    Status
	To      Status
	Actor   string
	At      time.Time
}

// Sentinel errors for order validation and placement.
var (
	ErrEmptyOrder = errors.New("order must contain at least one item")
	ErrNotFound   = errors.New("order not found")
	// ErrConflict is returned when a placement transaction lost a race
	// (stock or promotion usage exhausted between validation and commit)
	// and the retry also failed.
	ErrConflict = errors.New("order could not be committed due to concurrent updates")
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InsufficientStockError indicates a product cannot cover the requested
// quantity. Name is included so the message is useful to shoppers.
type InsufficientStockError struct {
	ProductID string
	Name      string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.Name)
}

// ListFilter narrows down order listings.
type ListFilter struct {
	// UserID restricts results to one customer's orders; empty lists all.
	UserID string
	Page   int
	Limit  int
}

// Tx groups the writes of one order placement or lifecycle change so the
// store can make them atomic.
type Tx interface {
	// ReserveStock decrements the product's stock by qty only when the
	// remaining stock covers it. It reports false when the guard fails.
	ReserveStock(ctx context.Context, productID string, qty int) (bool, error)
	// RestoreStock adds qty back to the product's stock.
	RestoreStock(ctx context.Context, productID string, qty int) error
	// RedeemPromotion increments the code's usage count only while the
	// usage limit still allows it. It reports false when the guard fails.
	RedeemPromotion(ctx context.Context, code string) (bool, error)
	// NextNumber allocates a unique human-readable order number.
	NextNumber(ctx context.Context, now time.Time) (string, error)
	Insert(ctx context.Context, o *Order) error
	// GetForUpdate loads an order with a row lock held for the rest of
	// the transaction.
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	SetStatus(ctx context.Context, id string, status Status, payment PaymentStatus) error
	LogStatusChange(ctx context.Context, ch StatusChange) error
}

// Store persists orders.
type Store interface {
	// InTx runs fn inside a single database transaction; if fn returns an
	// error nothing it did is visible.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, int, error)
}
