package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/solewave/storefront/internal/domain/catalog"
	"github.com/solewave/storefront/internal/domain/promo"
)

// ErrAccessDenied is returned when a user requests an order they do not own.
var ErrAccessDenied = errors.New("access denied")

// TerminalStateError indicates a lifecycle update on an already-final order.
type TerminalStateError struct {
	Status Status
}

func (e *TerminalStateError) Error() string {
	return "order is already " + string(e.Status)
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID          string
	Items           []RequestedItem
	ShippingAddress Address
	PaymentMethod   PaymentMethod
	DiscountCode    string
	Notes           string
}

// UpdateStatusRequest holds an admin lifecycle update. Nil fields are left
// unchanged.
type UpdateStatusRequest struct {
	Status        *Status
	PaymentStatus *PaymentStatus
	// Actor identifies who triggered the transition, for the audit log.
	Actor string
}

// Service orchestrates order placement and lifecycle changes.
type Service struct {
	products catalog.Repository
	promos   promo.Repository
	orders   Store
	now      func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(products catalog.Repository, promos promo.Repository, orders Store) *Service {
	return &Service{
		products: products,
		promos:   promos,
		orders:   orders,
		now:      time.Now,
	}
}

// PlaceOrder validates and prices the cart, then commits stock reservation,
// promotion redemption, order numbering and the order row in one
// transaction. If the transaction loses a race (another order grabbed the
// last unit, or the promotion hit its usage limit between validation and
// commit) the whole attempt is repeated once against fresh state before a
// conflict surfaces to the caller. Either everything commits or nothing is
// visible.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if !req.PaymentMethod.Valid() {
		return nil, errors.Errorf("unknown payment method: %q", req.PaymentMethod)
	}

	o, retryable, err := s.placeAttempt(ctx, req)
	if retryable {
		o, retryable, err = s.placeAttempt(ctx, req)
		if retryable && err == nil {
			err = ErrConflict
		}
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// placeAttempt runs one full validate-price-commit cycle. retryable is true
// when the attempt failed only because concurrent writers changed stock or
// promotion state after validation passed; err then carries the guard
// failure to surface if the retry is not taken.
func (s *Service) placeAttempt(ctx context.Context, req PlaceOrderRequest) (o *Order, retryable bool, err error) {
	products, err := s.fetchProducts(ctx, req.Items)
	if err != nil {
		return nil, false, err
	}

	var rule *promo.Rule
	if req.DiscountCode != "" {
		rule, err = s.promos.FindByCode(ctx, req.DiscountCode)
		if err != nil {
			if errors.Is(err, promo.ErrInvalidCode) {
				return nil, false, promo.ErrInvalidCode
			}
			return nil, false, errors.Wrap(err, "lookup promotion")
		}
	}

	quote, err := ComputeQuote(req.Items, products, rule, s.now())
	if err != nil {
		return nil, false, err
	}

	o = &Order{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		Items:           quote.Items,
		Subtotal:        quote.Subtotal,
		Discount:        quote.Discount,
		DiscountCode:    quote.AppliedCode,
		Total:           quote.Total,
		Status:          StatusPending,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   PaymentPending,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	}

	var guardErr error
	txErr := s.orders.InTx(ctx, func(tx Tx) error {
		for _, item := range quote.Items {
			ok, err := tx.ReserveStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return errors.Wrapf(err, "reserve stock for %s", item.ProductID)
			}
			if !ok {
				guardErr = &InsufficientStockError{ProductID: item.ProductID, Name: item.Name}
				return guardErr
			}
		}

		if rule != nil {
			ok, err := tx.RedeemPromotion(ctx, rule.Code)
			if err != nil {
				return errors.Wrapf(err, "redeem promotion %s", rule.Code)
			}
			if !ok {
				guardErr = promo.ErrUsageLimitReached
				return guardErr
			}
		}

		number, err := tx.NextNumber(ctx, s.now())
		if err != nil {
			return errors.Wrap(err, "allocate order number")
		}
		o.Number = number

		if err := tx.Insert(ctx, o); err != nil {
			return errors.Wrap(err, "insert order")
		}
		return nil
	})
	if txErr != nil {
		if guardErr != nil {
			return nil, true, guardErr
		}
		if errors.Is(txErr, ErrConflict) {
			return nil, true, nil
		}
		return nil, false, txErr
	}
	return o, false, nil
}

// fetchProducts batch-loads the requested products and verifies all exist.
func (s *Service) fetchProducts(ctx context.Context, items []RequestedItem) (map[string]catalog.Product, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	byID := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}
	for _, item := range items {
		if _, ok := byID[item.ProductID]; !ok {
			return nil, catalog.ErrNotFound
		}
	}
	return byID, nil
}

// Get returns an order by ID. Non-admin requesters only see their own
// orders.
func (s *Service) Get(ctx context.Context, id, requesterID string, admin bool) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && o.UserID != requesterID {
		return nil, ErrAccessDenied
	}
	return o, nil
}

// List returns orders newest-first with pagination. Non-admin requesters
// are pinned to their own orders regardless of the filter.
func (s *Service) List(ctx context.Context, f ListFilter, requesterID string, admin bool) ([]Order, int, error) {
	if !admin {
		f.UserID = requesterID
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
	return s.orders.List(ctx, f)
}

// UpdateStatus applies an admin lifecycle update. Every status transition
// lands in the audit log with the previous state. Cancelling an order whose
// stock was reserved at placement restores each line's stock in the same
// transaction, so a crash cannot lose or double the compensation.
func (s *Service) UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (*Order, error) {
	if req.Status == nil && req.PaymentStatus == nil {
		return nil, errors.New("nothing to update")
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, errors.Errorf("unknown status: %q", *req.Status)
	}
	if req.PaymentStatus != nil && !req.PaymentStatus.Valid() {
		return nil, errors.Errorf("unknown payment status: %q", *req.PaymentStatus)
	}

	var updated *Order
	err := s.orders.InTx(ctx, func(tx Tx) error {
		o, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		newStatus := o.Status
		if req.Status != nil && *req.Status != o.Status {
			if o.Status.Terminal() {
				return &TerminalStateError{Status: o.Status}
			}
			newStatus = *req.Status
		}
		newPayment := o.PaymentStatus
		if req.PaymentStatus != nil {
			newPayment = *req.PaymentStatus
		}

		if err := tx.SetStatus(ctx, id, newStatus, newPayment); err != nil {
			return errors.Wrap(err, "update order status")
		}

		if newStatus != o.Status {
			if err := tx.LogStatusChange(ctx, StatusChange{
				OrderID: id,
				From:    o.Status,
				To:      newStatus,
				Actor:   req.Actor,
				At:      s.now(),
			}); err != nil {
				return errors.Wrap(err, "log status change")
			}

			// Compensating action: placement decremented stock, so a
			// cancellation must put it back.
			if newStatus == StatusCancelled {
				for _, item := range o.Items {
					if err := tx.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
						return errors.Wrapf(err, "restore stock for %s", item.ProductID)
					}
				}
			}
		}

		o.Status = newStatus
		o.PaymentStatus = newPayment
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
