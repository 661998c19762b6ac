package order

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solewave/storefront/internal/domain/catalog"
	"github.com/solewave/storefront/internal/domain/promo"
)

// --- Mock implementations ---

type mockCatalogRepo struct {
	byID map[string]catalog.Product
}

func newCatalogRepo(products ...catalog.Product) *mockCatalogRepo {
	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &mockCatalogRepo{byID: byID}
}

func (m *mockCatalogRepo) List(_ context.Context, _ catalog.Filter) ([]catalog.Product, int, error) {
	return nil, 0, nil
}

func (m *mockCatalogRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (m *mockCatalogRepo) GetByIDs(_ context.Context, ids []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalogRepo) Create(_ context.Context, _ *catalog.Product) error { return nil }
func (m *mockCatalogRepo) Update(_ context.Context, _ *catalog.Product) error { return nil }
func (m *mockCatalogRepo) Delete(_ context.Context, _ string) error           { return nil }

type mockPromoRepo struct {
	rules map[string]*promo.Rule
}

func (m *mockPromoRepo) FindByCode(_ context.Context, code string) (*promo.Rule, error) {
	r, ok := m.rules[code]
	if !ok {
		return nil, promo.ErrInvalidCode
	}
	return r, nil
}

func (m *mockPromoRepo) List(_ context.Context) ([]promo.Rule, error)    { return nil, nil }
func (m *mockPromoRepo) ListCodes(_ context.Context) ([]string, error)   { return nil, nil }
func (m *mockPromoRepo) Create(_ context.Context, _ *promo.Rule) error   { return nil }
func (m *mockPromoRepo) Update(_ context.Context, _ *promo.Rule) error   { return nil }
func (m *mockPromoRepo) Delete(_ context.Context, _ string) error        { return nil }

// mockStore simulates the transactional store: writes inside InTx are
// rolled back when fn fails, and guard outcomes can be forced to model
// races with concurrent writers.
type mockStore struct {
	stock map[string]int
	// usageLeft limits promotion redemptions per code; a missing entry
	// means unlimited.
	usageLeft map[string]int
	orders    map[string]*Order
	log       []StatusChange
	seq       int

	// forceReserveFail makes the next N ReserveStock calls report a failed
	// guard even when stock would cover the request.
	forceReserveFail int
	// forceConflict makes the next N InTx calls fail with ErrConflict
	// after fn runs, as a serialization failure at commit would.
	forceConflict int

	lastFilter ListFilter
}

func newStore(stock map[string]int) *mockStore {
	return &mockStore{
		stock:     stock,
		usageLeft: make(map[string]int),
		orders:    make(map[string]*Order),
	}
}

func (s *mockStore) InTx(_ context.Context, fn func(tx Tx) error) error {
	stockBefore := make(map[string]int, len(s.stock))
	for k, v := range s.stock {
		stockBefore[k] = v
	}
	usageBefore := make(map[string]int, len(s.usageLeft))
	for k, v := range s.usageLeft {
		usageBefore[k] = v
	}
	ordersBefore := make(map[string]Order, len(s.orders))
	for id, o := range s.orders {
		ordersBefore[id] = *o
	}
	logBefore := len(s.log)

	err := fn(&mockTx{s: s})
	if err == nil && s.forceConflict > 0 {
		s.forceConflict--
		err = ErrConflict
	}
	if err != nil {
		s.stock = stockBefore
		s.usageLeft = usageBefore
		s.orders = make(map[string]*Order, len(ordersBefore))
		for id, o := range ordersBefore {
			cp := o
			s.orders[id] = &cp
		}
		s.log = s.log[:logBefore]
		return err
	}
	return nil
}

func (s *mockStore) Get(_ context.Context, id string) (*Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *mockStore) List(_ context.Context, f ListFilter) ([]Order, int, error) {
	s.lastFilter = f
	var out []Order
	for _, o := range s.orders {
		if f.UserID == "" || o.UserID == f.UserID {
			out = append(out, *o)
		}
	}
	return out, len(out), nil
}

type mockTx struct {
	s *mockStore
}

func (t *mockTx) ReserveStock(_ context.Context, productID string, qty int) (bool, error) {
	if t.s.forceReserveFail > 0 {
		t.s.forceReserveFail--
		return false, nil
	}
	if t.s.stock[productID] < qty {
		return false, nil
	}
	t.s.stock[productID] -= qty
	return true, nil
}

func (t *mockTx) RestoreStock(_ context.Context, productID string, qty int) error {
	t.s.stock[productID] += qty
	return nil
}

func (t *mockTx) RedeemPromotion(_ context.Context, code string) (bool, error) {
	left, limited := t.s.usageLeft[code]
	if !limited {
		return true, nil
	}
	if left <= 0 {
		return false, nil
	}
	t.s.usageLeft[code] = left - 1
	return true, nil
}

func (t *mockTx) NextNumber(_ context.Context, now time.Time) (string, error) {
	t.s.seq++
	return fmt.Sprintf("ORD-%s-%06d", now.UTC().Format("20060102"), t.s.seq), nil
}

func (t *mockTx) Insert(_ context.Context, o *Order) error {
	cp := *o
	t.s.orders[o.ID] = &cp
	return nil
}

func (t *mockTx) GetForUpdate(_ context.Context, id string) (*Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (t *mockTx) SetStatus(_ context.Context, id string, status Status, payment PaymentStatus) error {
	o, ok := t.s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	o.PaymentStatus = payment
	return nil
}

func (t *mockTx) LogStatusChange(_ context.Context, ch StatusChange) error {
	t.s.log = append(t.s.log, ch)
	return nil
}

// --- Helpers ---

func testAddress() Address {
	return Address{
		Name:    "Awa Diop",
		Phone:   "+221770000000",
		Street:  "12 Rue Felix Faure",
		City:    "Dakar",
		Country: "SN",
	}
}

func placeRequest(items ...RequestedItem) PlaceOrderRequest {
	return PlaceOrderRequest{
		UserID:          "u1",
		Items:           items,
		ShippingAddress: testAddress(),
		PaymentMethod:   PaymentWave,
	}
}

func testService(store *mockStore, products ...catalog.Product) *Service {
	return NewService(newCatalogRepo(products...), &mockPromoRepo{}, store)
}

// --- Tests ---

func TestPlaceOrder_Empty(t *testing.T) {
	svc := testService(newStore(nil))

	_, err := svc.PlaceOrder(context.Background(), placeRequest())
	require.ErrorIs(t, err, ErrEmptyOrder)
}

func TestPlaceOrder_UnknownPaymentMethod(t *testing.T) {
	svc := testService(newStore(nil))

	req := placeRequest(RequestedItem{ProductID: "p1", Quantity: 1})
	req.PaymentMethod = "cash"
	_, err := svc.PlaceOrder(context.Background(), req)
	require.Error(t, err)
}

func TestPlaceOrder_Success(t *testing.T) {
	p1 := newTestProduct("p1", "Air Zoom Pulse", d("45000"), 10)
	store := newStore(map[string]int{"p1": 10})
	svc := testService(store, p1)

	o, err := svc.PlaceOrder(context.Background(), placeRequest(
		RequestedItem{ProductID: "p1", Quantity: 2, Size: "42"},
	))
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Regexp(t, `^ORD-\d{8}-\d{6}$`, o.Number)
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.True(t, o.Subtotal.Equal(d("90000")))
	assert.True(t, o.Total.Equal(d("90000")))
	assert.Equal(t, 8, store.stock["p1"], "stock should be reserved")
}

func TestPlaceOrder_WithPromotion(t *testing.T) {
	p1 := newTestProduct("p1", "Court Pro Mid", d("85000"), 10)
	store := newStore(map[string]int{"p1": 10})
	svc := NewService(
		newCatalogRepo(p1),
		&mockPromoRepo{rules: map[string]*promo.Rule{"TENOFF": percentRule("10", "15000")}},
		store,
	)

	req := placeRequest(RequestedItem{ProductID: "p1", Quantity: 2})
	req.DiscountCode = "TENOFF"

	o, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, o.Discount.Equal(d("15000")))
	assert.True(t, o.Total.Equal(d("155000")))
	assert.Equal(t, "TENOFF", o.DiscountCode)
}

func TestPlaceOrder_UnknownPromoCode(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", d("100"), 10)
	store := newStore(map[string]int{"p1": 10})
	svc := testService(store, p1)

	req := placeRequest(RequestedItem{ProductID: "p1", Quantity: 1})
	req.DiscountCode = "NOPE"

	_, err := svc.PlaceOrder(context.Background(), req)
	require.ErrorIs(t, err, promo.ErrInvalidCode)
	assert.Equal(t, 10, store.stock["p1"], "no stock may be touched")
}

func TestPlaceOrder_AllOrNothing(t *testing.T) {
	p1 := newTestProduct("p1", "Air Zoom Pulse", d("45000"), 10)
	p2 := newTestProduct("p2", "Trail Grip XT", d("62000"), 5)
	// Catalog still shows 5 units for p2 but the store only has 1 left:
	// another order got there first.
	store := newStore(map[string]int{"p1": 10, "p2": 1})
	svc := testService(store, p1, p2)

	_, err := svc.PlaceOrder(context.Background(), placeRequest(
		RequestedItem{ProductID: "p1", Quantity: 2},
		RequestedItem{ProductID: "p2", Quantity: 3},
	))

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p2", stockErr.ProductID)
	assert.Equal(t, 10, store.stock["p1"], "first reservation must roll back")
	assert.Empty(t, store.orders, "no order may be written")
}

func TestPlaceOrder_RetriesOnceOnStockRace(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", d("100"), 10)
	store := newStore(map[string]int{"p1": 10})
	store.forceReserveFail = 1
	svc := testService(store, p1)

	o, err := svc.PlaceOrder(context.Background(), placeRequest(
		RequestedItem{ProductID: "p1", Quantity: 1},
	))
	require.NoError(t, err)
	assert.NotNil(t, o)
	assert.Equal(t, 9, store.stock["p1"])
}

func TestPlaceOrder_StockRaceSurfacesAfterRetry(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", d("100"), 10)
	store := newStore(map[string]int{"p1": 10})
	store.forceReserveFail = 2
	svc := testService(store, p1)

	_, err := svc.PlaceOrder(context.Background(), placeRequest(
		RequestedItem{ProductID: "p1", Quantity: 1},
	))

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 10, store.stock["p1"])
}

func TestPlaceOrder_ConflictSurfacesAfterRetry(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", d("100"), 10)
	store := newStore(map[string]int{"p1": 10})
	store.forceConflict = 2
	svc := testService(store, p1)

	_, err := svc.PlaceOrder(context.Background(), placeRequest(
		RequestedItem{ProductID: "p1", Quantity: 1},
	))
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 10, store.stock["p1"])
}

func TestPlaceOrder_UsageLimitRace(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", d("10000"), 10)
	store := newStore(map[string]int{"p1": 10})
	store.usageLeft["TENOFF"] = 0
	svc := NewService(
		newCatalogRepo(p1),
		&mockPromoRepo{rules: map[string]*promo.Rule{"TENOFF": percentRule("10", "0")}},
		store,
	)

	req := placeRequest(RequestedItem{ProductID: "p1", Quantity: 1})
	req.DiscountCode = "TENOFF"

	_, err := svc.PlaceOrder(context.Background(), req)
	require.ErrorIs(t, err, promo.ErrUsageLimitReached)
	assert.Equal(t, 10, store.stock["p1"], "reserved stock must roll back")
}

func TestPlaceOrder_DistinctNumbers(t *testing.T) {
	p1 := newTestProduct("p1", "Widget", d("100"), 10)
	store := newStore(map[string]int{"p1": 10})
	svc := testService(store, p1)

	o1, err := svc.PlaceOrder(context.Background(), placeRequest(RequestedItem{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)
	o2, err := svc.PlaceOrder(context.Background(), placeRequest(RequestedItem{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	assert.NotEqual(t, o1.Number, o2.Number)
}

func TestGet_OwnOrder(t *testing.T) {
	store := newStore(nil)
	store.orders["o1"] = &Order{ID: "o1", UserID: "u1"}
	svc := testService(store)

	o, err := svc.Get(context.Background(), "o1", "u1", false)
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)
}

func TestGet_OtherUsersOrderDenied(t *testing.T) {
	store := newStore(nil)
	store.orders["o1"] = &Order{ID: "o1", UserID: "u1"}
	svc := testService(store)

	_, err := svc.Get(context.Background(), "o1", "u2", false)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestGet_AdminSeesAll(t *testing.T) {
	store := newStore(nil)
	store.orders["o1"] = &Order{ID: "o1", UserID: "u1"}
	svc := testService(store)

	o, err := svc.Get(context.Background(), "o1", "admin", true)
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)
}

func TestList_NonAdminPinnedToOwnOrders(t *testing.T) {
	store := newStore(nil)
	svc := testService(store)

	_, _, err := svc.List(context.Background(), ListFilter{UserID: "someone-else"}, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, "u1", store.lastFilter.UserID)
	assert.Equal(t, 1, store.lastFilter.Page)
	assert.Equal(t, 10, store.lastFilter.Limit)
}

func TestUpdateStatus_NothingToUpdate(t *testing.T) {
	svc := testService(newStore(nil))

	_, err := svc.UpdateStatus(context.Background(), "o1", UpdateStatusRequest{})
	require.Error(t, err)
}

func TestUpdateStatus_LogsTransition(t *testing.T) {
	store := newStore(nil)
	store.orders["o1"] = &Order{ID: "o1", UserID: "u1", Status: StatusPending, PaymentStatus: PaymentPending}
	svc := testService(store)

	processing := StatusProcessing
	o, err := svc.UpdateStatus(context.Background(), "o1", UpdateStatusRequest{
		Status: &processing,
		Actor:  "admin@solewave.shop",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, o.Status)

	require.Len(t, store.log, 1)
	assert.Equal(t, StatusPending, store.log[0].From)
	assert.Equal(t, StatusProcessing, store.log[0].To)
	assert.Equal(t, "admin@solewave.shop", store.log[0].Actor)
}

func TestUpdateStatus_PaymentOnlyDoesNotLog(t *testing.T) {
	store := newStore(nil)
	store.orders["o1"] = &Order{ID: "o1", Status: StatusProcessing, PaymentStatus: PaymentPending}
	svc := testService(store)

	paid := PaymentPaid
	o, err := svc.UpdateStatus(context.Background(), "o1", UpdateStatusRequest{PaymentStatus: &paid})
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.Equal(t, StatusProcessing, o.Status)
	assert.Empty(t, store.log)
}

func TestUpdateStatus_TerminalRejected(t *testing.T) {
	store := newStore(nil)
	store.orders["o1"] = &Order{ID: "o1", Status: StatusDelivered, PaymentStatus: PaymentPaid}
	svc := testService(store)

	cancelled := StatusCancelled
	_, err := svc.UpdateStatus(context.Background(), "o1", UpdateStatusRequest{Status: &cancelled})

	var termErr *TerminalStateError
	require.ErrorAs(t, err, &termErr)
	assert.Equal(t, StatusDelivered, termErr.Status)
}

func TestUpdateStatus_CancelRestoresStock(t *testing.T) {
	store := newStore(map[string]int{"p1": 8, "p2": 3})
	store.orders["o1"] = &Order{
		ID:     "o1",
		Status: StatusPending,
		Items: []LineItem{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
		PaymentStatus: PaymentPending,
	}
	svc := testService(store)

	cancelled := StatusCancelled
	o, err := svc.UpdateStatus(context.Background(), "o1", UpdateStatusRequest{Status: &cancelled})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, 10, store.stock["p1"])
	assert.Equal(t, 4, store.stock["p2"])
}

func TestUpdateStatus_UnknownOrder(t *testing.T) {
	svc := testService(newStore(nil))

	processing := StatusProcessing
	_, err := svc.UpdateStatus(context.Background(), "missing", UpdateStatusRequest{Status: &processing})
	require.ErrorIs(t, err, ErrNotFound)
}
