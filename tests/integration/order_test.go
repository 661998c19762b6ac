//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{8}-\d{6}$`)

func TestPlaceOrder_NoAuth(t *testing.T) {
	resp := doPost(t, "/api/orders", "", orderRequest{
		Items:           []orderItemRequest{{ProductID: "whatever", Quantity: 1, Size: "42"}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "wave",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	_, token := registerUser(t)

	resp := doPost(t, "/api/orders", token, orderRequest{
		Items:           []orderItemRequest{},
		ShippingAddress: testAddress(),
		PaymentMethod:   "wave",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	_, token := registerUser(t)

	resp := doPost(t, "/api/orders", token, orderRequest{
		Items:           []orderItemRequest{{ProductID: "00000000-0000-0000-0000-000000000000", Quantity: 1, Size: "42"}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "wave",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_ReservesStock(t *testing.T) {
	user, token := registerUser(t)
	p := findProduct(t, "trail-grip-xt")

	resp := doPost(t, "/api/orders", token, orderRequest{
		Items:           []orderItemRequest{{ProductID: p.ID, Quantity: 2, Size: "43"}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "orange_money",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	placed := decodeData[orderResponse](t, resp)
	if !orderNumberPattern.MatchString(placed.OrderNumber) {
		t.Errorf("order number %q does not match pattern", placed.OrderNumber)
	}
	if placed.UserID != user.ID {
		t.Errorf("userId: got %q, want %q", placed.UserID, user.ID)
	}
	if placed.Status != "pending" {
		t.Errorf("status: got %q, want pending", placed.Status)
	}
	if placed.Total != p.Price*2 {
		t.Errorf("total: got %v, want %v", placed.Total, p.Price*2)
	}

	after := findProduct(t, "trail-grip-xt")
	if after.Stock != p.Stock-2 {
		t.Errorf("stock after order: got %d, want %d", after.Stock, p.Stock-2)
	}
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	_, token := registerUser(t)
	p := findProduct(t, "court-pro-mid")

	resp := doPost(t, "/api/orders", token, orderRequest{
		Items:           []orderItemRequest{{ProductID: p.ID, Quantity: p.Stock + 1, Size: "44"}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	after := findProduct(t, "court-pro-mid")
	if after.Stock != p.Stock {
		t.Errorf("stock must be untouched: got %d, want %d", after.Stock, p.Stock)
	}
}

func TestPlaceOrder_WithPromotion(t *testing.T) {
	_, token := registerUser(t)
	p := findProduct(t, "court-pro-mid")

	resp := doPost(t, "/api/orders", token, orderRequest{
		Items:           []orderItemRequest{{ProductID: p.ID, Quantity: 1, Size: "44"}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "wave",
		DiscountCode:    "WELCOME10",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	placed := decodeData[orderResponse](t, resp)
	if placed.Discount != p.Price*0.1 {
		t.Errorf("discount: got %v, want %v", placed.Discount, p.Price*0.1)
	}
	if placed.Total != p.Price*0.9 {
		t.Errorf("total: got %v, want %v", placed.Total, p.Price*0.9)
	}
}

func TestValidatePromotion(t *testing.T) {
	resp := doPost(t, "/api/promotions/validate", "", map[string]any{
		"code":      "WELCOME10",
		"cartTotal": 100000,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	d := decodeData[discountData](t, resp)
	if d.Code != "WELCOME10" {
		t.Errorf("code: got %q, want WELCOME10", d.Code)
	}
	if d.Discount != 10000 {
		t.Errorf("discount: got %v, want 10000", d.Discount)
	}
}

func TestValidatePromotion_Unknown(t *testing.T) {
	resp := doPost(t, "/api/promotions/validate", "", map[string]any{
		"code":      "NO-SUCH-CODE",
		"cartTotal": 100000,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestValidatePromotion_BelowMinimum(t *testing.T) {
	resp := doPost(t, "/api/promotions/validate", "", map[string]any{
		"code":      "SUMMER25",
		"cartTotal": 10000,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetOrder_OwnershipEnforced(t *testing.T) {
	_, owner := registerUser(t)
	_, stranger := registerUser(t)
	p := findProduct(t, "street-flex-knit")

	resp := doPost(t, "/api/orders", owner, orderRequest{
		Items:           []orderItemRequest{{ProductID: p.ID, Quantity: 1, Size: "41"}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "wave",
	})
	placed := decodeData[orderResponse](t, resp)
	resp.Body.Close()

	own := doGet(t, "/api/orders/"+placed.ID, owner)
	own.Body.Close()
	if own.StatusCode != http.StatusOK {
		t.Errorf("owner read: expected 200, got %d", own.StatusCode)
	}

	foreign := doGet(t, "/api/orders/"+placed.ID, stranger)
	foreign.Body.Close()
	if foreign.StatusCode != http.StatusForbidden {
		t.Errorf("stranger read: expected 403, got %d", foreign.StatusCode)
	}
}

func TestListOrders_OnlyOwn(t *testing.T) {
	_, token := registerUser(t)

	resp := doGet(t, "/api/orders", token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	data := decodeData[orderListData](t, resp)
	if len(data.Orders) != 0 {
		t.Errorf("fresh user should have no orders, got %d", len(data.Orders))
	}
}

func TestOrderLifecycle_AdminCancelRestoresStock(t *testing.T) {
	_, token := registerUser(t)
	admin := adminToken(t)
	p := findProduct(t, "retro-runner-87")

	resp := doPost(t, "/api/orders", token, orderRequest{
		Items:           []orderItemRequest{{ProductID: p.ID, Quantity: 2, Size: "42"}},
		ShippingAddress: testAddress(),
		PaymentMethod:   "wave",
	})
	placed := decodeData[orderResponse](t, resp)
	resp.Body.Close()

	// Client cannot run lifecycle updates.
	denied := doPut(t, "/api/orders/"+placed.ID, token, map[string]string{"status": "processing"})
	denied.Body.Close()
	if denied.StatusCode != http.StatusForbidden {
		t.Fatalf("client update: expected 403, got %d", denied.StatusCode)
	}

	// Admin moves it along, then cancels.
	upd := doPut(t, "/api/orders/"+placed.ID, admin, map[string]string{"status": "processing"})
	updated := decodeData[orderResponse](t, upd)
	upd.Body.Close()
	if updated.Status != "processing" {
		t.Fatalf("status: got %q, want processing", updated.Status)
	}

	cancel := doPut(t, "/api/orders/"+placed.ID, admin, map[string]string{"status": "cancelled"})
	cancelled := decodeData[orderResponse](t, cancel)
	cancel.Body.Close()
	if cancelled.Status != "cancelled" {
		t.Fatalf("status: got %q, want cancelled", cancelled.Status)
	}

	after := findProduct(t, "retro-runner-87")
	if after.Stock != p.Stock {
		t.Errorf("stock after cancel: got %d, want %d", after.Stock, p.Stock)
	}

	// Terminal orders reject further transitions.
	again := doPut(t, "/api/orders/"+placed.ID, admin, map[string]string{"status": "shipped"})
	again.Body.Close()
	if again.StatusCode != http.StatusBadRequest {
		t.Errorf("terminal update: expected 400, got %d", again.StatusCode)
	}
}

func TestAdminStats(t *testing.T) {
	admin := adminToken(t)

	resp := doGet(t, "/api/admin/stats?period=30", admin)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	env := decodeEnvelope(t, resp)
	if !env.Success {
		t.Fatalf("expected success, got error: %s", env.Error)
	}
}
