package handler

import (
	"net/http"
	"time"

	"github.com/solewave/storefront/internal/domain/order"
)

// orderItemRequest is one cart line in the checkout payload.
type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color,omitempty"`
}

// placeOrderRequest is the checkout payload.
type placeOrderRequest struct {
	Items           []orderItemRequest `json:"items"`
	ShippingAddress order.Address      `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	DiscountCode    string             `json:"discountCode,omitempty"`
	Notes           string             `json:"notes,omitempty"`
}

// orderItemJSON is one snapshotted line item on the wire.
type orderItemJSON struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size"`
	Color     string  `json:"color,omitempty"`
	Image     string  `json:"image,omitempty"`
}

// orderJSON is the wire form of an order.
type orderJSON struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	UserID          string          `json:"userId"`
	Items           []orderItemJSON `json:"items"`
	Subtotal        float64         `json:"subtotal"`
	Discount        float64         `json:"discount"`
	DiscountCode    string          `json:"discountCode,omitempty"`
	Total           float64         `json:"total"`
	Status          string          `json:"status"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
	ShippingAddress order.Address   `json:"shippingAddress"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       string          `json:"createdAt,omitempty"`
}

func (h *Handler) orderToJSON(o *order.Order) orderJSON {
	items := make([]orderItemJSON, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemJSON{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price.InexactFloat64(),
			Quantity:  it.Quantity,
			Size:      it.Size,
			Color:     it.Color,
			Image:     h.imageURL(it.Image),
		}
	}
	created := ""
	if !o.CreatedAt.IsZero() {
		created = o.CreatedAt.UTC().Format(time.RFC3339)
	}
	return orderJSON{
		ID:              o.ID,
		OrderNumber:     o.Number,
		UserID:          o.UserID,
		Items:           items,
		Subtotal:        o.Subtotal.InexactFloat64(),
		Discount:        o.Discount.InexactFloat64(),
		DiscountCode:    o.DiscountCode,
		Total:           o.Total.InexactFloat64(),
		Status:          string(o.Status),
		PaymentMethod:   string(o.PaymentMethod),
		PaymentStatus:   string(o.PaymentStatus),
		ShippingAddress: o.ShippingAddress,
		Notes:           o.Notes,
		CreatedAt:       created,
	}
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	var req placeOrderRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateShippingAddress(req.ShippingAddress); msg != "" {
		respondError(w, r, http.StatusBadRequest, msg)
		return
	}

	items := make([]order.RequestedItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.RequestedItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Color:     it.Color,
		}
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID:          claims.UserID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
		DiscountCode:    req.DiscountCode,
		Notes:           req.Notes,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusCreated, h.orderToJSON(o))
}

func validateShippingAddress(a order.Address) string {
	switch {
	case a.Name == "":
		return "shipping name is required"
	case a.Phone == "":
		return "shipping phone is required"
	case a.Street == "":
		return "shipping street is required"
	case a.City == "":
		return "shipping city is required"
	case a.Country == "":
		return "shipping country is required"
	}
	return ""
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	f := order.ListFilter{
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 10),
	}
	orders, total, err := h.orders.List(r.Context(), f, claims.UserID, claims.Admin())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]orderJSON, len(orders))
	for i := range orders {
		out[i] = h.orderToJSON(&orders[i])
	}
	respondData(w, r, http.StatusOK, map[string]any{
		"orders":     out,
		"pagination": paginate(f.Page, f.Limit, total),
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	o, err := h.orders.Get(r.Context(), r.PathValue("id"), claims.UserID, claims.Admin())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, h.orderToJSON(o))
}

// updateOrderRequest is the admin lifecycle payload; absent fields are
// left unchanged.
type updateOrderRequest struct {
	Status        *string `json:"status"`
	PaymentStatus *string `json:"paymentStatus"`
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	var req updateOrderRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	upd := order.UpdateStatusRequest{Actor: claims.Email}
	if req.Status != nil {
		s := order.Status(*req.Status)
		if !s.Valid() {
			respondError(w, r, http.StatusBadRequest, "unknown status: "+*req.Status)
			return
		}
		upd.Status = &s
	}
	if req.PaymentStatus != nil {
		p := order.PaymentStatus(*req.PaymentStatus)
		if !p.Valid() {
			respondError(w, r, http.StatusBadRequest, "unknown payment status: "+*req.PaymentStatus)
			return
		}
		upd.PaymentStatus = &p
	}
	if upd.Status == nil && upd.PaymentStatus == nil {
		respondError(w, r, http.StatusBadRequest, "status or paymentStatus is required")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), upd)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, h.orderToJSON(o))
}
