package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solewave/storefront/internal/domain/promo"
)

// validatePromoRequest is the public discount-preview payload.
type validatePromoRequest struct {
	Code      string  `json:"code"`
	CartTotal float64 `json:"cartTotal"`
}

func (h *Handler) validatePromotion(w http.ResponseWriter, r *http.Request) {
	var req validatePromoRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Code == "" {
		respondError(w, r, http.StatusBadRequest, "promo code is required")
		return
	}

	// Definitely-unknown codes never reach the database.
	if h.promoFilter != nil && !h.promoFilter.MayContain(req.Code) {
		respondError(w, r, http.StatusNotFound, promo.ErrInvalidCode.Error())
		return
	}

	d, err := h.validator.Preview(r.Context(), req.Code, decimal.NewFromFloat(req.CartTotal))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, map[string]any{
		"code":        d.Code,
		"discount":    d.Amount.InexactFloat64(),
		"description": d.Description,
	})
}

// promoJSON is the wire form of a promotion rule.
type promoJSON struct {
	ID            string  `json:"id"`
	Code          string  `json:"code"`
	Description   string  `json:"description"`
	DiscountType  string  `json:"discountType"`
	DiscountValue float64 `json:"discountValue"`
	MinPurchase   float64 `json:"minPurchase,omitempty"`
	MaxDiscount   float64 `json:"maxDiscount,omitempty"`
	StartDate     string  `json:"startDate"`
	EndDate       string  `json:"endDate"`
	UsageLimit    int     `json:"usageLimit,omitempty"`
	UsageCount    int     `json:"usageCount"`
	Active        bool    `json:"active"`
}

func promoToJSON(rule promo.Rule) promoJSON {
	return promoJSON{
		ID:            rule.ID,
		Code:          rule.Code,
		Description:   rule.Description,
		DiscountType:  string(rule.Type),
		DiscountValue: rule.Value.InexactFloat64(),
		MinPurchase:   rule.MinPurchase.InexactFloat64(),
		MaxDiscount:   rule.MaxDiscount.InexactFloat64(),
		StartDate:     rule.StartDate.UTC().Format(time.RFC3339),
		EndDate:       rule.EndDate.UTC().Format(time.RFC3339),
		UsageLimit:    rule.UsageLimit,
		UsageCount:    rule.UsageCount,
		Active:        rule.Active,
	}
}

func (h *Handler) listPromotions(w http.ResponseWriter, r *http.Request) {
	rules, err := h.promos.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := make([]promoJSON, len(rules))
	for i, rule := range rules {
		out[i] = promoToJSON(rule)
	}
	respondData(w, r, http.StatusOK, out)
}

// promoRequest is the admin create/update payload.
type promoRequest struct {
	Code          string  `json:"code"`
	Description   string  `json:"description"`
	DiscountType  string  `json:"discountType"`
	DiscountValue float64 `json:"discountValue"`
	MinPurchase   float64 `json:"minPurchase"`
	MaxDiscount   float64 `json:"maxDiscount"`
	StartDate     string  `json:"startDate"`
	EndDate       string  `json:"endDate"`
	UsageLimit    int     `json:"usageLimit"`
	Active        *bool   `json:"active"`
}

func (req *promoRequest) toRule(id string) (*promo.Rule, string) {
	if req.Code == "" {
		return nil, "promo code is required"
	}
	dt := promo.DiscountType(req.DiscountType)
	if dt != promo.DiscountPercentage && dt != promo.DiscountFixed {
		return nil, "discountType must be percentage or fixed"
	}
	if req.DiscountValue < 0 {
		return nil, "discountValue must not be negative"
	}
	start, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		return nil, "startDate must be RFC 3339"
	}
	end, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		return nil, "endDate must be RFC 3339"
	}
	if end.Before(start) {
		return nil, "endDate must not precede startDate"
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return &promo.Rule{
		ID:          id,
		Code:        req.Code,
		Description: req.Description,
		Type:        dt,
		Value:       decimal.NewFromFloat(req.DiscountValue),
		MinPurchase: decimal.NewFromFloat(req.MinPurchase),
		MaxDiscount: decimal.NewFromFloat(req.MaxDiscount),
		StartDate:   start,
		EndDate:     end,
		UsageLimit:  req.UsageLimit,
		Active:      active,
	}, ""
}

func (h *Handler) createPromotion(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rule, msg := req.toRule(uuid.New().String())
	if msg != "" {
		respondError(w, r, http.StatusBadRequest, msg)
		return
	}

	if err := h.promos.Create(r.Context(), rule); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if h.promoFilter != nil {
		h.promoFilter.Add(rule.Code)
	}
	respondData(w, r, http.StatusCreated, promoToJSON(*rule))
}

func (h *Handler) updatePromotion(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	rule, msg := req.toRule(r.PathValue("id"))
	if msg != "" {
		respondError(w, r, http.StatusBadRequest, msg)
		return
	}

	if err := h.promos.Update(r.Context(), rule); err != nil {
		respondDomainError(w, r, err)
		return
	}
	if h.promoFilter != nil {
		h.promoFilter.Add(rule.Code)
	}
	respondData(w, r, http.StatusOK, promoToJSON(*rule))
}

func (h *Handler) deletePromotion(w http.ResponseWriter, r *http.Request) {
	if err := h.promos.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, map[string]string{"deleted": r.PathValue("id")})
}
