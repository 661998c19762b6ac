package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/solewave/storefront/internal/domain/catalog"
)

// productJSON is the wire form of a catalog product.
type productJSON struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Slug           string   `json:"slug"`
	Description    string   `json:"description,omitempty"`
	Price          float64  `json:"price"`
	CompareAtPrice float64  `json:"compareAtPrice,omitempty"`
	Category       string   `json:"category"`
	Images         []string `json:"images"`
	Sizes          []string `json:"sizes"`
	Colors         []string `json:"colors,omitempty"`
	Stock          int      `json:"stock"`
	SKU            string   `json:"sku"`
	Brand          string   `json:"brand,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Featured       bool     `json:"featured"`
	Active         bool     `json:"active"`
	CreatedAt      string   `json:"createdAt,omitempty"`
}

func (h *Handler) productToJSON(p catalog.Product) productJSON {
	images := make([]string, len(p.Images))
	for i, img := range p.Images {
		images[i] = h.imageURL(img)
	}
	created := ""
	if !p.CreatedAt.IsZero() {
		created = p.CreatedAt.UTC().Format(time.RFC3339)
	}
	return productJSON{
		ID:             p.ID,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		Price:          p.Price.InexactFloat64(),
		CompareAtPrice: p.CompareAtPrice.InexactFloat64(),
		Category:       p.Category,
		Images:         images,
		Sizes:          p.Sizes,
		Colors:         p.Colors,
		Stock:          p.Stock,
		SKU:            p.SKU,
		Brand:          p.Brand,
		Tags:           p.Tags,
		Featured:       p.Featured,
		Active:         p.Active,
		CreatedAt:      created,
	}
}

// imageURL prepends the configured base URL to relative image paths.
// Absolute URLs pass through untouched.
func (h *Handler) imageURL(path string) string {
	if h.cfg.ImageBaseURL == "" || path == "" ||
		strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(h.cfg.ImageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

// paginationJSON echoes the listing window back to the client.
type paginationJSON struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func paginate(page, limit, total int) paginationJSON {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return paginationJSON{Page: page, Limit: limit, Total: total, Pages: pages}
}

// queryInt reads a positive integer query parameter. Values with a unit
// suffix keep their leading digits, so period=30d parses as 30.
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	i := 0
	for i < len(v) && v[i] >= '0' && v[i] <= '9' {
		i++
	}
	n, err := strconv.Atoi(v[:i])
	if err != nil || n < 1 {
		return def
	}
	return n
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFromContext(r.Context())

	f := catalog.Filter{
		Category:   r.URL.Query().Get("category"),
		ActiveOnly: claims == nil || !claims.Admin(),
		Page:       queryInt(r, "page", 1),
		Limit:      queryInt(r, "limit", 20),
	}
	if v := r.URL.Query().Get("featured"); v != "" {
		featured := v == "true"
		f.Featured = &featured
	}

	products, total, err := h.products.List(r.Context(), f)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]productJSON, len(products))
	for i, p := range products {
		out[i] = h.productToJSON(p)
	}
	respondData(w, r, http.StatusOK, map[string]any{
		"products":   out,
		"pagination": paginate(f.Page, f.Limit, total),
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, h.productToJSON(*p))
}

// productRequest is the admin create/update payload.
type productRequest struct {
	Name           string   `json:"name"`
	Slug           string   `json:"slug"`
	Description    string   `json:"description"`
	Price          float64  `json:"price"`
	CompareAtPrice float64  `json:"compareAtPrice"`
	Category       string   `json:"category"`
	Images         []string `json:"images"`
	Sizes          []string `json:"sizes"`
	Colors         []string `json:"colors"`
	Stock          int      `json:"stock"`
	SKU            string   `json:"sku"`
	Brand          string   `json:"brand"`
	Tags           []string `json:"tags"`
	Featured       bool     `json:"featured"`
	Active         *bool    `json:"active"`
}

func (req *productRequest) validate() string {
	switch {
	case req.Name == "":
		return "product name is required"
	case req.Price < 0:
		return "price must not be negative"
	case req.Stock < 0:
		return "stock must not be negative"
	case req.Category == "":
		return "category is required"
	case req.SKU == "":
		return "sku is required"
	case len(req.Images) == 0:
		return "at least one image is required"
	case len(req.Sizes) == 0:
		return "at least one size is required"
	}
	return ""
}

func (req *productRequest) toProduct(id string) *catalog.Product {
	slug := req.Slug
	if slug == "" {
		slug = strings.ToLower(strings.ReplaceAll(req.Name, " ", "-"))
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return &catalog.Product{
		ID:             id,
		Name:           req.Name,
		Slug:           slug,
		Description:    req.Description,
		Price:          decimal.NewFromFloat(req.Price),
		CompareAtPrice: decimal.NewFromFloat(req.CompareAtPrice),
		Category:       req.Category,
		Images:         req.Images,
		Sizes:          req.Sizes,
		Colors:         req.Colors,
		Stock:          req.Stock,
		SKU:            req.SKU,
		Brand:          req.Brand,
		Tags:           req.Tags,
		Featured:       req.Featured,
		Active:         active,
	}
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, r, http.StatusBadRequest, msg)
		return
	}

	p := req.toProduct(uuid.New().String())
	if err := h.products.Create(r.Context(), p); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusCreated, h.productToJSON(*p))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, r, http.StatusBadRequest, msg)
		return
	}

	p := req.toProduct(r.PathValue("id"))
	if err := h.products.Update(r.Context(), p); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, h.productToJSON(*p))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, map[string]string{"deleted": r.PathValue("id")})
}
