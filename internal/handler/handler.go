// Package handler exposes the storefront REST API: catalog browsing,
// promotion preview, checkout, order lifecycle and the admin dashboard.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/solewave/storefront/internal/domain/auth"
	"github.com/solewave/storefront/internal/domain/catalog"
	"github.com/solewave/storefront/internal/domain/order"
	"github.com/solewave/storefront/internal/domain/promo"
	"github.com/solewave/storefront/internal/promocache"
	"github.com/solewave/storefront/internal/repository"
)

// StatsFetcher computes the admin dashboard aggregates.
type StatsFetcher interface {
	Fetch(ctx context.Context, since time.Time) (*repository.Stats, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product
	// responses. When empty, image paths are returned as stored.
	ImageBaseURL string
}

// Handler wires the HTTP surface to the domain services.
type Handler struct {
	cfg         Config
	products    catalog.Repository
	categories  catalog.CategoryRepository
	promos      promo.Repository
	validator   promo.Validator
	promoFilter *promocache.Filter
	orders      *order.Service
	users       auth.Repository
	tokens      *auth.TokenManager
	stats       StatsFetcher
}

// New constructs a Handler with the required dependencies.
func New(
	cfg Config,
	products catalog.Repository,
	categories catalog.CategoryRepository,
	promos promo.Repository,
	validator promo.Validator,
	promoFilter *promocache.Filter,
	orders *order.Service,
	users auth.Repository,
	tokens *auth.TokenManager,
	stats StatsFetcher,
) *Handler {
	return &Handler{
		cfg:         cfg,
		products:    products,
		categories:  categories,
		promos:      promos,
		validator:   validator,
		promoFilter: promoFilter,
		orders:      orders,
		users:       users,
		tokens:      tokens,
		stats:       stats,
	}
}

// Register mounts all API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	// Public.
	mux.HandleFunc("GET /api/products", h.optionalAuth(h.listProducts))
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/categories", h.listCategories)
	mux.HandleFunc("GET /api/categories/{id}", h.getCategory)
	mux.HandleFunc("POST /api/promotions/validate", h.validatePromotion)
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)

	// Authenticated.
	mux.HandleFunc("POST /api/orders", h.requireAuth(h.placeOrder))
	mux.HandleFunc("GET /api/orders", h.requireAuth(h.listOrders))
	mux.HandleFunc("GET /api/orders/{id}", h.requireAuth(h.getOrder))

	// Admin.
	mux.HandleFunc("PUT /api/orders/{id}", h.requireAdmin(h.updateOrder))
	mux.HandleFunc("POST /api/products", h.requireAdmin(h.createProduct))
	mux.HandleFunc("PUT /api/products/{id}", h.requireAdmin(h.updateProduct))
	mux.HandleFunc("DELETE /api/products/{id}", h.requireAdmin(h.deleteProduct))
	mux.HandleFunc("GET /api/promotions", h.requireAdmin(h.listPromotions))
	mux.HandleFunc("POST /api/promotions", h.requireAdmin(h.createPromotion))
	mux.HandleFunc("PUT /api/promotions/{id}", h.requireAdmin(h.updatePromotion))
	mux.HandleFunc("DELETE /api/promotions/{id}", h.requireAdmin(h.deletePromotion))
	mux.HandleFunc("POST /api/categories", h.requireAdmin(h.createCategory))
	mux.HandleFunc("PUT /api/categories/{id}", h.requireAdmin(h.updateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", h.requireAdmin(h.deleteCategory))
	mux.HandleFunc("GET /api/admin/users", h.requireAdmin(h.listUsers))
	mux.HandleFunc("POST /api/admin/users", h.requireAdmin(h.createUser))
	mux.HandleFunc("GET /api/admin/stats", h.requireAdmin(h.adminStats))
}
