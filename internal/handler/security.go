package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/solewave/storefront/internal/domain/auth"
)

// claimsKey is the context key for the authenticated claims.
type claimsKey struct{}

// ClaimsFromContext extracts the verified claims, if any.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return c, ok
}

// requireAuth verifies the bearer token and stores its claims in the
// request context.
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, r, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := h.tokens.Verify(token)
		if err != nil {
			respondError(w, r, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next(w, r.WithContext(ctx))
	}
}

// optionalAuth attaches claims when a valid bearer token is present but
// lets anonymous requests through. Used on public endpoints whose response
// widens for admins.
func (h *Handler) optionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
			if claims, err := h.tokens.Verify(token); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims))
			}
		}
		next(w, r)
	}
}

// requireAdmin is requireAuth plus an admin-role check.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || !claims.Admin() {
			respondError(w, r, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	})
}
