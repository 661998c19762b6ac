package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/solewave/storefront/internal/domain/auth"
	"github.com/solewave/storefront/internal/domain/catalog"
	"github.com/solewave/storefront/internal/domain/order"
	"github.com/solewave/storefront/internal/domain/promo"
)

const maxBodyBytes = 1 << 20

// envelope is the uniform response wrapper every endpoint uses.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondData(w http.ResponseWriter, r *http.Request, status int, data any) {
	respondJSON(w, r, status, envelope{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respondJSON(w, r, status, envelope{Success: false, Error: msg})
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zctx.From(r.Context()).Warn("write response", zap.Error(err))
	}
}

// decodeBody reads and unmarshals a bounded JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

// respondDomainError translates the error taxonomy into HTTP statuses.
// Anything unrecognized is an internal error: logged with detail, returned
// without it.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr       *order.InvalidQuantityError
		stockErr    *order.InsufficientStockError
		minErr      *promo.MinPurchaseError
		terminalErr *order.TerminalStateError
	)

	switch {
	case errors.Is(err, order.ErrEmptyOrder):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &iqErr):
		respondError(w, r, http.StatusBadRequest, iqErr.Error())
	case errors.As(err, &stockErr):
		respondError(w, r, http.StatusBadRequest, stockErr.Error())
	case errors.As(err, &minErr):
		respondError(w, r, http.StatusBadRequest, minErr.Error())
	case errors.As(err, &terminalErr):
		respondError(w, r, http.StatusBadRequest, terminalErr.Error())
	case errors.Is(err, promo.ErrInvalidCode):
		respondError(w, r, http.StatusNotFound, promo.ErrInvalidCode.Error())
	case errors.Is(err, promo.ErrUsageLimitReached):
		respondError(w, r, http.StatusBadRequest, promo.ErrUsageLimitReached.Error())
	case errors.Is(err, catalog.ErrNotFound):
		respondError(w, r, http.StatusNotFound, catalog.ErrNotFound.Error())
	case errors.Is(err, catalog.ErrCategoryNotFound):
		respondError(w, r, http.StatusNotFound, catalog.ErrCategoryNotFound.Error())
	case errors.Is(err, catalog.ErrCategoryExists):
		respondError(w, r, http.StatusConflict, catalog.ErrCategoryExists.Error())
	case errors.Is(err, order.ErrNotFound):
		respondError(w, r, http.StatusNotFound, order.ErrNotFound.Error())
	case errors.Is(err, order.ErrAccessDenied):
		respondError(w, r, http.StatusForbidden, order.ErrAccessDenied.Error())
	case errors.Is(err, order.ErrConflict):
		respondError(w, r, http.StatusConflict, order.ErrConflict.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		respondError(w, r, http.StatusBadRequest, auth.ErrEmailTaken.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, r, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
	case errors.Is(err, auth.ErrUserNotFound):
		respondError(w, r, http.StatusNotFound, auth.ErrUserNotFound.Error())
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
