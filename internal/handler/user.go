package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/solewave/storefront/internal/domain/auth"
)

// userJSON is the public wire form of a user; the password hash never
// leaves the server.
type userJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role"`
}

func userToJSON(u *auth.User) userJSON {
	return userJSON{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Phone: u.Phone,
		Role:  string(u.Role),
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	switch {
	case req.Name == "":
		respondError(w, r, http.StatusBadRequest, "name is required")
		return
	case !strings.Contains(req.Email, "@"):
		respondError(w, r, http.StatusBadRequest, "a valid email is required")
		return
	case len(req.Password) < 8:
		respondError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	u := &auth.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         auth.RoleClient,
	}
	if err := h.users.Create(r.Context(), u); err != nil {
		respondDomainError(w, r, err)
		return
	}

	token, err := h.tokens.Issue(u)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusCreated, map[string]any{
		"user":  userToJSON(u),
		"token": token,
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	f := auth.ListFilter{
		Role:  auth.Role(r.URL.Query().Get("role")),
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 20),
	}

	users, total, err := h.users.List(r.Context(), f)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]userJSON, len(users))
	for i := range users {
		out[i] = userToJSON(&users[i])
	}
	respondData(w, r, http.StatusOK, map[string]any{
		"users":      out,
		"pagination": paginate(f.Page, f.Limit, total),
	})
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// createUser lets an admin provision accounts directly, including other
// admins. Unlike register, no token is issued.
func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role := auth.Role(req.Role)
	if role == "" {
		role = auth.RoleClient
	}
	switch {
	case req.Name == "":
		respondError(w, r, http.StatusBadRequest, "name is required")
		return
	case !strings.Contains(req.Email, "@"):
		respondError(w, r, http.StatusBadRequest, "a valid email is required")
		return
	case len(req.Password) < 8:
		respondError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	case role != auth.RoleClient && role != auth.RoleAdmin:
		respondError(w, r, http.StatusBadRequest, "unknown role")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	u := &auth.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		Phone:        req.Phone,
		PasswordHash: hash,
		Role:         role,
	}
	if err := h.users.Create(r.Context(), u); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusCreated, userToJSON(u))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			respondDomainError(w, r, auth.ErrInvalidCredentials)
			return
		}
		respondDomainError(w, r, err)
		return
	}
	if !auth.CheckPassword(req.Password, u.PasswordHash) {
		respondDomainError(w, r, auth.ErrInvalidCredentials)
		return
	}

	token, err := h.tokens.Issue(u)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, map[string]any{
		"user":  userToJSON(u),
		"token": token,
	})
}
