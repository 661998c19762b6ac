package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/solewave/storefront/internal/domain/catalog"
)

// categoryJSON is the wire form of a product category.
type categoryJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

func categoryToJSON(c catalog.Category) categoryJSON {
	return categoryJSON{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
	}
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]categoryJSON, len(categories))
	for i, c := range categories {
		out[i] = categoryToJSON(c)
	}
	respondData(w, r, http.StatusOK, out)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	c, err := h.categories.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, categoryToJSON(*c))
}

// categoryRequest is the admin create/update payload.
type categoryRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (req *categoryRequest) toCategory(id string) *catalog.Category {
	slug := req.Slug
	if slug == "" {
		slug = strings.ToLower(strings.ReplaceAll(req.Name, " ", "-"))
	}
	return &catalog.Category{
		ID:          id,
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
	}
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, r, http.StatusBadRequest, "category name is required")
		return
	}

	c := req.toCategory(uuid.New().String())
	if err := h.categories.Create(r.Context(), c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusCreated, categoryToJSON(*c))
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		respondError(w, r, http.StatusBadRequest, "category name is required")
		return
	}

	c := req.toCategory(r.PathValue("id"))
	if err := h.categories.Update(r.Context(), c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, categoryToJSON(*c))
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.categories.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, map[string]string{"deleted": r.PathValue("id")})
}
