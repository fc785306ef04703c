package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Paul-Karonji/framel-sub000/internal/catalog"
)

type CatalogHandler struct {
	products catalog.Repository
}

func NewCatalogHandler(products catalog.Repository) *CatalogHandler {
	return &CatalogHandler{products: products}
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if p.ID == "" || p.Name == "" || p.Price < 0 || p.Stock < 0 {
		writeError(w, http.StatusBadRequest, "id and name are required, price and stock must be non-negative")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.products.Upsert(ctx, p); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save product")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SetStock is the back-office restock endpoint.
func (h *CatalogHandler) SetStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	var body struct {
		Stock int `json:"stock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Stock < 0 {
		writeError(w, http.StatusBadRequest, "stock must be non-negative")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.products.SetStock(ctx, productID, body.Stock); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update stock")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"productId": productID, "stock": body.Stock})
}
