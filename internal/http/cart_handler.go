package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Paul-Karonji/framel-sub000/internal/cart"
	"github.com/Paul-Karonji/framel-sub000/internal/catalog"
)

type CartHandler struct {
	carts *cart.Service
}

func NewCartHandler(carts *cart.Service) *CartHandler {
	return &CartHandler{carts: carts}
}

type cartResponse struct {
	*cart.Cart
	Totals cart.Totals `json:"totals"`
}

func (h *CartHandler) respondCart(w http.ResponseWriter, status int, c *cart.Cart) {
	writeJSON(w, status, cartResponse{Cart: c, Totals: h.carts.Totals(c)})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerId")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "missing ownerId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.carts.Get(ctx, ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}
	h.respondCart(w, http.StatusOK, c)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerId")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "missing ownerId")
		return
	}

	var body struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.carts.Add(ctx, ownerID, body.ProductID, body.Quantity)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	h.respondCart(w, http.StatusOK, c)
}

func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerId")
	productID := chi.URLParam(r, "productId")
	if ownerID == "" || productID == "" {
		writeError(w, http.StatusBadRequest, "missing ownerId or productId")
		return
	}

	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.carts.SetQuantity(ctx, ownerID, productID, body.Quantity)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	h.respondCart(w, http.StatusOK, c)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerId")
	productID := chi.URLParam(r, "productId")
	if ownerID == "" || productID == "" {
		writeError(w, http.StatusBadRequest, "missing ownerId or productId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.carts.Remove(ctx, ownerID, productID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}
	h.respondCart(w, http.StatusOK, c)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerId")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "missing ownerId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.carts.Clear(ctx, ownerID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cart cleared"})
}

// MergeGuest folds the guest cart named in the body into the
// authenticated user's cart.
func (h *CartHandler) MergeGuest(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "ownerId")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "missing ownerId")
		return
	}

	var body struct {
		GuestID string `json:"guestId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.GuestID == "" {
		writeError(w, http.StatusBadRequest, "missing guestId")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.carts.MergeGuestInto(ctx, ownerID, body.GuestID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to merge carts")
		return
	}
	h.respondCart(w, http.StatusOK, c)
}

func (h *CartHandler) writeCartError(w http.ResponseWriter, err error) {
	var oos *cart.OutOfStockError
	switch {
	case errors.As(err, &oos):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "out of stock",
			"productId": oos.ProductID,
			"requested": oos.Requested,
			"available": oos.Available,
		})
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, cart.ErrLineNotFound):
		writeError(w, http.StatusNotFound, "cart line not found")
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	default:
		writeError(w, http.StatusInternalServerError, "failed to update cart")
	}
}
