package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Paul-Karonji/framel-sub000/internal/order"
)

// OrderEngine is the service surface the order handlers call. Narrowed to an
// interface so handler tests can run against a fake.
type OrderEngine interface {
	Create(ctx context.Context, ownerID string, details order.DeliveryDetails) (*order.Order, error)
	Get(ctx context.Context, actor order.Actor, orderID string) (*order.Order, error)
	GetByCode(ctx context.Context, actor order.Actor, code string) (*order.Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]order.Order, error)
	List(ctx context.Context, f order.Filter) ([]order.Order, error)
	Cancel(ctx context.Context, actor order.Actor, orderID string) (*order.Order, error)
	UpdateStatus(ctx context.Context, orderID string, next order.Status) (*order.Order, error)
}

type OrderHandler struct {
	orders OrderEngine
}

func NewOrderHandler(orders OrderEngine) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// actorFromRequest trusts the identity headers injected by the gateway in
// front of this service. There is no token handling here.
func actorFromRequest(r *http.Request) order.Actor {
	return order.Actor{
		ID:    r.Header.Get("X-User-ID"),
		Admin: r.Header.Get("X-User-Role") == "admin",
	}
}

type createOrderRequest struct {
	RecipientName string `json:"recipientName"`
	Phone         string `json:"phone"`
	Street        string `json:"street"`
	City          string `json:"city"`
	County        string `json:"county"`
	DeliveryDate  string `json:"deliveryDate"`
	Instructions  string `json:"instructions"`
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	if actor.ID == "" {
		writeError(w, http.StatusBadRequest, "missing X-User-ID")
		return
	}

	var body createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	deliveryDate, err := time.Parse("2006-01-02", body.DeliveryDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "deliveryDate must be YYYY-MM-DD")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.orders.Create(ctx, actor.ID, order.DeliveryDetails{
		RecipientName: body.RecipientName,
		Phone:         body.Phone,
		Street:        body.Street,
		City:          body.City,
		County:        body.County,
		DeliveryDate:  deliveryDate,
		Instructions:  body.Instructions,
	})
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.orders.Get(ctx, actorFromRequest(r), orderID)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) GetOrderByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "orderCode")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.orders.GetByCode(ctx, actorFromRequest(r), code)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	actor := actorFromRequest(r)
	if !actor.Admin && actor.ID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	orders, err := h.orders.ListByOwner(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders, "count": len(orders)})
}

// ListOrders is the admin view over every order, filterable by status and
// payment status.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var f order.Filter
	if v := r.URL.Query().Get("status"); v != "" {
		st, err := order.ParseStatus(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		f.Status = st
	}
	if v := r.URL.Query().Get("paymentStatus"); v != "" {
		f.PaymentStatus = order.PaymentStatus(v)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orders, err := h.orders.List(ctx, f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders, "count": len(orders)})
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.orders.Cancel(ctx, actorFromRequest(r), orderID)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	next, err := order.ParseStatus(body.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.orders.UpdateStatus(ctx, orderID, next)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func writeOrderError(w http.ResponseWriter, err error) {
	var invalid *order.CartInvalidError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": "cart has unavailable items",
			"lines": invalid.Lines,
		})
	case errors.Is(err, order.ErrStockConflict):
		writeError(w, http.StatusConflict, "stock changed during checkout, please retry")
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrDeliveryDetailsInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrInvalidState),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
