package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Paul-Karonji/framel-sub000/internal/order"
	"github.com/Paul-Karonji/framel-sub000/internal/payment"
	"github.com/Paul-Karonji/framel-sub000/internal/payment/mpesa"
	"github.com/Paul-Karonji/framel-sub000/internal/phone"
)

// PaymentFlow is the payment service surface the handlers call.
type PaymentFlow interface {
	Initiate(ctx context.Context, actor order.Actor, orderID, payerPhone string, amount float64) (string, error)
	QueryStatus(ctx context.Context, actor order.Actor, orderID string) (*mpesa.STKQueryResponse, error)
	ProcessCallback(ctx context.Context, cb *mpesa.Callback) error
}

type PaymentHandler struct {
	payments PaymentFlow
	logger   *logrus.Logger
}

func NewPaymentHandler(payments PaymentFlow, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	var body struct {
		Phone  string  `json:"phone"`
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	msg, err := h.payments.Initiate(ctx, actorFromRequest(r), orderID, body.Phone, body.Amount)
	if err != nil {
		h.writePaymentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "initiated",
		"message": msg,
	})
}

func (h *PaymentHandler) QueryPayment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	resp, err := h.payments.QueryStatus(ctx, actorFromRequest(r), orderID)
	if err != nil {
		h.writePaymentError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Callback receives the provider's asynchronous payment result. The provider
// is always acked with its fixed success envelope, whatever happens here;
// anything else makes it retry or, worse, give up mid-handshake. The actual
// reconciliation runs detached from the request so a slow database cannot
// stall the ack.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	cb, err := mpesa.ParseCallback(r.Body)
	if err != nil {
		h.logger.WithError(err).Warn("unparseable payment callback")
		writeJSON(w, http.StatusOK, mpesa.AcceptedAck())
		return
	}

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.WithField("panic", rec).Error("payment callback processing panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := h.payments.ProcessCallback(ctx, cb); err != nil {
			h.logger.WithError(err).
				WithField("checkout_request_id", cb.CheckoutRequestID).
				Error("payment callback processing failed")
		}
	}()

	writeJSON(w, http.StatusOK, mpesa.AcceptedAck())
}

func (h *PaymentHandler) writePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, "order already paid")
	case errors.Is(err, payment.ErrAmountMismatch),
		errors.Is(err, payment.ErrNotInitiated),
		errors.Is(err, phone.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, payment.ErrProvider):
		writeError(w, http.StatusBadGateway, "payment could not be started, please try again")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
