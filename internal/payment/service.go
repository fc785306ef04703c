// Package payment drives the mobile-money leg of an order: initiating the
// push payment, the status-query fallback, and turning provider callbacks
// into order state transitions.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/Paul-Karonji/framel-sub000/internal/metrics"
	"github.com/Paul-Karonji/framel-sub000/internal/order"
	"github.com/Paul-Karonji/framel-sub000/internal/payment/mpesa"
	"github.com/Paul-Karonji/framel-sub000/internal/phone"
)

var (
	// ErrAmountMismatch guards against a tampered client request: the
	// amount charged is always the order total.
	ErrAmountMismatch = errors.New("amount does not match order total")
	// ErrProvider wraps transport failures talking to the gateway.
	ErrProvider = errors.New("payment provider request failed")
	// ErrNotInitiated is returned when a status query targets an order with
	// no payment request on record.
	ErrNotInitiated = errors.New("no payment request for order")
)

// amountTolerance absorbs float rounding between client and server.
const amountTolerance = 0.01

// Gateway is the provider client surface the service depends on.
type Gateway interface {
	STKPush(ctx context.Context, r mpesa.STKPushRequest) (*mpesa.STKPushResponse, error)
	STKQuery(ctx context.Context, checkoutRequestID string) (*mpesa.STKQueryResponse, error)
}

// OrderEngine is the slice of the order service the payment flow drives.
// All order state transitions go through it; this package never writes
// order rows itself.
type OrderEngine interface {
	Get(ctx context.Context, actor order.Actor, orderID string) (*order.Order, error)
	AttachPaymentRequest(ctx context.Context, orderID, merchantRequestID, checkoutRequestID string) error
	CompletePayment(ctx context.Context, checkoutRequestID, receipt string) error
	FailPayment(ctx context.Context, checkoutRequestID, reason string) error
}

type Service struct {
	gateway Gateway
	orders  OrderEngine
	logger  *logrus.Logger
}

func NewService(gateway Gateway, orders OrderEngine, logger *logrus.Logger) *Service {
	return &Service{gateway: gateway, orders: orders, logger: logger}
}

// Initiate fires an STK push for the order and records the correlation pair
// the callback will be matched on. It returns the user-facing prompt
// message; settlement happens later via the callback.
func (s *Service) Initiate(ctx context.Context, actor order.Actor, orderID, payerPhone string, amount float64) (string, error) {
	o, err := s.orders.Get(ctx, actor, orderID)
	if err != nil {
		return "", err
	}
	if o.PaymentStatus == order.PaymentCompleted {
		return "", order.ErrAlreadyPaid
	}
	if math.Abs(amount-o.Total) > amountTolerance {
		return "", ErrAmountMismatch
	}

	msisdn, err := phone.Normalize(payerPhone)
	if err != nil {
		return "", err
	}

	resp, err := s.gateway.STKPush(ctx, mpesa.STKPushRequest{
		Amount:           int(math.Round(o.Total)),
		PhoneNumber:      msisdn,
		AccountReference: o.Code,
		Description:      "Framel order " + o.Code,
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", o.ID).Error("stk push failed")
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}

	if err := s.orders.AttachPaymentRequest(ctx, o.ID, resp.MerchantRequestID, resp.CheckoutRequestID); err != nil {
		return "", fmt.Errorf("store payment correlation: %w", err)
	}

	metrics.PaymentsInitiated.Inc()
	s.logger.WithFields(logrus.Fields{
		"order_id":            o.ID,
		"order_code":          o.Code,
		"checkout_request_id": resp.CheckoutRequestID,
	}).Info("stk push initiated")

	return resp.CustomerMessage, nil
}

// QueryStatus polls the provider for the order's last payment attempt.
// Read-only: only the callback path transitions order state.
func (s *Service) QueryStatus(ctx context.Context, actor order.Actor, orderID string) (*mpesa.STKQueryResponse, error) {
	o, err := s.orders.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if o.CheckoutRequestID == "" {
		return nil, ErrNotInitiated
	}

	resp, err := s.gateway.STKQuery(ctx, o.CheckoutRequestID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	return resp, nil
}

// ProcessCallback reconciles one provider callback. The order is looked up
// strictly by checkout request id; a client-supplied order id is never
// trusted on this path. Duplicates and orphans come back as no-ops from the
// order engine.
func (s *Service) ProcessCallback(ctx context.Context, cb *mpesa.Callback) error {
	log := s.logger.WithFields(logrus.Fields{
		"checkout_request_id": cb.CheckoutRequestID,
		"result_code":         cb.ResultCode,
	})

	if cb.Success() {
		res := cb.Result()
		log.WithField("receipt", res.Receipt).Info("payment callback: success")
		return s.orders.CompletePayment(ctx, cb.CheckoutRequestID, res.Receipt)
	}

	log.WithField("result_desc", cb.ResultDesc).Info("payment callback: failure")
	return s.orders.FailPayment(ctx, cb.CheckoutRequestID, cb.ResultDesc)
}
