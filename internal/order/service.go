package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Paul-Karonji/framel-sub000/internal/cart"
	"github.com/Paul-Karonji/framel-sub000/internal/metrics"
	"github.com/Paul-Karonji/framel-sub000/internal/phone"
)

// EventPublisher is the outbound contract towards downstream collaborators.
// The confirmation-email dispatcher consumes order.confirmed, so publishing
// it exactly once per order is what keeps the customer from being mailed
// twice.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, o *Order) error
	PublishOrderConfirmed(ctx context.Context, o *Order) error
	PublishPaymentFailed(ctx context.Context, o *Order, reason string) error
}

// Actor identifies who is asking: the owner string is a user id or guest
// token, admins may touch any order.
type Actor struct {
	ID    string
	Admin bool
}

type Service struct {
	orders      Repository
	carts       cart.Repository
	publisher   EventPublisher
	deliveryFee float64
	codePrefix  string
	logger      *logrus.Logger
}

func NewService(orders Repository, carts cart.Repository, publisher EventPublisher, deliveryFee float64, codePrefix string, logger *logrus.Logger) *Service {
	return &Service{
		orders:      orders,
		carts:       carts,
		publisher:   publisher,
		deliveryFee: deliveryFee,
		codePrefix:  codePrefix,
		logger:      logger,
	}
}

var ErrDeliveryDetailsInvalid = errors.New("delivery details incomplete")

// Create converts the owner's cart into an order. The repository runs the
// whole mutation (re-validate, snapshot, sequence, stock decrement, cart
// clear) as one transaction; this layer validates input and fans out the
// created event.
func (s *Service) Create(ctx context.Context, ownerID string, details DeliveryDetails) (*Order, error) {
	if err := validateDelivery(&details); err != nil {
		return nil, err
	}

	c, err := s.carts.GetCart(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if c == nil || len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	o, err := s.orders.Create(ctx, CreateParams{
		OwnerID:     ownerID,
		Lines:       lines,
		Delivery:    details,
		DeliveryFee: s.deliveryFee,
		CodePrefix:  s.codePrefix,
	})
	if err != nil {
		if errors.Is(err, ErrStockConflict) {
			metrics.StockConflicts.Inc()
		}
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	s.logger.WithFields(logrus.Fields{
		"order_id":   o.ID,
		"order_code": o.Code,
		"owner_id":   o.OwnerID,
		"total":      o.Total,
	}).Info("order created")

	if err := s.publisher.PublishOrderCreated(ctx, o); err != nil {
		// The order exists either way; downstream consumers catch up later.
		s.logger.WithError(err).WithField("order_id", o.ID).Error("publish order.created failed")
	}

	return o, nil
}

func validateDelivery(d *DeliveryDetails) error {
	if strings.TrimSpace(d.RecipientName) == "" ||
		strings.TrimSpace(d.Street) == "" ||
		strings.TrimSpace(d.City) == "" ||
		strings.TrimSpace(d.County) == "" ||
		d.DeliveryDate.IsZero() {
		return ErrDeliveryDetailsInvalid
	}

	normalized, err := phone.Normalize(d.Phone)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDeliveryDetailsInvalid, err)
	}
	d.Phone = normalized
	return nil
}

// Get returns the order if the actor may see it.
func (s *Service) Get(ctx context.Context, actor Actor, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil || (!actor.Admin && o.OwnerID != actor.ID) {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) GetByCode(ctx context.Context, actor Actor, code string) (*Order, error) {
	o, err := s.orders.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if o == nil || (!actor.Admin && o.OwnerID != actor.ID) {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Order, error) {
	return s.orders.ListByOwner(ctx, ownerID)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	return s.orders.List(ctx, f)
}

// Cancel restores stock and flips the order to its terminal cancelled
// state. Paid orders are refused; that path needs a manual refund first.
func (s *Service) Cancel(ctx context.Context, actor Actor, orderID string) (*Order, error) {
	o, err := s.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	cancelled, err := s.orders.Cancel(ctx, o.ID)
	if err != nil {
		return nil, err
	}

	metrics.OrdersCancelled.Inc()
	s.logger.WithFields(logrus.Fields{
		"order_id":   cancelled.ID,
		"order_code": cancelled.Code,
	}).Info("order cancelled, stock restored")
	return cancelled, nil
}

// UpdateStatus applies an admin fulfilment transition. Only forward moves
// along processing→confirmed→dispatched→delivered are accepted.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrNotFound
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}

	if err := s.orders.UpdateStatus(ctx, o.ID, o.Status, next); err != nil {
		return nil, err
	}
	o.Status = next
	return o, nil
}

// AttachPaymentRequest stores the provider correlation pair on the order.
// Invoked by the payment adapter once the push request is accepted.
func (s *Service) AttachPaymentRequest(ctx context.Context, orderID, merchantRequestID, checkoutRequestID string) error {
	return s.orders.AttachPaymentRequest(ctx, orderID, merchantRequestID, checkoutRequestID)
}

// CompletePayment is driven by the reconciliation listener. Duplicate and
// orphaned callbacks fall out of the conditional repository update as
// no-ops; the confirmed event fires only when this call actually moved the
// order.
func (s *Service) CompletePayment(ctx context.Context, checkoutRequestID, receipt string) error {
	o, applied, err := s.orders.CompletePayment(ctx, checkoutRequestID, receipt)
	if err != nil {
		return err
	}
	if !applied {
		metrics.PaymentCallbacks.WithLabelValues("ignored").Inc()
		s.logger.WithField("checkout_request_id", checkoutRequestID).
			Info("payment completion ignored: no pending order for correlation id")
		return nil
	}

	metrics.PaymentsCompleted.Inc()
	metrics.PaymentCallbacks.WithLabelValues("completed").Inc()
	s.logger.WithFields(logrus.Fields{
		"order_id":   o.ID,
		"order_code": o.Code,
		"receipt":    receipt,
	}).Info("payment completed, order confirmed")

	if err := s.publisher.PublishOrderConfirmed(ctx, o); err != nil {
		s.logger.WithError(err).WithField("order_id", o.ID).Error("publish order.confirmed failed")
	}
	return nil
}

// FailPayment records a declined payment attempt. The order stays as it
// was: no stock is restored and the customer may retry.
func (s *Service) FailPayment(ctx context.Context, checkoutRequestID, reason string) error {
	o, applied, err := s.orders.FailPayment(ctx, checkoutRequestID)
	if err != nil {
		return err
	}
	if !applied {
		metrics.PaymentCallbacks.WithLabelValues("ignored").Inc()
		s.logger.WithField("checkout_request_id", checkoutRequestID).
			Info("payment failure ignored: no pending order for correlation id")
		return nil
	}

	metrics.PaymentsFailed.Inc()
	metrics.PaymentCallbacks.WithLabelValues("failed").Inc()
	s.logger.WithFields(logrus.Fields{
		"order_id":   o.ID,
		"order_code": o.Code,
		"reason":     reason,
	}).Warn("payment failed")

	if err := s.publisher.PublishPaymentFailed(ctx, o, reason); err != nil {
		s.logger.WithError(err).WithField("order_id", o.ID).Error("publish payment.failed failed")
	}
	return nil
}
