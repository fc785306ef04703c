package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/Paul-Karonji/framel-sub000/internal/order"
)

const (
	OrderCreatedQueue   = "order.created"
	OrderConfirmedQueue = "order.confirmed"
	PaymentFailedQueue  = "payment.failed"
)

func MustDial(url string, logger *logrus.Logger) *amqp.Connection {
	conn, err := amqp.Dial(url)
	if err != nil {
		logger.Fatalf("connect to RabbitMQ: %v", err)
	}
	return conn
}

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	// Declare queues so publish never fails due to missing infra
	for _, q := range []string{OrderCreatedQueue, OrderConfirmedQueue, PaymentFailedQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("declare %s: %w", q, err)
		}
	}

	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishOrderCreated(ctx context.Context, o *order.Order) error {
	ev := OrderCreated{
		EventType: "OrderCreated",
		OrderID:   o.ID,
		OrderCode: o.Code,
		OwnerID:   o.OwnerID,
		Total:     o.Total,
		Timestamp: time.Now().UTC(),
	}
	for _, it := range o.Items {
		ev.Items = append(ev.Items, OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal OrderCreated: %w", err)
	}
	return p.publishJSON(ctx, OrderCreatedQueue, body)
}

func (p *Publisher) PublishOrderConfirmed(ctx context.Context, o *order.Order) error {
	ev := OrderConfirmed{
		EventType:      "OrderConfirmed",
		OrderID:        o.ID,
		OrderCode:      o.Code,
		OwnerID:        o.OwnerID,
		Total:          o.Total,
		PaymentReceipt: o.PaymentReceipt,
		RecipientName:  o.Delivery.RecipientName,
		Timestamp:      time.Now().UTC(),
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal OrderConfirmed: %w", err)
	}
	return p.publishJSON(ctx, OrderConfirmedQueue, body)
}

func (p *Publisher) PublishPaymentFailed(ctx context.Context, o *order.Order, reason string) error {
	ev := PaymentFailed{
		EventType: "PaymentFailed",
		OrderID:   o.ID,
		OrderCode: o.Code,
		OwnerID:   o.OwnerID,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal PaymentFailed: %w", err)
	}
	return p.publishJSON(ctx, PaymentFailedQueue, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		"",         // default exchange
		routingKey, // queue name as routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}
