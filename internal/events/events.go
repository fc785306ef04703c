package events

import "time"

// OrderItem is the line contract shared by order events so consumers see
// one shape across queues.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

type OrderCreated struct {
	EventType string      `json:"eventType"`
	OrderID   string      `json:"orderId"`
	OrderCode string      `json:"orderCode"`
	OwnerID   string      `json:"ownerId"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	Timestamp time.Time   `json:"timestamp"`
}

// OrderConfirmed fires once per order, on the first transition into a
// completed payment. The notification service sends the confirmation email
// off this event, so it must never be published twice for one order.
type OrderConfirmed struct {
	EventType      string    `json:"eventType"`
	OrderID        string    `json:"orderId"`
	OrderCode      string    `json:"orderCode"`
	OwnerID        string    `json:"ownerId"`
	Total          float64   `json:"total"`
	PaymentReceipt string    `json:"paymentReceipt"`
	RecipientName  string    `json:"recipientName"`
	Timestamp      time.Time `json:"timestamp"`
}

type PaymentFailed struct {
	EventType string    `json:"eventType"`
	OrderID   string    `json:"orderId"`
	OrderCode string    `json:"orderCode"`
	OwnerID   string    `json:"ownerId"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}
