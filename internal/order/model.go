package order

import "time"

// Item is an immutable snapshot of a catalog product captured at order
// creation. Later catalog changes never alter a placed order.
type Item struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	ImageURL  string  `json:"imageUrl"`
}

type DeliveryDetails struct {
	RecipientName string    `json:"recipientName"`
	Phone         string    `json:"phone"`
	Street        string    `json:"street"`
	City          string    `json:"city"`
	County        string    `json:"county"`
	DeliveryDate  time.Time `json:"deliveryDate"`
	Instructions  string    `json:"instructions,omitempty"`
}

type Order struct {
	ID      string `json:"orderId"`
	Code    string `json:"orderCode"`
	OwnerID string `json:"ownerId"`

	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`

	Items       []Item  `json:"items"`
	Subtotal    float64 `json:"subtotal"`
	DeliveryFee float64 `json:"deliveryFee"`
	Total       float64 `json:"total"`

	Delivery DeliveryDetails `json:"delivery"`

	// Correlation pair issued by the payment provider when a push payment is
	// initiated. The callback is matched on CheckoutRequestID alone.
	MerchantRequestID string `json:"merchantRequestId,omitempty"`
	CheckoutRequestID string `json:"checkoutRequestId,omitempty"`

	// Provider transaction reference, set only on completed payment.
	PaymentReceipt string `json:"paymentReceipt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
