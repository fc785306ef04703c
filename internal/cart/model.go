package cart

import (
	"fmt"
	"time"
)

type Item struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"` // snapshot of the catalog price when the line was last touched
}

type Cart struct {
	OwnerID   string    `json:"ownerId"` // user id or guest token
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	DeliveryFee float64 `json:"deliveryFee"`
	Total       float64 `json:"total"`
}

// Totals computes the charge breakdown from the current line snapshot.
// The delivery fee applies whenever the cart has at least one line.
func (c *Cart) Totals(deliveryFee float64) Totals {
	var subtotal float64
	for _, it := range c.Items {
		subtotal += float64(it.Quantity) * it.Price
	}

	fee := 0.0
	if len(c.Items) > 0 {
		fee = deliveryFee
	}

	return Totals{Subtotal: subtotal, DeliveryFee: fee, Total: subtotal + fee}
}

// OutOfStockError reports a requested quantity the catalog cannot satisfy.
type OutOfStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s out of stock: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}
