package catalog

import "time"

// Product is the slice of the catalog record the order flow depends on.
type Product struct {
	ID       string  `json:"productId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	ImageURL string  `json:"imageUrl"`

	UpdatedAt time.Time `json:"updatedAt"`
}
