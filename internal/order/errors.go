package order

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyCart is returned when checkout finds no cart lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrStockConflict is returned when a concurrent checkout consumed the
	// stock between validation and decrement.
	ErrStockConflict = errors.New("stock conflict")
	// ErrInvalidState is returned when cancellation is requested from a
	// non-cancellable status.
	ErrInvalidState = errors.New("order not cancellable in its current state")
	// ErrInvalidTransition is returned for status updates off the forward
	// fulfilment chain.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrAlreadyPaid guards cancellation and re-initiation of paid orders.
	ErrAlreadyPaid = errors.New("order already paid")
	// ErrNotFound is returned when the order does not exist or is not
	// visible to the caller.
	ErrNotFound = errors.New("order not found")
)

// InvalidLine describes one cart line the checkout re-check rejected.
type InvalidLine struct {
	ProductID string `json:"productId"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Reason    string `json:"reason"`
}

// CartInvalidError carries every offending line so the customer can fix the
// cart without losing the rest of it.
type CartInvalidError struct {
	Lines []InvalidLine
}

func (e *CartInvalidError) Error() string {
	ids := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		ids = append(ids, l.ProductID)
	}
	return fmt.Sprintf("cart has unavailable items: %s", strings.Join(ids, ", "))
}
