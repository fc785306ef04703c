package order

import "fmt"

type Status string

const (
	StatusProcessing Status = "processing"
	StatusConfirmed  Status = "confirmed"
	StatusDispatched Status = "dispatched"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// rank orders the linear fulfilment chain. Cancelled sits outside it.
var rank = map[Status]int{
	StatusProcessing: 0,
	StatusConfirmed:  1,
	StatusDispatched: 2,
	StatusDelivered:  3,
}

// CanTransitionTo reports whether an admin status update from s to next is
// legal: strictly forward along the fulfilment chain. Cancellation is not a
// status update; it goes through Cancel so stock is restored.
func (s Status) CanTransitionTo(next Status) bool {
	from, ok := rank[s]
	if !ok {
		return false
	}
	to, ok := rank[next]
	if !ok {
		return false
	}
	return to > from
}

// Cancellable reports whether the order can still be cancelled through the
// customer-facing path. Dispatched and delivered orders cannot.
func (s Status) Cancellable() bool {
	return s == StatusProcessing || s == StatusConfirmed
}

func ParseStatus(v string) (Status, error) {
	switch Status(v) {
	case StatusProcessing, StatusConfirmed, StatusDispatched, StatusDelivered, StatusCancelled:
		return Status(v), nil
	}
	return "", fmt.Errorf("unknown order status %q", v)
}
