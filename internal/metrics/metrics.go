// Package metrics exposes the Prometheus instruments for the order and
// payment flows.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framel_orders_created_total",
		Help: "Orders successfully created from carts.",
	})

	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framel_orders_cancelled_total",
		Help: "Orders cancelled with stock restored.",
	})

	StockConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framel_stock_conflicts_total",
		Help: "Checkouts that lost a stock race and were aborted.",
	})

	PaymentsInitiated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framel_payments_initiated_total",
		Help: "STK push requests accepted by the provider.",
	})

	PaymentsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framel_payments_completed_total",
		Help: "Payments settled via provider callback.",
	})

	PaymentsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "framel_payments_failed_total",
		Help: "Payment attempts the provider reported as failed.",
	})

	PaymentCallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framel_payment_callbacks_total",
		Help: "Provider callbacks by processing outcome.",
	}, []string{"outcome"})
)
