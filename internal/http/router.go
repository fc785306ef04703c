package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every handler onto the service's single HTTP surface.
func NewRouter(carts *CartHandler, orders *OrderHandler, payments *PaymentHandler, products *CatalogHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/cart/{ownerId}", func(r chi.Router) {
			r.Get("/", carts.GetCart)
			r.Delete("/", carts.ClearCart)
			r.Post("/items", carts.AddItem)
			r.Put("/items/{productId}", carts.SetQuantity)
			r.Delete("/items/{productId}", carts.RemoveItem)
			r.Post("/merge", carts.MergeGuest)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orders.CreateOrder)
			r.Get("/code/{orderCode}", orders.GetOrderByCode)
			r.Get("/{orderId}", orders.GetOrder)
			r.Post("/{orderId}/cancel", orders.CancelOrder)
			r.Post("/{orderId}/payment", payments.InitiatePayment)
			r.Get("/{orderId}/payment", payments.QueryPayment)
		})

		r.Get("/users/{userId}/orders", orders.ListUserOrders)

		r.Get("/products/{productId}", products.GetProduct)

		// Provider-facing; the gateway exposes this path without auth.
		r.Post("/payments/callback", payments.Callback)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/orders", orders.ListOrders)
			r.Put("/orders/{orderId}/status", orders.UpdateStatus)
			r.Put("/products", products.UpsertProduct)
			r.Put("/products/{productId}/stock", products.SetStock)
		})
	})

	return r
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User-Role") != "admin" {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
