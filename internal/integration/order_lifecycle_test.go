//go:build integration

package integration

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paul-Karonji/framel-sub000/internal/cart"
	"github.com/Paul-Karonji/framel-sub000/internal/catalog"
	"github.com/Paul-Karonji/framel-sub000/internal/order"
	"github.com/Paul-Karonji/framel-sub000/internal/sequence"
	"github.com/Paul-Karonji/framel-sub000/internal/testutil"
)

func delivery() order.DeliveryDetails {
	return order.DeliveryDetails{
		RecipientName: "Achieng Otieno",
		Phone:         "254712345678",
		Street:        "Riverside Drive 14",
		City:          "Nairobi",
		County:        "Nairobi",
		DeliveryDate:  time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
	}
}

func TestOrderLifecycle(t *testing.T) {
	ctx := context.Background()

	pool, cleanup := testutil.StartPostgres(ctx, t)
	t.Cleanup(cleanup)

	products := catalog.NewPostgresRepository(pool)
	carts := cart.NewRepository(pool)
	orders := order.NewRepository(pool, sequence.NewRepository())

	require.NoError(t, products.Upsert(ctx, catalog.Product{
		ID: "rose-12", Name: "Dozen Red Roses", Price: 2500, Stock: 10,
	}))
	require.NoError(t, carts.UpsertCart(ctx, &cart.Cart{
		OwnerID: "user-1",
		Items:   []cart.Item{{ProductID: "rose-12", Quantity: 2, Price: 2500}},
	}))

	o, err := orders.Create(ctx, order.CreateParams{
		OwnerID:     "user-1",
		Lines:       []order.Line{{ProductID: "rose-12", Quantity: 2}},
		Delivery:    delivery(),
		DeliveryFee: 200,
		CodePrefix:  "FRM",
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^FRM-\d{8}-0001$`), o.Code)
	assert.Equal(t, order.StatusProcessing, o.Status)
	assert.Equal(t, order.PaymentPending, o.PaymentStatus)
	assert.Equal(t, 5000.0, o.Subtotal)
	assert.Equal(t, 5200.0, o.Total)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Dozen Red Roses", o.Items[0].Name)

	// stock was decremented and the cart consumed, all in the same transaction
	p, err := products.Get(ctx, "rose-12")
	require.NoError(t, err)
	assert.Equal(t, 8, p.Stock)

	c, err := carts.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, c)

	// the per-day sequence moves on
	o2, err := orders.Create(ctx, order.CreateParams{
		OwnerID:     "user-2",
		Lines:       []order.Line{{ProductID: "rose-12", Quantity: 1}},
		Delivery:    delivery(),
		DeliveryFee: 200,
		CodePrefix:  "FRM",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(o2.Code, "-0002"), "got %s", o2.Code)

	// catalog price changes do not touch the placed order
	require.NoError(t, products.Upsert(ctx, catalog.Product{
		ID: "rose-12", Name: "Dozen Red Roses", Price: 9999, Stock: 7,
	}))
	got, err := orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, got.Items[0].UnitPrice)
	assert.Equal(t, 5200.0, got.Total)
}

func TestConcurrentCheckout_LastUnit(t *testing.T) {
	ctx := context.Background()

	pool, cleanup := testutil.StartPostgres(ctx, t)
	t.Cleanup(cleanup)

	products := catalog.NewPostgresRepository(pool)
	orders := order.NewRepository(pool, sequence.NewRepository())

	require.NoError(t, products.Upsert(ctx, catalog.Product{
		ID: "orchid-1", Name: "Phalaenopsis Orchid", Price: 4500, Stock: 1,
	}))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = orders.Create(ctx, order.CreateParams{
				OwnerID:     "user-" + string(rune('a'+i)),
				Lines:       []order.Line{{ProductID: "orchid-1", Quantity: 1}},
				Delivery:    delivery(),
				DeliveryFee: 200,
				CodePrefix:  "FRM",
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var invalid *order.CartInvalidError
		if !errors.Is(err, order.ErrStockConflict) && !errors.As(err, &invalid) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)

	p, err := products.Get(ctx, "orchid-1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestCancelRestoresStock(t *testing.T) {
	ctx := context.Background()

	pool, cleanup := testutil.StartPostgres(ctx, t)
	t.Cleanup(cleanup)

	products := catalog.NewPostgresRepository(pool)
	orders := order.NewRepository(pool, sequence.NewRepository())

	require.NoError(t, products.Upsert(ctx, catalog.Product{
		ID: "lily-6", Name: "Six Stargazer Lilies", Price: 1800, Stock: 5,
	}))

	o, err := orders.Create(ctx, order.CreateParams{
		OwnerID:     "user-1",
		Lines:       []order.Line{{ProductID: "lily-6", Quantity: 3}},
		Delivery:    delivery(),
		DeliveryFee: 200,
		CodePrefix:  "FRM",
	})
	require.NoError(t, err)

	p, err := products.Get(ctx, "lily-6")
	require.NoError(t, err)
	require.Equal(t, 2, p.Stock)

	cancelled, err := orders.Cancel(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)

	p, err = products.Get(ctx, "lily-6")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)

	// cancelling again is refused: the order is already terminal
	_, err = orders.Cancel(ctx, o.ID)
	require.ErrorIs(t, err, order.ErrInvalidState)
}

func TestPaymentCompletion_Idempotent(t *testing.T) {
	ctx := context.Background()

	pool, cleanup := testutil.StartPostgres(ctx, t)
	t.Cleanup(cleanup)

	products := catalog.NewPostgresRepository(pool)
	orders := order.NewRepository(pool, sequence.NewRepository())

	require.NoError(t, products.Upsert(ctx, catalog.Product{
		ID: "tulip-10", Name: "Ten Tulips", Price: 1200, Stock: 10,
	}))

	o, err := orders.Create(ctx, order.CreateParams{
		OwnerID:     "user-1",
		Lines:       []order.Line{{ProductID: "tulip-10", Quantity: 1}},
		Delivery:    delivery(),
		DeliveryFee: 200,
		CodePrefix:  "FRM",
	})
	require.NoError(t, err)

	require.NoError(t, orders.AttachPaymentRequest(ctx, o.ID, "mr-1", "ws_CO_1"))

	confirmed, applied, err := orders.CompletePayment(ctx, "ws_CO_1", "NLJ7RT61SV")
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, order.StatusConfirmed, confirmed.Status)
	assert.Equal(t, order.PaymentCompleted, confirmed.PaymentStatus)
	assert.Equal(t, "NLJ7RT61SV", confirmed.PaymentReceipt)

	// the provider redelivers the same callback
	_, applied, err = orders.CompletePayment(ctx, "ws_CO_1", "NLJ7RT61SV")
	require.NoError(t, err)
	assert.False(t, applied)

	// a late failure callback for the same attempt cannot undo completion
	_, applied, err = orders.FailPayment(ctx, "ws_CO_1")
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentCompleted, got.PaymentStatus)

	// paid orders cannot be cancelled through the self-service path
	_, err = orders.Cancel(ctx, o.ID)
	require.ErrorIs(t, err, order.ErrAlreadyPaid)
}

func TestOrphanCallback_NoOp(t *testing.T) {
	ctx := context.Background()

	pool, cleanup := testutil.StartPostgres(ctx, t)
	t.Cleanup(cleanup)

	orders := order.NewRepository(pool, sequence.NewRepository())

	_, applied, err := orders.CompletePayment(ctx, "ws_CO_never_issued", "RCPT")
	require.NoError(t, err)
	assert.False(t, applied)
}
