package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Paul-Karonji/framel-sub000/internal/cart"
	"github.com/Paul-Karonji/framel-sub000/internal/catalog"
	"github.com/Paul-Karonji/framel-sub000/internal/order"
	"github.com/Paul-Karonji/framel-sub000/internal/payment/mpesa"
)

// Shared fakes for the handler tests in this package.

type fakeCartRepo struct {
	carts map[string]*cart.Cart
}

func (r *fakeCartRepo) GetCart(_ context.Context, ownerID string) (*cart.Cart, error) {
	c, ok := r.carts[ownerID]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	return &cp, nil
}

func (r *fakeCartRepo) UpsertCart(_ context.Context, c *cart.Cart) error {
	if r.carts == nil {
		r.carts = map[string]*cart.Cart{}
	}
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	r.carts[c.OwnerID] = &cp
	return nil
}

func (r *fakeCartRepo) ClearCart(_ context.Context, ownerID string) error {
	delete(r.carts, ownerID)
	return nil
}

type fakeCatalog struct {
	products map[string]catalog.Product
	getErr   error
}

func (c *fakeCatalog) Get(_ context.Context, productID string) (catalog.Product, error) {
	if c.getErr != nil {
		return catalog.Product{}, c.getErr
	}
	p, ok := c.products[productID]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (c *fakeCatalog) Upsert(_ context.Context, p catalog.Product) error {
	if c.products == nil {
		c.products = map[string]catalog.Product{}
	}
	c.products[p.ID] = p
	return nil
}

func (c *fakeCatalog) SetStock(_ context.Context, productID string, stock int) error {
	p, ok := c.products[productID]
	if !ok {
		return catalog.ErrNotFound
	}
	p.Stock = stock
	c.products[productID] = p
	return nil
}

func (c *fakeCatalog) DecrementStock(_ context.Context, productID string, qty int) error {
	p, ok := c.products[productID]
	if !ok || p.Stock < qty {
		return catalog.ErrInsufficientStock
	}
	p.Stock -= qty
	c.products[productID] = p
	return nil
}

func (c *fakeCatalog) IncrementStock(_ context.Context, productID string, qty int) error {
	p, ok := c.products[productID]
	if !ok {
		return catalog.ErrNotFound
	}
	p.Stock += qty
	c.products[productID] = p
	return nil
}

type fakeOrderEngine struct {
	createFunc       func(ctx context.Context, ownerID string, details order.DeliveryDetails) (*order.Order, error)
	getFunc          func(ctx context.Context, actor order.Actor, orderID string) (*order.Order, error)
	getByCodeFunc    func(ctx context.Context, actor order.Actor, code string) (*order.Order, error)
	listByOwnerFunc  func(ctx context.Context, ownerID string) ([]order.Order, error)
	listFunc         func(ctx context.Context, f order.Filter) ([]order.Order, error)
	cancelFunc       func(ctx context.Context, actor order.Actor, orderID string) (*order.Order, error)
	updateStatusFunc func(ctx context.Context, orderID string, next order.Status) (*order.Order, error)
}

func (f *fakeOrderEngine) Create(ctx context.Context, ownerID string, details order.DeliveryDetails) (*order.Order, error) {
	if f.createFunc != nil {
		return f.createFunc(ctx, ownerID, details)
	}
	return nil, nil
}

func (f *fakeOrderEngine) Get(ctx context.Context, actor order.Actor, orderID string) (*order.Order, error) {
	if f.getFunc != nil {
		return f.getFunc(ctx, actor, orderID)
	}
	return nil, order.ErrNotFound
}

func (f *fakeOrderEngine) GetByCode(ctx context.Context, actor order.Actor, code string) (*order.Order, error) {
	if f.getByCodeFunc != nil {
		return f.getByCodeFunc(ctx, actor, code)
	}
	return nil, order.ErrNotFound
}

func (f *fakeOrderEngine) ListByOwner(ctx context.Context, ownerID string) ([]order.Order, error) {
	if f.listByOwnerFunc != nil {
		return f.listByOwnerFunc(ctx, ownerID)
	}
	return nil, nil
}

func (f *fakeOrderEngine) List(ctx context.Context, fl order.Filter) ([]order.Order, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx, fl)
	}
	return nil, nil
}

func (f *fakeOrderEngine) Cancel(ctx context.Context, actor order.Actor, orderID string) (*order.Order, error) {
	if f.cancelFunc != nil {
		return f.cancelFunc(ctx, actor, orderID)
	}
	return nil, order.ErrNotFound
}

func (f *fakeOrderEngine) UpdateStatus(ctx context.Context, orderID string, next order.Status) (*order.Order, error) {
	if f.updateStatusFunc != nil {
		return f.updateStatusFunc(ctx, orderID, next)
	}
	return nil, order.ErrNotFound
}

type fakePaymentFlow struct {
	initiateFunc func(ctx context.Context, actor order.Actor, orderID, payerPhone string, amount float64) (string, error)
	queryFunc    func(ctx context.Context, actor order.Actor, orderID string) (*mpesa.STKQueryResponse, error)
	callbackFunc func(ctx context.Context, cb *mpesa.Callback) error
}

func (f *fakePaymentFlow) Initiate(ctx context.Context, actor order.Actor, orderID, payerPhone string, amount float64) (string, error) {
	if f.initiateFunc != nil {
		return f.initiateFunc(ctx, actor, orderID, payerPhone, amount)
	}
	return "", nil
}

func (f *fakePaymentFlow) QueryStatus(ctx context.Context, actor order.Actor, orderID string) (*mpesa.STKQueryResponse, error) {
	if f.queryFunc != nil {
		return f.queryFunc(ctx, actor, orderID)
	}
	return nil, nil
}

func (f *fakePaymentFlow) ProcessCallback(ctx context.Context, cb *mpesa.Callback) error {
	if f.callbackFunc != nil {
		return f.callbackFunc(ctx, cb)
	}
	return nil
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type routerFixture struct {
	cartRepo *fakeCartRepo
	products *fakeCatalog
	orders   *fakeOrderEngine
	payments *fakePaymentFlow
	router   http.Handler
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{
		cartRepo: &fakeCartRepo{carts: map[string]*cart.Cart{}},
		products: &fakeCatalog{products: map[string]catalog.Product{}},
		orders:   &fakeOrderEngine{},
		payments: &fakePaymentFlow{},
	}
	cartSvc := cart.NewService(f.cartRepo, f.products, 200, testLogger())
	f.router = NewRouter(
		NewCartHandler(cartSvc),
		NewOrderHandler(f.orders),
		NewPaymentHandler(f.payments, testLogger()),
		NewCatalogHandler(f.products),
	)
	return f
}
