package order

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Paul-Karonji/framel-sub000/internal/sequence"
)

// Line is a cart line entering checkout: what the customer asked for. The
// authoritative price and name are re-read from the catalog inside the
// creation transaction.
type Line struct {
	ProductID string
	Quantity  int
}

type CreateParams struct {
	OwnerID     string
	Lines       []Line
	Delivery    DeliveryDetails
	DeliveryFee float64
	CodePrefix  string
}

// Filter narrows admin order listings. Empty fields match everything.
type Filter struct {
	Status        Status
	PaymentStatus PaymentStatus
}

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repository interface {
	Create(ctx context.Context, p CreateParams) (*Order, error)
	GetByID(ctx context.Context, orderID string) (*Order, error)
	GetByCode(ctx context.Context, code string) (*Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID string, from, to Status) error
	Cancel(ctx context.Context, orderID string) (*Order, error)
	AttachPaymentRequest(ctx context.Context, orderID, merchantRequestID, checkoutRequestID string) error
	CompletePayment(ctx context.Context, checkoutRequestID, receipt string) (*Order, bool, error)
	FailPayment(ctx context.Context, checkoutRequestID string) (*Order, bool, error)
}

type repo struct {
	pool      DBPool
	sequences sequence.Repository
}

func NewRepository(pool DBPool, sequences sequence.Repository) Repository {
	return &repo{pool: pool, sequences: sequences}
}

const orderColumns = `id, order_code, owner_id, status, payment_status,
	subtotal, delivery_fee, total,
	recipient_name, recipient_phone, street, city, county, delivery_date, instructions,
	merchant_request_id, checkout_request_id, payment_receipt,
	created_at, updated_at`

// Create turns a validated cart into an order inside one transaction:
// re-check every line against live stock (rows locked), snapshot
// name/price/image, allocate the day sequence, decrement stock, write the
// order, clear the cart. Any shortfall aborts the whole thing.
func (r *repo) Create(ctx context.Context, p CreateParams) (*Order, error) {
	if len(p.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock product rows in a stable order.
	lines := append([]Line(nil), p.Lines...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	var invalid []InvalidLine
	items := make([]Item, 0, len(lines))
	var subtotal float64

	for _, line := range lines {
		var (
			name     string
			price    float64
			stock    int
			imageURL string
		)
		err := tx.QueryRow(ctx, `
			SELECT name, price, stock, image_url
			FROM products
			WHERE id=$1
			FOR UPDATE
		`, line.ProductID).Scan(&name, &price, &stock, &imageURL)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				invalid = append(invalid, InvalidLine{
					ProductID: line.ProductID,
					Requested: line.Quantity,
					Reason:    "product no longer exists",
				})
				continue
			}
			return nil, err
		}

		if stock < line.Quantity {
			invalid = append(invalid, InvalidLine{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: stock,
				Reason:    "insufficient stock",
			})
			continue
		}

		items = append(items, Item{
			ProductID: line.ProductID,
			Name:      name,
			UnitPrice: price,
			Quantity:  line.Quantity,
			ImageURL:  imageURL,
		})
		subtotal += float64(line.Quantity) * price
	}

	if len(invalid) > 0 {
		return nil, &CartInvalidError{Lines: invalid}
	}

	for _, it := range items {
		tag, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock - $2, updated_at=now()
			WHERE id=$1 AND stock >= $2
		`, it.ProductID, it.Quantity)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrStockConflict
		}
	}

	now := time.Now().UTC()
	seq, err := r.sequences.NextForDay(ctx, tx, now)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:            uuid.NewString(),
		Code:          FormatCode(p.CodePrefix, now, seq),
		OwnerID:       p.OwnerID,
		Status:        StatusProcessing,
		PaymentStatus: PaymentPending,
		Items:         items,
		Subtotal:      subtotal,
		DeliveryFee:   p.DeliveryFee,
		Total:         subtotal + p.DeliveryFee,
		Delivery:      p.Delivery,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, order_code, owner_id, status, payment_status,
			subtotal, delivery_fee, total,
			recipient_name, recipient_phone, street, city, county, delivery_date, instructions,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, o.ID, o.Code, o.OwnerID, o.Status, o.PaymentStatus,
		o.Subtotal, o.DeliveryFee, o.Total,
		o.Delivery.RecipientName, o.Delivery.Phone, o.Delivery.Street, o.Delivery.City,
		o.Delivery.County, o.Delivery.DeliveryDate, o.Delivery.Instructions,
		o.CreatedAt, o.UpdatedAt,
	); err != nil {
		return nil, err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, product_id, name, unit_price, quantity, image_url)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, o.ID, it.ProductID, it.Name, it.UnitPrice, it.Quantity, it.ImageURL); err != nil {
			return nil, err
		}
	}

	// The cart is consumed exactly once by a successful checkout.
	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE owner_id = $1`, p.OwnerID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repo) GetByID(ctx context.Context, orderID string) (*Order, error) {
	return r.getOne(ctx, `WHERE id = $1`, orderID)
}

func (r *repo) GetByCode(ctx context.Context, code string) (*Order, error) {
	return r.getOne(ctx, `WHERE order_code = $1`, code)
}

func (r *repo) getOne(ctx context.Context, where string, arg any) (*Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders `+where, arg)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// caller (service) can turn this into 404
			return nil, nil
		}
		return nil, err
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repo) ListByOwner(ctx context.Context, ownerID string) ([]Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

func (r *repo) List(ctx context.Context, f Filter) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR payment_status = $2)
		ORDER BY created_at DESC
	`, string(f.Status), string(f.PaymentStatus))
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

func (r *repo) collect(ctx context.Context, rows pgx.Rows) ([]Order, error) {
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// UpdateStatus applies an admin transition conditionally on the status it
// was validated against, so a concurrent change cannot be overwritten.
func (r *repo) UpdateStatus(ctx context.Context, orderID string, from, to Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2
	`, orderID, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// Cancel flips the order to cancelled and restores stock for every line in
// the same transaction. The conditional update is the idempotency guard: a
// second cancel finds no row to flip and restores nothing.
func (r *repo) Cancel(ctx context.Context, orderID string) (*Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE orders SET status='cancelled', updated_at=now()
		WHERE id=$1
		  AND status IN ('processing','confirmed')
		  AND payment_status <> 'completed'
		RETURNING `+orderColumns, orderID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.cancelFailureReason(ctx, orderID)
		}
		return nil, err
	}

	rows, err := tx.Query(ctx,
		`SELECT product_id, name, unit_price, quantity, image_url FROM order_items WHERE order_id = $1`, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items, err = collectItems(rows)
	if err != nil {
		return nil, err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock + $2, updated_at=now() WHERE id=$1
		`, it.ProductID, it.Quantity); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repo) cancelFailureReason(ctx context.Context, orderID string) error {
	var status Status
	var paymentStatus PaymentStatus
	err := r.pool.QueryRow(ctx,
		`SELECT status, payment_status FROM orders WHERE id=$1`, orderID,
	).Scan(&status, &paymentStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if paymentStatus == PaymentCompleted && status.Cancellable() {
		return ErrAlreadyPaid
	}
	return ErrInvalidState
}

// AttachPaymentRequest stores the provider correlation pair and re-arms the
// payment for a fresh attempt.
func (r *repo) AttachPaymentRequest(ctx context.Context, orderID, merchantRequestID, checkoutRequestID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET merchant_request_id=$2, checkout_request_id=$3, payment_status='pending', updated_at=now()
		WHERE id=$1 AND payment_status <> 'completed'
	`, orderID, merchantRequestID, checkoutRequestID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CompletePayment settles a payment by its checkout request id. The
// conditional update makes duplicate callbacks no-ops: only an order still
// pending and not terminal is transitioned, and processing moves to
// confirmed in the same statement. The second return value reports whether
// the transition applied.
func (r *repo) CompletePayment(ctx context.Context, checkoutRequestID, receipt string) (*Order, bool, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE orders
		SET payment_status='completed',
		    payment_receipt=$2,
		    status = CASE WHEN status='processing' THEN 'confirmed' ELSE status END,
		    updated_at=now()
		WHERE checkout_request_id=$1 AND checkout_request_id <> ''
		  AND payment_status='pending'
		  AND status IN ('processing','confirmed')
		RETURNING `+orderColumns, checkoutRequestID, receipt)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, false, err
	}
	return o, true, nil
}

// FailPayment records a declined attempt. Order status and stock are left
// alone: a failed payment is not a cancelled order and the customer may
// retry against it.
func (r *repo) FailPayment(ctx context.Context, checkoutRequestID string) (*Order, bool, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE orders
		SET payment_status='failed', updated_at=now()
		WHERE checkout_request_id=$1 AND checkout_request_id <> ''
		  AND payment_status='pending'
		RETURNING `+orderColumns, checkoutRequestID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return o, true, nil
}

func (r *repo) loadItems(ctx context.Context, o *Order) error {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, name, unit_price, quantity, image_url FROM order_items WHERE order_id = $1`, o.ID)
	if err != nil {
		return err
	}
	o.Items, err = collectItems(rows)
	return err
}

func collectItems(rows pgx.Rows) ([]Item, error) {
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.UnitPrice, &it.Quantity, &it.ImageURL); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.Code, &o.OwnerID, &o.Status, &o.PaymentStatus,
		&o.Subtotal, &o.DeliveryFee, &o.Total,
		&o.Delivery.RecipientName, &o.Delivery.Phone, &o.Delivery.Street, &o.Delivery.City,
		&o.Delivery.County, &o.Delivery.DeliveryDate, &o.Delivery.Instructions,
		&o.MerchantRequestID, &o.CheckoutRequestID, &o.PaymentReceipt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
