package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrLineNotFound is returned when a quantity update targets a line that is
// not in the cart.
var ErrLineNotFound = errors.New("cart line not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repository interface {
	GetCart(ctx context.Context, ownerID string) (*Cart, error)
	UpsertCart(ctx context.Context, c *Cart) error
	ClearCart(ctx context.Context, ownerID string) error
}

type repo struct {
	pool DBPool
}

func NewRepository(pool DBPool) Repository {
	return &repo{pool: pool}
}

func (r *repo) GetCart(ctx context.Context, ownerID string) (*Cart, error) {
	var c Cart
	err := r.pool.QueryRow(ctx,
		`SELECT owner_id, updated_at FROM carts WHERE owner_id = $1`, ownerID,
	).Scan(&c.OwnerID, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// caller (service/handler) can turn this into 404 or a lazy create
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT product_id, quantity, price FROM cart_items WHERE owner_id = $1 ORDER BY added_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (r *repo) UpsertCart(ctx context.Context, c *Cart) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, `
		INSERT INTO carts (owner_id, updated_at)
		VALUES ($1, now())
		ON CONFLICT (owner_id) DO UPDATE SET updated_at = now()
		RETURNING updated_at
	`, c.OwnerID).Scan(&c.UpdatedAt); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE owner_id = $1`, c.OwnerID); err != nil {
		return err
	}

	for _, it := range c.Items {
		if _, err := tx.Exec(ctx,
			`INSERT INTO cart_items (owner_id, product_id, quantity, price) VALUES ($1, $2, $3, $4)`,
			c.OwnerID, it.ProductID, it.Quantity, it.Price,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *repo) ClearCart(ctx context.Context, ownerID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE owner_id = $1`, ownerID)
	return err
}
