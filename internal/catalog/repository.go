package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("product not found")

// ErrInsufficientStock is returned when a conditional decrement would drive
// stock negative.
var ErrInsufficientStock = errors.New("insufficient stock")

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	Get(ctx context.Context, productID string) (Product, error)
	Upsert(ctx context.Context, p Product) error
	SetStock(ctx context.Context, productID string, stock int) error
	DecrementStock(ctx context.Context, productID string, qty int) error
	IncrementStock(ctx context.Context, productID string, qty int) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, productID string) (Product, error) {
	var p Product
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, price, stock, image_url, updated_at
		FROM products WHERE id=$1
	`, productID)
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.ImageURL, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, p Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products(id, name, price, stock, image_url)
		VALUES($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name=EXCLUDED.name, price=EXCLUDED.price, stock=EXCLUDED.stock,
		    image_url=EXCLUDED.image_url, updated_at=now()
	`, p.ID, p.Name, p.Price, p.Stock, p.ImageURL)
	return err
}

func (r *PostgresRepository) SetStock(ctx context.Context, productID string, stock int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET stock=$2, updated_at=now() WHERE id=$1
	`, productID, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DecrementStock decrements atomically and only when enough stock remains,
// so two concurrent buyers cannot both take the last unit.
func (r *PostgresRepository) DecrementStock(ctx context.Context, productID string, qty int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at=now()
		WHERE id=$1 AND stock >= $2
	`, productID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *PostgresRepository) IncrementStock(ctx context.Context, productID string, qty int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at=now() WHERE id=$1
	`, productID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
