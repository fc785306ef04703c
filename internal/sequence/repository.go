// Package sequence allocates the per-calendar-day counters behind human
// order codes. Allocation is a single atomic upsert, never a count of
// existing rows, so concurrent checkouts on the same day cannot collide.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgx executors the repository needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so allocation can join the
// order-creation transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	NextForDay(ctx context.Context, q Querier, day time.Time) (int, error)
}

type repo struct{}

func NewRepository() Repository {
	return repo{}
}

func (repo) NextForDay(ctx context.Context, q Querier, day time.Time) (int, error) {
	var seq int
	if err := q.QueryRow(ctx, `
		INSERT INTO order_day_sequences (day, last_seq, updated_at)
		VALUES ($1, 1, now())
		ON CONFLICT (day)
		DO UPDATE SET last_seq = order_day_sequences.last_seq + 1, updated_at = now()
		RETURNING last_seq
	`, day.Format("2006-01-02")).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next day sequence: %w", err)
	}
	return seq, nil
}
