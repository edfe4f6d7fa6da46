package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// beginner starts transactions. *pgxpool.Pool satisfies it.
type beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithTx executes a function within a transaction. The transaction is rolled
// back when fn returns an error or panics, so callers observe either the
// whole mutation or none of it.
func WithTx(ctx context.Context, pool beginner, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}
