package postgres

import (
	"context"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"dbkit/pkg/dberr"
)

// Tx is the handle a unit of work uses to issue statements inside a
// transaction. Its lifetime is bounded by a single Transactor invocation:
// once that invocation resolves, every method fails with a tx_closed
// error instead of operating on a stale connection. Tx must not be shared
// across concurrent tasks and deliberately exposes no way to begin a
// nested transaction.
type Tx struct {
	tx     pgx.Tx
	closed atomic.Bool
}

// Exec executes a statement that returns no rows.
func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if t.closed.Load() {
		return pgconn.CommandTag{}, dberr.TxClosed()
	}
	return t.tx.Exec(ctx, sql, args...)
}

// Query executes a query that returns rows.
func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if t.closed.Load() {
		return nil, dberr.TxClosed()
	}
	return t.tx.Query(ctx, sql, args...)
}

// QueryRow executes a query expected to return at most one row. Errors
// are deferred until Scan, as with pgx.
func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if t.closed.Load() {
		return errRow{err: dberr.TxClosed()}
	}
	return t.tx.QueryRow(ctx, sql, args...)
}

func (t *Tx) expire() {
	t.closed.Store(true)
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error {
	return r.err
}
