package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"dbkit/config"
	"dbkit/pkg/dberr"
)

type txMarkerKey struct{}

// InTransaction reports whether ctx belongs to a unit of work that is
// already running inside a transaction.
func InTransaction(ctx context.Context) bool {
	return ctx.Value(txMarkerKey{}) != nil
}

// Transactor executes units of work transactionally against a shared
// connection pool. Each invocation owns exactly one transaction: the unit
// of work runs exactly once, a success commits, any error or panic rolls
// back, and the connection is returned to the pool on every exit path.
//
// Many invocations may run concurrently against the same Transactor; the
// pool is the only shared resource and is internally synchronized.
type Transactor struct {
	pool           Pool
	acquireTimeout time.Duration
	log            zerolog.Logger
}

// NewTransactor creates a Transactor over pool. The acquire timeout is
// taken from cfg.
func NewTransactor(pool Pool, cfg config.PoolConfig, log zerolog.Logger) *Transactor {
	return &Transactor{
		pool:           pool,
		acquireTimeout: cfg.AcquireTimeout,
		log:            log,
	}
}

// WithTransaction runs fn inside a transaction. A nil return commits; an
// error return or a panic rolls back, and the error (or panic) is
// propagated unchanged. Internal failures are reported as *dberr.Error.
func (t *Transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	_, err := WithTransactionResult(ctx, t, func(ctx context.Context, tx *Tx) (struct{}, error) {
		return struct{}{}, fn(ctx, tx)
	})
	return err
}

// WithTransactionResult runs fn inside a transaction and returns its
// value on commit. This is a package function because Go methods cannot
// introduce type parameters.
//
// The protocol, per invocation:
//
//  1. Fail fast with a nested_transaction error if ctx already belongs to
//     a running unit of work.
//  2. Begin a transaction, waiting at most the configured acquire timeout
//     for a free connection. On timeout fn is never invoked.
//  3. Run fn exactly once against the transaction handle.
//  4. Commit on success. A failed commit discards fn's value and reports
//     commit_failed; the database guarantees no partial effects.
//  5. Roll back on error, panic, or context cancellation. A failed
//     rollback reports rollback_failed, retaining the original cause.
//
// The handle expires when the call returns; later use of it fails with a
// tx_closed error.
func WithTransactionResult[T any](ctx context.Context, t *Transactor, fn func(ctx context.Context, tx *Tx) (T, error)) (T, error) {
	var zero T
	if InTransaction(ctx) {
		return zero, dberr.NestedTransaction()
	}

	beginCtx := ctx
	if t.acquireTimeout > 0 {
		var cancel context.CancelFunc
		beginCtx, cancel = context.WithTimeout(ctx, t.acquireTimeout)
		defer cancel()
	}
	tx, err := t.pool.Begin(beginCtx)
	if err != nil {
		if beginCtx.Err() != nil && ctx.Err() == nil {
			return zero, dberr.AcquireTimeout(t.acquireTimeout, err)
		}
		return zero, dberr.ConnectFailed(dberr.PhaseBegin, err)
	}
	t.log.Debug().Msg("transaction started")

	handle := &Tx{tx: tx}
	defer handle.expire()
	defer func() {
		if p := recover(); p != nil {
			// Roll back and release before unwinding further.
			_ = t.rollback(ctx, tx)
			panic(p)
		}
	}()

	v, err := fn(context.WithValue(ctx, txMarkerKey{}, struct{}{}), handle)
	if err == nil && ctx.Err() != nil {
		// fn may have swallowed the cancellation; never commit a
		// cancelled transaction.
		err = ctx.Err()
	}
	if err != nil {
		if rbErr := t.rollback(ctx, tx); rbErr != nil {
			return zero, dberr.RollbackFailed(err, rbErr)
		}
		return zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return zero, dberr.CommitFailed(err)
	}
	t.log.Debug().Msg("transaction committed")
	return v, nil
}

// WithTransactionErr runs fn inside a transaction, expressing every
// internal failure in the caller's error type E through convert. Errors
// returned by fn that already are an E pass through untouched (and still
// roll back). E is normally a pointer error type; its zero value signals
// success.
func WithTransactionErr[T any, E error](
	ctx context.Context,
	t *Transactor,
	convert func(*dberr.Error) E,
	fn func(ctx context.Context, tx *Tx) (T, error),
) (T, E) {
	var zeroE E
	v, err := WithTransactionResult(ctx, t, fn)
	if err == nil {
		return v, zeroE
	}

	var zero T
	var de *dberr.Error
	if errors.As(err, &de) {
		return zero, convert(de)
	}
	var ce E
	if errors.As(err, &ce) {
		return zero, ce
	}
	// fn failed with a foreign error (driver fault, cancellation);
	// still representable in the caller's space via convert.
	return zero, convert(dberr.ConnectFailed(dberr.PhaseRun, err))
}

// rollback ends the transaction best-effort, using a detached context so
// a cancelled caller cannot prevent the connection from being released.
func (t *Transactor) rollback(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(context.WithoutCancel(ctx))
	switch {
	case err == nil:
		t.log.Debug().Msg("transaction rolled back")
	case errors.Is(err, pgx.ErrTxClosed):
		// The driver already terminated the transaction, e.g. after a
		// mid-statement cancellation; nothing left to undo.
	default:
		t.log.Warn().Err(err).Msg("transaction rollback failed")
		return err
	}
	return nil
}
