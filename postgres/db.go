// Package postgres provides a managed PostgreSQL connection pool and a
// transaction executor with guaranteed commit-or-rollback semantics.
// Query building and entity mapping are left to the caller; this package
// only brokers the pool and the transaction boundary.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"

	"dbkit/config"
	"dbkit/pkg/dberr"
	"dbkit/pkg/logger"
)

// Pool is the subset of *pgxpool.Pool this package depends on. It is also
// satisfied by pgxmock.PgxPoolIface, which is what the unit tests inject.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

var _ Pool = (*pgxpool.Pool)(nil)

// NewPool creates a connection pool for url using default settings.
func NewPool(ctx context.Context, url string, log zerolog.Logger) (*pgxpool.Pool, error) {
	return NewPoolWithConfig(ctx, config.New(url), log)
}

// NewPoolWithConfig creates a connection pool from cfg. Invalid
// configurations are rejected before any network I/O. Connectivity is
// verified with a ping bounded by cfg.ConnectTimeout; the pool is closed
// again if the ping fails.
//
// The returned pool is safe for concurrent use and is owned by the caller
// for the lifetime of the process; call Close on shutdown.
func NewPoolWithConfig(ctx context.Context, cfg config.PoolConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, dberr.InvalidConfig("parsing database url: " + err.Error())
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnIdleTime = cfg.IdleTimeout
	poolCfg.MaxConnLifetime = cfg.MaxLifetime
	poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	if cfg.SQLLogging {
		poolCfg.ConnConfig.Tracer = &tracelog.TraceLog{
			Logger:   logger.NewTraceLogger(log),
			LogLevel: tracelog.LogLevelDebug,
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, dberr.ConnectFailed(dberr.PhaseConnect, err)
	}

	// Verify connectivity
	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, dberr.ConnectFailed(dberr.PhaseConnect, err)
	}

	log.Info().
		Int32("max_conns", cfg.MaxConns).
		Int32("min_conns", cfg.MinConns).
		Bool("sql_logging", cfg.SQLLogging).
		Msg("PostgreSQL connection pool established")

	return pool, nil
}
