// Package postgres implements every relational repository port over
// pgx, generalized from the teacher's per-service db.go wrapper plus
// per-aggregate repository files (main-service/internal/adapters/db/postgres).
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/novelforge/engine/internal/platform/database"
)

type txKey struct{}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting DB's
// methods run against either a pooled connection or an in-flight
// transaction without duplicating call sites.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB wraps the connection pool and dispatches to whatever transaction,
// if any, WithinTransaction stashed on ctx (§5 "each task uses an
// independent session, or autoflush is disabled while parallel tasks
// share a single session" — here, the session a repository call uses is
// resolved per-call from ctx rather than threaded explicitly).
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a new DB instance from a database.DB.
func NewDB(db *database.DB) *DB {
	return &DB{pool: db.Pool()}
}

func (db *DB) querier(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db.pool
}

// Begin starts a transaction against the pool (used outside the
// Transaction port by tooling that needs a raw handle).
func (db *DB) Begin(ctx context.Context) (pgx.Tx, error) {
	return db.pool.Begin(ctx)
}

// Query executes a query that returns rows.
func (db *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return db.querier(ctx).Query(ctx, sql, args...)
}

// QueryRow executes a query that returns a single row.
func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return db.querier(ctx).QueryRow(ctx, sql, args...)
}

// Exec executes a query that doesn't return rows.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return db.querier(ctx).Exec(ctx, sql, args...)
}
