package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/novelforge/engine/internal/platform/database"
)

// DB wraps the connection pool for the vector-store collections, kept
// as its own small wrapper (rather than reusing adapters/db/postgres.DB)
// since C2 is its own component with no transactional join to the
// relational repositories (§4.2).
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a new DB instance from a database.DB.
func NewDB(db *database.DB) *DB {
	return &DB{pool: db.Pool()}
}

func (db *DB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return db.pool.Exec(ctx, sql, args...)
}

func (db *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return db.pool.Query(ctx, sql, args...)
}

func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return db.pool.QueryRow(ctx, sql, args...)
}
