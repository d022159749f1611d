// Package database wires the pgxpool connection pool shared by every
// Postgres-backed repository and the vector store adapter.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/novelforge/engine/internal/platform/config"
)

// DB wraps a pgxpool.Pool.
type DB struct {
	pool *pgxpool.Pool
}

// New opens a connection pool against cfg.Database.URL.
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Pool returns the underlying pgxpool.Pool.
func (db *DB) Pool() *pgxpool.Pool { return db.pool }

// Close releases the connection pool.
func (db *DB) Close() { db.pool.Close() }
