package postgres

import (
	"context"

	"github.com/novelforge/engine/internal/ports/repositories"
)

var _ repositories.Transaction = (*Transaction)(nil)

// Transaction implements repositories.Transaction by stashing the pgx.Tx
// on ctx, so every repository constructed over the same DB transparently
// joins the running transaction (§5 "database sessions are not shared
// across parallel tasks" — one Transaction per call tree), generalized
// from main-service/internal/adapters/db/postgres/transaction.go's
// begin/commit/rollback shape.
type Transaction struct {
	db *DB
}

// NewTransaction constructs a Transaction.
func NewTransaction(db *DB) *Transaction {
	return &Transaction{db: db}
}

// WithinTransaction runs fn with ctx carrying an open transaction,
// committing on success and rolling back on error or panic.
func (t *Transaction) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.db.pool.Begin(ctx)
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
