// Package repositories declares the persistence ports abstracted over in
// §2/§4.15: one interface per aggregate root plus a Transaction port used
// to compose multi-repository writes atomically.
package repositories

import "context"

// Transaction runs fn within a single atomic unit of work. Implementations
// MUST NOT share the underlying session across goroutines (§5
// shared-resource policy); each parallel task obtains its own Transaction.
type Transaction interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
