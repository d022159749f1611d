// Package generation implements the project state machine and cascade
// engine (C14), the outline generators (C13), the chapter generator
// (C12), and the twelve external operations of §6, generalized from
// main-service/internal/application/story/create_story.go's
// use-case-struct-per-operation convention.
package generation

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runBounded runs one goroutine per item in items, bounded by
// maxParallel concurrent goroutines (§5's semaphore), isolating each
// item's error so one failure never cancels its siblings (§9 design
// notes "error isolation wrapper"). fn's own error, if any, is captured
// into results[i] rather than propagated — errgroup.Wait is not used for
// error aggregation here precisely because per-item failures must not
// abort the batch.
func runBounded[T any, R any](ctx context.Context, items []T, maxParallel int, fn func(ctx context.Context, item T, index int) R) []R {
	if maxParallel <= 0 {
		maxParallel = 1
	}
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}
	if len(items) == 1 {
		// §8 B2: version_count=1 never invokes the parallel path and
		// does not require the semaphore.
		results[0] = fn(ctx, items[0], 0)
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i] = fn(gctx, item, i)
			return nil
		})
	}
	_ = g.Wait() // fn never returns an error through errgroup; see isolation note above
	return results
}
