// Package fanout runs indexed work items on a bounded errgroup. Callers
// write results into slots they own by index, so merging is ordered without
// further synchronisation.
package fanout

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Policy selects how item failures are handled.
type Policy struct {
	// Workers bounds concurrency; values below 1 mean one.
	Workers int
	// FailFast cancels remaining items on the first failure. Otherwise every
	// item runs and the failures are joined in index order.
	FailFast bool
}

// Sequential runs items one at a time and stops at the first failure.
func Sequential() Policy { return Policy{Workers: 1, FailFast: true} }

// Run calls fn for every index in [0, n).
func Run(ctx context.Context, n int, p Policy, fn func(ctx context.Context, i int) error) error {
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	if p.FailFast {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := 0; i < n; i++ {
			g.Go(func() error { return fn(gctx, i) })
		}
		return g.Wait()
	}

	errs := make([]error, n)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if errs[i] = ctx.Err(); errs[i] == nil {
				errs[i] = fn(ctx, i)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
