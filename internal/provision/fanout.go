package provision

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEach calls fn once per item with at most limit calls in flight
// (limit <= 0 means unbounded) and returns when all calls have finished.
//
// fn reports outcomes by writing to its own index of a caller-owned slice.
// It has no error return, so one item failing never cancels the others.
func forEach[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, i int, item T)) {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			fn(ctx, i, item)
			return nil
		})
	}
	_ = g.Wait()
}
