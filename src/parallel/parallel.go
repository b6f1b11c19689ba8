// Package parallel fans work out over a bounded pool.
package parallel

import (
	"context"
	"fmt"
	"runtime/debug"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one item. Index is the item's position in the
// input.
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// Map runs fn over items with at most limit in flight and waits for all of
// them. A failing or panicking item only marks its own Result; Map itself
// never fails. Results are in input order.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, item := range items {
		i, item := i, item
		g.Go(func() (err error) {
			results[i].Index = i

			defer func() {
				if r := recover(); r != nil {
					logger.WithFields(map[string]interface{}{
						"index": i,
						"panic": r,
						"stack": string(debug.Stack()),
					}).Error("Recovered panic in parallel task")

					results[i].Err = fmt.Errorf("task %d panicked: %v", i, r)
				}
			}()

			v, fnErr := fn(ctx, item)
			results[i].Value = v
			results[i].Err = fnErr
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Limit is the worker count for n tasks capped at ceiling, never below 1.
func Limit(n, ceiling int) int {
	if n < 1 {
		return 1
	}
	if n < ceiling {
		return n
	}
	return ceiling
}
