package build

import (
	"context"
	"fmt"
	"sync"
)

// runPool hands items to a fixed set of workers over a channel whose depth
// equals the worker count, then waits for every worker to return. Items not
// yet queued when ctx is canceled are dropped and ctx.Err() is returned.
func runPool[T any](ctx context.Context, workers int, items []T, fn func(ctx context.Context, worker string, i int, item T)) error {
	if workers < 1 {
		workers = 1
	}

	type job struct {
		index int
		item  T
	}
	jobs := make(chan job, workers)

	var wg sync.WaitGroup
	for w := range workers {
		name := fmt.Sprintf("worker-%d", w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					continue
				}
				fn(ctx, name, j.index, j.item)
			}
		}()
	}

feed:
	for i, item := range items {
		select {
		case jobs <- job{index: i, item: item}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	return ctx.Err()
}
