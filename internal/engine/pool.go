package engine

import (
	"context"
	"sync"
)

// runWorkers fans jobs out to a fixed worker count and blocks until every
// accepted job finishes. Cancelling ctx stops feeding; in-flight jobs run to
// completion under their own item timeouts.
func runWorkers[T any](ctx context.Context, workers int, jobs []T, fn func(context.Context, T)) {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}
	if workers == 0 {
		return
	}

	ch := make(chan T)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range ch {
				fn(ctx, job)
			}
		}()
	}

feed:
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			break feed
		case ch <- job:
		}
	}
	close(ch)
	wg.Wait()
}
