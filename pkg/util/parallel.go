package util

import (
	"context"
	"errors"
	"sync"
)

// Parallel calls fn for every input using at most limit goroutines. Every
// input is attempted even when some fail; the errors are joined. Inputs not
// yet started when ctx is canceled are skipped and ctx.Err() is included.
func Parallel[T any](ctx context.Context, inputs []T, limit int, fn func(context.Context, T) error) error {
	if len(inputs) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 1
	}
	limit = min(limit, len(inputs))

	tasks := make(chan T)
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)

	for i := 0; i < limit; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range tasks {
				if err := fn(ctx, item); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
			}
		}()
	}

feed:
	for _, item := range inputs {
		if err := ctx.Err(); err != nil {
			errs = appendLocked(&mu, errs, err)
			break
		}
		select {
		case <-ctx.Done():
			errs = appendLocked(&mu, errs, ctx.Err())
			break feed
		case tasks <- item:
		}
	}
	close(tasks)
	wg.Wait()

	return errors.Join(errs...)
}

func appendLocked(mu *sync.Mutex, errs []error, err error) []error {
	mu.Lock()
	defer mu.Unlock()
	return append(errs, err)
}
