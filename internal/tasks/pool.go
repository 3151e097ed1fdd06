package tasks

import (
	"context"
	"runtime"
	"sync"
)

// Result pairs a processed value with its input index.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Map applies fn to every item on up to concurrency goroutines and returns
// the results in input order. Per-item errors are captured, not fatal.
// Items not yet started when ctx is cancelled get ctx's error.
func Map[In, Out any](ctx context.Context, concurrency int, items []In, fn func(context.Context, In) (Out, error)) []Result[Out] {
	if len(items) == 0 {
		return nil
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	workers := min(concurrency, len(items))

	jobs := make(chan int, len(items))
	results := make([]Result[Out], len(items))
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i].Index = i
				if err := ctx.Err(); err != nil {
					results[i].Err = err
					continue
				}
				results[i].Value, results[i].Err = fn(ctx, items[i])
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
