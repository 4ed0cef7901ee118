// Package parallel runs index ranges across CPU cores. Callers write results
// into pre-sized slots so output never depends on scheduling order.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits [0, items) into one contiguous chunk per CPU core and
// calls fn(start, end) for each chunk concurrently. It returns when every
// chunk is done.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) on the calling goroutine when
// items <= threshold and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// ForEach calls fn(i) for every i in [0, items), in parallel chunks when
// items exceeds threshold. The first non-nil error by index is returned.
func ForEach(items, threshold int, fn func(i int) error) error {
	errs := make([]error, items)
	ParallelizeWithThreshold(items, threshold, func(start, end int) {
		for i := start; i < end; i++ {
			errs[i] = fn(i)
		}
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
