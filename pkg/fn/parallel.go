package fn

import "sync"

// ParMap applies f to each item with at most workers goroutines running at
// once, preserving input order in the output. workers <= 0 means one
// goroutine per item.
func ParMap[T, U any](items []T, workers int, f func(T) U) []U {
	out := make([]U, len(items))
	var wg sync.WaitGroup

	if workers <= 0 {
		workers = len(items)
	}
	if workers == 0 {
		return out
	}

	sem := make(chan struct{}, workers)
	for i, v := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, v T) {
			defer func() { <-sem; wg.Done() }()
			out[i] = f(v)
		}(i, v)
	}
	wg.Wait()
	return out
}

// ParMapResult is ParMap for fallible work: per-item Results in input order,
// so callers decide how each failure degrades.
func ParMapResult[T, U any](items []T, workers int, f func(T) Result[U]) []Result[U] {
	out := make([]Result[U], len(items))
	var wg sync.WaitGroup

	if workers <= 0 {
		workers = len(items)
	}
	if workers == 0 {
		return out
	}

	sem := make(chan struct{}, workers)
	for i, v := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, v T) {
			defer func() { <-sem; wg.Done() }()
			out[i] = f(v)
		}(i, v)
	}
	wg.Wait()
	return out
}
