// Package workpool runs index-addressed work on a bounded set of goroutines.
package workpool

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Workers resolves a requested worker count; zero or less means GOMAXPROCS.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

// For runs fn(i) for every i in [0, n) on at most workers goroutines and
// waits for all of them. Callers write results into per-index slots so
// output order never depends on scheduling.
func For(n, workers int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if workers <= 1 || n == 1 {
		for i := range n {
			fn(i)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range n {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	_ = g.Wait()
}

// Chunks splits [0, n) into ranges of at most size elements and runs
// fn(lo, hi) for each one through For.
func Chunks(n, size, workers int, fn func(lo, hi int)) {
	if size <= 0 {
		size = 1
	}
	chunks := (n + size - 1) / size
	For(chunks, workers, func(c int) {
		lo := c * size
		fn(lo, min(lo+size, n))
	})
}
