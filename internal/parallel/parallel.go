// Package parallel provides the chunked fan-out helper used by the map
// phases of the engine. Work items must be independent; callers own any
// output slices and write to disjoint index ranges.
package parallel

import (
	"runtime"
	"sync"
)

// For executes fn over [0, n) split into contiguous chunks across workers.
// Chunks smaller than minChunk run inline.
func For(n, minChunk int, fn func(start, end int)) {
	workers := runtime.NumCPU()
	if n <= minChunk || workers <= 1 {
		fn(0, n)
		return
	}

	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}

		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}
