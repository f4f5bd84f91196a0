package jpeg2000

import (
	"sync"
	"sync/atomic"
)

// parallelFor runs fn(i) for i in [0, n) across up to workers
// goroutines. Work items are claimed with an atomic fetch-and-increment
// so uneven items balance themselves; the call is a barrier.
func parallelFor(workers, n int, fn func(i int)) {
	if n == 0 {
		return
	}
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1)) - 1
				if i >= n {
					return
				}
				fn(i)
			}
		}()
	}
	wg.Wait()
}

// parallelChunks splits [0, n) into runs of at least minChunk items and
// processes them concurrently; the MCT stage feeds ≥4K-sample runs
// through it.
func parallelChunks(workers, n, minChunk int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if minChunk < 1 {
		minChunk = 1
	}
	chunks := ceilDiv(n, minChunk)
	if chunks > workers {
		chunks = workers
	}
	if chunks <= 1 {
		fn(0, n)
		return
	}
	size := ceilDiv(n, chunks)
	parallelFor(workers, chunks, func(i int) {
		lo := i * size
		hi := lo + size
		if hi > n {
			hi = n
		}
		if lo < hi {
			fn(lo, hi)
		}
	})
}
