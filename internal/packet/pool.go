package packet

import (
	"runtime"
	"sync"
)

// parallelFor runs fn(i) for i in [0, n) across a bounded worker pool,
// pinned at maxWorkers goroutines so CPU-heavy packetization never
// starves the I/O-bound event loop elsewhere in the process (spec §5).
// fn must write only to index i of whatever it's building -- parallelFor
// itself only sequences goroutine lifetimes, not result ordering, which
// callers get for free by indexing their own output slice.
func parallelFor(n, maxWorkers int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}
	if maxWorkers > n {
		maxWorkers = n
	}

	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup
	errsCh := make(chan error, n)

	for i := 0; i < n; i++ {
		i := i
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := fn(i); err != nil {
				errsCh <- err
			}
		}()
	}
	wg.Wait()
	close(errsCh)

	for err := range errsCh {
		if err != nil {
			return err
		}
	}
	return nil
}
