package compute

import "context"

type Backend interface {
	Name() string
	Workers() int
	ParallelFor(ctx context.Context, n, minChunk int, fn func(start, end int) error) error
	Cleanup()
}

var activeBackend Backend = NewCPUBackend(0)

func SetBackend(b Backend) {
	if activeBackend != nil {
		activeBackend.Cleanup()
	}
	activeBackend = b
}

func GetBackend() Backend {
	return activeBackend
}

// Chunks splits [0, n) into at most workers contiguous ranges of at least
// minChunk elements each.
func Chunks(n, minChunk, workers int) [][2]int {
	if n <= 0 {
		return nil
	}
	if minChunk < 1 {
		minChunk = 1
	}
	if workers < 1 {
		workers = 1
	}
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	size := (n + workers - 1) / workers
	out := make([][2]int, 0, workers)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
