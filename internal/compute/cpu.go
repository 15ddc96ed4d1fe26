package compute

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

type CPUBackend struct {
	workers int
}

// NewCPUBackend uses one goroutine per CPU when workers is zero.
func NewCPUBackend(workers int) *CPUBackend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &CPUBackend{workers: workers}
}

func (c *CPUBackend) Name() string { return "cpu" }
func (c *CPUBackend) Workers() int { return c.workers }
func (c *CPUBackend) Cleanup()     {}

func (c *CPUBackend) ParallelFor(ctx context.Context, n, minChunk int, fn func(start, end int) error) error {
	if n <= 0 {
		return ctx.Err()
	}
	if c.workers <= 1 || n <= minChunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(0, n)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, r := range Chunks(n, minChunk, c.workers) {
		start, end := r[0], r[1]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(start, end)
		})
	}
	return g.Wait()
}
