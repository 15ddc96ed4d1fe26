package mpm

import "sync"

// bufferPool recycles per-worker grid buffers between steps.
type bufferPool struct {
	pool sync.Pool
	size int
}

func newBufferPool(nodes int) *bufferPool {
	return &bufferPool{
		size: nodes,
		pool: sync.Pool{
			New: func() interface{} {
				return newGridBuffer(nodes)
			},
		},
	}
}

func (p *bufferPool) Get() *gridBuffer {
	return p.pool.Get().(*gridBuffer)
}

func (p *bufferPool) Put(b *gridBuffer) {
	if b.len() == p.size {
		b.reset()
		p.pool.Put(b)
	}
}
