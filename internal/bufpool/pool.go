// Package bufpool implements a bounded, blocking block-buffer pool: a
// fixed-capacity set of reusable byte buffers that blocks callers on
// exhaustion and is the codec's only backpressure mechanism.
package bufpool

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/puddle/v2"
)

// Buffer is a pool-owned, reusable byte region sized to the frame's
// block maximum. A Buffer is owned by at most one holder at a time.
type Buffer struct {
	b []byte
}

// Bytes returns the full-capacity backing slice.
func (buf *Buffer) Bytes() []byte { return buf.b }

// Handle is a leased Buffer; it must be released back to its Pool
// exactly once.
type Handle struct {
	res *puddle.Resource[*Buffer]
}

// Buffer returns the leased buffer.
func (h *Handle) Buffer() *Buffer { return h.res.Value() }

// Release returns the buffer to the pool, waking one waiter if any is
// blocked in Acquire.
func (h *Handle) Release() {
	h.res.Release()
}

// Pool is a fixed-capacity pool of block buffers, all of exactly
// blockSize bytes. Capacity is fixed at construction: max(1,
// hardwareConcurrency+1) in parallel mode, exactly 1 in sequential
// mode.
type Pool struct {
	p *puddle.Pool[*Buffer]
}

// New constructs a Pool of buffers of blockSize bytes, holding at most
// capacity buffers at a time (created lazily up to capacity).
func New(blockSize, capacity int) (*Pool, error) {
	if capacity < 1 {
		capacity = 1
	}
	cfg := &puddle.Config[*Buffer]{
		Constructor: func(ctx context.Context) (*Buffer, error) {
			return &Buffer{b: make([]byte, blockSize)}, nil
		},
		Destructor: func(*Buffer) {},
		MaxSize:    int32(capacity),
	}
	p, err := puddle.NewPool(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "new pool")
	}
	return &Pool{p: p}, nil
}

// Acquire blocks until a buffer is available (or can be created under
// capacity), returning a Handle the caller must Release.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	res, err := p.p.Acquire(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "acquire")
	}
	return &Handle{res: res}, nil
}

// Close releases all resources held by the pool. Safe to call once
// all handles have been released.
func (p *Pool) Close() {
	p.p.Close()
}
