package pipeline

import "go.uber.org/atomic"

// Stats accumulates per-frame counters across concurrently committed
// tasks.
type Stats struct {
	Blocks   atomic.Int64
	InBytes  atomic.Int64
	OutBytes atomic.Int64
}

// Snapshot is a point-in-time, non-atomic copy of Stats.
type Snapshot struct {
	Blocks   int64
	InBytes  int64
	OutBytes int64
}

// Snapshot reads the current counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Blocks:   s.Blocks.Load(),
		InBytes:  s.InBytes.Load(),
		OutBytes: s.OutBytes.Load(),
	}
}
