package pipeline

import (
	"sync"

	"go.uber.org/atomic"
)

// generic is the coarse placeholder result a more specific error is
// still allowed to refine: an I/O failure inside a helper latches this
// first, and the caller overwrites it with a specific kind once it
// knows what actually went wrong.
var generic = &genericError{}

type genericError struct{}

func (*genericError) Error() string { return "error" }

// Signal is the pipeline-wide cancellation flag plus sticky result
// slot: a single atomic "quit" flag and a mutex-guarded result that is
// only overwritten while it is still nil or the generic placeholder,
// so the first specific error wins.
type Signal struct {
	quit atomic.Bool

	mu  sync.Mutex
	err error
}

// Quit reports whether the pipeline has been cancelled.
func (s *Signal) Quit() bool { return s.quit.Load() }

// FailGeneric latches the coarse placeholder error if nothing more
// specific is set yet, and triggers cancellation.
func (s *Signal) FailGeneric() {
	s.mu.Lock()
	if s.err == nil {
		s.err = generic
	}
	s.mu.Unlock()
	s.quit.Store(true)
}

// Fail latches err as the sticky result unless a specific error is
// already latched, and triggers cancellation.
func (s *Signal) Fail(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	if s.err == nil || s.err == generic {
		s.err = err
	}
	s.mu.Unlock()
	s.quit.Store(true)
}

// Err returns the latched sticky result, or nil if none was set.
func (s *Signal) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
