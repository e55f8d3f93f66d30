package pipeline

// chain implements the ordered-commit dependency: each task waits on
// the previous task's link before entering its commit section, and
// closes its own link when it has fully finished (commit, hashing,
// buffer release). This is a channel-per-ordinal chain in place of an
// explicit queue.
type chain struct {
	prev chan struct{}
}

// newChain returns a chain whose first link is already closed, so the
// ordinal-0 task never blocks waiting for a predecessor.
func newChain() *chain {
	c := &chain{prev: make(chan struct{})}
	close(c.prev)
	return c
}

// next returns the link the next submitted task must wait on, and
// advances the chain to a fresh, not-yet-closed link that task must
// close when it finishes.
func (c *chain) next() (wait <-chan struct{}, done chan struct{}) {
	wait = c.prev
	done = make(chan struct{})
	c.prev = done
	return wait, done
}
