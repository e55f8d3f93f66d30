package lz4mt

import (
	"io"

	"github.com/cenkalti/backoff/v4"
)

// RetryingSource wraps a Source whose underlying transport is prone
// to transient read failures (a flaky pipe, a reconnecting stream) and
// retries a failed Read with exponential backoff. io.EOF is never
// retried: it is the clean-end-of-input signal the decode driver
// depends on. Off by default — callers opt in by wrapping their own
// Source before setting Options.Source.
type RetryingSource struct {
	Source
	newBackOff func() backoff.BackOff
}

// NewRetryingSource wraps src, retrying transient Read failures with
// backoff.NewExponentialBackOff()'s default policy.
func NewRetryingSource(src Source) *RetryingSource {
	return &RetryingSource{
		Source:     src,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}
}

func (s *RetryingSource) Read(p []byte) (int, error) {
	var total int
	op := func() error {
		n, err := s.Source.Read(p[total:])
		total += n
		if n > 0 {
			// The underlying Read already delivered bytes into p and
			// advanced the source's cursor past them; retrying from
			// p[0] here would silently drop them. Stop and hand
			// whatever was read back to the caller, error and all,
			// the same short-read-plus-error a plain io.Reader may
			// return in one call.
			return backoff.Permanent(err)
		}
		if err == io.EOF {
			return backoff.Permanent(err)
		}
		return err
	}
	err := backoff.Retry(op, s.newBackOff())
	if perm, ok := err.(*backoff.PermanentError); ok {
		return total, perm.Err
	}
	return total, err
}
