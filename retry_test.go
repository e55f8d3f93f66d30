package lz4mt

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
)

type flakySource struct {
	failsLeft int
	data      []byte
	pos       int
}

func (f *flakySource) Read(p []byte) (int, error) {
	if f.failsLeft > 0 {
		f.failsLeft--
		return 0, errors.New("transient read failure")
	}
	if f.pos >= len(f.data) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += n
	return n, nil
}

func (f *flakySource) ReadEOF() bool                          { return f.pos >= len(f.data) && f.failsLeft == 0 }
func (f *flakySource) ReadSeek(offset int) error               { return nil }
func (f *flakySource) ReadSkippable(magic, size uint32) error { return nil }

func TestRetryingSourceRetriesTransientFailures(t *testing.T) {
	inner := &flakySource{failsLeft: 2, data: []byte("hello")}
	rs := NewRetryingSource(inner)
	rs.newBackOff = func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Millisecond)
	}

	buf := make([]byte, 5)
	n, err := rs.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))
	require.Equal(t, 0, inner.failsLeft)
}

func TestRetryingSourceDoesNotRetryEOF(t *testing.T) {
	inner := &flakySource{data: nil}
	rs := NewRetryingSource(inner)
	rs.newBackOff = func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Millisecond)
	}

	_, err := rs.Read(make([]byte, 1))
	require.ErrorIs(t, err, io.EOF)
}

// partialThenFailSource returns some bytes together with a transient,
// non-EOF error in the same Read call, exactly the "flaky pipe"
// scenario a partial-read-aware retry must not corrupt.
type partialThenFailSource struct {
	data       []byte
	pos        int
	failOnce   bool
	failedOnce bool
}

func (f *partialThenFailSource) Read(p []byte) (int, error) {
	if f.pos >= len(f.data) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	// Only ever hand out a couple of bytes at a time, so a caller with
	// a larger buffer sees more than one Read call.
	if n > 2 {
		n = 2
	}
	f.pos += n
	if !f.failedOnce && f.failOnce {
		f.failedOnce = true
		return n, errors.New("transient read failure")
	}
	return n, nil
}

func (f *partialThenFailSource) ReadEOF() bool                          { return f.pos >= len(f.data) }
func (f *partialThenFailSource) ReadSeek(offset int) error               { return nil }
func (f *partialThenFailSource) ReadSkippable(magic, size uint32) error { return nil }

func TestRetryingSourcePreservesBytesFromPartialReadWithError(t *testing.T) {
	inner := &partialThenFailSource{data: []byte("hello world"), failOnce: true}
	rs := NewRetryingSource(inner)
	rs.newBackOff = func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Millisecond)
	}

	// RetryingSource hands back a partial read together with the
	// transient error that came with it, without retrying (legal per
	// io.Reader); a caller drives it the same way it would drive any
	// other Reader with that contract, retrying on non-EOF errors.
	buf := make([]byte, len(inner.data))
	var total int
	for total < len(buf) {
		n, err := rs.Read(buf[total:])
		total += n
		if err != nil && err != io.EOF {
			continue
		}
		require.NoError(t, err)
	}
	require.Equal(t, "hello world", string(buf))
}

func TestRetryingSourceForwardsEmbeddedSourceMethods(t *testing.T) {
	inner := &flakySource{data: []byte("x")}
	rs := NewRetryingSource(inner)
	require.False(t, rs.ReadEOF())
	require.NoError(t, rs.ReadSeek(0))
	require.NoError(t, rs.ReadSkippable(0, 0))
}
