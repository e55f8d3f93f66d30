package lz4mtotel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

type fakeStats struct{ blocks int64 }

func (s fakeStats) String() string { return "fake stats" }

func TestTraceNilTracerPassesThrough(t *testing.T) {
	called := false
	op := Op[fakeStats](func(ctx context.Context) (fakeStats, error) {
		called = true
		return fakeStats{blocks: 1}, nil
	})

	wrapped := Trace[fakeStats](nil, "encode", op)
	stats, err := wrapped(context.Background())
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, int64(1), stats.blocks)
}

func TestTraceWrapsSpanOnSuccessAndFailure(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("lz4mt-test")

	ok := Trace[fakeStats](tracer, "encode", func(ctx context.Context) (fakeStats, error) {
		require.NotNil(t, ctx)
		return fakeStats{blocks: 3}, nil
	})
	stats, err := ok(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), stats.blocks)

	failing := Trace[fakeStats](tracer, "decode", func(ctx context.Context) (fakeStats, error) {
		return fakeStats{}, errBoom
	})
	_, err = failing(context.Background())
	require.Error(t, err)
}

type boomError struct{}

func (*boomError) Error() string { return "boom" }

var errBoom = &boomError{}
