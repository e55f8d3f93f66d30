package lz4mt

import (
	"runtime"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jeremybarnes/lz4mt/internal/frame"
)

// Descriptor is the frame's FLG/BD descriptor, re-exported from
// internal/frame so callers never import the internal package
// directly.
type Descriptor = frame.Descriptor

// DefaultDescriptor returns: version 1, block-independent,
// stream-checksummed, maximum block size (4 MiB), everything else
// zero.
func DefaultDescriptor() Descriptor { return frame.Default() }

// Mode selects the pipeline's scheduling discipline.
type Mode int

const (
	// ModeParallel fans work out across a bounded worker pool.
	ModeParallel Mode = iota
	// ModeSequential runs every task inline on the driver goroutine.
	ModeSequential
)

// Options configures a NewEncoder/NewDecoder call.
type Options struct {
	Descriptor Descriptor
	Mode       Mode

	Source Source
	Sink   Sink
	Codec  Codec

	// Concurrency bounds the buffer pool size in ModeParallel; it is
	// ignored (forced to 1) in ModeSequential. Zero means
	// runtime.NumCPU()+1, mirroring chpool.Options.MaxConns defaulting
	// to runtime.NumCPU().
	Concurrency int

	Logger *zap.Logger
	Tracer trace.Tracer
}

func (o *Options) setDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = runtime.NumCPU() + 1
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Codec == nil {
		o.Codec = NewDefaultCodec()
	}
}

func (o Options) poolCapacity() int {
	if o.Mode == ModeSequential {
		return 1
	}
	if o.Concurrency < 1 {
		return 1
	}
	return o.Concurrency
}
