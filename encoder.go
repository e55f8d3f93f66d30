package lz4mt

import (
	"context"
	"encoding/binary"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jeremybarnes/lz4mt/internal/frame"
	"github.com/jeremybarnes/lz4mt/internal/pipeline"
)

// Encoder drives the encode side of a frame: write header, run the
// block pipeline, write EOS and the optional stream checksum.
type Encoder struct {
	opt Options
	id  uuid.UUID
}

// NewEncoder validates opt.Descriptor and prepares an Encoder; it does
// not write anything until Encode is called.
func NewEncoder(opt Options) (*Encoder, error) {
	opt.setDefaults()
	if opt.Sink == nil {
		return nil, errNoSink
	}
	if opt.Source == nil {
		return nil, errNoSource
	}
	if err := opt.Descriptor.Validate(); err != nil {
		return nil, newError(resultOf(err), err)
	}
	return &Encoder{opt: opt, id: uuid.New()}, nil
}

// Encode writes one frame and returns byte/block statistics.
func (e *Encoder) Encode(ctx context.Context) (Stats, error) {
	if e.opt.Tracer != nil {
		var span trace.Span
		ctx, span = e.opt.Tracer.Start(ctx, "lz4mt.encode")
		defer span.End()
		stats, err := e.encode(ctx)
		if err != nil {
			span.RecordError(err)
		}
		return stats, err
	}
	return e.encode(ctx)
}

func (e *Encoder) encode(ctx context.Context) (Stats, error) {
	lg := e.opt.Logger.With(zap.Stringer("frame", e.id))

	hdr, err := frame.EncodeHeader(e.opt.Descriptor)
	if err != nil {
		return Stats{}, newError(resultOf(err), err)
	}
	if _, err := e.opt.Sink.Write(hdr); err != nil {
		return Stats{}, newError(CannotWriteHeader, err)
	}
	if ce := lg.Check(zap.DebugLevel, "wrote header"); ce != nil {
		ce.Write(zap.Int("size", len(hdr)))
	}

	params := pipeline.EncodeParams{
		Sequential:     e.opt.Mode == ModeSequential,
		Concurrency:    e.opt.poolCapacity(),
		BlockSize:      e.opt.Descriptor.BlockSize(),
		BlockChecksum:  e.opt.Descriptor.BlockChecksum,
		StreamChecksum: e.opt.Descriptor.StreamChecksum,
		Compressor:     e.opt.Codec,
		Dst:            e.opt.Sink,
	}

	snap, streamSum, err := pipeline.Encode(ctx, e.opt.Source, params)
	stats := Stats{Blocks: snap.Blocks, InBytes: snap.InBytes, OutBytes: snap.OutBytes}
	if err != nil {
		lg.Warn("encode pipeline failed", zap.Error(err))
		return stats, newError(resultOf(err), err)
	}

	var eos [4]byte
	if _, err := e.opt.Sink.Write(eos[:]); err != nil {
		return stats, newError(CannotWriteEOS, err)
	}

	if e.opt.Descriptor.StreamChecksum {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], streamSum)
		if _, err := e.opt.Sink.Write(b[:]); err != nil {
			return stats, newError(CannotWriteStreamChecksum, err)
		}
	}

	if ce := lg.Check(zap.DebugLevel, "encoded frame"); ce != nil {
		ce.Write(zap.Int64("blocks", stats.Blocks), zap.Int64("in_bytes", stats.InBytes), zap.Int64("out_bytes", stats.OutBytes))
	}

	return stats, nil
}
