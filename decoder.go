package lz4mt

import (
	"context"
	"encoding/binary"
	"io"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/jeremybarnes/lz4mt/internal/bufpool"
	"github.com/jeremybarnes/lz4mt/internal/frame"
	"github.com/jeremybarnes/lz4mt/internal/pipeline"
)

// Decoder drives the decode side of a frame: read magic (looping over
// skippable frames and concatenated frames), read and validate the
// header, run the block pipeline, and verify the optional stream
// checksum.
type Decoder struct {
	opt Options
	id  uuid.UUID
}

// NewDecoder prepares a Decoder; the frame descriptor is not known
// until Decode reads it off the wire.
func NewDecoder(opt Options) (*Decoder, error) {
	opt.setDefaults()
	if opt.Source == nil {
		return nil, errNoSource
	}
	if opt.Sink == nil {
		return nil, errNoSink
	}
	return &Decoder{opt: opt, id: uuid.New()}, nil
}

// Decode reads and decodes frames until the source is exhausted,
// supporting concatenated frames and skippable frames interleaved
// between them. It returns on the first fatal error.
func (d *Decoder) Decode(ctx context.Context) (Stats, error) {
	if d.opt.Tracer != nil {
		var span trace.Span
		ctx, span = d.opt.Tracer.Start(ctx, "lz4mt.decode")
		defer span.End()
		stats, err := d.decode(ctx)
		if err != nil {
			span.RecordError(err)
		}
		return stats, err
	}
	return d.decode(ctx)
}

func (d *Decoder) decode(ctx context.Context) (Stats, error) {
	lg := d.opt.Logger.With(zap.Stringer("frame", d.id))
	var total Stats

	for {
		if d.opt.Source.ReadEOF() {
			return total, nil
		}

		magic, err := readU32(d.opt.Source)
		if err != nil {
			if d.opt.Source.ReadEOF() {
				return total, nil
			}
			return total, newError(InvalidHeader, err)
		}

		if frame.IsSkippableMagic(magic) {
			size, err := readU32(d.opt.Source)
			if err != nil {
				return total, newError(InvalidHeader, err)
			}
			if ce := lg.Check(zap.WarnLevel, "skipping skippable frame"); ce != nil {
				ce.Write(zap.Uint32("magic", magic), zap.Uint32("size", size))
			}
			if err := d.opt.Source.ReadSkippable(magic, size); err != nil {
				return total, newError(InvalidHeader, err)
			}
			continue
		}

		if magic != frame.Magic {
			_ = d.opt.Source.ReadSeek(-4)
			return total, newError(InvalidMagicNumber, nil)
		}

		desc, err := d.readHeader()
		if err != nil {
			return total, err
		}
		if ce := lg.Check(zap.DebugLevel, "read header"); ce != nil {
			ce.Write(zap.Uint8("block_max_id", desc.BlockMaximumSizeID))
		}

		blockStats, err := d.decodeFrame(ctx, desc)
		total.Blocks += blockStats.Blocks
		total.InBytes += blockStats.InBytes
		total.OutBytes += blockStats.OutBytes
		if err != nil {
			lg.Warn("decode frame failed", zap.Error(err))
			return total, err
		}
	}
}

// readHeader reads FLG/BD and any optional fields plus the header
// checksum, already past the magic number.
func (d *Decoder) readHeader() (frame.Descriptor, error) {
	var flgbd [2]byte
	if _, err := io.ReadFull(d.opt.Source, flgbd[:]); err != nil {
		return frame.Descriptor{}, newError(InvalidHeader, err)
	}

	// Validated eagerly, before the optional fields are known to exist
	// on the wire, so a malformed descriptor reports its own specific
	// cause instead of being masked by a short read below on fields
	// whose length depends on the descriptor being well-formed.
	if _, err := frame.DecodeFlags(flgbd[0], flgbd[1]); err != nil {
		return frame.Descriptor{}, newError(resultOf(err), err)
	}

	rest := make([]byte, frame.ExtraFieldsLen(flgbd[0])+1)
	if _, err := io.ReadFull(d.opt.Source, rest); err != nil {
		return frame.Descriptor{}, newError(InvalidHeader, err)
	}

	full := append(append([]byte{}, flgbd[:]...), rest...)
	desc, err := frame.DecodeHeader(full)
	if err != nil {
		return frame.Descriptor{}, newError(resultOf(err), err)
	}
	return desc, nil
}

// decodeFrame runs the block loop for one already-header-parsed
// frame: acquire a raw-payload buffer per block, submit it to the
// pipeline decoder, and on EOS verify the trailing stream checksum.
func (d *Decoder) decodeFrame(ctx context.Context, desc frame.Descriptor) (Stats, error) {
	srcPool, err := bufpool.New(desc.BlockSize(), d.opt.poolCapacity())
	if err != nil {
		return Stats{}, newError(ERROR, err)
	}
	defer srcPool.Close()

	dec, err := pipeline.NewDecoder(ctx, pipeline.DecodeParams{
		Sequential:     d.opt.Mode == ModeSequential,
		Concurrency:    d.opt.poolCapacity(),
		BlockSize:      desc.BlockSize(),
		BlockChecksum:  desc.BlockChecksum,
		StreamChecksum: desc.StreamChecksum,
		Decompressor:   d.opt.Codec,
		Dst:            d.opt.Sink,
	})
	if err != nil {
		return Stats{}, newError(ERROR, err)
	}

	var readErr error
	var readKind Result

loop:
	for i := 0; ; i++ {
		if dec.Quit() {
			break
		}

		blockHeader, err := readU32(d.opt.Source)
		if err != nil {
			readKind, readErr = CannotReadBlockSize, err
			break loop
		}
		if blockHeader == frame.EOS {
			break
		}

		incompressible := blockHeader&frame.IncompressibleMask != 0
		size := int(blockHeader &^ frame.IncompressibleMask)

		if size > desc.BlockSize() {
			readKind, readErr = CannotReadBlockSize, errors.Errorf("block size %d exceeds maximum %d", size, desc.BlockSize())
			break loop
		}

		handle, err := srcPool.Acquire(dec.Context())
		if err != nil {
			readKind, readErr = CannotReadBlockData, err
			break loop
		}

		buf := handle.Buffer().Bytes()
		if _, err := io.ReadFull(d.opt.Source, buf[:size]); err != nil {
			handle.Release()
			readKind, readErr = CannotReadBlockData, err
			break loop
		}

		var expect uint32
		if desc.BlockChecksum {
			expect, err = readU32(d.opt.Source)
			if err != nil {
				handle.Release()
				readKind, readErr = CannotReadBlockChecksum, err
				break loop
			}
		}

		dec.Submit(pipeline.DecodeBlock{
			Ordinal:        i,
			Payload:        buf[:size],
			SrcHandle:      handle,
			Incompressible: incompressible,
			ExpectChecksum: expect,
		})
	}

	snap, streamSum, werr := dec.Wait()
	stats := Stats{Blocks: snap.Blocks, InBytes: snap.InBytes, OutBytes: snap.OutBytes}

	// A driver-level read failure and a pipeline failure can both be
	// set (the pipeline signal latches once submitted tasks notice the
	// short read), so neither is dropped silently.
	switch {
	case readErr != nil && werr != nil:
		return stats, newError(readKind, multierr.Append(readErr, werr))
	case readErr != nil:
		return stats, newError(readKind, readErr)
	case werr != nil:
		return stats, newError(resultOf(werr), werr)
	}

	if desc.StreamChecksum {
		want, err := readU32(d.opt.Source)
		if err != nil {
			return stats, newError(CannotReadStreamChecksum, err)
		}
		if want != streamSum {
			return stats, newError(StreamChecksumMismatch, nil)
		}
	}

	return stats, nil
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
