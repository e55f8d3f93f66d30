package pipeline

import (
	"context"
	"io"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/jeremybarnes/lz4mt/internal/bufpool"
	"github.com/jeremybarnes/lz4mt/internal/frame"
	"github.com/jeremybarnes/lz4mt/internal/xxh32"
)

// DecodeParams configures a Decode pipeline run.
type DecodeParams struct {
	Sequential     bool
	Concurrency    int
	BlockSize      int
	BlockChecksum  bool
	StreamChecksum bool
	Decompressor   Decompressor
	Dst            io.Writer
}

// DecodeBlock is one already-read block awaiting decompression and
// ordered commit: the frame driver reads the block-size word, payload,
// and optional block checksum, then submits it here.
type DecodeBlock struct {
	Ordinal        int
	Payload        []byte // owned by srcHandle; valid until the task releases it
	SrcHandle      *bufpool.Handle
	Incompressible bool
	ExpectChecksum uint32
}

// Decoder runs the block pipeline for decoding: it accepts
// already-read blocks in order via Submit, decompresses and
// commits them, and returns the final stream digest via Wait.
type Decoder struct {
	params  DecodeParams
	dstPool *bufpool.Pool

	g          *errgroup.Group
	gctx       context.Context
	signal     *Signal
	chain      *chain
	streamHash *xxh32.Digest
	stats      Stats
}

// NewDecoder constructs a Decoder ready to accept blocks.
func NewDecoder(ctx context.Context, params DecodeParams) (*Decoder, error) {
	capacity := params.Concurrency
	if params.Sequential {
		capacity = 1
	}
	dstPool, err := bufpool.New(params.BlockSize, capacity)
	if err != nil {
		return nil, errors.Wrap(err, "dst pool")
	}

	g, gctx := errgroup.WithContext(ctx)
	return &Decoder{
		params:     params,
		dstPool:    dstPool,
		g:          g,
		gctx:       gctx,
		signal:     &Signal{},
		chain:      newChain(),
		streamHash: xxh32.New(frame.ChecksumSeed),
	}, nil
}

// Quit reports whether the decoder has latched a fatal error.
func (d *Decoder) Quit() bool { return d.signal.Quit() }

// Context returns the group context, cancelled on the first fatal
// error; callers should use it for further blocking I/O (e.g. the
// next Acquire) so they unblock promptly on cancellation.
func (d *Decoder) Context() context.Context { return d.gctx }

// Submit dispatches one decode task, running it inline in sequential
// mode or as a goroutine in parallel mode.
func (d *Decoder) Submit(block DecodeBlock) {
	wait, done := d.chain.next()
	dstPool := d.dstPool
	params := d.params
	streamHash := d.streamHash
	signal := d.signal
	stats := &d.stats
	if params.Sequential {
		_ = decodeTask(d.gctx, block, wait, done, dstPool, params, streamHash, signal, stats)
		return
	}
	d.g.Go(func() error {
		return decodeTask(d.gctx, block, wait, done, dstPool, params, streamHash, signal, stats)
	})
}

// Wait joins all submitted tasks and returns final statistics, the
// stream digest, and the sticky pipeline error, if any.
func (d *Decoder) Wait() (Snapshot, uint32, error) {
	_ = d.g.Wait()
	d.dstPool.Close()
	if err := d.signal.Err(); err != nil {
		return d.stats.Snapshot(), 0, err
	}
	return d.stats.Snapshot(), d.streamHash.Sum32(), nil
}

func decodeTask(
	ctx context.Context,
	block DecodeBlock,
	prev <-chan struct{},
	done chan struct{},
	dstPool *bufpool.Pool,
	params DecodeParams,
	streamHash *xxh32.Digest,
	signal *Signal,
	stats *Stats,
) error {
	defer close(done)
	defer block.SrcHandle.Release()

	if signal.Quit() {
		return nil
	}

	var blockSum uint32
	var blockHashDone chan struct{}
	if params.BlockChecksum {
		blockHashDone = make(chan struct{})
		go func() {
			defer close(blockHashDone)
			blockSum = xxh32.Checksum(frame.ChecksumSeed, block.Payload)
		}()
	}

	var out []byte
	var dstHandle *bufpool.Handle
	if block.Incompressible {
		out = block.Payload
	} else {
		var err error
		dstHandle, err = dstPool.Acquire(ctx)
		if err != nil {
			signal.Fail(errors.Wrap(err, "acquire dst buffer"))
			if blockHashDone != nil {
				<-blockHashDone
			}
			return err
		}
		defer dstHandle.Release()

		dstBuf := dstHandle.Buffer().Bytes()
		m, derr := params.Decompressor.DecompressBlock(dstBuf, block.Payload)
		if derr != nil || m < 0 {
			signal.Fail(ErrDecompressFail)
			if blockHashDone != nil {
				<-blockHashDone
			}
			return ErrDecompressFail
		}
		out = dstBuf[:m]
	}

	select {
	case <-prev:
	case <-ctx.Done():
		signal.Fail(ctx.Err())
		if blockHashDone != nil {
			<-blockHashDone
		}
		return ctx.Err()
	}
	if signal.Quit() {
		if blockHashDone != nil {
			<-blockHashDone
		}
		return nil
	}

	var streamHashDone chan struct{}
	if params.StreamChecksum {
		streamHashDone = make(chan struct{})
		go func() {
			defer close(streamHashDone)
			_, _ = streamHash.Write(out)
		}()
	}

	if err := writeFull(params.Dst, out); err != nil {
		signal.Fail(wrapKind(ErrWrite, err))
		if streamHashDone != nil {
			<-streamHashDone
		}
		if blockHashDone != nil {
			<-blockHashDone
		}
		return err
	}

	if streamHashDone != nil {
		<-streamHashDone
	}

	if blockHashDone != nil {
		<-blockHashDone
		if blockSum != block.ExpectChecksum {
			signal.Fail(ErrBlockChecksumMismatch)
			return ErrBlockChecksumMismatch
		}
	}

	stats.Blocks.Inc()
	stats.OutBytes.Add(int64(len(out)))
	stats.InBytes.Add(int64(len(block.Payload)))

	return nil
}
