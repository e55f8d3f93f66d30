package pipeline

import (
	"context"
	"encoding/binary"
	"io"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/jeremybarnes/lz4mt/internal/bufpool"
	"github.com/jeremybarnes/lz4mt/internal/frame"
	"github.com/jeremybarnes/lz4mt/internal/xxh32"
)

// EncodeParams configures an Encode pipeline run.
type EncodeParams struct {
	Sequential     bool
	Concurrency    int
	BlockSize      int
	BlockChecksum  bool
	StreamChecksum bool
	Compressor     Compressor
	Dst            io.Writer
}

// Encode runs the block pipeline over src, compressing and committing
// blocks in input order, and returns the final stream-hash digest
// (meaningful only if params.StreamChecksum) alongside frame
// statistics. It does not write the frame header, EOS marker, or
// trailing stream checksum — that is the frame driver's job.
func Encode(ctx context.Context, src io.Reader, params EncodeParams) (Snapshot, uint32, error) {
	capacity := params.Concurrency
	if params.Sequential {
		capacity = 1
	}

	srcPool, err := bufpool.New(params.BlockSize, capacity)
	if err != nil {
		return Snapshot{}, 0, errors.Wrap(err, "src pool")
	}
	defer srcPool.Close()

	dstBound := params.Compressor.CompressBound(params.BlockSize)
	dstPool, err := bufpool.New(dstBound, capacity)
	if err != nil {
		return Snapshot{}, 0, errors.Wrap(err, "dst pool")
	}
	defer dstPool.Close()

	g, gctx := errgroup.WithContext(ctx)
	signal := &Signal{}
	chain := newChain()
	streamHash := xxh32.New(frame.ChecksumSeed)
	var stats Stats

readLoop:
	for i := 0; ; i++ {
		if signal.Quit() {
			break
		}

		srcHandle, err := srcPool.Acquire(gctx)
		if err != nil {
			break
		}

		n, readErr := io.ReadFull(src, srcHandle.Buffer().Bytes())
		final := false
		switch readErr {
		case nil:
			// full block, more input may follow.
		case io.ErrUnexpectedEOF:
			// short final block.
			final = true
		case io.EOF:
			// no bytes at all: clean end of input.
			srcHandle.Release()
			break readLoop
		default:
			srcHandle.Release()
			signal.Fail(errors.Wrap(readErr, "read"))
			break readLoop
		}

		wait, done := chain.next()
		ordinal, handle, size := i, srcHandle, n
		if params.Sequential {
			_ = encodeTask(gctx, ordinal, handle, size, wait, done, dstPool, params, streamHash, signal, &stats)
		} else {
			g.Go(func() error {
				return encodeTask(gctx, ordinal, handle, size, wait, done, dstPool, params, streamHash, signal, &stats)
			})
		}

		if final {
			break
		}
	}

	_ = g.Wait()

	if err := signal.Err(); err != nil {
		return stats.Snapshot(), 0, err
	}
	return stats.Snapshot(), streamHash.Sum32(), nil
}

func encodeTask(
	ctx context.Context,
	ordinal int,
	srcHandle *bufpool.Handle,
	n int,
	prev <-chan struct{},
	done chan struct{},
	dstPool *bufpool.Pool,
	params EncodeParams,
	streamHash *xxh32.Digest,
	signal *Signal,
	stats *Stats,
) error {
	defer close(done)
	defer srcHandle.Release()

	if signal.Quit() {
		return nil
	}

	srcBuf := srcHandle.Buffer().Bytes()[:n]

	dstHandle, err := dstPool.Acquire(ctx)
	if err != nil {
		signal.Fail(errors.Wrap(err, "acquire dst buffer"))
		return err
	}
	defer dstHandle.Release()

	bound := params.Compressor.CompressBound(n)
	dstBuf := dstHandle.Buffer().Bytes()
	if bound > len(dstBuf) {
		dstBuf = make([]byte, bound)
	}

	m, cerr := params.Compressor.CompressBlock(dstBuf[:bound], srcBuf)
	incompressible := cerr != nil || m <= 0 || m >= n

	var payload []byte
	if incompressible {
		payload = srcBuf
	} else {
		payload = dstBuf[:m]
	}

	var blockSum uint32
	var blockHashDone chan struct{}
	if params.BlockChecksum {
		blockHashDone = make(chan struct{})
		go func() {
			defer close(blockHashDone)
			blockSum = xxh32.Checksum(frame.ChecksumSeed, payload)
		}()
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
			_, _ = streamHash.Write(srcBuf)
		}()
	}

	sizeWord := uint32(len(payload))
	if incompressible {
		sizeWord |= frame.IncompressibleMask
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], sizeWord)

	joinHashes := func() {
		if streamHashDone != nil {
			<-streamHashDone
		}
		if blockHashDone != nil {
			<-blockHashDone
		}
	}

	if err := writeFull(params.Dst, hdr[:]); err != nil {
		signal.Fail(wrapKind(ErrWrite, err))
		joinHashes()
		return err
	}
	if err := writeFull(params.Dst, payload); err != nil {
		signal.Fail(wrapKind(ErrWrite, err))
		joinHashes()
		return err
	}

	if blockHashDone != nil {
		<-blockHashDone
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], blockSum)
		if err := writeFull(params.Dst, b[:]); err != nil {
			signal.Fail(wrapKind(ErrWrite, err))
			joinHashes()
			return err
		}
	}

	if streamHashDone != nil {
		<-streamHashDone
	}

	stats.Blocks.Inc()
	stats.InBytes.Add(int64(n))
	stats.OutBytes.Add(int64(len(payload)))

	return nil
}

func writeFull(w io.Writer, p []byte) error {
	n, err := w.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}
