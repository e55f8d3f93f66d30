package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"

	"github.com/jeremybarnes/lz4mt/internal/bufpool"
	"github.com/jeremybarnes/lz4mt/internal/frame"
)

// testCodec adapts pierrec/lz4/v4 to the (dst, src) argument order the
// Compressor/Decompressor interfaces use, the same adaptation the root
// package's defaultCodec performs.
type testCodec struct {
	c lz4.Compressor
}

func (t *testCodec) CompressBound(n int) int { return lz4.CompressBlockBound(n) }

func (t *testCodec) CompressBlock(dst, src []byte) (int, error) {
	return t.c.CompressBlock(src, dst)
}

func (t *testCodec) DecompressBlock(dst, src []byte) (int, error) {
	return lz4.UncompressBlock(src, dst)
}

// encodeAll runs the encode pipeline over src and returns the raw
// block stream (no frame header/EOS — the frame driver's job).
func encodeAll(t *testing.T, src []byte, sequential bool, blockChecksum, streamChecksum bool) []byte {
	t.Helper()
	var out bytes.Buffer
	codec := &testCodec{}
	_, sum, err := Encode(context.Background(), bytes.NewReader(src), EncodeParams{
		Sequential:     sequential,
		Concurrency:    4,
		BlockSize:      1024,
		BlockChecksum:  blockChecksum,
		StreamChecksum: streamChecksum,
		Compressor:     codec,
		Dst:            &out,
	})
	require.NoError(t, err)
	_ = sum
	return out.Bytes()
}

// decodeAll parses a raw block stream produced by encodeAll (up to but
// not including EOS, which decodeAll stops at) back into plaintext,
// exercising the decode pipeline exactly as the frame driver would.
func decodeAll(t *testing.T, blocks []byte, blockChecksum bool) ([]byte, uint32, error) {
	t.Helper()
	var out bytes.Buffer
	codec := &testCodec{}
	srcPool, err := bufpool.New(1024, 4)
	require.NoError(t, err)
	defer srcPool.Close()

	dec, err := NewDecoder(context.Background(), DecodeParams{
		Concurrency:    4,
		BlockSize:      1024,
		BlockChecksum:  blockChecksum,
		StreamChecksum: true,
		Decompressor:   codec,
		Dst:            &out,
	})
	require.NoError(t, err)

	r := bytes.NewReader(blocks)
	for i := 0; ; i++ {
		var hdr [4]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			break
		}
		word := binary.LittleEndian.Uint32(hdr[:])
		if word == frame.EOS {
			break
		}
		incompressible := word&frame.IncompressibleMask != 0
		size := int(word &^ frame.IncompressibleMask)

		h, err := srcPool.Acquire(dec.Context())
		require.NoError(t, err)
		buf := h.Buffer().Bytes()
		if size > len(buf) {
			buf = make([]byte, size)
		}
		_, err = io.ReadFull(r, buf[:size])
		require.NoError(t, err)

		var expect uint32
		if blockChecksum {
			var b [4]byte
			_, err := io.ReadFull(r, b[:])
			require.NoError(t, err)
			expect = binary.LittleEndian.Uint32(b[:])
		}

		dec.Submit(DecodeBlock{
			Ordinal:        i,
			Payload:        buf[:size],
			SrcHandle:      h,
			Incompressible: incompressible,
			ExpectChecksum: expect,
		})
	}

	_, sum, err := dec.Wait()
	return append([]byte{}, out.Bytes()...), sum, err
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 1023, 1024, 1025, 5000} {
		src := make([]byte, n)
		rnd.Read(src)

		blocks := encodeAll(t, src, false, true, true)
		got, _, err := decodeAll(t, blocks, true)
		require.NoError(t, err)
		require.Equal(t, src, got)
	}
}

func TestParallelMatchesSequentialOutput(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	src := make([]byte, 20000)
	rnd.Read(src)

	seq := encodeAll(t, src, true, true, true)
	par := encodeAll(t, src, false, true, true)
	require.Equal(t, seq, par)
}

func TestIncompressibleBlockSetsTopBit(t *testing.T) {
	blocks := encodeAll(t, []byte("A"), true, false, true)
	require.GreaterOrEqual(t, len(blocks), 4)
	word := binary.LittleEndian.Uint32(blocks[:4])
	require.NotZero(t, word&frame.IncompressibleMask)
	require.Equal(t, uint32(1), word&^frame.IncompressibleMask)
}

func TestBlockChecksumMismatchFails(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	src := make([]byte, 3000)
	rnd.Read(src)

	// Random data is incompressible, so blocks are stored raw at full
	// size; flipping a payload byte well inside the first block's
	// bounds cannot land on a header or checksum field.
	blocks := encodeAll(t, src, true, true, true)
	blocks[10] ^= 0xFF

	_, _, err := decodeAll(t, blocks, true)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrBlockChecksumMismatch))
}

func TestStreamHashMatchesAcrossModes(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	src := make([]byte, 10000)
	rnd.Read(src)

	var out1, out2 bytes.Buffer
	codec := &testCodec{}
	_, sum1, err := Encode(context.Background(), bytes.NewReader(src), EncodeParams{
		Sequential: true, Concurrency: 1, BlockSize: 1024, StreamChecksum: true,
		Compressor: codec, Dst: &out1,
	})
	require.NoError(t, err)
	_, sum2, err := Encode(context.Background(), bytes.NewReader(src), EncodeParams{
		Sequential: false, Concurrency: 8, BlockSize: 1024, StreamChecksum: true,
		Compressor: codec, Dst: &out2,
	})
	require.NoError(t, err)
	require.Equal(t, sum1, sum2)
}
