package xxh32

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksumEmpty(t *testing.T) {
	require.Equal(t, uint32(0x02CC5D05), Checksum(0, nil))
}

func TestWriteMatchesOneShot(t *testing.T) {
	data := make([]byte, 257)
	for i := range data {
		data[i] = byte(i * 7)
	}

	want := Checksum(0, data)

	d := New(0)
	_, err := d.Write(data[:100])
	require.NoError(t, err)
	_, err = d.Write(data[100:])
	require.NoError(t, err)
	require.Equal(t, want, d.Sum32())
}

func TestWriteChunkingIndependent(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i)
	}
	want := Checksum(1, data)

	for _, chunk := range []int{1, 3, 16, 17, 64, 500} {
		d := New(1)
		for off := 0; off < len(data); off += chunk {
			end := off + chunk
			if end > len(data) {
				end = len(data)
			}
			_, err := d.Write(data[off:end])
			require.NoError(t, err)
		}
		require.Equal(t, want, d.Sum32(), "chunk size %d", chunk)
	}
}

func TestResetReusesDigest(t *testing.T) {
	d := New(42)
	_, _ = d.Write([]byte("hello"))
	first := d.Sum32()

	d.Reset()
	_, _ = d.Write([]byte("hello"))
	require.Equal(t, first, d.Sum32())
}

func TestSizeAndBlockSize(t *testing.T) {
	d := New(0)
	require.Equal(t, 4, d.Size())
	require.Equal(t, 16, d.BlockSize())
}
