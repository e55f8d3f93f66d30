package pipeline

// Compressor is the single-block compression primitive: an external
// collaborator injected by the caller. A non-positive n, or n >=
// len(src), means src is incompressible and must be stored raw — a
// compressed size that doesn't actually shrink the block is treated
// the same as outright compressor failure, so a degenerate compressor
// can never overflow the block-size field's 31-bit payload-size
// range.
type Compressor interface {
	// CompressBound returns the worst-case compressed size for an
	// input of n bytes, used to size the destination buffer.
	CompressBound(n int) int
	// CompressBlock compresses src into dst, returning the number of
	// bytes written.
	CompressBlock(dst, src []byte) (n int, err error)
}

// Decompressor is the single-block decompression primitive. A negative
// return, or a non-nil error, is fatal for the frame (DECOMPRESS_FAIL).
type Decompressor interface {
	DecompressBlock(dst, src []byte) (n int, err error)
}
