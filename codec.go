package lz4mt

import (
	"github.com/pierrec/lz4/v4"
)

// Codec is the single-block compress/decompress collaborator — an
// external primitive the frame codec drives but does not implement
// itself. Compressor/Decompressor from internal/pipeline are the same
// shape, kept in that internal package to avoid a second public
// surface for one concept.
type Codec interface {
	CompressBound(n int) int
	CompressBlock(dst, src []byte) (n int, err error)
	DecompressBlock(dst, src []byte) (n int, err error)
}

// defaultCodec drives github.com/pierrec/lz4/v4's block routines
// directly: plain CompressBlock/UncompressBlock, with no wrapping
// block-header framing of its own (internal/frame owns that).
type defaultCodec struct {
	c lz4.Compressor
}

// NewDefaultCodec returns the Codec used when Options.Codec is unset:
// plain (non-HC) LZ4 block compression.
func NewDefaultCodec() Codec {
	return &defaultCodec{}
}

func (d *defaultCodec) CompressBound(n int) int {
	return lz4.CompressBlockBound(n)
}

func (d *defaultCodec) CompressBlock(dst, src []byte) (int, error) {
	return d.c.CompressBlock(src, dst)
}

func (d *defaultCodec) DecompressBlock(dst, src []byte) (int, error) {
	return lz4.UncompressBlock(src, dst)
}
