// Package frame implements the LZ4 frame header (FLG/BD) codec:
// encoding, decoding and validating the frame descriptor, and
// computing its header checksum.
package frame

import (
	"encoding/binary"

	"github.com/jeremybarnes/lz4mt/internal/xxh32"
)

var bin = binary.LittleEndian

const (
	// Magic is the LZ4 frame magic number.
	Magic uint32 = 0x184D2204

	// SkippableMagicMin and SkippableMagicMax bound the inclusive
	// range of skippable-frame magic numbers.
	SkippableMagicMin uint32 = 0x184D2A50
	SkippableMagicMax uint32 = 0x184D2A5F

	// EOS is the 4-byte zero marker terminating a frame's block
	// sequence.
	EOS uint32 = 0

	// ChecksumSeed is the seed used for every XXH32 computation in
	// the frame format: header, block and stream checksums.
	ChecksumSeed uint32 = 0

	// IncompressibleMask is bit 31 of the block-size word.
	IncompressibleMask uint32 = 1 << 31

	// MaxHeaderSize is the largest possible encoded header: magic(4)
	// + FLG(1) + BD(1) + contentSize(8) + dictId(4) + checksum(1).
	MaxHeaderSize = 4 + 1 + 1 + 8 + 4 + 1

	minBlockMaximumSizeID = 4
	maxBlockMaximumSizeID = 7
)

// IsSkippableMagic reports whether magic falls in the skippable-frame
// range.
func IsSkippableMagic(magic uint32) bool {
	return magic >= SkippableMagicMin && magic <= SkippableMagicMax
}

// BlockMaximumSize maps a 3-bit blockMaximumSizeId to its byte size.
func BlockMaximumSize(id uint8) int {
	return 1 << (8 + 2*uint(id))
}

// Descriptor is the frame descriptor: the FLG/BD bytes plus their
// optional trailing fields.
type Descriptor struct {
	Version            uint8 // must be 1
	BlockIndependence   bool  // must be true
	BlockChecksum       bool
	StreamSize          bool
	StreamChecksum      bool
	PresetDictionary    bool // must be false
	Reserved1           bool
	Reserved2           bool
	Reserved3           uint8 // 4 bits, must be 0
	BlockMaximumSizeID  uint8 // 3 bits, valid range [4,7]

	ContentSize uint64 // valid iff StreamSize
	DictID      uint32 // valid iff PresetDictionary
}

// Default returns the descriptor the original lz4mt implementation
// initializes by default: stream checksum on, independent blocks,
// maximum block size (id 7 == 4MiB).
func Default() Descriptor {
	return Descriptor{
		Version:            1,
		BlockIndependence:  true,
		StreamChecksum:     true,
		BlockMaximumSizeID: maxBlockMaximumSizeID,
	}
}

// BlockSize returns the descriptor's block-maximum size in bytes.
func (d Descriptor) BlockSize() int {
	return BlockMaximumSize(d.BlockMaximumSizeID)
}

func (d Descriptor) flg() byte {
	var b byte
	if d.PresetDictionary {
		b |= 1 << 0
	}
	if d.Reserved1 {
		b |= 1 << 1
	}
	if d.StreamChecksum {
		b |= 1 << 2
	}
	if d.StreamSize {
		b |= 1 << 3
	}
	if d.BlockChecksum {
		b |= 1 << 4
	}
	if d.BlockIndependence {
		b |= 1 << 5
	}
	b |= (d.Version & 3) << 6
	return b
}

func flgToDescriptor(c byte) Descriptor {
	return Descriptor{
		PresetDictionary:  (c>>0)&1 != 0,
		Reserved1:         (c>>1)&1 != 0,
		StreamChecksum:    (c>>2)&1 != 0,
		StreamSize:        (c>>3)&1 != 0,
		BlockChecksum:     (c>>4)&1 != 0,
		BlockIndependence: (c>>5)&1 != 0,
		Version:           (c >> 6) & 3,
	}
}

func (d Descriptor) bd() byte {
	var b byte
	b |= d.Reserved3 & 15
	b |= (d.BlockMaximumSizeID & 7) << 4
	if d.Reserved2 {
		b |= 1 << 7
	}
	return b
}

func applyBD(d *Descriptor, c byte) {
	d.Reserved3 = c & 15
	d.BlockMaximumSizeID = (c >> 4) & 7
	d.Reserved2 = (c>>7)&1 != 0
}

// Validate checks the descriptor against its priority-ordered
// validity rules, returning the first violated rule's result kind.
func (d Descriptor) Validate() error {
	switch {
	case d.Version != 1:
		return errInvalidVersion
	case d.PresetDictionary:
		return errPresetDictionaryNotSupported
	case d.Reserved1:
		return errInvalidHeader
	case !d.BlockIndependence:
		return errBlockDependenceNotSupported
	case d.BlockMaximumSizeID < minBlockMaximumSizeID || d.BlockMaximumSizeID > maxBlockMaximumSizeID:
		return errInvalidBlockMaximumSize
	case d.Reserved2, d.Reserved3 != 0:
		return errInvalidHeader
	}
	return nil
}

// EncodeHeader encodes magic + FLG + BD + optional fields + header
// checksum into a freshly sized byte slice.
func EncodeHeader(d Descriptor) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, MaxHeaderSize)
	buf = bin.AppendUint32(buf, Magic)

	sumStart := len(buf)
	buf = append(buf, d.flg(), d.bd())
	if d.StreamSize {
		buf = bin.AppendUint64(buf, d.ContentSize)
	}
	if d.PresetDictionary {
		buf = bin.AppendUint32(buf, d.DictID)
	}

	sum := xxh32.Checksum(ChecksumSeed, buf[sumStart:])
	buf = append(buf, byte((sum>>8)&0xFF))

	return buf, nil
}

// DecodeFlags parses FLG and BD alone and validates the resulting
// descriptor. A streaming decoder that only has these two bytes in
// hand should call this before reading the optional fields that
// ExtraFieldsLen says follow them, so a malformed descriptor reports
// its own specific validation error rather than that error being
// masked by a short read on fields whose very presence depended on
// the descriptor being well-formed.
func DecodeFlags(flg, bd byte) (Descriptor, error) {
	d := flgToDescriptor(flg)
	applyBD(&d, bd)
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// DecodeHeader decodes the descriptor from b, which must contain
// exactly FLG..headerChecksum (magic already consumed by the caller).
// It validates the descriptor and verifies the header checksum.
func DecodeHeader(b []byte) (Descriptor, error) {
	if len(b) < 3 {
		return Descriptor{}, errInvalidHeader
	}

	d, err := DecodeFlags(b[0], b[1])
	if err != nil {
		return Descriptor{}, err
	}

	p := 2
	if d.StreamSize {
		if len(b) < p+8 {
			return Descriptor{}, errInvalidHeader
		}
		d.ContentSize = bin.Uint64(b[p : p+8])
		p += 8
	}
	if d.PresetDictionary {
		if len(b) < p+4 {
			return Descriptor{}, errInvalidHeader
		}
		d.DictID = bin.Uint32(b[p : p+4])
		p += 4
	}

	if len(b) < p+1 {
		return Descriptor{}, errInvalidHeader
	}
	wantSum := xxh32.Checksum(ChecksumSeed, b[:p])
	gotSum := b[p]
	if byte((wantSum>>8)&0xFF) != gotSum {
		return Descriptor{}, errInvalidHeaderChecksum
	}

	return d, nil
}

// ExtraFieldsLen inspects a raw FLG byte (before validation) and
// returns how many bytes of optional fields (contentSize, dictId)
// follow BD, so a streaming decoder can read exactly that many bytes
// plus the trailing checksum byte before calling DecodeHeader.
func ExtraFieldsLen(flgByte byte) int {
	n := 0
	if (flgByte>>3)&1 != 0 { // StreamSize
		n += 8
	}
	if (flgByte>>0)&1 != 0 { // PresetDictionary
		n += 4
	}
	return n
}

// HeaderPayloadLen returns how many bytes follow FLG/BD for the given
// descriptor, not including the trailing checksum byte: i.e. how many
// bytes a caller must read before reading the checksum byte.
func HeaderPayloadLen(streamSize, presetDictionary bool) int {
	n := 0
	if streamSize {
		n += 8
	}
	if presetDictionary {
		n += 4
	}
	return n
}

// Sentinel validation errors, mapped onto the root package's Result
// taxonomy with errors.Is against the exported values below.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

var (
	errInvalidVersion               = &validationError{"invalid version"}
	errPresetDictionaryNotSupported = &validationError{"preset dictionary not supported"}
	errInvalidHeader                = &validationError{"invalid header"}
	errBlockDependenceNotSupported  = &validationError{"block dependence not supported"}
	errInvalidBlockMaximumSize      = &validationError{"invalid block maximum size"}
	errInvalidHeaderChecksum        = &validationError{"invalid header checksum"}
)

// ErrInvalidVersion etc. are exported so the root package can match
// them with errors.Is when mapping to its Result taxonomy.
var (
	ErrInvalidVersion               = errInvalidVersion
	ErrPresetDictionaryNotSupported = errPresetDictionaryNotSupported
	ErrInvalidHeader                = errInvalidHeader
	ErrBlockDependenceNotSupported  = errBlockDependenceNotSupported
	ErrInvalidBlockMaximumSize      = errInvalidBlockMaximumSize
	ErrInvalidHeaderChecksum        = errInvalidHeaderChecksum
)
