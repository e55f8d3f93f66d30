package lz4mt

import (
	"github.com/go-faster/errors"

	"github.com/jeremybarnes/lz4mt/internal/frame"
	"github.com/jeremybarnes/lz4mt/internal/pipeline"
)

// Result is the outcome-kind taxonomy a frame operation reports,
// rendered with String() for logging and Error().
type Result int

const (
	OK Result = iota
	ERROR
	InvalidMagicNumber
	InvalidHeader
	InvalidHeaderChecksum
	InvalidVersion
	InvalidBlockMaximumSize
	PresetDictionaryNotSupported
	BlockDependenceNotSupported
	CannotWriteHeader
	CannotWriteEOS
	CannotWriteStreamChecksum
	CannotReadBlockSize
	CannotReadBlockData
	CannotReadBlockChecksum
	CannotReadStreamChecksum
	StreamChecksumMismatch
	BlockChecksumMismatch
	DecompressFail
)

func (r Result) String() string {
	switch r {
	case OK:
		return "OK"
	case ERROR:
		return "ERROR"
	case InvalidMagicNumber:
		return "INVALID_MAGIC_NUMBER"
	case InvalidHeader:
		return "INVALID_HEADER"
	case InvalidHeaderChecksum:
		return "INVALID_HEADER_CHECKSUM"
	case InvalidVersion:
		return "INVALID_VERSION"
	case InvalidBlockMaximumSize:
		return "INVALID_BLOCK_MAXIMUM_SIZE"
	case PresetDictionaryNotSupported:
		return "PRESET_DICTIONARY_NOT_SUPPORTED"
	case BlockDependenceNotSupported:
		return "BLOCK_DEPENDENCE_NOT_SUPPORTED"
	case CannotWriteHeader:
		return "CANNOT_WRITE_HEADER"
	case CannotWriteEOS:
		return "CANNOT_WRITE_EOS"
	case CannotWriteStreamChecksum:
		return "CANNOT_WRITE_STREAM_CHECKSUM"
	case CannotReadBlockSize:
		return "CANNOT_READ_BLOCK_SIZE"
	case CannotReadBlockData:
		return "CANNOT_READ_BLOCK_DATA"
	case CannotReadBlockChecksum:
		return "CANNOT_READ_BLOCK_CHECKSUM"
	case CannotReadStreamChecksum:
		return "CANNOT_READ_STREAM_CHECKSUM"
	case StreamChecksumMismatch:
		return "STREAM_CHECKSUM_MISMATCH"
	case BlockChecksumMismatch:
		return "BLOCK_CHECKSUM_MISMATCH"
	case DecompressFail:
		return "DECOMPRESS_FAIL"
	default:
		return "???"
	}
}

// Error is a frame-level failure: a Result kind plus, where available,
// the underlying cause (a wrapped I/O or validation error).
type Error struct {
	Kind Result
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind, or a
// sentinel that maps to that Kind (so errors.Is(err,
// lz4mt.ErrBlockChecksumMismatch) works without an explicit *Error).
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Kind == e.Kind
	}
	return resultOf(target) == e.Kind
}

func newError(kind Result, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// IsResult reports whether err is a frame failure of the given Kind.
func IsResult(err error, kind Result) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return resultOf(err) == kind
}

// Sentinel errors, one per non-OK Result, so callers can write
// errors.Is(err, lz4mt.ErrBlockChecksumMismatch) directly.
var (
	ErrGeneric                       = newError(ERROR, nil)
	ErrInvalidMagicNumber            = newError(InvalidMagicNumber, nil)
	ErrInvalidHeader                 = newError(InvalidHeader, nil)
	ErrInvalidHeaderChecksum         = newError(InvalidHeaderChecksum, nil)
	ErrInvalidVersion                = newError(InvalidVersion, nil)
	ErrInvalidBlockMaximumSize       = newError(InvalidBlockMaximumSize, nil)
	ErrPresetDictionaryNotSupported  = newError(PresetDictionaryNotSupported, nil)
	ErrBlockDependenceNotSupported   = newError(BlockDependenceNotSupported, nil)
	ErrCannotWriteHeader             = newError(CannotWriteHeader, nil)
	ErrCannotWriteEOS                = newError(CannotWriteEOS, nil)
	ErrCannotWriteStreamChecksum     = newError(CannotWriteStreamChecksum, nil)
	ErrCannotReadBlockSize           = newError(CannotReadBlockSize, nil)
	ErrCannotReadBlockData           = newError(CannotReadBlockData, nil)
	ErrCannotReadBlockChecksum       = newError(CannotReadBlockChecksum, nil)
	ErrCannotReadStreamChecksum      = newError(CannotReadStreamChecksum, nil)
	ErrStreamChecksumMismatch        = newError(StreamChecksumMismatch, nil)
	ErrBlockChecksumMismatch         = newError(BlockChecksumMismatch, nil)
	ErrDecompressFail                = newError(DecompressFail, nil)
)

var (
	errNoSource = errors.New("lz4mt: Options.Source is required")
	errNoSink   = errors.New("lz4mt: Options.Sink is required")
)

// resultOf maps internal/frame and internal/pipeline sentinel errors
// onto the root Result taxonomy, so a caller only ever needs to know
// about lz4mt.Result — never the internal packages' own sentinels.
func resultOf(err error) Result {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, frame.ErrInvalidVersion):
		return InvalidVersion
	case errors.Is(err, frame.ErrPresetDictionaryNotSupported):
		return PresetDictionaryNotSupported
	case errors.Is(err, frame.ErrBlockDependenceNotSupported):
		return BlockDependenceNotSupported
	case errors.Is(err, frame.ErrInvalidBlockMaximumSize):
		return InvalidBlockMaximumSize
	case errors.Is(err, frame.ErrInvalidHeaderChecksum):
		return InvalidHeaderChecksum
	case errors.Is(err, frame.ErrInvalidHeader):
		return InvalidHeader
	case errors.Is(err, pipeline.ErrDecompressFail):
		return DecompressFail
	case errors.Is(err, pipeline.ErrBlockChecksumMismatch):
		return BlockChecksumMismatch
	case errors.Is(err, pipeline.ErrWrite):
		return ERROR
	default:
		return ERROR
	}
}
