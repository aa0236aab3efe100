package gzip

import (
	"io"

	"github.com/jonjohnsonjr/goflate/checksum"
	"github.com/jonjohnsonjr/goflate/deflate"
	"github.com/jonjohnsonjr/goflate/lz77"
)

// EncodeOptions configures an Encoder: the GZIP header fields to
// synthesize plus the underlying DEFLATE options.
type EncodeOptions struct {
	Header  Header
	Deflate deflate.EncodeOptions
}

// DefaultEncodeOptions returns OSUnix/no-name/no-comment header fields
// and deflate.DefaultEncodeOptions.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		Header:  NewHeaderBuilder().Finish(),
		Deflate: deflate.DefaultEncodeOptions(),
	}
}

func compressionLevelFromLZ77(level lz77.CompressionLevel) CompressionLevel {
	switch level {
	case lz77.LevelFast:
		return LevelFastest
	case lz77.LevelBest:
		return LevelSlowest
	default:
		return LevelUnknown
	}
}

// Encoder writes a single GZIP member: the header on construction, the
// compressed body as Write is called, and the CRC-32+ISIZE trailer on
// Finish.
type Encoder struct {
	header Header
	w      io.Writer
	inner  *deflate.Encoder
	crc32  *checksum.CRC32
	size   uint32
	closed bool
}

// NewEncoder wraps w with the default options.
func NewEncoder(w io.Writer) (*Encoder, error) {
	return NewEncoderOptions(w, DefaultEncodeOptions())
}

// NewEncoderOptions wraps w with explicit options, writing the GZIP
// header immediately.
func NewEncoderOptions(w io.Writer, opts EncodeOptions) (*Encoder, error) {
	header := opts.Header
	if header.CompressionLevel == LevelUnknown {
		header.CompressionLevel = compressionLevelFromLZ77(opts.Deflate.CompressionLevel)
	}
	if err := writeHeader(w, header); err != nil {
		return nil, err
	}
	return &Encoder{
		header: header,
		w:      w,
		inner:  deflate.NewEncoderOptions(w, opts.Deflate),
		crc32:  checksum.NewCRC32(),
	}, nil
}

// Header returns the header written at construction.
func (e *Encoder) Header() Header { return e.header }

// Write implements io.Writer.
func (e *Encoder) Write(p []byte) (int, error) {
	n, err := e.inner.Write(p)
	if n > 0 {
		e.crc32.Write(p[:n])
		e.size += uint32(n)
	}
	return n, err
}

// Finish emits the final DEFLATE block and the CRC-32+ISIZE trailer. It
// must be called exactly once to produce a valid stream.
func (e *Encoder) Finish() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if err := e.inner.Finish(); err != nil {
		return err
	}
	return writeTrailer(e.w, e.crc32.Sum32(), e.size)
}
