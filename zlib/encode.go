package zlib

import (
	"encoding/binary"
	"io"

	"github.com/jonjohnsonjr/goflate/checksum"
	"github.com/jonjohnsonjr/goflate/deflate"
)

// EncodeOptions configures an Encoder: the ZLIB header fields to
// synthesize plus the underlying DEFLATE options.
type EncodeOptions struct {
	WindowSize       WindowSize
	CompressionLevel CompressionLevel
	Deflate          deflate.EncodeOptions
}

// DefaultEncodeOptions returns a 32 KiB window, a level hint matching
// deflate.DefaultEncodeOptions, and deflate.DefaultEncodeOptions itself.
func DefaultEncodeOptions() EncodeOptions {
	deflateOpts := deflate.DefaultEncodeOptions()
	return EncodeOptions{
		WindowSize:       windowSizeFromBytes(deflateOpts.WindowSize),
		CompressionLevel: compressionLevelFromLZ77(deflateOpts.CompressionLevel),
		Deflate:          deflateOpts,
	}
}

// Encoder writes a ZLIB stream: the 2-byte header on construction, the
// compressed body as Write is called, and the big-endian Adler-32
// trailer on Finish.
type Encoder struct {
	header Header
	w      io.Writer
	inner  *deflate.Encoder
	adler  *checksum.Adler32
	closed bool
}

// NewEncoder wraps w with the default options.
func NewEncoder(w io.Writer) (*Encoder, error) {
	return NewEncoderOptions(w, DefaultEncodeOptions())
}

// NewEncoderOptions wraps w with explicit options, writing the ZLIB
// header immediately.
func NewEncoderOptions(w io.Writer, opts EncodeOptions) (*Encoder, error) {
	header := Header{WindowSize: opts.WindowSize, CompressionLevel: opts.CompressionLevel}
	if err := writeHeader(w, header); err != nil {
		return nil, err
	}
	return &Encoder{
		header: header,
		w:      w,
		inner:  deflate.NewEncoderOptions(w, opts.Deflate),
		adler:  checksum.NewAdler32(),
	}, nil
}

// Header returns the header written at construction.
func (e *Encoder) Header() Header { return e.header }

// Write implements io.Writer.
func (e *Encoder) Write(p []byte) (int, error) {
	n, err := e.inner.Write(p)
	if n > 0 {
		e.adler.Write(p[:n])
	}
	return n, err
}

// Finish emits the final DEFLATE block and the big-endian Adler-32
// trailer. It must be called exactly once to produce a valid stream.
func (e *Encoder) Finish() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if err := e.inner.Finish(); err != nil {
		return err
	}
	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], e.adler.Sum32())
	_, err := e.w.Write(trailer[:])
	return err
}
