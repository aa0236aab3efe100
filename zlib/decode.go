package zlib

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jonjohnsonjr/goflate/checksum"
	"github.com/jonjohnsonjr/goflate/deflate"
)

// Decoder decodes a ZLIB stream, verifying the trailing Adler-32
// checksum against the uncompressed bytes it produces.
type Decoder struct {
	header  Header
	inner   *deflate.Decoder
	adler32 *checksum.Adler32
	eos     bool
}

// NewDecoder reads and validates the ZLIB header from r, then returns
// a Decoder ready to produce the uncompressed stream.
func NewDecoder(r io.Reader) (*Decoder, error) {
	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	return &Decoder{
		header:  header,
		inner:   deflate.NewDecoder(r),
		adler32: checksum.NewAdler32(),
	}, nil
}

// Header returns the parsed ZLIB header.
func (d *Decoder) Header() Header { return d.header }

// IntoInner returns the underlying reader, valid to call once Read has
// returned io.EOF.
func (d *Decoder) IntoInner() io.Reader { return d.inner.IntoInner() }

// Read implements io.Reader.
func (d *Decoder) Read(p []byte) (int, error) {
	if d.eos {
		return 0, io.EOF
	}
	n, err := d.inner.Read(p)
	if n > 0 {
		d.adler32.Write(p[:n])
	}
	if err == io.EOF {
		d.eos = true
		var trailer [4]byte
		if terr := d.inner.ReadTrailer(trailer[:]); terr != nil {
			return n, terr
		}
		want := binary.BigEndian.Uint32(trailer[:])
		if got := d.adler32.Sum32(); got != want {
			return n, fmt.Errorf("%w: Adler-32 mismatch: got=%#x want=%#x", ErrInvalidData, got, want)
		}
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	}
	return n, err
}
