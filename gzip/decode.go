package gzip

import (
	"bufio"
	"fmt"
	"io"

	"github.com/jonjohnsonjr/goflate/checksum"
	"github.com/jonjohnsonjr/goflate/deflate"
)

// Decoder decodes exactly one GZIP member, verifying its CRC-32+ISIZE
// trailer. Trailing bytes after the member (e.g. a second concatenated
// member) are left unread in the underlying source; use NewMultiDecoder
// to decode and join every member in a concatenated stream.
type Decoder struct {
	header Header
	src    io.Reader
	inner  *deflate.Decoder
	crc32  *checksum.CRC32
	size   uint32
	eos    bool
}

// NewDecoder reads and validates one GZIP header from r, then returns a
// Decoder ready to produce that member's uncompressed stream.
func NewDecoder(r io.Reader) (*Decoder, error) {
	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	return &Decoder{
		header: header,
		src:    r,
		inner:  deflate.NewDecoder(r),
		crc32:  checksum.NewCRC32(),
	}, nil
}

// Header returns the parsed GZIP header.
func (d *Decoder) Header() Header { return d.header }

// IntoInner returns the underlying reader, valid to call once Read has
// returned io.EOF (the trailer has then been fully consumed and no
// bytes the source gave up are buffered inside this Decoder).
func (d *Decoder) IntoInner() io.Reader { return d.src }

// Read implements io.Reader.
func (d *Decoder) Read(p []byte) (int, error) {
	if d.eos {
		return 0, io.EOF
	}
	n, err := d.inner.Read(p)
	if n > 0 {
		d.crc32.Write(p[:n])
		d.size += uint32(n)
	}
	if err == io.EOF {
		d.eos = true
		var trailer [8]byte
		if terr := d.inner.ReadTrailer(trailer[:]); terr != nil {
			return n, terr
		}
		wantCRC := uint32(trailer[0]) | uint32(trailer[1])<<8 | uint32(trailer[2])<<16 | uint32(trailer[3])<<24
		wantSize := uint32(trailer[4]) | uint32(trailer[5])<<8 | uint32(trailer[6])<<16 | uint32(trailer[7])<<24
		if got := d.crc32.Sum32(); got != wantCRC {
			return n, fmt.Errorf("%w: CRC-32 mismatch: got=%#x want=%#x", ErrInvalidData, got, wantCRC)
		}
		if d.size != wantSize {
			return n, fmt.Errorf("%w: ISIZE mismatch: got=%d want=%d", ErrInvalidData, d.size, wantSize)
		}
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	}
	return n, err
}

// MultiDecoder decodes a stream of one or more concatenated GZIP
// members, per RFC-1952's "members can simply be concatenated"
// provision, joining their decompressed output into a single byte
// stream. Read returns io.EOF only once the underlying source itself is
// exhausted.
type MultiDecoder struct {
	br     *bufio.Reader
	header Header // of the member currently being read
	cur    *Decoder
	eos    bool
}

// NewMultiDecoder reads the first member's header from r and returns a
// MultiDecoder ready to decode every concatenated member that follows.
func NewMultiDecoder(r io.Reader) (*MultiDecoder, error) {
	br := bufio.NewReader(r)
	cur, err := NewDecoder(br)
	if err != nil {
		return nil, err
	}
	return &MultiDecoder{br: br, header: cur.Header(), cur: cur}, nil
}

// Header returns the header of the member currently being decoded.
func (d *MultiDecoder) Header() Header { return d.header }

// Read implements io.Reader.
func (d *MultiDecoder) Read(p []byte) (int, error) {
	for {
		if d.eos {
			return 0, io.EOF
		}
		n, err := d.cur.Read(p)
		if err == nil || (err == io.EOF && n > 0) {
			return n, nil
		}
		if err != io.EOF {
			return n, err
		}
		// This member is exhausted; see whether another follows.
		if _, peekErr := d.br.Peek(1); peekErr != nil {
			d.eos = true
			return 0, io.EOF
		}
		next, nerr := NewDecoder(d.br)
		if nerr != nil {
			return 0, nerr
		}
		d.header = next.Header()
		d.cur = next
	}
}
