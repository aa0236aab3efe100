package deflate

import (
	"errors"
	"fmt"
	"io"

	"github.com/jonjohnsonjr/goflate/bit"
	"github.com/jonjohnsonjr/goflate/huffman"
	"github.com/jonjohnsonjr/goflate/internal/symbol"
	"github.com/jonjohnsonjr/goflate/lz77"
)

// Decoder is a blocking DEFLATE stream decoder: on Read, it serves any
// already-decoded bytes, then reads and dispatches one block header at
// a time until more bytes are available or the final block's
// EndOfBlock has been seen.
type Decoder struct {
	src io.Reader
	r   *bit.Reader
	lz  *lz77.Decoder
	eos bool
}

// NewDecoder wraps r as a DEFLATE decoder.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{src: r, r: bit.NewReader(r), lz: lz77.NewDecoder()}
}

// IntoInner returns the underlying reader this Decoder was constructed
// with. Valid to call once Read has returned io.EOF and any trailer a
// wrapper format appends has been consumed via ReadTrailer, so no byte
// the source gave up is left buffered inside this Decoder.
func (d *Decoder) IntoInner() io.Reader { return d.src }

// Read implements io.Reader.
func (d *Decoder) Read(p []byte) (int, error) {
	for len(d.lz.Buffer()) == 0 {
		if d.eos {
			return 0, io.EOF
		}
		if err := d.readBlock(); err != nil {
			return 0, err
		}
	}
	return d.lz.Read(p)
}

func (d *Decoder) readBlock() error {
	d.lz.TruncateOldBuffer()

	final, err := d.r.ReadBit()
	if err != nil {
		return err
	}
	btype, err := d.r.ReadBits(2)
	if err != nil {
		return err
	}

	switch btype {
	case btypeStored:
		if err := d.readStoredBlock(); err != nil {
			return err
		}
	case btypeFixed:
		if err := d.readCompressedBlock(symbol.NewFixedDecoder()); err != nil {
			return err
		}
	case btypeDynamic:
		dec, err := symbol.NewDynamicDecoder(d.r)
		if err != nil {
			return invalidData(err)
		}
		if err := d.readCompressedBlock(dec); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: reserved BTYPE 0b11", ErrInvalidData)
	}

	if final {
		d.eos = true
	}
	return nil
}

// ReadTrailer reads exactly len(p) bytes immediately following the
// final block, correctly draining any bits this decoder had already
// buffered ahead of the logical end of stream (a Huffman table lookup
// can peek a byte or two past the final symbol's actual width). Call
// only once Read has returned io.EOF; wrapper formats that append a
// checksum trailer (zlib, gzip) use this instead of reading from their
// own copy of the source, which would skip or duplicate those bytes.
func (d *Decoder) ReadTrailer(p []byte) error {
	return d.r.ReadRawBytes(p)
}

func (d *Decoder) readStoredBlock() error {
	var header [4]byte
	if err := d.r.ReadRawBytes(header[:]); err != nil {
		return err
	}
	length := uint16(header[0]) | uint16(header[1])<<8
	nlength := uint16(header[2]) | uint16(header[3])<<8
	if length != ^nlength {
		return fmt.Errorf("%w: stored block LEN %d != ~NLEN %d", ErrInvalidData, length, ^nlength)
	}
	if length == 0 {
		return nil
	}
	buf := make([]byte, length)
	if err := d.r.ReadRawBytes(buf); err != nil {
		return err
	}
	d.lz.ExtendFromSlice(buf)
	return nil
}

// invalidData wraps an error reporting a malformed Huffman table or
// symbol stream with ErrInvalidData; any other error passes through.
func invalidData(err error) error {
	if errors.Is(err, huffman.ErrInvalidCode) || errors.Is(err, symbol.ErrInvalidData) {
		return fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	return err
}

func (d *Decoder) readCompressedBlock(dec *symbol.Decoder) error {
	for {
		s, err := dec.Decode(d.r)
		if err != nil {
			return invalidData(err)
		}
		if s.Kind == symbol.KindEndOfBlock {
			return nil
		}
		if err := d.lz.Decode(s.Code); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
	}
}
