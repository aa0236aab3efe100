// Package bit adapts byte-oriented I/O to the LSB-first variable-width
// bit encoding DEFLATE demands: a Writer that packs bits into whole
// bytes on the way out, and a Reader that unpacks them on the way in.
package bit

import (
	"errors"
	"io"
)

// ErrWouldBlock is returned by a byte source passed to a
// TransactionalReader when no bytes are currently available. It is
// never returned by Reader/Writer directly; it exists for non-blocking
// sources to signal through to Transaction.
var ErrWouldBlock = errors.New("bit: would block")

// Writer packs bits LSB-first into whole bytes written to an
// underlying io.Writer.
type Writer struct {
	w      io.Writer
	bitBuf uint32
	nBits  uint
	byte1  [1]byte
	byte2  [2]byte
}

// NewWriter returns a Writer that emits whole bytes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteBits appends the low width bits of value (width in [0,16]) in
// LSB-first order to the pending word, flushing whole bytes to the
// underlying writer as they accumulate.
func (w *Writer) WriteBits(width uint, value uint16) error {
	if width == 0 {
		return nil
	}
	mask := uint32(1)<<width - 1
	w.bitBuf |= (uint32(value) & mask) << w.nBits
	w.nBits += width
	for w.nBits >= 16 {
		w.byte2[0] = byte(w.bitBuf)
		w.byte2[1] = byte(w.bitBuf >> 8)
		if _, err := w.w.Write(w.byte2[:]); err != nil {
			return err
		}
		w.bitBuf >>= 16
		w.nBits -= 16
	}
	return nil
}

// WriteBit is the single-bit specialization of WriteBits.
func (w *Writer) WriteBit(b bool) error {
	var v uint16
	if b {
		v = 1
	}
	return w.WriteBits(1, v)
}

// ByteAlign pads the pending bits with zeros up to the next byte
// boundary without forcing any emission.
func (w *Writer) ByteAlign() {
	if frac := w.nBits % 8; frac != 0 {
		w.nBits += 8 - frac
	}
}

// Flush pads the pending bits to the next byte boundary and writes out
// all whole bytes that remain buffered.
func (w *Writer) Flush() error {
	w.ByteAlign()
	for w.nBits >= 8 {
		w.byte1[0] = byte(w.bitBuf)
		if _, err := w.w.Write(w.byte1[:]); err != nil {
			return err
		}
		w.bitBuf >>= 8
		w.nBits -= 8
	}
	return nil
}

// WriteRawBytes byte-aligns, flushes any pending bits, and then writes
// p directly to the underlying writer, bypassing the bit buffer. Used
// for stored-block LEN/NLEN and body bytes.
func (w *Writer) WriteRawBytes(p []byte) error {
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := w.w.Write(p)
	return err
}

// Reader unpacks LSB-first bits from whole bytes read from an
// underlying io.Reader.
type Reader struct {
	r      io.Reader
	bitBuf uint32
	nBits  uint
	byte1  [1]byte
}

// NewReader returns a Reader that pulls whole bytes from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Buffered reports how many valid unread bits remain in the buffer.
func (r *Reader) Buffered() uint {
	return r.nBits
}

func (r *Reader) fillByte() error {
	n, err := r.r.Read(r.byte1[:])
	if n == 1 {
		r.bitBuf |= uint32(r.byte1[0]) << r.nBits
		r.nBits += 8
		return nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return err
}

func (r *Reader) ensure(width uint) error {
	for r.nBits < width {
		if err := r.fillByte(); err != nil {
			return err
		}
	}
	return nil
}

// PeekBits returns the next width bits (width in [0,16]) without
// consuming them, refilling from the byte source in whole-byte chunks.
func (r *Reader) PeekBits(width uint) (uint16, error) {
	if width == 0 {
		return 0, nil
	}
	if err := r.ensure(width); err != nil {
		return 0, err
	}
	mask := uint32(1)<<width - 1
	return uint16(r.bitBuf & mask), nil
}

// PeekBitsTolerateEOF behaves like PeekBits but treats end-of-stream
// from the byte source as "no more bits available" rather than an
// error, returning whatever bits are buffered (zero-padded in the high
// positions). Used by table-driven Huffman decode, whose table size is
// wider than the shortest valid code so the last symbol in a stream
// may be peeked past genuine EOF.
func (r *Reader) PeekBitsTolerateEOF(width uint) (uint16, error) {
	if width == 0 {
		return 0, nil
	}
	for r.nBits < width {
		if err := r.fillByte(); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return 0, err
		}
	}
	mask := uint32(1)<<width - 1
	return uint16(r.bitBuf & mask), nil
}

// SkipBits advances past width already-peeked bits.
func (r *Reader) SkipBits(width uint) {
	if width == 0 {
		return
	}
	r.bitBuf >>= width
	r.nBits -= width
}

// ReadBits is PeekBits followed by SkipBits.
func (r *Reader) ReadBits(width uint) (uint16, error) {
	v, err := r.PeekBits(width)
	if err != nil {
		return 0, err
	}
	r.SkipBits(width)
	return v, nil
}

// ReadBit is the single-bit specialization of ReadBits.
func (r *Reader) ReadBit() (bool, error) {
	v, err := r.ReadBits(1)
	return v == 1, err
}

// ByteAlign discards fractional bits up to the next byte boundary.
func (r *Reader) ByteAlign() {
	if frac := r.nBits % 8; frac != 0 {
		r.bitBuf >>= frac
		r.nBits -= frac
	}
}

// Reset discards any buffered bits without touching the byte stream.
// Only safe when the caller already knows no whole bytes are sitting
// in the buffer (e.g. immediately after ByteAlign leaves nBits at 0);
// ReadRawBytes does not rely on this and drains buffered whole bytes
// itself instead of discarding them.
func (r *Reader) Reset() {
	r.bitBuf = 0
	r.nBits = 0
}

// ReadRawBytes byte-aligns, then reads len(p) bytes into p, bypassing
// the bit buffer. A look-ahead Peek can leave whole bytes already
// pulled from the underlying source sitting in the buffer (its width
// can exceed the bits actually consumed by the matched code); those
// are served first, and only the remainder is read fresh, so no byte
// the source already gave up is ever lost.
func (r *Reader) ReadRawBytes(p []byte) error {
	r.ByteAlign()
	n := 0
	for r.nBits >= 8 && n < len(p) {
		p[n] = byte(r.bitBuf)
		r.bitBuf >>= 8
		r.nBits -= 8
		n++
	}
	if n == len(p) {
		return nil
	}
	_, err := io.ReadFull(r.r, p[n:])
	return err
}
