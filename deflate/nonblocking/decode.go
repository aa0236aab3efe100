// Package nonblocking implements a non-blocking DEFLATE decoder: a
// step-at-a-time state machine that never blocks waiting for input,
// surfacing bit.ErrWouldBlock when the underlying reader has nothing
// left to give, and resuming from exactly where it stopped once more
// bytes arrive. Byte-for-byte output matches the blocking decoder in
// ../decode.go for the same input.
package nonblocking

import (
	"errors"
	"fmt"
	"io"

	"github.com/jonjohnsonjr/goflate/bit"
	"github.com/jonjohnsonjr/goflate/huffman"
	"github.com/jonjohnsonjr/goflate/internal/symbol"
	"github.com/jonjohnsonjr/goflate/lz77"
)

// ErrInvalidData is wrapped with context and returned for any
// malformed block header, reserved BTYPE, or corrupt symbol stream.
var ErrInvalidData = errors.New("deflate/nonblocking: invalid data")

const (
	btypeStored  = 0b00
	btypeFixed   = 0b01
	btypeDynamic = 0b10
)

type blockState int

const (
	stateBlockHead blockState = iota
	stateReadStoredLen
	stateReadStoredBody
	stateLoadFixedCode
	stateLoadDynamicCode
	stateDecodeBlock
)

// Decoder is a non-blocking DEFLATE stream decoder. Read never blocks:
// if the wrapped reader returns bit.ErrWouldBlock mid-block, Read
// returns that same error and a later Read call resumes the block
// exactly where the previous attempt left off.
type Decoder struct {
	r     *bit.TransactionalReader
	lz    *lz77.Decoder
	final bool // current block carried BFINAL
	eos   bool // final block fully decoded
	state blockState

	sym       *symbol.Decoder
	storedLen int
}

// NewDecoder wraps r as a non-blocking DEFLATE decoder. r's Read
// method must return bit.ErrWouldBlock (wrapped or bare, per
// errors.Is) instead of blocking when no data is currently available.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:     bit.NewTransactionalReader(r),
		lz:    lz77.NewDecoder(),
		state: stateBlockHead,
	}
}

// Read implements io.Reader. It returns bit.ErrWouldBlock (unwrapped,
// via errors.Is) whenever the source has no more bytes to give right
// now; callers should retry once more input is available.
func (d *Decoder) Read(p []byte) (int, error) {
	for {
		if len(d.lz.Buffer()) > 0 {
			return d.lz.Read(p)
		}
		if d.eos {
			return 0, io.EOF
		}
		if err := d.step(); err != nil {
			return 0, err
		}
	}
}

// step advances the state machine by exactly one unit of work: one
// header, one stored byte, one Huffman table load, or one symbol. It
// either makes forward progress (a state transition or buffered
// output) or returns an error, so Decoder.Read's loop always
// terminates.
func (d *Decoder) step() error {
	switch d.state {
	case stateBlockHead:
		return d.stepBlockHead()
	case stateReadStoredLen:
		return d.stepReadStoredLen()
	case stateReadStoredBody:
		return d.stepReadStoredBody()
	case stateLoadFixedCode:
		d.sym = symbol.NewFixedDecoder()
		d.state = stateDecodeBlock
		return nil
	case stateLoadDynamicCode:
		return d.stepLoadDynamicCode()
	case stateDecodeBlock:
		return d.stepDecodeBlock()
	default:
		panic("deflate/nonblocking: unreachable state")
	}
}

type blockHead struct {
	final bool
	btype uint16
}

func (d *Decoder) stepBlockHead() error {
	h, err := bit.Transact(d.r, func(r *bit.Reader) (blockHead, error) {
		final, err := r.ReadBit()
		if err != nil {
			return blockHead{}, err
		}
		btype, err := r.ReadBits(2)
		if err != nil {
			return blockHead{}, err
		}
		return blockHead{final, btype}, nil
	})
	if err != nil {
		return err
	}
	d.final = h.final
	d.lz.TruncateOldBuffer()
	switch h.btype {
	case btypeStored:
		d.state = stateReadStoredLen
	case btypeFixed:
		d.state = stateLoadFixedCode
	case btypeDynamic:
		d.state = stateLoadDynamicCode
	default:
		return fmt.Errorf("%w: reserved BTYPE 0b11", ErrInvalidData)
	}
	return nil
}

func (d *Decoder) stepReadStoredLen() error {
	header, err := bit.Transact(d.r, func(r *bit.Reader) ([4]byte, error) {
		var h [4]byte
		if err := r.ReadRawBytes(h[:]); err != nil {
			return h, err
		}
		return h, nil
	})
	if err != nil {
		return err
	}
	length := uint16(header[0]) | uint16(header[1])<<8
	nlength := uint16(header[2]) | uint16(header[3])<<8
	if length != ^nlength {
		return fmt.Errorf("%w: stored block LEN %d != ~NLEN %d", ErrInvalidData, length, ^nlength)
	}
	d.storedLen = int(length)
	if d.storedLen == 0 {
		d.endBlock()
	} else {
		d.state = stateReadStoredBody
	}
	return nil
}

// endBlock returns to the block-header state, or marks end of stream
// if the block just completed was the final one.
func (d *Decoder) endBlock() {
	d.state = stateBlockHead
	if d.final {
		d.eos = true
	}
}

// stepReadStoredBody consumes exactly one byte of a stored block's
// body per call, so a source that goes quiet mid-block loses no
// progress: only the last, still-unread byte is ever at risk of
// replay.
func (d *Decoder) stepReadStoredBody() error {
	b, err := bit.Transact(d.r, func(r *bit.Reader) (byte, error) {
		var buf [1]byte
		if err := r.ReadRawBytes(buf[:]); err != nil {
			return 0, err
		}
		return buf[0], nil
	})
	if err != nil {
		return err
	}
	d.lz.ExtendFromSlice([]byte{b})
	d.storedLen--
	if d.storedLen == 0 {
		d.endBlock()
	}
	return nil
}

func (d *Decoder) stepLoadDynamicCode() error {
	dec, err := bit.Transact(d.r, func(r *bit.Reader) (*symbol.Decoder, error) {
		return symbol.NewDynamicDecoder(r)
	})
	if err != nil {
		return invalidData(err)
	}
	d.sym = dec
	d.state = stateDecodeBlock
	return nil
}

// invalidData wraps an error reporting a malformed Huffman table or
// symbol stream with ErrInvalidData; any other error (including
// bit.ErrWouldBlock) passes through.
func invalidData(err error) error {
	if errors.Is(err, huffman.ErrInvalidCode) || errors.Is(err, symbol.ErrInvalidData) {
		return fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	return err
}

func (d *Decoder) stepDecodeBlock() error {
	s, err := bit.Transact(d.r, func(r *bit.Reader) (symbol.Symbol, error) {
		return d.sym.Decode(r)
	})
	if err != nil {
		return invalidData(err)
	}
	if s.Kind == symbol.KindEndOfBlock {
		d.endBlock()
		return nil
	}
	if err := d.lz.Decode(s.Code); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return nil
}
