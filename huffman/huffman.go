// Package huffman implements length-limited canonical Huffman coding:
// building a lookup table from per-symbol bitwidths, decoding by
// peek-then-shift against a dense table, encoding by direct indexed
// lookup, and constructing optimal length-limited bitwidths from
// symbol frequencies via package-merge.
package huffman

import (
	"errors"
	"fmt"

	"github.com/jonjohnsonjr/goflate/bit"
)

// MaxBitwidth is the largest bitwidth any Huffman code built by this
// package may have (the literal/length and distance alphabets; the
// code-length meta-alphabet caps itself at 7 by construction).
const MaxBitwidth = 15

// ErrInvalidCode is returned by Decoder.Decode when the bits peeked
// from the reader do not correspond to any assigned code.
var ErrInvalidCode = errors.New("huffman: invalid code")

// Code is one entry of an encode table: Width bits long, Bits already
// bit-reversed so it can be handed straight to a bit.Writer.
type Code struct {
	Width uint8
	Bits  uint16
}

// Encoder maps symbols to their canonical code, flat-indexed by symbol
// value.
type Encoder struct {
	table []Code
}

// Lookup returns the code assigned to symbol. The caller must not look
// up a symbol with Width 0 (unused).
func (e *Encoder) Lookup(symbol int) Code {
	return e.table[symbol]
}

// Encode writes symbol's code to w.
func (e *Encoder) Encode(w *bit.Writer, symbol int) error {
	c := e.table[symbol]
	return w.WriteBits(uint(c.Width), c.Bits)
}

// decoderEntry packs a decoded symbol with the bitwidth consumed to
// reach it. Width 0 marks an empty slot, distinguishable from the
// valid symbol 0 at any real width.
type decoderEntry struct {
	symbol uint16
	width  uint8
}

// Decoder is a dense table indexed by the next MaxWidth peeked bits.
type Decoder struct {
	table    []decoderEntry
	maxWidth uint8
}

// Decode reads one symbol from r: peek MaxWidth bits (tolerating EOF,
// since the final symbol in a stream may need fewer bits than the
// table's width), look it up, and consume only the bits the matched
// code actually uses.
func (d *Decoder) Decode(r *bit.Reader) (uint16, error) {
	if d.maxWidth == 0 {
		return 0, ErrInvalidCode
	}
	bits, err := r.PeekBitsTolerateEOF(uint(d.maxWidth))
	if err != nil {
		return 0, err
	}
	e := d.table[bits]
	if e.width == 0 {
		return 0, fmt.Errorf("%w: pattern %0*b", ErrInvalidCode, int(d.maxWidth), bits)
	}
	if uint(e.width) > r.Buffered() {
		return 0, errUnexpectedEOFDuringDecode
	}
	r.SkipBits(uint(e.width))
	return e.symbol, nil
}

var errUnexpectedEOFDuringDecode = errors.New("huffman: truncated stream mid-code")

func reverseBits(v uint16, width uint8) uint16 {
	var r uint16
	for range width {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}

// canonicalCodes assigns canonical MSB-first integer codes to widths
// per RFC-1951 §3.2.2: symbols are grouped by ascending width (ties
// broken by ascending symbol index, which falls out of iterating in
// symbol order), and within each width successive integers are
// assigned, left-shifting whenever the width increases. Unused
// symbols (width 0) receive no code.
func canonicalCodes(widths []uint8) ([]uint16, uint8) {
	var maxWidth uint8
	for _, w := range widths {
		if w > maxWidth {
			maxWidth = w
		}
	}
	blCount := make([]int, maxWidth+1)
	for _, w := range widths {
		if w > 0 {
			blCount[w]++
		}
	}
	nextCode := make([]uint16, maxWidth+1)
	var code uint16
	for bits := uint8(1); bits <= maxWidth; bits++ {
		code = (code + uint16(blCount[bits-1])) << 1
		nextCode[bits] = code
	}
	codes := make([]uint16, len(widths))
	for s, w := range widths {
		if w == 0 {
			continue
		}
		codes[s] = nextCode[w]
		nextCode[w]++
	}
	return codes, maxWidth
}

// BuildEncoder constructs an Encoder's flat symbol-indexed table from
// per-symbol bitwidths (0 meaning unused).
func BuildEncoder(widths []uint8) *Encoder {
	codes, _ := canonicalCodes(widths)
	table := make([]Code, len(widths))
	for s, w := range widths {
		if w == 0 {
			continue
		}
		table[s] = Code{Width: w, Bits: reverseBits(codes[s], w)}
	}
	return &Encoder{table: table}
}

// BuildDecoder constructs a Decoder's dense 2^maxWidth table from
// per-symbol bitwidths (0 meaning unused).
func BuildDecoder(widths []uint8) (*Decoder, error) {
	codes, maxWidth := canonicalCodes(widths)
	if maxWidth > MaxBitwidth {
		return nil, fmt.Errorf("huffman: bitwidth %d exceeds max %d", maxWidth, MaxBitwidth)
	}
	if maxWidth == 0 {
		return &Decoder{table: nil, maxWidth: 0}, nil
	}
	size := 1 << maxWidth
	table := make([]decoderEntry, size)
	for s, w := range widths {
		if w == 0 {
			continue
		}
		reversed := reverseBits(codes[s], w)
		step := 1 << w
		for idx := int(reversed); idx < size; idx += step {
			table[idx] = decoderEntry{symbol: uint16(s), width: w}
		}
	}
	return &Decoder{table: table, maxWidth: maxWidth}, nil
}

// BuildEncoderFromFrequencies runs package-merge over freqs and builds
// an Encoder from the resulting length-limited bitwidths.
func BuildEncoderFromFrequencies(freqs []uint32, maxWidth uint8) *Encoder {
	widths := PackageMerge(freqs, maxWidth)
	return BuildEncoder(widths)
}

// BuildDecoderFromFrequencies is the decode-side counterpart of
// BuildEncoderFromFrequencies: given the same frequency table, the two
// yield a matching encoder/decoder pair.
func BuildDecoderFromFrequencies(freqs []uint32, maxWidth uint8) (*Decoder, error) {
	widths := PackageMerge(freqs, maxWidth)
	return BuildDecoder(widths)
}
