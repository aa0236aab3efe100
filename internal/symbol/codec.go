package symbol

import (
	"errors"
	"fmt"

	"github.com/jonjohnsonjr/goflate/bit"
	"github.com/jonjohnsonjr/goflate/huffman"
	"github.com/jonjohnsonjr/goflate/lz77"
)

// ErrInvalidData is wrapped with context and returned for any
// malformed dynamic-Huffman header or meta-alphabet stream.
var ErrInvalidData = errors.New("symbol: invalid data")

// Kind discriminates the two Symbol variants.
type Kind uint8

const (
	// KindCode carries an embedded lz77.Code (literal or pointer).
	KindCode Kind = iota
	// KindEndOfBlock marks the end of a compressed block's symbol stream.
	KindEndOfBlock
)

// Symbol is a DEFLATE symbol: either an LZ77 Code or the EndOfBlock
// sentinel.
type Symbol struct {
	Kind Kind
	Code lz77.Code
}

// Decoder decodes a DEFLATE compressed-block body (after the block
// header has already been consumed) into a stream of Symbols, using a
// matched pair of literal/length and distance Huffman decoders.
type Decoder struct {
	literal  *huffman.Decoder
	distance *huffman.Decoder
}

// NewFixedDecoder builds a Decoder over the RFC-1951 fixed tables.
func NewFixedDecoder() *Decoder {
	lit, err := huffman.BuildDecoder(FixedLiteralWidths())
	if err != nil {
		panic(err) // fixed tables are a compile-time constant; cannot fail
	}
	dist, err := huffman.BuildDecoder(FixedDistanceWidths())
	if err != nil {
		panic(err)
	}
	return &Decoder{literal: lit, distance: dist}
}

// NewDynamicDecoder reads a dynamic block's header (HLIT/HDIST/HCLEN,
// the code-length alphabet, and the RLE-compressed literal/distance
// bitwidths) from r and builds the resulting Decoder.
func NewDynamicDecoder(r *bit.Reader) (*Decoder, error) {
	hlit, err := r.ReadBits(5)
	if err != nil {
		return nil, err
	}
	hdist, err := r.ReadBits(5)
	if err != nil {
		return nil, err
	}
	hclen, err := r.ReadBits(4)
	if err != nil {
		return nil, err
	}

	numLit := int(hlit) + 257
	numDist := int(hdist) + 1
	numCL := int(hclen) + 4

	clWidths := make([]uint8, NumCodeLengthSymbols)
	for i := 0; i < numCL; i++ {
		w, err := r.ReadBits(3)
		if err != nil {
			return nil, err
		}
		clWidths[CodeLengthOrder[i]] = uint8(w)
	}

	clDecoder, err := huffman.BuildDecoder(clWidths)
	if err != nil {
		return nil, fmt.Errorf("%w: code-length alphabet: %v", ErrInvalidData, err)
	}

	widths, err := loadBitwidths(r, clDecoder, numLit+numDist)
	if err != nil {
		return nil, err
	}
	litWidths, distWidths := widths[:numLit], widths[numLit:]

	normalizeSingleSymbolDistanceAlphabet(distWidths)

	lit, err := huffman.BuildDecoder(litWidths)
	if err != nil {
		return nil, fmt.Errorf("%w: literal alphabet: %v", ErrInvalidData, err)
	}
	dist, err := huffman.BuildDecoder(distWidths)
	if err != nil {
		return nil, fmt.Errorf("%w: distance alphabet: %v", ErrInvalidData, err)
	}
	return &Decoder{literal: lit, distance: dist}, nil
}

// normalizeSingleSymbolDistanceAlphabet implements the tolerant side of
// the single-symbol distance alphabet open question: some encoders in
// the wild transmit bitwidth 0 for the lone symbol of a one-symbol
// distance alphabet. Treat that the same as the standard bitwidth 1.
func normalizeSingleSymbolDistanceAlphabet(distWidths []uint8) {
	if len(distWidths) != 1 {
		return
	}
	if distWidths[0] == 0 {
		distWidths[0] = 1
	}
}

// loadBitwidths decodes count code-length values (literal widths
// followed by distance widths, as one continuous stream) using the
// RLE meta-alphabet.
func loadBitwidths(r *bit.Reader, clDecoder *huffman.Decoder, count int) ([]uint8, error) {
	widths := make([]uint8, 0, count)
	var prev uint8
	havePrev := false
	for len(widths) < count {
		sym, err := clDecoder.Decode(r)
		if err != nil {
			return nil, err
		}
		switch {
		case sym <= 15:
			widths = append(widths, uint8(sym))
			prev, havePrev = uint8(sym), true
		case sym == 16:
			if !havePrev {
				return nil, fmt.Errorf("%w: repeat code 16 with no previous bitwidth", ErrInvalidData)
			}
			n, err := r.ReadBits(2)
			if err != nil {
				return nil, err
			}
			repeat := int(n) + 3
			for i := 0; i < repeat; i++ {
				widths = append(widths, prev)
			}
		case sym == 17:
			n, err := r.ReadBits(3)
			if err != nil {
				return nil, err
			}
			repeat := int(n) + 3
			for i := 0; i < repeat; i++ {
				widths = append(widths, 0)
			}
			havePrev = false
		case sym == 18:
			n, err := r.ReadBits(7)
			if err != nil {
				return nil, err
			}
			repeat := int(n) + 11
			for i := 0; i < repeat; i++ {
				widths = append(widths, 0)
			}
			havePrev = false
		default:
			return nil, fmt.Errorf("%w: unknown code-length symbol %d", ErrInvalidData, sym)
		}
	}
	if len(widths) != count {
		return nil, fmt.Errorf("%w: code-length stream overran expected count", ErrInvalidData)
	}
	return widths, nil
}

// Decode reads one Symbol from r.
func (d *Decoder) Decode(r *bit.Reader) (Symbol, error) {
	s, err := d.literal.Decode(r)
	if err != nil {
		return Symbol{}, err
	}
	switch {
	case s < 256:
		return Symbol{Kind: KindCode, Code: lz77.NewLiteral(byte(s))}, nil
	case s == EndOfBlockSymbol:
		return Symbol{Kind: KindEndOfBlock}, nil
	case s <= 285:
		extraBits := lengthExtraBitsForSymbol(s)
		extraVal, err := r.ReadBits(uint(extraBits))
		if err != nil {
			return Symbol{}, err
		}
		length := symbolToLength(s, extraVal)

		distSym, err := d.distance.Decode(r)
		if err != nil {
			return Symbol{}, err
		}
		if int(distSym) >= NumDistanceSymbols {
			return Symbol{}, fmt.Errorf("%w: distance symbol %d out of range", ErrInvalidData, distSym)
		}
		distExtraBits := distExtraBitsForSymbol(distSym)
		distExtraVal, err := r.ReadBits(uint(distExtraBits))
		if err != nil {
			return Symbol{}, err
		}
		distance := symbolToDistance(distSym, distExtraVal)

		return Symbol{Kind: KindCode, Code: lz77.NewPointer(length, distance)}, nil
	default:
		return Symbol{}, fmt.Errorf("%w: literal symbol %d out of range", ErrInvalidData, s)
	}
}

// Encoder encodes a stream of Symbols into a compressed-block body.
type Encoder struct {
	literal  *huffman.Encoder
	distance *huffman.Encoder
}

// NewFixedEncoder builds an Encoder over the RFC-1951 fixed tables.
func NewFixedEncoder() *Encoder {
	return &Encoder{
		literal:  huffman.BuildEncoder(FixedLiteralWidths()),
		distance: huffman.BuildEncoder(FixedDistanceWidths()),
	}
}

// NewDynamicEncoder builds an Encoder from explicit literal/distance
// bitwidths (typically produced by package-merge over a block's symbol
// frequencies) and writes the dynamic block header (HLIT/HDIST/HCLEN,
// code-length alphabet, RLE-compressed bitwidths) to w.
func NewDynamicEncoder(w *bit.Writer, litWidths, distWidths []uint8) (*Encoder, error) {
	litWidths = trimTrailingZeros(litWidths, 257)
	distWidths = trimTrailingZeros(distWidths, 1)

	combined := make([]uint8, 0, len(litWidths)+len(distWidths))
	combined = append(combined, litWidths...)
	combined = append(combined, distWidths...)

	tokens := rleEncode(combined)

	clFreq := make([]uint32, NumCodeLengthSymbols)
	for _, tok := range tokens {
		clFreq[tok.sym]++
	}
	clWidths := huffman.PackageMerge(clFreq, 7)

	numCL := NumCodeLengthSymbols
	for numCL > 4 && clWidths[CodeLengthOrder[numCL-1]] == 0 {
		numCL--
	}

	if err := w.WriteBits(5, uint16(len(litWidths)-257)); err != nil {
		return nil, err
	}
	if err := w.WriteBits(5, uint16(len(distWidths)-1)); err != nil {
		return nil, err
	}
	if err := w.WriteBits(4, uint16(numCL-4)); err != nil {
		return nil, err
	}
	for i := 0; i < numCL; i++ {
		if err := w.WriteBits(3, uint16(clWidths[CodeLengthOrder[i]])); err != nil {
			return nil, err
		}
	}

	clEncoder := huffman.BuildEncoder(clWidths)
	for _, tok := range tokens {
		if err := clEncoder.Encode(w, int(tok.sym)); err != nil {
			return nil, err
		}
		if tok.extraWidth > 0 {
			if err := w.WriteBits(uint(tok.extraWidth), tok.extraVal); err != nil {
				return nil, err
			}
		}
	}

	return &Encoder{
		literal:  huffman.BuildEncoder(litWidths),
		distance: huffman.BuildEncoder(distWidths),
	}, nil
}

func trimTrailingZeros(widths []uint8, minLen int) []uint8 {
	n := len(widths)
	for n > minLen && widths[n-1] == 0 {
		n--
	}
	return widths[:n]
}

// Encode writes one Symbol to w.
func (e *Encoder) Encode(w *bit.Writer, s Symbol) error {
	switch s.Kind {
	case KindEndOfBlock:
		return e.literal.Encode(w, EndOfBlockSymbol)
	case KindCode:
		switch s.Code.Kind {
		case lz77.KindLiteral:
			return e.literal.Encode(w, int(s.Code.Literal))
		case lz77.KindPointer:
			lenSym, lenExtraBits, lenExtraVal := lengthToSymbol(s.Code.Length)
			if err := e.literal.Encode(w, int(lenSym)); err != nil {
				return err
			}
			if err := w.WriteBits(uint(lenExtraBits), lenExtraVal); err != nil {
				return err
			}
			distSym, distExtraBits, distExtraVal := distanceToSymbol(s.Code.BackwardDistance)
			if err := e.distance.Encode(w, int(distSym)); err != nil {
				return err
			}
			return w.WriteBits(uint(distExtraBits), distExtraVal)
		}
	}
	return fmt.Errorf("symbol: unknown symbol kind")
}

// BitCost returns the body cost in bits of encoding codes (plus the
// closing EndOfBlock) with the given literal/distance bitwidths,
// counting each symbol's code width and its extra bits. Used by the
// block-type policy to detect when a compressed block would expand the
// data relative to a stored one.
func BitCost(codes []lz77.Code, litWidths, distWidths []uint8) int {
	total := int(litWidths[EndOfBlockSymbol])
	for _, c := range codes {
		switch c.Kind {
		case lz77.KindLiteral:
			total += int(litWidths[c.Literal])
		case lz77.KindPointer:
			lenSym, lenExtra, _ := lengthToSymbol(c.Length)
			total += int(litWidths[lenSym]) + int(lenExtra)
			distSym, distExtra, _ := distanceToSymbol(c.BackwardDistance)
			total += int(distWidths[distSym]) + int(distExtra)
		}
	}
	return total
}

// DynamicHeaderBitCost returns the bit cost of the dynamic block header
// NewDynamicEncoder would write for these bitwidths: HLIT/HDIST/HCLEN,
// the transmitted code-length-alphabet widths, and the RLE-compressed
// bitwidth stream.
func DynamicHeaderBitCost(litWidths, distWidths []uint8) int {
	litWidths = trimTrailingZeros(litWidths, 257)
	distWidths = trimTrailingZeros(distWidths, 1)
	combined := make([]uint8, 0, len(litWidths)+len(distWidths))
	combined = append(combined, litWidths...)
	combined = append(combined, distWidths...)
	tokens := rleEncode(combined)

	clFreq := make([]uint32, NumCodeLengthSymbols)
	for _, tok := range tokens {
		clFreq[tok.sym]++
	}
	clWidths := huffman.PackageMerge(clFreq, 7)
	numCL := NumCodeLengthSymbols
	for numCL > 4 && clWidths[CodeLengthOrder[numCL-1]] == 0 {
		numCL--
	}

	total := 5 + 5 + 4 + 3*numCL
	for _, tok := range tokens {
		total += int(clWidths[tok.sym]) + int(tok.extraWidth)
	}
	return total
}

// CountFrequencies tabulates literal/length and distance alphabet
// frequencies over codes, including one implicit EndOfBlock occurrence,
// for feeding to huffman.PackageMerge when building a dynamic block.
func CountFrequencies(codes []lz77.Code) (litFreq, distFreq []uint32) {
	litFreq = make([]uint32, NumLiteralSymbols)
	distFreq = make([]uint32, NumDistanceSymbols)
	litFreq[EndOfBlockSymbol]++
	for _, c := range codes {
		switch c.Kind {
		case lz77.KindLiteral:
			litFreq[c.Literal]++
		case lz77.KindPointer:
			lenSym, _, _ := lengthToSymbol(c.Length)
			litFreq[lenSym]++
			distSym, _, _ := distanceToSymbol(c.BackwardDistance)
			distFreq[distSym]++
		}
	}
	return litFreq, distFreq
}
