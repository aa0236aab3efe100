package symbol

import (
	"bytes"
	"testing"

	"github.com/jonjohnsonjr/goflate/bit"
	"github.com/jonjohnsonjr/goflate/huffman"
	"github.com/jonjohnsonjr/goflate/lz77"
)

func TestFixedRoundTrip(t *testing.T) {
	symbols := []Symbol{
		{Kind: KindCode, Code: lz77.NewLiteral('H')},
		{Kind: KindCode, Code: lz77.NewLiteral('i')},
		{Kind: KindCode, Code: lz77.NewPointer(10, 5)},
		{Kind: KindCode, Code: lz77.NewPointer(258, 32768)},
		{Kind: KindEndOfBlock},
	}

	var buf bytes.Buffer
	w := bit.NewWriter(&buf)
	enc := NewFixedEncoder()
	for _, s := range symbols {
		if err := enc.Encode(w, s); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	r := bit.NewReader(&buf)
	dec := NewFixedDecoder()
	for i, want := range symbols {
		got, err := dec.Decode(r)
		if err != nil {
			t.Fatalf("symbol %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("symbol %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestDynamicRoundTrip(t *testing.T) {
	codes := []lz77.Code{
		lz77.NewLiteral('a'),
		lz77.NewLiteral('b'),
		lz77.NewLiteral('a'),
		lz77.NewPointer(4, 2),
		lz77.NewLiteral('c'),
	}
	litFreq, distFreq := CountFrequencies(codes)

	litWidths := huffmanWidthsForTest(litFreq, 15)
	distWidths := huffmanWidthsForTest(distFreq, 15)

	var buf bytes.Buffer
	w := bit.NewWriter(&buf)
	enc, err := NewDynamicEncoder(w, litWidths, distWidths)
	if err != nil {
		t.Fatal(err)
	}
	symbols := make([]Symbol, 0, len(codes)+1)
	for _, c := range codes {
		symbols = append(symbols, Symbol{Kind: KindCode, Code: c})
	}
	symbols = append(symbols, Symbol{Kind: KindEndOfBlock})
	for _, s := range symbols {
		if err := enc.Encode(w, s); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	r := bit.NewReader(&buf)
	dec, err := NewDynamicDecoder(r)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range symbols {
		got, err := dec.Decode(r)
		if err != nil {
			t.Fatalf("symbol %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("symbol %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestSingleSymbolDistanceAlphabet(t *testing.T) {
	codes := []lz77.Code{
		lz77.NewLiteral('x'),
		lz77.NewPointer(3, 1),
		lz77.NewPointer(3, 1),
	}
	litFreq, _ := CountFrequencies(codes)
	litWidths := huffmanWidthsForTest(litFreq, 15)
	// Force a single-symbol distance alphabet: only distance symbol 0 used.
	distWidths := make([]uint8, NumDistanceSymbols)
	distWidths[0] = 1

	var buf bytes.Buffer
	w := bit.NewWriter(&buf)
	enc, err := NewDynamicEncoder(w, litWidths, distWidths)
	if err != nil {
		t.Fatal(err)
	}
	symbols := []Symbol{
		{Kind: KindCode, Code: codes[0]},
		{Kind: KindCode, Code: codes[1]},
		{Kind: KindCode, Code: codes[2]},
		{Kind: KindEndOfBlock},
	}
	for _, s := range symbols {
		if err := enc.Encode(w, s); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	r := bit.NewReader(&buf)
	dec, err := NewDynamicDecoder(r)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range symbols {
		got, err := dec.Decode(r)
		if err != nil {
			t.Fatalf("symbol %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("symbol %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestRLEEncodeDecodeRoundTrip(t *testing.T) {
	widths := make([]uint8, 0, 300)
	widths = append(widths, 3, 3, 3, 3, 3)
	for range 20 {
		widths = append(widths, 0)
	}
	widths = append(widths, 5, 5, 5, 5, 5, 5, 5, 5)
	for range 150 {
		widths = append(widths, 0)
	}
	widths = append(widths, 1)

	tokens := rleEncode(widths)

	// Re-expand the tokens the same way loadBitwidths would, to check
	// the encoder's own round trip without a full bitstream.
	var got []uint8
	var prev uint8
	havePrev := false
	for _, tok := range tokens {
		switch {
		case tok.sym <= 15:
			got = append(got, tok.sym)
			prev, havePrev = tok.sym, true
		case tok.sym == 16:
			if !havePrev {
				t.Fatal("16 with no previous width")
			}
			for i := 0; i < int(tok.extraVal)+3; i++ {
				got = append(got, prev)
			}
		case tok.sym == 17:
			for i := 0; i < int(tok.extraVal)+3; i++ {
				got = append(got, 0)
			}
		case tok.sym == 18:
			for i := 0; i < int(tok.extraVal)+11; i++ {
				got = append(got, 0)
			}
		}
	}
	if !bytesEqual(got, widths) {
		t.Fatalf("round trip mismatch:\ngot  %v\nwant %v", got, widths)
	}
}

func bytesEqual(a, b []uint8) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// huffmanWidthsForTest mirrors what an encoder would do: run
// package-merge over freq to get valid bitwidths, via the same huffman
// package the codec itself uses.
func huffmanWidthsForTest(freq []uint32, maxWidth uint8) []uint8 {
	return huffman.PackageMerge(freq, maxWidth)
}
