package huffman

import (
	"bytes"
	"testing"

	"github.com/jonjohnsonjr/goflate/bit"
)

func TestFixedLiteralTableRoundTrip(t *testing.T) {
	widths := fixedLiteralWidthsForTest()
	enc := BuildEncoder(widths)
	dec, err := BuildDecoder(widths)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	w := bit.NewWriter(&buf)
	symbols := []int{0, 143, 144, 255, 256, 279, 280, 287}
	for _, s := range symbols {
		if err := enc.Encode(w, s); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	r := bit.NewReader(&buf)
	for _, want := range symbols {
		got, err := dec.Decode(r)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if int(got) != want {
			t.Fatalf("Decode() = %d, want %d", got, want)
		}
	}
}

func TestBuildDecoderRejectsNothingForEmptyWidths(t *testing.T) {
	dec, err := BuildDecoder(make([]uint8, 5))
	if err != nil {
		t.Fatal(err)
	}
	_, err = dec.Decode(bit.NewReader(bytes.NewReader([]byte{0})))
	if err == nil {
		t.Fatal("expected error decoding against an all-unused table")
	}
}

func TestCanonicalCodesKraftEquality(t *testing.T) {
	widths := []uint8{3, 3, 3, 3, 3, 2, 4, 4}

	// Kraft sum of 2^-w over all used symbols must equal 1 for a
	// complete code.
	var kraft float64
	for _, w := range widths {
		if w == 0 {
			continue
		}
		p := 1.0
		for i := uint8(0); i < w; i++ {
			p /= 2
		}
		kraft += p
	}
	if kraft != 1.0 {
		t.Fatalf("Kraft sum = %v, want 1.0", kraft)
	}
}

func TestSingleSymbolAlphabet(t *testing.T) {
	widths := make([]uint8, 30)
	widths[5] = 1
	enc := BuildEncoder(widths)
	dec, err := BuildDecoder(widths)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	w := bit.NewWriter(&buf)
	for range 3 {
		if err := enc.Encode(w, 5); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	r := bit.NewReader(&buf)
	for range 3 {
		got, err := dec.Decode(r)
		if err != nil {
			t.Fatal(err)
		}
		if got != 5 {
			t.Fatalf("Decode() = %d, want 5", got)
		}
	}
}

func TestPackageMergeRespectsMaxWidth(t *testing.T) {
	freqs := make([]uint32, 16)
	for i := range freqs {
		// Skewed so an unconstrained Huffman tree would exceed 4 bits.
		freqs[i] = uint32(1 << uint(i%6))
	}
	widths := PackageMerge(freqs, 4)
	for s, w := range widths {
		if w > 4 {
			t.Fatalf("symbol %d got width %d, want <= 4", s, w)
		}
	}
	dec, err := BuildDecoder(widths)
	if err != nil {
		t.Fatal(err)
	}
	enc := BuildEncoder(widths)
	var buf bytes.Buffer
	w := bit.NewWriter(&buf)
	for s, width := range widths {
		if width == 0 {
			continue
		}
		if err := enc.Encode(w, s); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	r := bit.NewReader(&buf)
	for s, width := range widths {
		if width == 0 {
			continue
		}
		got, err := dec.Decode(r)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if int(got) != s {
			t.Fatalf("Decode() = %d, want %d", got, s)
		}
	}
}

func TestPackageMergeKraftEquality(t *testing.T) {
	freqs := []uint32{1, 1, 2, 3, 5, 8, 13, 21, 1, 1, 1}
	widths := PackageMerge(freqs, 15)
	var kraft float64
	for _, w := range widths {
		if w == 0 {
			continue
		}
		p := 1.0
		for i := uint8(0); i < w; i++ {
			p /= 2
		}
		kraft += p
	}
	if kraft != 1.0 {
		t.Fatalf("Kraft sum = %v, want 1.0", kraft)
	}
}

// fixedLiteralWidthsForTest builds the RFC-1951 §3.2.6 fixed literal
// bitwidths (without importing internal/symbol, to keep this test
// package-local).
func fixedLiteralWidthsForTest() []uint8 {
	widths := make([]uint8, 288)
	for i := 0; i <= 143; i++ {
		widths[i] = 8
	}
	for i := 144; i <= 255; i++ {
		widths[i] = 9
	}
	for i := 256; i <= 279; i++ {
		widths[i] = 7
	}
	for i := 280; i <= 287; i++ {
		widths[i] = 8
	}
	return widths
}
