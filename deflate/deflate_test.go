package deflate

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/jonjohnsonjr/goflate/bit"
	"github.com/jonjohnsonjr/goflate/internal/symbol"
	"github.com/jonjohnsonjr/goflate/lz77"
)

func TestHelloWorldFixedHuffman(t *testing.T) {
	// One valid fixed-Huffman encoding of "Hello World!".
	raw := []byte{243, 72, 205, 201, 201, 87, 8, 207, 47, 202, 73, 81, 4, 0}
	dec := NewDecoder(bytes.NewReader(raw))
	got, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "Hello World!" {
		t.Fatalf("got %q, want %q", got, "Hello World!")
	}
}

func TestRoundTripAllLevelsAndSelections(t *testing.T) {
	input := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 200))
	levels := []CompressionLevel{LevelNone, LevelFast, LevelBalance, LevelBest}
	selections := []HuffmanSelection{HuffmanFixed, HuffmanDynamic}

	for _, level := range levels {
		for _, sel := range selections {
			opts := DefaultEncodeOptions()
			opts.CompressionLevel = level
			opts.HuffmanSelection = sel
			opts.BlockSize = 97 // exercise multi-block flushing

			var buf bytes.Buffer
			enc := NewEncoderOptions(&buf, opts)
			if _, err := enc.Write(input); err != nil {
				t.Fatalf("level=%v sel=%v Write: %v", level, sel, err)
			}
			if err := enc.Finish(); err != nil {
				t.Fatalf("level=%v sel=%v Finish: %v", level, sel, err)
			}

			dec := NewDecoder(&buf)
			got, err := io.ReadAll(dec)
			if err != nil {
				t.Fatalf("level=%v sel=%v ReadAll: %v", level, sel, err)
			}
			if !bytes.Equal(got, input) {
				t.Fatalf("level=%v sel=%v: round trip mismatch (%d vs %d bytes)", level, sel, len(got), len(input))
			}
		}
	}
}

func TestReadChunkingInvariance(t *testing.T) {
	input := []byte(strings.Repeat("abcabcabcdabcd", 500))
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if _, err := enc.Write(input); err != nil {
		t.Fatal(err)
	}
	if err := enc.Finish(); err != nil {
		t.Fatal(err)
	}
	compressed := buf.Bytes()

	whole, err := io.ReadAll(NewDecoder(bytes.NewReader(compressed)))
	if err != nil {
		t.Fatal(err)
	}

	// Reading one byte at a time must yield the same stream.
	dec := NewDecoder(bytes.NewReader(compressed))
	var byByte []byte
	one := make([]byte, 1)
	for {
		n, err := dec.Read(one)
		byByte = append(byByte, one[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	if !bytes.Equal(whole, byByte) {
		t.Fatalf("chunking changed output: %d vs %d bytes", len(whole), len(byByte))
	}
	if !bytes.Equal(whole, input) {
		t.Fatalf("round trip mismatch")
	}
}

func TestEmptyInputRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if err := enc.Finish(); err != nil {
		t.Fatal(err)
	}
	dec := NewDecoder(&buf)
	got, err := io.ReadAll(dec)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d bytes, want 0", len(got))
	}
}

func TestStoredBlockSpansMultipleChunks(t *testing.T) {
	input := bytes.Repeat([]byte{0xAB}, maxStoredBlockLength*2+10)
	var buf bytes.Buffer
	opts := DefaultEncodeOptions()
	opts.CompressionLevel = LevelNone
	enc := NewEncoderOptions(&buf, opts)
	if _, err := enc.Write(input); err != nil {
		t.Fatal(err)
	}
	if err := enc.Finish(); err != nil {
		t.Fatal(err)
	}
	dec := NewDecoder(&buf)
	got, err := io.ReadAll(dec)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, input) {
		t.Fatalf("round trip mismatch over multi-chunk stored block")
	}
}

func TestBackReferenceTooLongIsInvalidData(t *testing.T) {
	var buf bytes.Buffer
	w := bit.NewWriter(&buf)
	if err := w.WriteBit(true); err != nil { // BFINAL
		t.Fatal(err)
	}
	if err := w.WriteBits(2, btypeFixed); err != nil {
		t.Fatal(err)
	}
	enc := symbol.NewFixedEncoder()
	if err := enc.Encode(w, symbol.Symbol{Kind: symbol.KindCode, Code: lz77.NewLiteral('a')}); err != nil {
		t.Fatal(err)
	}
	// Distance 10 with only one byte of history decoded so far.
	if err := enc.Encode(w, symbol.Symbol{Kind: symbol.KindCode, Code: lz77.NewPointer(3, 10)}); err != nil {
		t.Fatal(err)
	}
	if err := enc.Encode(w, symbol.Symbol{Kind: symbol.KindEndOfBlock}); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	dec := NewDecoder(&buf)
	_, err := io.ReadAll(dec)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "too long backward reference") {
		t.Fatalf("error = %v, want mention of a too-long backward reference", err)
	}
}

func TestDynamicHuffmanCodeLoadRegression(t *testing.T) {
	// 103-byte prefix of a real stream whose dynamic Huffman header a
	// naive table loader mishandled: parsing BFINAL=0, BTYPE=0b10 and
	// then loading the dynamic codes must succeed.
	input := []byte{
		180, 253, 73, 143, 28, 201, 150, 46, 8, 254, 150, 184, 139, 75, 18, 69, 247, 32, 157,
		51, 27, 141, 132, 207, 78, 210, 167, 116, 243, 160, 223, 136, 141, 66, 205, 76, 221,
		76, 195, 213, 84, 236, 234, 224, 78, 227, 34, 145, 221, 139, 126, 232, 69, 173, 170,
		208, 192, 219, 245, 67, 3, 15, 149, 120, 171, 70, 53, 106, 213, 175, 23, 21, 153, 139,
		254, 27, 249, 75, 234, 124, 71, 116, 56, 71, 68, 212, 204, 121, 115, 64, 222, 160, 203,
		119, 142, 170, 169, 138, 202, 112, 228, 140, 38,
	}
	r := bit.NewReader(bytes.NewReader(input))
	final, err := r.ReadBit()
	if err != nil {
		t.Fatal(err)
	}
	if final {
		t.Fatal("BFINAL = 1, want 0")
	}
	btype, err := r.ReadBits(2)
	if err != nil {
		t.Fatal(err)
	}
	if btype != btypeDynamic {
		t.Fatalf("BTYPE = %02b, want %02b", btype, btypeDynamic)
	}
	if _, err := symbol.NewDynamicDecoder(r); err != nil {
		t.Fatalf("loading dynamic Huffman codes: %v", err)
	}
}

func TestMalformedDynamicHeaderRejected(t *testing.T) {
	raw := []byte{0x04, 0x04, 0x04, 0x05, 0x3a, 0x1a, 0x7a, 0x2a, 0xfc, 0x06, 0x01, 0x90, 0x01, 0x06, 0x01}
	dec := NewDecoder(bytes.NewReader(raw))
	_, err := io.ReadAll(dec)
	if err == nil {
		t.Fatal("expected decode error on malformed dynamic-Huffman stream")
	}
}
