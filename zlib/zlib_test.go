package zlib

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/jonjohnsonjr/goflate/deflate"
)

func TestRoundTrip(t *testing.T) {
	input := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 100))
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	if _, err := enc.Write(input); err != nil {
		t.Fatal(err)
	}
	if err := enc.Finish(); err != nil {
		t.Fatal(err)
	}

	if got := buf.Bytes(); len(got) < 2 || got[0] != 0x78 || got[1] != 0x9C {
		t.Fatalf("prefix = % x, want 78 9c", got[:2])
	}

	dec, err := NewDecoder(&buf)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	got, err := io.ReadAll(dec)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, input) {
		t.Fatalf("round trip mismatch (%d vs %d bytes)", len(got), len(input))
	}
}

func TestStoredBlockExactBytes(t *testing.T) {
	opts := DefaultEncodeOptions()
	opts.Deflate.CompressionLevel = deflate.LevelNone
	opts.CompressionLevel = LevelFastest
	var buf bytes.Buffer
	enc, err := NewEncoderOptions(&buf, opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Write([]byte("Hello World!")); err != nil {
		t.Fatal(err)
	}
	if err := enc.Finish(); err != nil {
		t.Fatal(err)
	}
	want := []byte{120, 1, 1, 12, 0, 243, 255, 72, 101, 108, 108, 111, 32, 87, 111, 114, 108, 100, 33, 28, 73, 4, 62}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got % x, want % x", buf.Bytes(), want)
	}
}

func TestDictionaryRejected(t *testing.T) {
	// CMF=0x78, FLG with FDICT set and the mod-31 check satisfied, plus
	// a 4-byte dictionary id.
	raw := []byte{0x78, 0xBB, 0, 0, 0, 0}
	if (uint16(raw[0])<<8|uint16(raw[1]))%31 != 0 {
		t.Fatal("test fixture header does not satisfy mod-31 invariant")
	}
	_, err := NewDecoder(bytes.NewReader(raw))
	if err == nil {
		t.Fatal("expected preset-dictionary rejection")
	}
}

func TestChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := enc.Finish(); err != nil {
		t.Fatal(err)
	}
	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xFF

	dec, err := NewDecoder(bytes.NewReader(corrupted))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.ReadAll(dec); err == nil {
		t.Fatal("expected Adler-32 mismatch")
	}
}
