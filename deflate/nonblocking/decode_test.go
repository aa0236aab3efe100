package nonblocking

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/jonjohnsonjr/goflate/bit"
	"github.com/jonjohnsonjr/goflate/deflate"
)

// chunkedWouldBlockSource serves the bytes of data one byte at a time,
// returning bit.ErrWouldBlock between every byte to exercise the
// decoder's resume-after-WouldBlock path as aggressively as possible.
type chunkedWouldBlockSource struct {
	data []byte
	pos  int
	wait bool
}

func (s *chunkedWouldBlockSource) Read(p []byte) (int, error) {
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	if s.wait {
		s.wait = false
		return 0, bit.ErrWouldBlock
	}
	n := copy(p, s.data[s.pos:s.pos+1])
	s.pos += n
	s.wait = true
	return n, nil
}

func readAllNonBlocking(t *testing.T, dec *Decoder) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, 64)
	for {
		n, err := dec.Read(buf)
		out = append(out, buf[:n]...)
		if err == nil {
			continue
		}
		if errors.Is(err, bit.ErrWouldBlock) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return out
		}
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNonBlockingMatchesBlockingDecoder(t *testing.T) {
	input := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 50))

	var compressed bytes.Buffer
	enc := deflate.NewEncoder(&compressed)
	if _, err := enc.Write(input); err != nil {
		t.Fatal(err)
	}
	if err := enc.Finish(); err != nil {
		t.Fatal(err)
	}

	src := &chunkedWouldBlockSource{data: compressed.Bytes()}
	dec := NewDecoder(src)
	got := readAllNonBlocking(t, dec)

	if !bytes.Equal(got, input) {
		t.Fatalf("non-blocking decode mismatch: got %d bytes, want %d", len(got), len(input))
	}
}

func TestNonBlockingStoredBlockRoundTrip(t *testing.T) {
	input := bytes.Repeat([]byte{0x7A}, 5000)

	var compressed bytes.Buffer
	opts := deflate.DefaultEncodeOptions()
	opts.CompressionLevel = deflate.LevelNone
	enc := deflate.NewEncoderOptions(&compressed, opts)
	if _, err := enc.Write(input); err != nil {
		t.Fatal(err)
	}
	if err := enc.Finish(); err != nil {
		t.Fatal(err)
	}

	src := &chunkedWouldBlockSource{data: compressed.Bytes()}
	dec := NewDecoder(src)
	got := readAllNonBlocking(t, dec)

	if !bytes.Equal(got, input) {
		t.Fatalf("stored-block non-blocking decode mismatch: got %d bytes, want %d", len(got), len(input))
	}
}

func TestNonBlockingHelloWorld(t *testing.T) {
	raw := []byte{243, 72, 205, 201, 201, 87, 8, 207, 47, 202, 73, 81, 4, 0}
	src := &chunkedWouldBlockSource{data: raw}
	dec := NewDecoder(src)
	got := readAllNonBlocking(t, dec)
	if string(got) != "Hello World!" {
		t.Fatalf("got %q, want %q", got, "Hello World!")
	}
}
