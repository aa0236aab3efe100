// Package lz77 implements the LZ77 sliding-window match finder and
// literal/back-reference emitter DEFLATE uses, plus its inverse: a
// decoder that reassembles bytes from a stream of Codes, including the
// overlapping run-length-decode semantics a back-reference whose
// length exceeds its distance requires.
package lz77

// MaxLength is the longest run of bytes a single Pointer can share.
const MaxLength = 258

// MaxDistance is the longest backward distance a single Pointer may
// reference, and the largest sliding window size.
const MaxDistance = 32768

// MaxWindowSize is an alias for MaxDistance: window_size and
// backward_distance share the same upper bound.
const MaxWindowSize = MaxDistance

// MinLength is the shortest match worth emitting as a Pointer; shorter
// runs are cheaper to emit as Literals.
const MinLength = 3

// Kind discriminates the two Code variants.
type Kind uint8

const (
	// KindLiteral carries a single decoded byte.
	KindLiteral Kind = iota
	// KindPointer carries a backward reference.
	KindPointer
)

// Code is one LZ77-encoded unit: either a literal byte or a backward
// pointer into previously emitted data.
type Code struct {
	Kind             Kind
	Literal          byte
	Length           uint16
	BackwardDistance uint16
}

// NewLiteral builds a literal Code.
func NewLiteral(b byte) Code { return Code{Kind: KindLiteral, Literal: b} }

// NewPointer builds a backward-reference Code.
func NewPointer(length, backwardDistance uint16) Code {
	return Code{Kind: KindPointer, Length: length, BackwardDistance: backwardDistance}
}

// CompressionLevel selects how much search effort the encoder spends
// looking for matches.
type CompressionLevel uint8

const (
	// LevelNone bypasses match finding entirely; every byte is a literal.
	LevelNone CompressionLevel = iota
	// LevelFast favors speed over ratio (short hash chains, no lazy match).
	LevelFast
	// LevelBalance is the default: moderate chain depth, lazy matching enabled.
	LevelBalance
	// LevelBest favors ratio over speed (long hash chains, lazy matching).
	LevelBest
)

// Sink consumes a stream of Codes as an encoder produces them.
type Sink interface {
	Consume(Code)
}

// SliceSink is a Sink that appends every Code to a slice.
type SliceSink struct {
	Codes []Code
}

// Consume implements Sink.
func (s *SliceSink) Consume(c Code) { s.Codes = append(s.Codes, c) }

// Encoder is the interface every LZ77 match finder implements.
type Encoder interface {
	// Encode consumes buf, feeding Codes to sink as matches are found.
	// Implementations may buffer a small tail to find matches spanning
	// calls; Flush must be called to force that tail out.
	Encode(buf []byte, sink Sink)

	// Flush emits any codes for buffered-but-not-yet-matched bytes.
	Flush(sink Sink)

	// CompressionLevel reports the configured search effort.
	CompressionLevel() CompressionLevel

	// WindowSize reports the configured sliding-window size.
	WindowSize() int
}

// NoCompressionEncoder is a trivial Encoder that emits every byte as a
// Literal, used when compression is disabled or a stored block was
// selected.
type NoCompressionEncoder struct{}

// Encode implements Encoder.
func (NoCompressionEncoder) Encode(buf []byte, sink Sink) {
	for _, b := range buf {
		sink.Consume(NewLiteral(b))
	}
}

// Flush implements Encoder.
func (NoCompressionEncoder) Flush(Sink) {}

// CompressionLevel implements Encoder.
func (NoCompressionEncoder) CompressionLevel() CompressionLevel { return LevelNone }

// WindowSize implements Encoder.
func (NoCompressionEncoder) WindowSize() int { return MaxWindowSize }
