package deflate

import (
	"fmt"
	"io"

	"github.com/jonjohnsonjr/goflate/bit"
	"github.com/jonjohnsonjr/goflate/huffman"
	"github.com/jonjohnsonjr/goflate/internal/symbol"
	"github.com/jonjohnsonjr/goflate/lz77"
)

// CompressionLevel selects the LZ77 match-finder's search effort.
type CompressionLevel = lz77.CompressionLevel

// The four compression levels, re-exported from lz77 so callers of
// this package never need to import it directly.
const (
	LevelNone    = lz77.LevelNone
	LevelFast    = lz77.LevelFast
	LevelBalance = lz77.LevelBalance
	LevelBest    = lz77.LevelBest
)

// HuffmanSelection picks which of the two compressed block encodings
// the encoder emits.
type HuffmanSelection uint8

const (
	// HuffmanDynamic builds a per-block optimal Huffman code via
	// package-merge (the default).
	HuffmanDynamic HuffmanSelection = iota
	// HuffmanFixed always uses the RFC-1951 fixed tables.
	HuffmanFixed
)

// EncodeOptions configures an Encoder.
type EncodeOptions struct {
	// BlockSize caps how many LZ77 codes accumulate before a block is
	// flushed. Default 1<<20.
	BlockSize int
	// CompressionLevel selects match-finder effort; LevelNone disables
	// matching and forces stored blocks.
	CompressionLevel CompressionLevel
	// HuffmanSelection picks fixed vs dynamic compressed blocks.
	HuffmanSelection HuffmanSelection
	// WindowSize bounds the LZ77 sliding window, in [1, lz77.MaxWindowSize].
	WindowSize int
}

// DefaultEncodeOptions returns the default options: blocks of 1<<20 codes,
// balanced compression, dynamic Huffman, full-size window.
func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		BlockSize:        1 << 20,
		CompressionLevel: lz77.LevelBalance,
		HuffmanSelection: HuffmanDynamic,
		WindowSize:       lz77.MaxWindowSize,
	}
}

// Encoder is a blocking DEFLATE stream encoder: Write buffers bytes
// through the LZ77 match finder, flushing a block whenever BlockSize
// codes accumulate; Finish emits the final block and byte-aligns the
// output.
type Encoder struct {
	w         *bit.Writer
	opts      EncodeOptions
	lzEncoder lz77.Encoder
	codes     []lz77.Code
	closed    bool
}

// NewEncoder wraps w with the default options.
func NewEncoder(w io.Writer) *Encoder {
	return NewEncoderOptions(w, DefaultEncodeOptions())
}

// NewEncoderOptions wraps w with explicit options.
func NewEncoderOptions(w io.Writer, opts EncodeOptions) *Encoder {
	var lzEnc lz77.Encoder
	if opts.CompressionLevel == lz77.LevelNone {
		lzEnc = lz77.NoCompressionEncoder{}
	} else {
		lzEnc = lz77.NewHashChainEncoderWindow(opts.CompressionLevel, opts.WindowSize)
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = DefaultEncodeOptions().BlockSize
	}
	return &Encoder{w: bit.NewWriter(w), opts: opts, lzEncoder: lzEnc}
}

type codeSink struct {
	codes []lz77.Code
}

func (s *codeSink) Consume(c lz77.Code) { s.codes = append(s.codes, c) }

// Write implements io.Writer; it always succeeds with len(p) (DEFLATE
// buffers internally and only produces output on block boundaries).
func (e *Encoder) Write(p []byte) (int, error) {
	if e.closed {
		return 0, fmt.Errorf("deflate: Write after Finish")
	}
	sink := &codeSink{}
	e.lzEncoder.Encode(p, sink)
	e.codes = append(e.codes, sink.codes...)
	for len(e.codes) >= e.opts.BlockSize {
		if err := e.flushBlock(e.codes[:e.opts.BlockSize], false); err != nil {
			return 0, err
		}
		e.codes = e.codes[e.opts.BlockSize:]
	}
	return len(p), nil
}

// Finish emits the final block (BFINAL=1) and byte-aligns the bit
// writer. It must be called exactly once to produce a valid stream.
func (e *Encoder) Finish() error {
	if e.closed {
		return nil
	}
	e.closed = true
	sink := &codeSink{}
	e.lzEncoder.Flush(sink)
	e.codes = append(e.codes, sink.codes...)
	if err := e.flushBlock(e.codes, true); err != nil {
		return err
	}
	e.codes = nil
	return e.w.Flush()
}

func (e *Encoder) flushBlock(codes []lz77.Code, final bool) error {
	if e.opts.CompressionLevel == lz77.LevelNone {
		raw, _ := literalBytes(codes)
		return e.writeStoredBlocks(raw, final)
	}
	if e.opts.HuffmanSelection == HuffmanFixed {
		if raw, ok := literalBytes(codes); ok {
			cost := 3 + symbol.BitCost(codes, symbol.FixedLiteralWidths(), symbol.FixedDistanceWidths())
			if storedBitCost(len(raw)) < cost {
				return e.writeStoredBlocks(raw, final)
			}
		}
		return e.writeFixedBlock(codes, final)
	}
	litFreq, distFreq := symbol.CountFrequencies(codes)
	litWidths := huffman.PackageMerge(litFreq, huffman.MaxBitwidth)
	distWidths := huffman.PackageMerge(distFreq, huffman.MaxBitwidth)
	if raw, ok := literalBytes(codes); ok {
		cost := 3 + symbol.DynamicHeaderBitCost(litWidths, distWidths) +
			symbol.BitCost(codes, litWidths, distWidths)
		if storedBitCost(len(raw)) < cost {
			return e.writeStoredBlocks(raw, final)
		}
	}
	return e.writeDynamicBlock(codes, final, litWidths, distWidths)
}

// literalBytes returns the raw bytes codes represents when it contains
// no back-references. A block can only fall back to stored form when
// its original bytes are all still present as literals; once a pointer
// into an earlier block exists, the raw data is gone.
func literalBytes(codes []lz77.Code) ([]byte, bool) {
	raw := make([]byte, len(codes))
	for i, c := range codes {
		if c.Kind != lz77.KindLiteral {
			return nil, false
		}
		raw[i] = c.Literal
	}
	return raw, true
}

// storedBitCost is the bit cost of carrying n raw bytes as stored
// blocks: per chunk, 3 header bits rounded up to the byte boundary
// plus LEN/NLEN, then the bytes themselves.
func storedBitCost(n int) int {
	chunks := (n + maxStoredBlockLength - 1) / maxStoredBlockLength
	if chunks == 0 {
		chunks = 1
	}
	return chunks*(8+32) + n*8
}

func (e *Encoder) writeStoredBlocks(raw []byte, final bool) error {
	if len(raw) == 0 {
		return e.writeStoredChunk(nil, final)
	}
	for len(raw) > 0 {
		n := len(raw)
		if n > maxStoredBlockLength {
			n = maxStoredBlockLength
		}
		chunk := raw[:n]
		raw = raw[n:]
		last := final && len(raw) == 0
		if err := e.writeStoredChunk(chunk, last); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeStoredChunk(chunk []byte, final bool) error {
	if err := e.w.WriteBit(final); err != nil {
		return err
	}
	if err := e.w.WriteBits(2, btypeStored); err != nil {
		return err
	}
	length := uint16(len(chunk))
	nlength := ^length
	header := []byte{byte(length), byte(length >> 8), byte(nlength), byte(nlength >> 8)}
	if err := e.w.WriteRawBytes(header); err != nil {
		return err
	}
	if len(chunk) == 0 {
		return nil
	}
	return e.w.WriteRawBytes(chunk)
}

func (e *Encoder) writeFixedBlock(codes []lz77.Code, final bool) error {
	if err := e.w.WriteBit(final); err != nil {
		return err
	}
	if err := e.w.WriteBits(2, btypeFixed); err != nil {
		return err
	}
	return e.writeSymbols(symbol.NewFixedEncoder(), codes)
}

func (e *Encoder) writeDynamicBlock(codes []lz77.Code, final bool, litWidths, distWidths []uint8) error {
	if err := e.w.WriteBit(final); err != nil {
		return err
	}
	if err := e.w.WriteBits(2, btypeDynamic); err != nil {
		return err
	}
	enc, err := symbol.NewDynamicEncoder(e.w, litWidths, distWidths)
	if err != nil {
		return err
	}
	return e.writeSymbols(enc, codes)
}

func (e *Encoder) writeSymbols(enc *symbol.Encoder, codes []lz77.Code) error {
	for _, c := range codes {
		if err := enc.Encode(e.w, symbol.Symbol{Kind: symbol.KindCode, Code: c}); err != nil {
			return err
		}
	}
	return enc.Encode(e.w, symbol.Symbol{Kind: symbol.KindEndOfBlock})
}
