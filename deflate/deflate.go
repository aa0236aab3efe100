// Package deflate implements the blocking DEFLATE (RFC-1951) encoder
// and decoder: block-type selection (stored / fixed-Huffman /
// dynamic-Huffman), the per-block symbol loop, and the outer
// BFINAL-driven stream state machine. See deflate/nonblocking for the
// non-blocking decoder variant.
package deflate

import "errors"

// ErrInvalidData is wrapped with context and returned for any
// malformed block header, reserved BTYPE, or corrupt symbol stream.
var ErrInvalidData = errors.New("deflate: invalid data")

const (
	btypeStored   = 0b00
	btypeFixed    = 0b01
	btypeDynamic  = 0b10
	btypeReserved = 0b11
)

// maxStoredBlockLength is the largest LEN a single stored block may
// declare; larger inputs are split across consecutive stored blocks.
const maxStoredBlockLength = 0xFFFF
