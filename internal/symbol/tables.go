// Package symbol implements the DEFLATE literal/length/distance symbol
// alphabets: the fixed and dynamic Huffman codec selection, the
// length/distance base+extra-bits tables, and the RLE meta-alphabet
// (16/17/18) used to serialize a dynamic block's code-length arrays.
// It is shared between the blocking deflate decoder/encoder and the
// deflate/nonblocking state machine so both read the alphabet off one
// definition.
package symbol

// EndOfBlockSymbol is the literal-alphabet code signaling the end of a
// compressed block's symbol stream.
const EndOfBlockSymbol = 256

// NumLiteralSymbols is the size of the literal/length alphabet: 256
// literal byte values, EndOfBlock, and 29 length codes (257-285).
const NumLiteralSymbols = 286

// NumDistanceSymbols is the size of the distance alphabet.
const NumDistanceSymbols = 30

// NumCodeLengthSymbols is the size of the meta-alphabet used to
// serialize a dynamic block's code-length arrays.
const NumCodeLengthSymbols = 19

// CodeLengthOrder is the fixed, RFC-1951-mandated order in which a
// dynamic block's HCLEN+4 code-length-alphabet bitwidths are
// transmitted.
var CodeLengthOrder = [NumCodeLengthSymbols]int{
	16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15,
}

// lengthBase/lengthExtraBits give, for length-alphabet codes 257-285
// (index = code-257), the smallest length that code represents and how
// many extra bits follow to refine it, per RFC-1951 §3.2.5.
var lengthBase = [29]uint16{
	3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
	35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
}

var lengthExtraBits = [29]uint8{
	0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
	3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
}

// distBase/distExtraBits are the distance-alphabet equivalent.
var distBase = [30]uint16{
	1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
	257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577,
}

var distExtraBits = [30]uint8{
	0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
	7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
}

// lengthToSymbol returns the length-alphabet code for length (in
// [3,258]), the number of extra bits that follow, and their value.
func lengthToSymbol(length uint16) (sym uint16, extraBits uint8, extraVal uint16) {
	for i := len(lengthBase) - 1; i >= 0; i-- {
		if length >= lengthBase[i] {
			return uint16(257 + i), lengthExtraBits[i], length - lengthBase[i]
		}
	}
	panic("symbol: length out of range")
}

func symbolToLength(sym uint16, extraVal uint16) uint16 {
	return lengthBase[sym-257] + extraVal
}

func lengthExtraBitsForSymbol(sym uint16) uint8 {
	return lengthExtraBits[sym-257]
}

// distanceToSymbol returns the distance-alphabet code for dist (in
// [1,32768]), the number of extra bits that follow, and their value.
func distanceToSymbol(dist uint16) (sym uint16, extraBits uint8, extraVal uint16) {
	for i := len(distBase) - 1; i >= 0; i-- {
		if dist >= distBase[i] {
			return uint16(i), distExtraBits[i], dist - distBase[i]
		}
	}
	panic("symbol: distance out of range")
}

func symbolToDistance(sym uint16, extraVal uint16) uint16 {
	return distBase[sym] + extraVal
}

func distExtraBitsForSymbol(sym uint16) uint8 {
	return distExtraBits[sym]
}

// FixedLiteralWidths returns the RFC-1951 §3.2.6 fixed literal/length
// bitwidths: 0-143 use 8 bits, 144-255 use 9, 256-279 use 7, 280-287
// use 8.
func FixedLiteralWidths() []uint8 {
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

// FixedDistanceWidths returns the fixed distance bitwidths: all 30
// symbols use 5 bits equal to the symbol value.
func FixedDistanceWidths() []uint8 {
	widths := make([]uint8, NumDistanceSymbols)
	for i := range widths {
		widths[i] = 5
	}
	return widths
}
