// Package zlib implements the ZLIB wrapper format (RFC-1950): a 2-byte
// header around a raw DEFLATE stream, followed by a big-endian
// Adler-32 trailer of the uncompressed data.
package zlib

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/jonjohnsonjr/goflate/deflate"
	"github.com/jonjohnsonjr/goflate/lz77"
)

const compressionMethodDeflate = 8

// ErrInvalidData is wrapped with context and returned for any
// malformed header or checksum mismatch.
var ErrInvalidData = errors.New("zlib: invalid data")

// CompressionLevel is the 2-bit FLG.LEVEL hint ZLIB headers carry.
// Unlike deflate.CompressionLevel this is informational only: it does
// not affect decoding.
type CompressionLevel uint8

const (
	LevelFastest CompressionLevel = iota
	LevelFast
	LevelDefault
	LevelSlowest
)

func compressionLevelFromLZ77(level lz77.CompressionLevel) CompressionLevel {
	switch level {
	case lz77.LevelNone:
		return LevelFastest
	case lz77.LevelFast:
		return LevelFast
	case lz77.LevelBest:
		return LevelSlowest
	default:
		return LevelDefault
	}
}

// WindowSize is the 4-bit CINFO field, one of eight power-of-two sizes
// from 256 bytes to 32 KiB.
type WindowSize uint8

const (
	WindowSize256 WindowSize = iota
	WindowSize512
	WindowSize1K
	WindowSize2K
	WindowSize4K
	WindowSize8K
	WindowSize16K
	WindowSize32K
)

// Bytes returns the window size in bytes.
func (w WindowSize) Bytes() int {
	return 256 << uint(w)
}

// windowSizeFromBytes rounds size up to the next WindowSize, clamping
// to WindowSize32K for anything larger.
func windowSizeFromBytes(size int) WindowSize {
	switch {
	case size > 16384:
		return WindowSize32K
	case size > 8192:
		return WindowSize16K
	case size > 4096:
		return WindowSize8K
	case size > 2048:
		return WindowSize4K
	case size > 1024:
		return WindowSize2K
	case size > 512:
		return WindowSize1K
	case size > 256:
		return WindowSize512
	default:
		return WindowSize256
	}
}

// Header is the 2-byte ZLIB CMF/FLG header.
type Header struct {
	WindowSize       WindowSize
	CompressionLevel CompressionLevel
}

func headerFromEncodeOptions(opts deflate.EncodeOptions) Header {
	return Header{
		WindowSize:       windowSizeFromBytes(opts.WindowSize),
		CompressionLevel: compressionLevelFromLZ77(opts.CompressionLevel),
	}
}

func readHeader(r io.Reader) (Header, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Header{}, err
	}
	cmf, flg := hdr[0], hdr[1]
	check := uint16(cmf)<<8 | uint16(flg)
	if check%31 != 0 {
		return Header{}, fmt.Errorf("%w: CMF(%d)*256+FLG(%d) must be a multiple of 31", ErrInvalidData, cmf, flg)
	}

	method := cmf & 0b1111
	cinfo := cmf >> 4
	if method != compressionMethodDeflate {
		return Header{}, fmt.Errorf("%w: compression method %d is not DEFLATE(8)", ErrInvalidData, method)
	}
	if cinfo > 7 {
		return Header{}, fmt.Errorf("%w: CINFO above 7 is not allowed: %d", ErrInvalidData, cinfo)
	}

	if flg&0b100000 != 0 {
		var dictID [4]byte
		if _, err := io.ReadFull(r, dictID[:]); err != nil {
			return Header{}, err
		}
		id := binary.BigEndian.Uint32(dictID[:])
		return Header{}, fmt.Errorf("%w: preset dictionaries are not supported: dictionary_id=0x%x", ErrInvalidData, id)
	}

	return Header{
		WindowSize:       WindowSize(cinfo),
		CompressionLevel: CompressionLevel(flg >> 6),
	}, nil
}

func writeHeader(w io.Writer, h Header) error {
	cmf := byte(h.WindowSize)<<4 | compressionMethodDeflate
	flg := byte(h.CompressionLevel) << 6
	check := uint16(cmf)<<8 | uint16(flg)
	if rem := check % 31; rem != 0 {
		flg += byte(31 - rem)
	}
	_, err := w.Write([]byte{cmf, flg})
	return err
}
