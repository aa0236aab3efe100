// Package gzip implements the GZIP wrapper format (RFC-1952): a variable
// header around a raw DEFLATE stream, followed by a little-endian
// CRC-32 + ISIZE trailer. Decoder reads a single member; MultiDecoder
// additionally supports concatenated multi-member streams, decoding and
// joining each member in turn.
package gzip

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/jonjohnsonjr/goflate/checksum"
)

var (
	gzipID                 = [2]byte{0x1F, 0x8B}
	compressionMethodFlate = byte(8)
)

const (
	flagText    = 1 << 0
	flagHCRC    = 1 << 1
	flagExtra   = 1 << 2
	flagName    = 1 << 3
	flagComment = 1 << 4
)

// OS is the 1-byte OS field identifying the filesystem the archive was
// created on, per RFC-1952 §2.3.1.
type OS uint8

const (
	OSFAT         OS = 0
	OSAmiga       OS = 1
	OSVMS         OS = 2
	OSUnix        OS = 3
	OSVMCMS       OS = 4
	OSAtariTOS    OS = 5
	OSHPFS        OS = 6
	OSMacintosh   OS = 7
	OSZSystem     OS = 8
	OSCPM         OS = 9
	OSTOPS20      OS = 10
	OSNTFS        OS = 11
	OSQDOS        OS = 12
	OSAcornRISCOS OS = 13
	OSUnknown     OS = 255
)

// CompressionLevel is the 1-byte XFL hint GZIP headers carry. Like
// ZLIB's level hint, this is informational only and never consulted by
// the decoder.
type CompressionLevel uint8

const (
	LevelUnknown CompressionLevel = 0
	LevelSlowest CompressionLevel = 2
	LevelFastest CompressionLevel = 4
)

// ErrInvalidData is wrapped with context and returned for any malformed
// header or checksum mismatch.
var ErrInvalidData = errors.New("gzip: invalid data")

// ExtraField is the optional FEXTRA subfield: a 2-byte id and its
// payload.
type ExtraField struct {
	ID   [2]byte
	Data []byte
}

// Header is the parsed/synthesized GZIP header.
type Header struct {
	ModTime          uint32
	CompressionLevel CompressionLevel
	OS               OS
	IsText           bool
	Extra            *ExtraField
	Name             string
	Comment          string
	// VerifyHeaderCRC requests (on encode) or reports (on decode)
	// whether a 16-bit header CRC (FHCRC) accompanies the header.
	VerifyHeaderCRC bool
}

// HeaderBuilder constructs a Header field by field, mirroring the
// upstream HeaderBuilder this format's header construction was
// distilled from: a small fluent builder rather than a struct literal,
// since most callers only ever set one or two of these fields.
type HeaderBuilder struct {
	h Header
}

// NewHeaderBuilder returns a builder defaulting to OSUnix, no name,
// comment, extra field, or header CRC, and ModTime left at 0 (callers
// that want "now" must set it explicitly, since this package never
// reads the wall clock).
func NewHeaderBuilder() *HeaderBuilder {
	return &HeaderBuilder{h: Header{OS: OSUnix}}
}

func (b *HeaderBuilder) ModTime(t uint32) *HeaderBuilder {
	b.h.ModTime = t
	return b
}

func (b *HeaderBuilder) OS(os OS) *HeaderBuilder {
	b.h.OS = os
	return b
}

func (b *HeaderBuilder) Text() *HeaderBuilder {
	b.h.IsText = true
	return b
}

func (b *HeaderBuilder) VerifyHeader() *HeaderBuilder {
	b.h.VerifyHeaderCRC = true
	return b
}

func (b *HeaderBuilder) ExtraField(e ExtraField) *HeaderBuilder {
	b.h.Extra = &e
	return b
}

func (b *HeaderBuilder) Name(name string) *HeaderBuilder {
	b.h.Name = name
	return b
}

func (b *HeaderBuilder) Comment(comment string) *HeaderBuilder {
	b.h.Comment = comment
	return b
}

// Finish returns the constructed Header.
func (b *HeaderBuilder) Finish() Header {
	return b.h
}

func (h Header) flags() byte {
	var f byte
	if h.IsText {
		f |= flagText
	}
	if h.VerifyHeaderCRC {
		f |= flagHCRC
	}
	if h.Extra != nil {
		f |= flagExtra
	}
	if h.Name != "" {
		f |= flagName
	}
	if h.Comment != "" {
		f |= flagComment
	}
	return f
}

// writeBody writes everything but the optional trailing HCRC, so
// crc16 can compute the checksum over exactly the bytes that precede
// it.
func (h Header) writeBody(w io.Writer) error {
	if _, err := w.Write(gzipID[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{compressionMethodFlate, h.flags()}); err != nil {
		return err
	}
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], h.ModTime)
	if _, err := w.Write(u32[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(h.CompressionLevel), byte(h.OS)}); err != nil {
		return err
	}
	if h.Extra != nil {
		if _, err := w.Write(h.Extra.ID[:]); err != nil {
			return err
		}
		var u16 [2]byte
		binary.LittleEndian.PutUint16(u16[:], uint16(len(h.Extra.Data)))
		if _, err := w.Write(u16[:]); err != nil {
			return err
		}
		if _, err := w.Write(h.Extra.Data); err != nil {
			return err
		}
	}
	if h.Name != "" {
		if _, err := w.Write(append([]byte(h.Name), 0)); err != nil {
			return err
		}
	}
	if h.Comment != "" {
		if _, err := w.Write(append([]byte(h.Comment), 0)); err != nil {
			return err
		}
	}
	return nil
}

func (h Header) crc16() uint16 {
	var buf bytes.Buffer
	h.writeBody(&buf)
	c := checksum.NewCRC32()
	c.Write(buf.Bytes())
	return uint16(c.Sum32())
}

func writeHeader(w io.Writer, h Header) error {
	if err := h.writeBody(w); err != nil {
		return err
	}
	if h.VerifyHeaderCRC {
		var u16 [2]byte
		binary.LittleEndian.PutUint16(u16[:], h.crc16())
		if _, err := w.Write(u16[:]); err != nil {
			return err
		}
	}
	return nil
}

func readCString(r io.Reader) (string, error) {
	var buf []byte
	var b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", err
		}
		if b[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, b[0])
	}
}

func readHeader(r io.Reader) (Header, error) {
	// crcBuf records every byte consumed from the header so crc16 can
	// be recomputed over exactly what the encoder hashed.
	var crcBuf bytes.Buffer
	tr := io.TeeReader(r, &crcBuf)

	var id [2]byte
	if _, err := io.ReadFull(tr, id[:]); err != nil {
		return Header{}, err
	}
	if id != gzipID {
		return Header{}, fmt.Errorf("%w: unexpected magic %v, want %v", ErrInvalidData, id, gzipID)
	}
	var methodFlags [2]byte
	if _, err := io.ReadFull(tr, methodFlags[:]); err != nil {
		return Header{}, err
	}
	method, flags := methodFlags[0], methodFlags[1]
	if method != compressionMethodFlate {
		return Header{}, fmt.Errorf("%w: compression method %d is not DEFLATE(8)", ErrInvalidData, method)
	}

	var rest [6]byte
	if _, err := io.ReadFull(tr, rest[:]); err != nil {
		return Header{}, err
	}
	h := Header{
		ModTime:          binary.LittleEndian.Uint32(rest[0:4]),
		CompressionLevel: CompressionLevel(rest[4]),
		OS:               OS(rest[5]),
		IsText:           flags&flagText != 0,
	}

	if flags&flagExtra != 0 {
		var ef ExtraField
		if _, err := io.ReadFull(tr, ef.ID[:]); err != nil {
			return Header{}, err
		}
		var lenBuf [2]byte
		if _, err := io.ReadFull(tr, lenBuf[:]); err != nil {
			return Header{}, err
		}
		ef.Data = make([]byte, binary.LittleEndian.Uint16(lenBuf[:]))
		if _, err := io.ReadFull(tr, ef.Data); err != nil {
			return Header{}, err
		}
		h.Extra = &ef
	}
	if flags&flagName != 0 {
		name, err := readCString(tr)
		if err != nil {
			return Header{}, err
		}
		h.Name = name
	}
	if flags&flagComment != 0 {
		comment, err := readCString(tr)
		if err != nil {
			return Header{}, err
		}
		h.Comment = comment
	}
	if flags&flagHCRC != 0 {
		var u16 [2]byte
		if _, err := io.ReadFull(r, u16[:]); err != nil {
			return Header{}, err
		}
		got := binary.LittleEndian.Uint16(u16[:])
		c := checksum.NewCRC32()
		c.Write(crcBuf.Bytes())
		want := uint16(c.Sum32())
		if got != want {
			return Header{}, fmt.Errorf("%w: header CRC16 mismatch: got=%#x want=%#x", ErrInvalidData, got, want)
		}
		h.VerifyHeaderCRC = true
	}
	return h, nil
}

func writeTrailer(w io.Writer, crc32, isize uint32) error {
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[0:4], crc32)
	binary.LittleEndian.PutUint32(buf[4:8], isize)
	_, err := w.Write(buf[:])
	return err
}

func readTrailer(r io.Reader) (crc32, isize uint32, err error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint32(buf[0:4]), binary.LittleEndian.Uint32(buf[4:8]), nil
}
