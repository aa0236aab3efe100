package lz77

import "fmt"

// truncateThreshold is the buffer size at which Decoder rotates its
// tail to the front, per the sliding-window data-model note: growth
// beyond 4x the maximum distance triggers a rotation down to exactly
// MaxDistance bytes.
const truncateThreshold = MaxDistance * 4

// Decoder reassembles bytes from a stream of Codes. It owns a single
// contiguous, append-only buffer with a logical read cursor; rather
// than reallocate, the buffer's tail is periodically rotated to the
// front once it grows past truncateThreshold, bounding memory while
// keeping per-byte cost amortized O(1).
type Decoder struct {
	buffer []byte
	offset int // read cursor: buffer[offset:] is unread
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode applies one Code to the buffer.
func (d *Decoder) Decode(c Code) error {
	switch c.Kind {
	case KindLiteral:
		d.buffer = append(d.buffer, c.Literal)
	case KindPointer:
		dist := int(c.BackwardDistance)
		if len(d.buffer) < dist {
			return fmt.Errorf("lz77: too long backward reference: buffer.len=%d, distance=%d", len(d.buffer), dist)
		}
		d.rleExpand(dist, int(c.Length))
	default:
		return fmt.Errorf("lz77: invalid code kind %d", c.Kind)
	}
	return nil
}

// rleExpand appends length bytes copied from dist bytes back in the
// buffer. When length > dist the source region overlaps the
// destination and must be copied byte-by-byte so the repeating
// pattern it produces is itself read back as source data (a plain
// non-overlapping block copy would read zeros or stale data past the
// first dist bytes).
func (d *Decoder) rleExpand(dist, length int) {
	start := len(d.buffer) - dist
	d.buffer = append(d.buffer, make([]byte, length)...)
	dst := d.buffer[len(d.buffer)-length:]
	if dist >= length {
		copy(dst, d.buffer[start:start+length])
		return
	}
	src := d.buffer[start:]
	for i := 0; i < length; i++ {
		dst[i] = src[i]
	}
}

// ExtendFromSlice appends buf directly to the buffer, bypassing code
// decoding, for stored (uncompressed) DEFLATE blocks that still need
// to participate in the sliding window for later back-references.
func (d *Decoder) ExtendFromSlice(buf []byte) {
	d.buffer = append(d.buffer, buf...)
}

// Buffer returns the unread tail of the decoded output.
func (d *Decoder) Buffer() []byte {
	return d.buffer[d.offset:]
}

// Len returns the number of bytes held in the buffer (including
// already-read bytes still needed as back-reference history).
func (d *Decoder) Len() int {
	return len(d.buffer)
}

// Read copies from the unread tail into p, advancing the read cursor,
// and truncates the scrollback if it has grown too large.
func (d *Decoder) Read(p []byte) (int, error) {
	n := copy(p, d.buffer[d.offset:])
	d.offset += n
	d.TruncateOldBuffer()
	return n, nil
}

// TruncateOldBuffer rotates the buffer's last MaxDistance bytes to the
// front once its length exceeds truncateThreshold, so random-access
// back-references stay valid while older history is discarded. Unread
// bytes are never dropped: if the read cursor still sits inside the
// head that would be discarded, truncation is deferred until the
// caller has drained it.
func (d *Decoder) TruncateOldBuffer() {
	if len(d.buffer) <= truncateThreshold {
		return
	}
	drop := len(d.buffer) - MaxDistance
	if d.offset < drop {
		return
	}
	n := copy(d.buffer, d.buffer[drop:])
	d.buffer = d.buffer[:n]
	d.offset -= drop
}
