// Package seek builds a random-access index over a concatenated
// multi-member GZIP stream and serves io.ReaderAt reads against it by
// resuming decode at the nearest member boundary rather than the
// stream's start. A raw DEFLATE stream is only resumable at block
// boundaries this package does not track, but a GZIP stream built as
// many small concatenated members (as bgzf and docker-layer-style
// tooling produces) is resumable at every member header, which is what
// Build and Reader exploit.
package seek

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jonjohnsonjr/goflate/gzip"
)

// Checkpoint marks the start of one GZIP member: In is its first
// header byte's offset in the compressed stream, Out is the
// decompressed byte offset that corresponds to.
type Checkpoint struct {
	In  int64 `json:"in"`
	Out int64 `json:"out"`
}

// Index is the JSON-serializable metadata a Reader needs to seek
// within a GZIP stream without rescanning it from the start.
type Index struct {
	Checkpoints []Checkpoint `json:"checkpoints"`
	Size        int64        `json:"size"`
}

// Encode writes idx as JSON to w.
func (idx *Index) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(idx)
}

// DecodeIndex reads an Index previously written by Encode.
func DecodeIndex(r io.Reader) (*Index, error) {
	idx := &Index{}
	if err := json.NewDecoder(r).Decode(idx); err != nil {
		return nil, err
	}
	return idx, nil
}

// countingReader tracks how many bytes have been read through it, so
// Build can learn a member's compressed length without gzip.Decoder
// needing to expose one directly.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Build scans every member of the size-byte GZIP stream backed by ra,
// sequentially (each member's compressed length is only known once it
// has been decoded), and returns an Index recording every member's
// Checkpoint.
func Build(ra io.ReaderAt, size int64) (*Index, error) {
	idx := &Index{Size: size}
	var in, out int64
	for in < size {
		sr := io.NewSectionReader(ra, in, size-in)
		cr := &countingReader{r: sr}
		dec, err := gzip.NewDecoder(cr)
		if err != nil {
			return nil, fmt.Errorf("seek: member at offset %d: %w", in, err)
		}
		idx.Checkpoints = append(idx.Checkpoints, Checkpoint{In: in, Out: out})
		n, err := io.Copy(io.Discard, dec)
		if err != nil {
			return nil, fmt.Errorf("seek: decoding member at offset %d: %w", in, err)
		}
		out += n
		in += cr.n
	}
	return idx, nil
}

// Verify concurrently re-decodes every member Build already located
// and confirms each one's CRC-32/ISIZE trailer checks out, bounding
// concurrency to GOMAXPROCS via errgroup.Group. Unlike Build, every
// member here is already known and self-contained, so the work is
// embarrassingly parallel.
func (idx *Index) Verify(ctx context.Context, ra io.ReaderAt) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, cp := range idx.Checkpoints {
		cp := cp
		end := idx.Size
		if i+1 < len(idx.Checkpoints) {
			end = idx.Checkpoints[i+1].In
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sr := io.NewSectionReader(ra, cp.In, end-cp.In)
			dec, err := gzip.NewDecoder(sr)
			if err != nil {
				return fmt.Errorf("seek: member at offset %d: %w", cp.In, err)
			}
			_, err = io.Copy(io.Discard, dec)
			return err
		})
	}
	return g.Wait()
}

// Reader serves io.ReaderAt reads against a GZIP stream by decoding
// forward from the nearest checkpoint at or before the requested
// offset. Concurrent ReadAt calls landing in the same member share one
// in-flight decode via singleflight rather than decoding it once per
// caller.
type Reader struct {
	ra  io.ReaderAt
	idx *Index

	group singleflight.Group

	mu    sync.Mutex
	cache map[int64][]byte // member start offset -> full decompressed member body
}

// NewReader returns a Reader over ra using the already-built idx.
func NewReader(ra io.ReaderAt, idx *Index) *Reader {
	return &Reader{ra: ra, idx: idx, cache: make(map[int64][]byte)}
}

// checkpointFor returns the checkpoint covering decompressed offset
// off, and the compressed offset the next member (or stream end)
// starts at.
func (r *Reader) checkpointFor(off int64) (Checkpoint, int64, error) {
	var best Checkpoint
	found := false
	end := r.idx.Size
	for i, cp := range r.idx.Checkpoints {
		if cp.Out > off {
			break
		}
		best, found = cp, true
		if i+1 < len(r.idx.Checkpoints) {
			end = r.idx.Checkpoints[i+1].In
		} else {
			end = r.idx.Size
		}
	}
	if !found {
		return Checkpoint{}, 0, fmt.Errorf("seek: no checkpoint covers offset %d", off)
	}
	return best, end, nil
}

func (r *Reader) member(cp Checkpoint, end int64) ([]byte, error) {
	r.mu.Lock()
	if body, ok := r.cache[cp.In]; ok {
		r.mu.Unlock()
		return body, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do(fmt.Sprintf("%d", cp.In), func() (any, error) {
		sr := io.NewSectionReader(r.ra, cp.In, end-cp.In)
		dec, err := gzip.NewDecoder(sr)
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(dec)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[cp.In] = body
		r.mu.Unlock()
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// ReadAt implements io.ReaderAt over the decompressed byte stream,
// walking into the next member whenever a read spans a member
// boundary.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	total := 0
	for total < len(p) {
		cp, end, err := r.checkpointFor(off)
		if err != nil {
			return total, err
		}
		body, err := r.member(cp, end)
		if err != nil {
			return total, err
		}
		within := off - cp.Out
		if within < 0 || within >= int64(len(body)) {
			// Past the last member's decompressed bytes.
			return total, io.EOF
		}
		n := copy(p[total:], body[within:])
		total += n
		off += int64(n)
	}
	return total, nil
}
