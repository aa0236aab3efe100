package seek

import (
	"fmt"
	"io"
	"net/http"
	"sync"
)

// RemoteSource is an io.ReaderAt over an HTTP object that honors Range
// requests, shaped for this package's access pattern: Reader and Build
// consume whole member spans, so each ReadAt maps to a single Range
// request rather than many small ones. Redirect and auth policy belong
// to the caller's http.Client.
type RemoteSource struct {
	client *http.Client
	url    string

	mu        sync.Mutex
	validator string // ETag (or Last-Modified) pinned on first response
}

// NewRemoteSource returns a RemoteSource fetching byte ranges of url
// through client (http.DefaultClient if nil).
func NewRemoteSource(client *http.Client, url string) *RemoteSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteSource{client: client, url: url}
}

// ReadAt implements io.ReaderAt with one Range request per call.
func (s *RemoteSource) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	req, err := http.NewRequest(http.MethodGet, s.url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1))

	res, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusPartialContent:
	case http.StatusRequestedRangeNotSatisfiable:
		return 0, io.EOF
	default:
		return 0, fmt.Errorf("seek: %q: want 206 Partial Content for range request, got %s", s.url, res.Status)
	}

	if err := s.pinValidator(res); err != nil {
		return 0, err
	}

	n, err := io.ReadFull(res.Body, p)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		// The range ran past the end of the object.
		return n, io.EOF
	}
	return n, err
}

// pinValidator records the first response's ETag (falling back to
// Last-Modified) and rejects any later response whose validator
// differs: an Index describes one object revision, and member bytes
// mixed from two revisions would decode garbage or tear checksums.
// An object that serves no validator at all is accepted as-is.
func (s *RemoteSource) pinValidator(res *http.Response) error {
	v := res.Header.Get("ETag")
	if v == "" {
		v = res.Header.Get("Last-Modified")
	}
	if v == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.validator == "" {
		s.validator = v
		return nil
	}
	if s.validator != v {
		return fmt.Errorf("seek: %q changed mid-index: validator %q, want %q", s.url, v, s.validator)
	}
	return nil
}
