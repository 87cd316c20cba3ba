package snapshot

import (
	"bytes"
	"io"
	"net/http"
)

// seekableBody is a rewindable in-memory body installed in place of a body that had to be consumed
// during capture.
type seekableBody struct {
	*bytes.Reader
}

func (seekableBody) Close() error { return nil }

// NewSeekableBody returns an io.ReadCloser over data that also implements io.Seeker.
func NewSeekableBody(data []byte) io.ReadCloser {
	return seekableBody{Reader: bytes.NewReader(data)}
}

// readSeekable reads the whole content of a seekable body and restores its read position.
func readSeekable(s io.ReadSeeker) ([]byte, bool) {
	pos, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, false
	}

	defer func() { _, _ = s.Seek(pos, io.SeekStart) }()

	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return nil, false
	}

	data, err := io.ReadAll(s)
	if err != nil {
		return nil, false
	}

	return data, true
}

// requestBody captures the request body without disturbing what the transport will send.
func requestBody(req *http.Request) ([]byte, bool) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, false
	}

	if s, ok := req.Body.(io.ReadSeeker); ok {
		return readSeekable(s)
	}

	if req.GetBody != nil {
		rc, err := req.GetBody()
		if err != nil {
			return nil, false
		}
		defer func() { _ = rc.Close() }()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, false
		}

		return data, true
	}

	// The reader can only be consumed once: keep the bytes and hand the transport a seekable copy.
	// This replaces req.Body in place, which a RoundTripper must not do; the copy sends the same bytes.
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	req.Body = NewSeekableBody(data)
	if err != nil {
		return nil, false
	}

	return data, true
}

// responseBody captures the response body and leaves it positioned at its start.
func responseBody(resp *http.Response) ([]byte, bool) {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, true
	}

	if s, ok := resp.Body.(io.ReadSeeker); ok {
		data, ok := readSeekable(s)
		if ok {
			_, _ = s.Seek(0, io.SeekStart)
		}
		return data, ok
	}

	// The caller receives this response: it gets an in-memory copy of the body we consumed.
	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = NewSeekableBody(data)
	if err != nil {
		return nil, false
	}

	return data, true
}

// BufferBody reads body into memory, closes it and returns a seekable replacement. A nil body stays nil.
func BufferBody(body io.ReadCloser) io.ReadCloser {
	if body == nil || body == http.NoBody {
		return body
	}

	if _, ok := body.(seekableBody); ok {
		return body
	}

	data, _ := io.ReadAll(body)
	_ = body.Close()

	return NewSeekableBody(data)
}
