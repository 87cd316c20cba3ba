// Package snapshot captures immutable copies of outgoing requests and their responses for logging.
package snapshot

import (
	"fmt"
	"net/http"
	"strconv"
)

// Request is a point in time copy of an outgoing request.
type Request struct {
	Host            string      `json:"host"`
	Port            *int        `json:"port,omitempty"`
	URL             string      `json:"url"`
	Path            string      `json:"path"`
	Scheme          string      `json:"scheme"`
	Headers         http.Header `json:"headers"`
	ProtocolVersion string      `json:"protocol_version"`
	Method          string      `json:"method"`
	// Body is nil when the request has no body or it could not be read.
	Body *string `json:"body"`
}

// CaptureRequest copies req. A seekable body is read from its start and left at the position it had
// before the capture.
func CaptureRequest(req *http.Request) *Request {
	snap := &Request{
		Host:            req.URL.Hostname(),
		Port:            port(req.URL.Port()),
		URL:             req.URL.String(),
		Path:            req.URL.Path,
		Scheme:          req.URL.Scheme,
		Headers:         req.Header.Clone(),
		ProtocolVersion: protocolVersion(req.ProtoMajor, req.ProtoMinor),
		Method:          req.Method,
	}

	if snap.Headers == nil {
		snap.Headers = http.Header{}
	}

	if data, ok := requestBody(req); ok {
		body := string(data)
		snap.Body = &body
	}

	return snap
}

func port(value string) *int {
	if value == "" {
		return nil
	}

	p, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}

	return &p
}

func protocolVersion(major, minor int) string {
	// Outgoing requests built with http.NewRequest default to HTTP/1.1.
	if major == 0 {
		return "1.1"
	}

	return fmt.Sprintf("%d.%d", major, minor)
}
