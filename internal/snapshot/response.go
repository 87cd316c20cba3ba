package snapshot

import (
	"net/http"
	"strconv"
	"strings"
)

// BodyLogDisabled replaces the response body when body logging is turned off.
const BodyLogDisabled = "httpwatch: [response body log disabled]"

// Response is a point in time copy of a received response.
type Response struct {
	StatusCode      int         `json:"status_code"`
	StatusPhrase    string      `json:"status_phrase"`
	Headers         http.Header `json:"headers"`
	ProtocolVersion string      `json:"protocol_version"`
	Body            string      `json:"body"`
}

// CaptureResponse copies resp. When includeBody is false the body is not read and BodyLogDisabled is
// stored instead. A captured body is left rewound to its start.
func CaptureResponse(resp *http.Response, includeBody bool) *Response {
	snap := &Response{
		StatusCode:      resp.StatusCode,
		StatusPhrase:    statusPhrase(resp),
		Headers:         resp.Header.Clone(),
		ProtocolVersion: protocolVersion(resp.ProtoMajor, resp.ProtoMinor),
	}

	if snap.Headers == nil {
		snap.Headers = http.Header{}
	}

	if !includeBody {
		snap.Body = BodyLogDisabled
		return snap
	}

	if data, ok := responseBody(resp); ok {
		snap.Body = string(data)
	}

	return snap
}

func statusPhrase(resp *http.Response) string {
	if phrase, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); ok {
		return phrase
	}

	return http.StatusText(resp.StatusCode)
}
