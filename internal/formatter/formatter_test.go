package formatter

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFormatter(template string) *Formatter {
	f := New(template)
	f.now = func() time.Time { return time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC) }
	f.hostname = func() (string, error) { return "worker-1", nil }

	return f
}

func newExchange(t *testing.T) (*http.Request, *http.Response) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, "http://example.com/api/v4/users?page=2", nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "httpwatch")

	resp := &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{"Content-Length": {"5"}},
		Body:       io.NopCloser(strings.NewReader("Hello")),
	}

	return req, resp
}

func TestFormat(t *testing.T) {
	req, resp := newExchange(t)

	testCases := []struct {
		desc     string
		template string
		resp     *http.Response
		err      error
		want     string
	}{
		{
			desc: "common log format",
			resp: resp,
			want: `worker-1 httpwatch - [05/Mar/2024:10:30:00 +0000] "GET /api/v4/users?page=2 HTTP/1.1" 200 5`,
		},
		{
			desc:     "short",
			template: Short,
			resp:     resp,
			want:     `[2024-03-05T10:30:00Z] "GET /api/v4/users?page=2 HTTP/1.1" 200`,
		},
		{
			desc:     "failure without response",
			template: "{method} {uri} {code} {phrase} {error}",
			err:      errors.New("connection refused"),
			want:     "GET http://example.com/api/v4/users?page=2 NULL NULL connection refused",
		},
		{
			desc:     "bodies and unknown placeholders",
			template: "{res_body}|{unknown}|{host}",
			resp:     resp,
			want:     "Hello||example.com",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.Equal(t, tc.want, newFormatter(tc.template).Format(req, tc.resp, tc.err))
		})
	}
}

func TestFormatDebugKeepsBodyReadable(t *testing.T) {
	req, resp := newExchange(t)

	out := newFormatter(Debug).Format(req, resp, nil)

	assert.Contains(t, out, "GET /api/v4/users?page=2 HTTP/1.1")
	assert.Contains(t, out, "HTTP/1.1 200 OK")
	assert.Contains(t, out, "Hello")
	assert.True(t, strings.HasSuffix(out, "NULL"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(body))
}
