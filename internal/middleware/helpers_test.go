package middleware

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/gitlab-org/httpwatch/internal/pipeline"
)

var errUnreachable = errors.New("dial tcp: connection refused")

func newRequest(t *testing.T, method, url string, body string) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)

	return req
}

func newResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		Status:        http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"text/plain"}},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// respondWith returns a terminal handler answering with status and reporting a transfer time.
func respondWith(status int, body string) pipeline.Handler {
	return pipeline.HandlerFunc(func(req *http.Request, opts pipeline.Options) (*http.Response, error) {
		resp := newResponse(req, status, body)
		if opts.OnStats != nil {
			opts.OnStats(pipeline.TransferStats{Request: req, Response: resp, TransferTime: 250_000_000})
		}
		return resp, nil
	})
}

// failWith returns a terminal handler failing with err.
func failWith(err error) pipeline.Handler {
	return pipeline.HandlerFunc(func(req *http.Request, opts pipeline.Options) (*http.Response, error) {
		if opts.OnStats != nil {
			opts.OnStats(pipeline.TransferStats{Request: req, Err: err, Response: pipeline.ResponseFromError(err)})
		}
		return nil, err
	})
}
