package pipeline

import (
	"context"
	"net/http"
	"time"

	"gitlab.com/gitlab-org/httpwatch/internal/snapshot"
)

type optionsContextKey struct{}

// WithOptions returns a context carrying request options. Clients read them back when a request
// enters the handler chain through an http.RoundTripper.
func WithOptions(ctx context.Context, opts Options) context.Context {
	return context.WithValue(ctx, optionsContextKey{}, opts)
}

// OptionsFromContext returns the options stored in ctx, or zero Options.
func OptionsFromContext(ctx context.Context) Options {
	opts, _ := ctx.Value(optionsContextKey{}).(Options)
	return opts
}

type transportHandler struct {
	next http.RoundTripper
}

// NewTransportHandler returns the terminal handler of a stack. It sends the request with next, reports
// the transfer to opts.OnStats and, when opts.HTTPErrors is set, turns error statuses into a
// *RequestError carrying the response. The body of that response is read into memory so the
// connection is released even if nobody reads the error.
func NewTransportHandler(next http.RoundTripper) Handler {
	return &transportHandler{next: next}
}

func (h *transportHandler) Handle(req *http.Request, opts Options) (*http.Response, error) {
	start := time.Now()

	response, err := h.next.RoundTrip(req)
	if err == nil && opts.HTTPErrors && response.StatusCode >= http.StatusBadRequest {
		response.Body = snapshot.BufferBody(response.Body)
		err = &RequestError{Request: req, Response: response}
		response = nil
	}

	if opts.OnStats != nil {
		opts.OnStats(TransferStats{
			Request:      req,
			Response:     responseOf(response, err),
			Err:          err,
			TransferTime: time.Since(start),
		})
	}

	return response, err
}

func responseOf(response *http.Response, err error) *http.Response {
	if response != nil {
		return response
	}

	return ResponseFromError(err)
}
