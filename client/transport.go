// Package client assembles HTTP clients whose requests travel through a middleware pipeline that
// correlates, logs and times every attempt.
package client

import (
	"net/http"

	"gitlab.com/gitlab-org/labkit/correlation"
	"gitlab.com/gitlab-org/labkit/tracing"

	"gitlab.com/gitlab-org/httpwatch/internal/metrics"
	"gitlab.com/gitlab-org/httpwatch/internal/pipeline"
)

// NewTransport instruments next with correlation, tracing and metrics.
func NewTransport(next http.RoundTripper) http.RoundTripper {
	return correlation.NewInstrumentedRoundTripper(tracing.NewRoundTripper(metrics.NewRoundTripper(next)))
}

// DefaultTransport returns a clone of the default HTTP transport.
func DefaultTransport() http.RoundTripper {
	return http.DefaultTransport.(*http.Transport).Clone()
}

// pipelineTransport hands every request to a resolved pipeline. Options set with pipeline.WithOptions
// on the request context are passed along.
type pipelineTransport struct {
	handler    pipeline.Handler
	httpErrors bool
}

func (rt *pipelineTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	opts := pipeline.OptionsFromContext(request.Context())
	if rt.httpErrors {
		opts.HTTPErrors = true
	}

	return rt.handler.Handle(request, opts)
}
