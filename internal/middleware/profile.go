package middleware

import (
	"fmt"
	"net/http"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"gitlab.com/gitlab-org/httpwatch/internal/pipeline"
)

const profileComponent = "httpwatch"

// Profile times every request attempt in a span named after the request method and URL.
type Profile struct {
	tracer opentracing.Tracer
	client string
}

// NewProfile creates the profile stage. A nil tracer uses the global tracer.
func NewProfile(tracer opentracing.Tracer, client string) *Profile {
	if tracer == nil {
		tracer = opentracing.GlobalTracer()
	}

	return &Profile{tracer: tracer, client: client}
}

// Wrap implements pipeline.Middleware.
func (p *Profile) Wrap(next pipeline.Handler) pipeline.Handler {
	return pipeline.HandlerFunc(func(req *http.Request, opts pipeline.Options) (*http.Response, error) {
		operation := fmt.Sprintf("%s %s", req.Method, req.URL.Redacted())

		span, ctx := opentracing.StartSpanFromContextWithTracer(req.Context(), p.tracer, operation,
			ext.SpanKindRPCClient,
			opentracing.Tag{Key: string(ext.Component), Value: profileComponent},
			opentracing.Tag{Key: "client", Value: p.client},
		)
		defer span.Finish()

		ext.HTTPMethod.Set(span, req.Method)
		ext.HTTPUrl.Set(span, req.URL.Redacted())

		response, err := next.Handle(req.WithContext(ctx), opts)

		if resp := responseOf(response, err); resp != nil {
			ext.HTTPStatusCode.Set(span, uint16(resp.StatusCode)) // #nosec G115
		}
		if err != nil {
			ext.Error.Set(span, true)
			span.SetTag("error.message", err.Error())
		}

		return response, err
	})
}

func responseOf(response *http.Response, err error) *http.Response {
	if response != nil {
		return response
	}

	return pipeline.ResponseFromError(err)
}
