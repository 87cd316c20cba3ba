package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"gitlab.com/gitlab-org/labkit/fields"
	"gitlab.com/gitlab-org/labkit/v2/log"

	"gitlab.com/gitlab-org/httpwatch/internal/formatter"
	"gitlab.com/gitlab-org/httpwatch/internal/pipeline"
)

// FallbackLog writes a line to the process logger for every request attempt, independently of the
// entry logger.
type FallbackLog struct {
	formatter *formatter.Formatter
}

// NewFallbackLog creates the fallback log stage. A nil formatter uses the debug template.
func NewFallbackLog(f *formatter.Formatter) *FallbackLog {
	if f == nil {
		f = formatter.New(formatter.Debug)
	}

	return &FallbackLog{formatter: f}
}

// Wrap implements pipeline.Middleware.
func (f *FallbackLog) Wrap(next pipeline.Handler) pipeline.Handler {
	return pipeline.HandlerFunc(func(req *http.Request, opts pipeline.Options) (*http.Response, error) {
		logger := log.New()
		start := time.Now()

		response, err := next.Handle(req, opts)

		ctx := log.WithFields(req.Context(),
			slog.String("method", req.Method),
			slog.String("url", req.URL.Redacted()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		if opts.RequestID != "" {
			ctx = log.WithFields(ctx, slog.String("request_id", opts.RequestID))
		}

		if err != nil {
			failed := pipeline.ResponseFromError(err)
			if failed != nil {
				ctx = log.WithFields(ctx, slog.Int("status", failed.StatusCode))
			}

			logger.WarnContext(ctx, "HTTP request failed",
				slog.String(fields.ErrorMessage, err.Error()),
				slog.String("http_message", f.formatter.Format(req, failed, err)),
			)

			return response, err
		}

		ctx = log.WithFields(ctx, slog.Int("status", response.StatusCode))
		if response.ContentLength >= 0 {
			ctx = log.WithFields(ctx, slog.Int64("content_length_bytes", response.ContentLength))
		}

		logger.InfoContext(ctx, "Finished HTTP request",
			slog.String("http_message", f.formatter.Format(req, response, nil)),
		)

		return response, nil
	})
}
