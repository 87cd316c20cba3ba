// Package middleware provides the pipeline stages installed on every client and the built-in plugins
// clients can opt into.
package middleware

import (
	"net/http"

	"gitlab.com/gitlab-org/labkit/correlation"

	"gitlab.com/gitlab-org/httpwatch/internal/formatter"
	"gitlab.com/gitlab-org/httpwatch/internal/pipeline"
	"gitlab.com/gitlab-org/httpwatch/internal/telemetry"
)

// Log registers every request attempt with an entry logger and completes the entry once the outcome
// is known.
type Log struct {
	logger    telemetry.EntryLogger
	formatter *formatter.Formatter
}

// NewLog creates the log stage. A nil formatter uses the common log format.
func NewLog(logger telemetry.EntryLogger, f *formatter.Formatter) *Log {
	if f == nil {
		f = formatter.New(formatter.CLF)
	}

	return &Log{logger: logger, formatter: f}
}

// Wrap implements pipeline.Middleware.
func (l *Log) Wrap(next pipeline.Handler) pipeline.Handler {
	return pipeline.HandlerFunc(func(req *http.Request, opts pipeline.Options) (*http.Response, error) {
		requestID := telemetry.NewRequestID()
		l.logger.Record(telemetry.LevelInfo, "", telemetry.Context{RequestID: requestID, Request: req})

		opts.RequestID = requestID

		// Propagate the id as X-Request-ID unless the caller already has a correlation id.
		if ctx := req.Context(); correlation.ExtractFromContext(ctx) == "" {
			req = req.WithContext(correlation.ContextWithCorrelation(ctx, requestID))
		}

		// Stages below may add headers to a clone: the outcome is recorded against the request
		// the transport actually sent, when it got that far.
		var sent *http.Request
		onStats := opts.OnStats
		opts.OnStats = func(stats pipeline.TransferStats) {
			sent = stats.Request
			if onStats != nil {
				onStats(stats)
			}
		}

		response, err := next.Handle(req, opts)

		logged := req
		if sent != nil {
			logged = sent
		}

		if err != nil {
			failed := pipeline.ResponseFromError(err)
			l.logger.Record(telemetry.LevelNotice, l.formatter.Format(logged, failed, err), telemetry.Context{
				RequestID: requestID,
				Request:   logged,
				Response:  failed,
			})

			return response, err
		}

		l.logger.Record(telemetry.LevelInfo, l.formatter.Format(logged, response, nil), telemetry.Context{
			RequestID: requestID,
			Request:   logged,
			Response:  response,
		})

		return response, nil
	})
}
