package middleware

import (
	"net/http"

	"gitlab.com/gitlab-org/httpwatch/internal/metrics"
	"gitlab.com/gitlab-org/httpwatch/internal/pipeline"
	"gitlab.com/gitlab-org/httpwatch/internal/telemetry"
)

// TotalTimeRecorder accumulates transfer times, usually a *collector.Collector.
type TotalTimeRecorder interface {
	AddTotalTime(seconds float64)
}

// RequestTime attaches the transfer time of each attempt to its log entry and to the running total.
// It must be installed inside the log stage so the request id is already assigned.
type RequestTime struct {
	client string
	logger telemetry.EntryLogger
	totals TotalTimeRecorder
}

// NewRequestTime creates the request time stage for the named client. totals may be nil.
func NewRequestTime(client string, logger telemetry.EntryLogger, totals TotalTimeRecorder) *RequestTime {
	return &RequestTime{client: client, logger: logger, totals: totals}
}

// Wrap implements pipeline.Middleware.
func (r *RequestTime) Wrap(next pipeline.Handler) pipeline.Handler {
	return pipeline.HandlerFunc(func(req *http.Request, opts pipeline.Options) (*http.Response, error) {
		opts.OnStats = r.onStats(opts.OnStats, opts.RequestID)

		return next.Handle(req, opts)
	})
}

func (r *RequestTime) onStats(initial func(pipeline.TransferStats), requestID string) func(pipeline.TransferStats) {
	return func(stats pipeline.TransferStats) {
		if initial != nil {
			initial(stats)
		}

		seconds := stats.TransferTime.Seconds()
		metrics.TransferTime.WithLabelValues(r.client).Observe(seconds)

		if r.totals != nil {
			r.totals.AddTotalTime(seconds)
		}

		if recorder, ok := r.logger.(telemetry.TransferTimeRecorder); ok && requestID != "" {
			recorder.AttachTransferTime(requestID, seconds)
		}
	}
}
