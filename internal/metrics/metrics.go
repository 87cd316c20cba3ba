package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace          = "httpwatch"
	httpSubsystem      = "http"
	telemetrySubsystem = "telemetry"

	httpInFlightRequestsMetricName       = "in_flight_requests"
	httpRequestsTotalMetricName          = "requests_total"
	httpRequestDurationSecondsMetricName = "request_duration_seconds"

	transferTimeSecondsName  = "transfer_time_seconds"
	entriesRecordedTotalName = "entries_recorded_total"
	slowResponsesTotalName   = "slow_responses_total"
	collectionsTotalName     = "collections_total"
)

var latencyBuckets = []float64{
	0.005, /* 5ms */
	0.025, /* 25ms */
	0.1,   /* 100ms */
	0.5,   /* 500ms */
	1.0,   /* 1s */
	10.0,  /* 10s */
	30.0,  /* 30s */
	60.0,  /* 1m */
	300.0, /* 5m */
}

var (
	// TransferTime observes the transfer time reported for every request attempt, per client.
	TransferTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: telemetrySubsystem,
			Name:      transferTimeSecondsName,
			Help:      "A histogram of transfer times of outgoing requests.",
			Buckets:   latencyBuckets,
		},
		[]string{"client"},
	)

	// EntriesRecorded counts collected log entries by level.
	EntriesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: telemetrySubsystem,
			Name:      entriesRecordedTotalName,
			Help:      "The number of collected request log entries.",
		},
		[]string{"level"},
	)

	// SlowResponses counts collected entries whose transfer time reached the slow response threshold.
	SlowResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: telemetrySubsystem,
			Name:      slowResponsesTotalName,
			Help:      "The number of responses slower than the configured threshold.",
		},
	)

	// Collections counts collection cycles.
	Collections = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: telemetrySubsystem,
			Name:      collectionsTotalName,
			Help:      "The number of collection cycles.",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: httpSubsystem,
			Name:      httpRequestsTotalMetricName,
			Help:      "A counter for http requests.",
		},
		[]string{"code", "method"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: httpSubsystem,
			Name:      httpRequestDurationSecondsMetricName,
			Help:      "A histogram of latencies for http requests.",
			Buckets:   latencyBuckets,
		},
		[]string{"code", "method"},
	)

	httpInFlightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: httpSubsystem,
			Name:      httpInFlightRequestsMetricName,
			Help:      "A gauge of requests currently being performed.",
		},
	)
)

// NewRoundTripper instruments next with the outgoing request metrics.
func NewRoundTripper(next http.RoundTripper) promhttp.RoundTripperFunc {
	rt := next

	rt = promhttp.InstrumentRoundTripperCounter(httpRequestsTotal, rt)
	rt = promhttp.InstrumentRoundTripperDuration(httpRequestDurationSeconds, rt)
	return promhttp.InstrumentRoundTripperInFlight(httpInFlightRequests, rt)
}
