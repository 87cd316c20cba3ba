package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewRoundTripper(t *testing.T) {
	httpRequestsTotal.Reset()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	t.Cleanup(server.Close)

	rt := NewRoundTripper(http.DefaultTransport)

	for range 2 {
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := rt.RoundTrip(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
	}

	require.InDelta(t, 2, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("418", "get")), 0.1)
	require.InDelta(t, 0, testutil.ToFloat64(httpInFlightRequests), 0.1)
}

func TestTelemetryMetrics(t *testing.T) {
	EntriesRecorded.Reset()
	TransferTime.Reset()

	EntriesRecorded.WithLabelValues("info").Add(3)
	EntriesRecorded.WithLabelValues("notice").Inc()
	TransferTime.WithLabelValues("api").Observe(0.2)

	require.Equal(t, 2, testutil.CollectAndCount(EntriesRecorded))
	require.InDelta(t, 3, testutil.ToFloat64(EntriesRecorded.WithLabelValues("info")), 0.1)
	require.Equal(t, 1, testutil.CollectAndCount(TransferTime))
}
