package serve

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/gitlab-org/httpwatch/client"
	"gitlab.com/gitlab-org/httpwatch/client/testserver"
	"gitlab.com/gitlab-org/httpwatch/internal/config"
	"gitlab.com/gitlab-org/httpwatch/internal/report"
)

func TestExecute(t *testing.T) {
	upstream := testserver.StartHTTPServer(t, []testserver.TestRequestHandler{
		{
			Path: "/-/health",
			Handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
	})

	cfg := &config.Config{Clients: map[string]*config.ClientConfig{
		"api": {BaseURL: upstream},
	}}
	cfg.ApplyDefaults()

	set, err := client.NewSet(cfg)
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cmd := &Command{Config: cfg, Set: set, ProbePath: "/-/health", Listener: listener}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.Execute(ctx) }()

	baseURL := "http://" + listener.Addr().String()

	response, err := http.Get(baseURL + "/probe")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, response.StatusCode)
	require.NotEmpty(t, response.Header.Get("X-Request-Id"))

	var results []client.ProbeResult
	require.NoError(t, json.NewDecoder(response.Body).Decode(&results))
	require.NoError(t, response.Body.Close())
	require.Len(t, results, 1)
	require.Equal(t, http.StatusOK, results[0].Status)

	response, err = http.Get(baseURL + "/report")
	require.NoError(t, err)

	var r report.Report
	require.NoError(t, json.NewDecoder(response.Body).Decode(&r))
	require.NoError(t, response.Body.Close())
	require.Equal(t, 1, r.CallCount)
	require.Equal(t, "/probe", r.Groups[0].Label)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
