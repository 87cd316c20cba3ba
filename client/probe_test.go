package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/gitlab-org/httpwatch/client/testserver"
	"gitlab.com/gitlab-org/httpwatch/internal/config"
)

func TestProbe(t *testing.T) {
	requests := []testserver.TestRequestHandler{
		{
			Path: "/-/health",
			Handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("OK"))
			},
		},
	}

	healthy := testserver.StartHTTPServer(t, requests)
	missing := testserver.StartHTTPServer(t, nil)

	set, err := NewSet(newTestConfig(map[string]*config.ClientConfig{
		"api":      {BaseURL: healthy},
		"broken":   {BaseURL: "https://localhost", Lazy: true, CAFile: "/does/not/exist.crt"},
		"internal": {BaseURL: missing, HTTPErrors: true},
	}))
	require.NoError(t, err)

	results := set.Probe(context.Background(), "/-/health")
	require.Len(t, results, 3)

	require.Equal(t, "api", results[0].Client)
	require.True(t, results[0].Healthy())
	require.Equal(t, http.StatusOK, results[0].Status)
	require.Equal(t, healthy+"/-/health", results[0].URL)

	require.Equal(t, "broken", results[1].Client)
	require.ErrorIs(t, results[1].Err, ErrCafileNotFound)
	require.False(t, results[1].Healthy())

	require.Equal(t, "internal", results[2].Client)
	require.Error(t, results[2].Err)
	require.Equal(t, http.StatusNotFound, results[2].Status)
	require.False(t, results[2].Healthy())
}
