package report

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/gitlab-org/httpwatch/internal/collector"
	"gitlab.com/gitlab-org/httpwatch/internal/telemetry"
)

func newCollector(t *testing.T) *collector.Collector {
	t.Helper()

	logger := telemetry.NewLogger(telemetry.DetailRequest)
	logger.Record(telemetry.LevelInfo, "GET /projects 200", telemetry.Context{})
	logger.Record(telemetry.LevelError, "GET /users 500", telemetry.Context{})

	c := collector.New(0, logger)
	c.Collect("/jobs")

	return c
}

func TestBuild(t *testing.T) {
	r := Build(newCollector(t))

	require.Equal(t, 2, r.CallCount)
	require.Equal(t, 1, r.ErrorCount)
	require.False(t, r.HasSlowResponse)
	require.Len(t, r.Groups, 1)
	require.Equal(t, "/jobs", r.Groups[0].Label)
	require.Equal(t, "GET /projects 200", r.Groups[0].Entries[0].Message)
	require.False(t, r.GeneratedAt.IsZero())
}

func TestBuildEmpty(t *testing.T) {
	r := Build(collector.New(0))

	require.Zero(t, r.CallCount)
	require.NotNil(t, r.Groups)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	require.Contains(t, string(data), `"groups":[]`)
}

func TestHandler(t *testing.T) {
	c := newCollector(t)
	handler := NewHandler(c)

	testCases := []struct {
		desc           string
		method         string
		target         string
		expectedStatus int
		check          func(t *testing.T, body []byte)
	}{
		{
			desc:           "report",
			method:         http.MethodGet,
			target:         "/",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var r Report
				require.NoError(t, json.Unmarshal(body, &r))
				require.Equal(t, 2, r.CallCount)
			},
		},
		{
			desc:           "entries by level",
			method:         http.MethodGet,
			target:         "/error",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var entries []telemetry.LogEntry
				require.NoError(t, json.Unmarshal(body, &entries))
				require.Len(t, entries, 1)
				require.Equal(t, "GET /users 500", entries[0].Message)
			},
		},
		{
			desc:           "no entries for level",
			method:         http.MethodGet,
			target:         "/critical",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				require.JSONEq(t, `[]`, string(body))
			},
		},
		{
			desc:           "collect without label",
			method:         http.MethodPost,
			target:         "/collect",
			expectedStatus: http.StatusBadRequest,
		},
		{
			desc:           "collect",
			method:         http.MethodPost,
			target:         "/collect?label=/deploys",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var r Report
				require.NoError(t, json.Unmarshal(body, &r))
				require.Len(t, r.Groups, 2)
				require.Equal(t, "/deploys", r.Groups[1].Label)
				require.Empty(t, r.Groups[1].Entries)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, httptest.NewRequest(tc.method, tc.target, nil))

			require.Equal(t, tc.expectedStatus, recorder.Code)
			if tc.check != nil {
				tc.check(t, recorder.Body.Bytes())
			}
		})
	}
}

func TestHandlerReset(t *testing.T) {
	c := newCollector(t)
	handler := NewHandler(c)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodDelete, "/", nil))
	require.Equal(t, http.StatusNoContent, recorder.Code)

	require.Zero(t, c.CallCount())
	require.Empty(t, c.Groups())
}
