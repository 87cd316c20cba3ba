package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/gitlab-org/labkit/correlation"

	"gitlab.com/gitlab-org/httpwatch/client"
	"gitlab.com/gitlab-org/httpwatch/internal/command/collect"
	"gitlab.com/gitlab-org/httpwatch/internal/command/commandargs"
	"gitlab.com/gitlab-org/httpwatch/internal/command/probe"
	"gitlab.com/gitlab-org/httpwatch/internal/command/readwriter"
	"gitlab.com/gitlab-org/httpwatch/internal/command/serve"
	"gitlab.com/gitlab-org/httpwatch/internal/config"
)

func newTestSet(t *testing.T, cfg *config.Config) *client.Set {
	t.Helper()

	cfg.Clients = map[string]*config.ClientConfig{
		"api": {BaseURL: "http+unix://gitlab.socket", Retry: config.RetryConfig{WaitMin: time.Millisecond}},
	}
	cfg.ApplyDefaults()

	set, err := client.NewSet(cfg)
	require.NoError(t, err)

	return set
}

func TestNew(t *testing.T) {
	testCases := []struct {
		desc         string
		arguments    []string
		reportURL    string
		expectedType any
	}{
		{
			desc:         "it returns a probe command",
			expectedType: &probe.Command{},
		},
		{
			desc:         "it returns a collect command",
			arguments:    []string{"report", "nightly"},
			expectedType: &collect.Command{},
		},
		{
			desc:         "it returns a serve command",
			arguments:    []string{"serve"},
			expectedType: &serve.Command{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg := &config.Config{ReportURL: tc.reportURL}
			args, err := commandargs.Parse(tc.arguments)
			require.NoError(t, err)

			command, err := New(args, cfg, newTestSet(t, cfg), BuildInfo{}, readwriter.Std())
			require.NoError(t, err)
			require.IsType(t, tc.expectedType, command)
		})
	}
}

func TestNewCommandArguments(t *testing.T) {
	cfg := &config.Config{ReportURL: "https://reports.example.com"}
	set := newTestSet(t, cfg)

	args, err := commandargs.Parse([]string{"probe", "/-/readiness"})
	require.NoError(t, err)
	command, err := New(args, cfg, set, BuildInfo{}, readwriter.Std())
	require.NoError(t, err)
	require.Equal(t, "/-/readiness", command.(*probe.Command).Path)

	args, err = commandargs.Parse([]string{"report"})
	require.NoError(t, err)
	command, err = New(args, cfg, set, BuildInfo{}, readwriter.Std())
	require.NoError(t, err)
	require.Equal(t, defaultReportLabel, command.(*collect.Command).Label)
	require.NotNil(t, command.(*collect.Command).Publisher)
}

func TestFailingNew(t *testing.T) {
	cfg := &config.Config{}
	_, err := New(&commandargs.Args{CommandType: "upload-pack"}, cfg, newTestSet(t, cfg), BuildInfo{}, readwriter.Std())
	require.ErrorIs(t, err, commandargs.ErrUnknownCommand)
}

func TestSetup(t *testing.T) {
	testCases := []struct {
		name                  string
		additionalEnv         map[string]string
		expectedCorrelationID string
	}{
		{
			name: "no CORRELATION_ID in environment",
		},
		{
			name: "CORRELATION_ID in environment",
			additionalEnv: map[string]string{
				"CORRELATION_ID": "abc123",
			},
			expectedCorrelationID: "abc123",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for key, value := range tc.additionalEnv {
				t.Setenv(key, value)
			}

			ctx, finished := Setup("httpwatch", &config.Config{})
			require.NotNil(t, ctx, "ctx is nil")
			require.NotNil(t, finished, "finished is nil")
			defer finished()

			correlationID := correlation.ExtractFromContext(ctx)
			require.NotEmpty(t, correlationID)
			require.Equal(t, "httpwatch", correlation.ExtractClientNameFromContext(ctx))

			if tc.expectedCorrelationID != "" {
				require.Equal(t, tc.expectedCorrelationID, correlationID)
			}
		})
	}
}
