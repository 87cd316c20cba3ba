package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/gitlab-org/httpwatch/internal/testhelper"
)

func TestLoadConfig(t *testing.T) {
	testRoot := testhelper.PrepareTestRootDir(t)

	cfg, err := loadConfig(testRoot)
	require.NoError(t, err)
	require.Equal(t, []string{"api", "internal"}, cfg.ClientNames())
	require.Equal(t, "api", cfg.DefaultClientName())
	require.Equal(t, "api-secret-content", cfg.Clients["api"].Secret)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	testRoot := testhelper.PrepareTestRootDir(t)
	testhelper.TempEnv(t, map[string]string{"HTTPWATCH_SLOW_RESPONSE_TIME": "250"})

	cfg, err := loadConfig(testRoot)
	require.NoError(t, err)
	require.InEpsilon(t, 0.25, cfg.SlowResponseThreshold(), 1e-9)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(t.TempDir())
	require.Error(t, err)

	testRoot := testhelper.WriteConfig(t, "log_format: xml\nclients:\n  api:\n    base_url: http://localhost\n")
	_, err = loadConfig(testRoot)
	require.ErrorContains(t, err, "LogFormat")
}
