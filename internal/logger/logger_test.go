package logger

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/gitlab-org/httpwatch/internal/config"
)

func createTempFile(t *testing.T) string {
	t.Helper()

	tmpFile, err := os.CreateTemp(t.TempDir(), "logtest-")
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())

	return tmpFile.Name()
}

func restoreDefaultLogger(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })
}

// MustClose calls Close() on the Closer and fails the test in case it returns
// an error. This function is useful when closing via `defer`, as a simple
// `defer require.NoError(t, closer.Close())` would cause `closer.Close()` to
// be executed early already.
func MustClose(tb testing.TB, closer io.Closer) {
	require.NoError(tb, closer.Close())
}

func TestConfigureLoggerJSON(t *testing.T) {
	restoreDefaultLogger(t)
	tmpFile := createTempFile(t)

	closer := ConfigureLogger(&config.Config{
		LogFile:   tmpFile,
		LogFormat: "json",
		LogLevel:  "debug",
	})
	require.NotNil(t, closer)
	defer MustClose(t, closer)

	slog.Info("this is a test")
	slog.Debug("debug log message")

	data, err := os.ReadFile(tmpFile)
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"this is a test"`)
	require.Contains(t, string(data), `"msg":"debug log message"`)
}

func TestConfigureLoggerLevel(t *testing.T) {
	restoreDefaultLogger(t)
	tmpFile := createTempFile(t)

	closer := ConfigureLogger(&config.Config{
		LogFile:   tmpFile,
		LogFormat: "text",
		LogLevel:  "warn",
	})
	defer MustClose(t, closer)

	slog.Info("filtered out")
	slog.Warn("kept")

	data, err := os.ReadFile(tmpFile)
	require.NoError(t, err)
	require.NotContains(t, string(data), "filtered out")
	require.Contains(t, string(data), "msg=kept")
}

func TestConfigureLoggerDirectoryFailure(t *testing.T) {
	restoreDefaultLogger(t)
	tempDir := t.TempDir()

	cfg := config.Config{
		LogFile:   tempDir,
		LogFormat: "json",
	}

	fileInfo, err := os.Stat(tempDir)
	require.NoError(t, err)
	assert.True(t, fileInfo.IsDir())

	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	closer := ConfigureLogger(&cfg)
	assert.Nil(t, closer)
	slog.Info("this is a test")

	w.Close()
	var buf bytes.Buffer
	io.Copy(&buf, r)
	os.Stderr = old

	assert.Contains(t, buf.String(), "failed to configure log file", "capture the error in stderr")
	assert.Contains(t, buf.String(), "this is a test", "we should still be logging to stderr in this case")
}
