// Package testhelper prepares test roots from the fixtures under testdata.
package testhelper

import (
	"errors"
	"os"
	"path"
	"runtime"
	"testing"

	"github.com/otiai10/copy"
	"github.com/stretchr/testify/require"
)

// TempEnv sets env for the duration of the test.
func TempEnv(t *testing.T, env map[string]string) {
	for key, value := range env {
		t.Setenv(key, value)
	}
}

// PrepareTestRootDir copies the testroot fixture into a temporary directory, changes into it and
// returns its path.
func PrepareTestRootDir(t *testing.T) string {
	t.Helper()

	testRoot := t.TempDir()
	t.Cleanup(func() { require.NoError(t, os.RemoveAll(testRoot)) })

	require.NoError(t, copyTestData(testRoot))

	oldWd, err := os.Getwd()
	require.NoError(t, err)

	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	require.NoError(t, os.Chdir(testRoot))

	return testRoot
}

// WriteConfig writes content as config.yml into a fresh test root and returns the root.
func WriteConfig(t *testing.T, content string) string {
	t.Helper()

	testRoot := PrepareTestRootDir(t)
	require.NoError(t, os.WriteFile(path.Join(testRoot, "config.yml"), []byte(content), 0o600))

	return testRoot
}

func copyTestData(testRoot string) error {
	testDataDir, err := getTestDataDir()
	if err != nil {
		return err
	}

	testdata := path.Join(testDataDir, "testroot")

	return copy.Copy(testdata, testRoot)
}

func getTestDataDir() (string, error) {
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("could not get caller info")
	}

	return path.Join(path.Dir(currentFile), "testdata"), nil
}
