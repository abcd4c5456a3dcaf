package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"github.com/zorak1103/restorekit/internal/config"
	"github.com/zorak1103/restorekit/internal/reentry"
)

// useTestConfig installs a configuration rooted in a temporary directory as
// the loaded config and returns it.
func useTestConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	testCfg := &config.Config{
		ConfigFilePath: filepath.Join(dir, "config.yaml"),
		Program:        config.ProgramConfig{Name: "pg_restore"},
		Docker:         config.DockerConfig{SocketPath: "unix:///nonexistent/docker.sock"},
		Output: config.OutputConfig{
			TranscriptDir: filepath.Join(dir, "transcripts"),
			HistoryFile:   filepath.Join(dir, "history.json"),
			PresetsDir:    filepath.Join(dir, "presets"),
			RetentionDays: 30,
		},
	}
	require.NoError(t, testCfg.Validate())

	originalCfg := cfg
	cfg = testCfg
	t.Cleanup(func() { cfg = originalCfg })

	return testCfg
}

// writeArchive creates a directory archive with the given members.
func writeArchive(t *testing.T, members map[string]string) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "archive")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	for name, body := range members {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

// capture points the command's streams at fresh buffers.
func capture(t *testing.T, c *cobra.Command) (stdout, stderr *bytes.Buffer) {
	t.Helper()

	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	c.SetOut(stdout)
	c.SetErr(stderr)
	t.Cleanup(func() {
		c.SetOut(nil)
		c.SetErr(nil)
	})
	return stdout, stderr
}

func successResult() reentry.Result {
	return reentry.Result{Status: reentry.StatusSuccess}
}

func completedWithErrors(n int) reentry.Result {
	return reentry.Result{Status: reentry.StatusCompletedWithErrors, Code: 1, Errors: n}
}
