package cmd

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zorak1103/restorekit/internal/templates"
)

func TestInitCmd_Structure(t *testing.T) {
	assert.Equal(t, "init", initCmd.Use)
	assert.NotEmpty(t, initCmd.Short)
	assert.NotEmpty(t, initCmd.Example)

	forceFlag := initCmd.Flags().Lookup("force")
	require.NotNil(t, forceFlag)
	assert.Equal(t, "false", forceFlag.DefValue)
}

func TestInitCmd_CreatesFiles(t *testing.T) {
	t.Chdir(t.TempDir())

	originalForce := force
	force = false
	t.Cleanup(func() { force = originalForce })

	stdout, _ := capture(t, initCmd)
	require.NoError(t, initCmd.RunE(initCmd, nil))

	for _, dir := range []string{"transcripts", "presets"} {
		assert.DirExists(t, dir)
	}

	for name, want := range map[string][]byte{
		"config.yaml": templates.ConfigYAML,
		".env":        templates.EnvFile,
		"batch.yaml":  templates.BatchYAML,
	} {
		got, err := os.ReadFile(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}

	assert.Contains(t, stdout.String(), "Initialization complete")
}

func TestInitCmd_KeepsExistingFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("config.yaml", []byte("program:\n  name: custom\n"), 0o600))

	originalForce := force
	t.Cleanup(func() { force = originalForce })

	force = false
	stdout, _ := capture(t, initCmd)
	require.NoError(t, initCmd.RunE(initCmd, nil))

	got, err := os.ReadFile("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "program:\n  name: custom\n", string(got))
	assert.Contains(t, stdout.String(), "Skipping config.yaml")

	force = true
	require.NoError(t, initCmd.RunE(initCmd, nil))

	got, err = os.ReadFile("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, templates.ConfigYAML, got)
}
