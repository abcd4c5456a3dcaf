package cmd

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zorak1103/restorekit/internal/config"
	"github.com/zorak1103/restorekit/internal/history"
	"gopkg.in/yaml.v3"
)

func seedHistory(t *testing.T, c *config.Config, entries ...history.Entry) {
	t.Helper()
	h, err := history.Load(c.Output.HistoryFile)
	require.NoError(t, err)
	for _, e := range entries {
		h.Add(e)
	}
	require.NoError(t, h.Save())
}

func sampleRuns() []history.Entry {
	now := time.Now()
	return []history.Entry{
		{Job: "shop", Program: "pg_restore", Archive: "/backups/shop.tar", Status: "success", StartedAt: now.Add(-time.Hour), Duration: time.Second},
		{Job: "billing", Program: "pg_restore", Status: "aborted", ExitCode: 1, StartedAt: now, Duration: time.Second},
	}
}

func withHistoryFlags(t *testing.T, output string, forced bool) {
	t.Helper()
	originalOutput, originalForce := historyOutput, force
	historyOutput, force = output, forced
	t.Cleanup(func() { historyOutput, force = originalOutput, originalForce })
}

func TestHistoryListCmd_Empty(t *testing.T) {
	useTestConfig(t)
	withHistoryFlags(t, "table", false)

	stdout, _ := capture(t, historyListCmd)
	require.NoError(t, historyListCmd.RunE(historyListCmd, nil))
	assert.Contains(t, stdout.String(), "No runs recorded")
}

func TestHistoryListCmd_Table(t *testing.T) {
	c := useTestConfig(t)
	seedHistory(t, c, sampleRuns()...)
	withHistoryFlags(t, "table", false)

	stdout, _ := capture(t, historyListCmd)
	require.NoError(t, historyListCmd.RunE(historyListCmd, nil))

	out := stdout.String()
	assert.Contains(t, out, "shop")
	assert.Contains(t, out, "(standard input)")
	assert.Contains(t, out, "Total: 2 run(s)")
	assert.Less(t, strings.Index(out, "billing"), strings.Index(out, "shop"), "newest first")
}

func TestHistoryListCmd_Formats(t *testing.T) {
	c := useTestConfig(t)
	seedHistory(t, c, sampleRuns()...)

	t.Run("json", func(t *testing.T) {
		withHistoryFlags(t, "json", false)
		stdout, _ := capture(t, historyListCmd)
		require.NoError(t, historyListCmd.RunE(historyListCmd, nil))

		var runs []history.Entry
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &runs))
		require.Len(t, runs, 2)
		assert.Equal(t, "billing", runs[0].Job)
	})

	t.Run("yaml", func(t *testing.T) {
		withHistoryFlags(t, "YAML", false)
		stdout, _ := capture(t, historyListCmd)
		require.NoError(t, historyListCmd.RunE(historyListCmd, nil))

		var runs []map[string]any
		require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &runs))
		require.Len(t, runs, 2)
		assert.Equal(t, "shop", runs[1]["job"])
		assert.Equal(t, "/backups/shop.tar", runs[1]["archive"])
	})

	t.Run("unknown", func(t *testing.T) {
		withHistoryFlags(t, "xml", false)
		err := historyListCmd.RunE(historyListCmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown output format "xml"`)
	})
}

func TestHistoryResetCmd(t *testing.T) {
	t.Run("requires force", func(t *testing.T) {
		c := useTestConfig(t)
		seedHistory(t, c, sampleRuns()...)
		withHistoryFlags(t, "table", false)

		stdout, _ := capture(t, historyResetCmd)
		require.NoError(t, historyResetCmd.RunE(historyResetCmd, nil))
		assert.Contains(t, stdout.String(), "Aborted")
		assert.FileExists(t, c.Output.HistoryFile)
	})

	t.Run("all", func(t *testing.T) {
		c := useTestConfig(t)
		seedHistory(t, c, sampleRuns()...)
		withHistoryFlags(t, "table", true)

		stdout, _ := capture(t, historyResetCmd)
		require.NoError(t, historyResetCmd.RunE(historyResetCmd, nil))
		assert.Contains(t, stdout.String(), "Removed 2 run(s)")
		assert.NoFileExists(t, c.Output.HistoryFile)
	})

	t.Run("filtered", func(t *testing.T) {
		c := useTestConfig(t)
		seedHistory(t, c, sampleRuns()...)
		withHistoryFlags(t, "table", true)

		stdout, _ := capture(t, historyResetCmd)
		require.NoError(t, historyResetCmd.RunE(historyResetCmd, []string{"^shop$"}))
		assert.Contains(t, stdout.String(), "Removed 1 run(s) matching '^shop$'")

		h, err := history.Load(c.Output.HistoryFile)
		require.NoError(t, err)
		assert.Equal(t, 1, h.Count())
	})

	t.Run("no match", func(t *testing.T) {
		c := useTestConfig(t)
		seedHistory(t, c, sampleRuns()...)
		withHistoryFlags(t, "table", true)

		stdout, _ := capture(t, historyResetCmd)
		require.NoError(t, historyResetCmd.RunE(historyResetCmd, []string{"^crm$"}))
		assert.Contains(t, stdout.String(), "No runs matched pattern")
	})
}
