package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func entry(job string, age time.Duration) Entry {
	return Entry{
		Job:       job,
		Program:   "pg_restore",
		Args:      []string{"-d", job, "/backups/" + job + ".tar"},
		Archive:   "/backups/" + job + ".tar",
		Status:    "success",
		StartedAt: base.Add(-age),
		Duration:  time.Second,
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing file gives empty history", func(t *testing.T) {
		h, err := Load(filepath.Join(t.TempDir(), "history.json"))
		require.NoError(t, err)
		assert.Equal(t, "1", h.Version)
		assert.Zero(t, h.Count())
	})

	t.Run("existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.json")
		data, err := json.Marshal(map[string]any{
			"version": "1",
			"runs": []map[string]any{
				{"job": "shop", "status": "aborted", "exit_code": 1, "duration_ns": 5},
			},
		})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, data, 0o600))

		h, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, 1, h.Count())
		assert.Equal(t, "aborted", h.List()[0].Status)
		assert.Equal(t, 5*time.Nanosecond, h.List()[0].Duration)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse history file")
	})
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.json")
	h, err := Load(path)
	require.NoError(t, err)

	// Unmodified history is not written
	require.NoError(t, h.Save())
	assert.NoFileExists(t, path)

	h.Add(entry("shop", time.Hour))
	h.Add(entry("billing", 0))
	require.NoError(t, h.Save())

	loaded, err := Load(path)
	require.NoError(t, err)
	runs := loaded.List()
	require.Len(t, runs, 2)
	assert.Equal(t, "billing", runs[0].Job, "newest first")
	assert.Equal(t, "shop", runs[1].Job)
	assert.Equal(t, []string{"-d", "shop", "/backups/shop.tar"}, runs[1].Args)

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "history-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temp files must be cleaned up")
}

func TestList_ReturnsCopies(t *testing.T) {
	h, err := Load(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	e := entry("shop", 0)
	h.Add(e)
	e.Args[0] = "changed"

	runs := h.List()
	runs[0].Args[1] = "mutated"
	runs[0].Job = "mutated"

	again := h.List()
	assert.Equal(t, "shop", again[0].Job)
	assert.Equal(t, []string{"-d", "shop", "/backups/shop.tar"}, again[0].Args)
}

func TestLast(t *testing.T) {
	h, err := Load(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	older := entry("shop", 2*time.Hour)
	older.Status = "aborted"
	h.Add(older)
	h.Add(entry("shop", time.Hour))
	h.Add(entry("billing", 0))

	last, ok := h.Last("shop")
	require.True(t, ok)
	assert.Equal(t, "success", last.Status)

	_, ok = h.Last("crm")
	assert.False(t, ok)
}

func TestResetAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	h, err := Load(path)
	require.NoError(t, err)
	h.Add(entry("shop", 0))
	require.NoError(t, h.Save())

	require.NoError(t, h.ResetAll())
	assert.Zero(t, h.Count())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, loaded.Count())
}

func TestResetFiltered(t *testing.T) {
	tests := []struct {
		name      string
		pattern   string
		wantCount int
		wantErr   string
	}{
		{name: "by job", pattern: "^shop$", wantCount: 1},
		{name: "by archive", pattern: `billing\.tar$`, wantCount: 1},
		{name: "several", pattern: "^(shop|orders)$", wantCount: 2},
		{name: "no match", pattern: "^crm$", wantCount: 0},
		{name: "empty pattern", pattern: "", wantErr: "pattern cannot be empty"},
		{name: "invalid pattern", pattern: "[", wantErr: "invalid pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Load(filepath.Join(t.TempDir(), "history.json"))
			require.NoError(t, err)
			h.Add(entry("shop", 0))
			h.Add(entry("billing", 0))
			h.Add(entry("orders", 0))

			count, err := h.ResetFiltered(tt.pattern)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, count)
			assert.Equal(t, 3-tt.wantCount, h.Count())
		})
	}
}

func TestStaleAndPrune(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.tar")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0o600))

	h, err := Load(filepath.Join(dir, "history.json"))
	require.NoError(t, err)

	old := entry("old", 72*time.Hour)
	old.Archive = present
	fresh := entry("fresh", time.Hour)
	fresh.Archive = present
	gone := entry("gone", time.Hour)
	gone.Archive = filepath.Join(dir, "gone.tar")
	stdin := entry("stdin", time.Hour)
	stdin.Archive = ""
	h.Add(old)
	h.Add(fresh)
	h.Add(gone)
	h.Add(stdin)

	cutoff := base.Add(-24 * time.Hour)

	jobs := func(entries []*Entry) []string {
		var names []string
		for _, e := range entries {
			names = append(names, e.Job)
		}
		return names
	}
	assert.Equal(t, []string{"old"}, jobs(h.Stale(cutoff, false)))
	assert.ElementsMatch(t, []string{"old", "gone"}, jobs(h.Stale(cutoff, true)))

	count, err := h.Prune(cutoff, true)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.ElementsMatch(t, []string{"fresh", "stdin"}, jobs(h.List()))
}

func TestDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	h, err := Load(path)
	require.NoError(t, err)
	h.Add(entry("shop", 0))
	require.NoError(t, h.Save())
	require.FileExists(t, path)

	require.NoError(t, h.Delete())
	assert.NoFileExists(t, path)
	assert.Zero(t, h.Count())

	// Deleting twice is fine
	assert.NoError(t, h.Delete())
}

func TestConcurrentAdd(t *testing.T) {
	h, err := Load(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Add(entry("shop", 0))
			_ = h.List()
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, h.Count())
	require.NoError(t, h.Save())
}
