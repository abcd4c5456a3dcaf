// Package history keeps the persistent record of restore runs.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sync"
	"time"
)

// History is the on-disk list of past runs
type History struct {
	Version     string    `json:"version"`
	LastUpdated time.Time `json:"last_updated"`
	Runs        []*Entry  `json:"runs"`

	mu       sync.RWMutex `json:"-"`
	filePath string       `json:"-"`
	modified bool         `json:"-"`
}

// Entry is one recorded run. Args are stored masked.
type Entry struct {
	Job       string        `json:"job" yaml:"job"`
	Program   string        `json:"program" yaml:"program"`
	Args      []string      `json:"args" yaml:"args"`
	Archive   string        `json:"archive,omitempty" yaml:"archive,omitempty"`
	Status    string        `json:"status" yaml:"status"`
	ExitCode  int           `json:"exit_code" yaml:"exit_code"`
	Errors    int           `json:"errors" yaml:"errors"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration_ns"`
	LogFile   string        `json:"log_file,omitempty" yaml:"log_file,omitempty"`
}

func (e *Entry) clone() *Entry {
	c := *e
	c.Args = slices.Clone(e.Args)
	return &c
}

// Load reads the history at filePath.
// A missing file yields an empty history that will be created on Save.
func Load(filePath string) (*History, error) {
	h := &History{
		Version:  "1",
		filePath: filePath,
	}

	data, err := os.ReadFile(filePath) // #nosec G304 -- path comes from configuration
	if os.IsNotExist(err) {
		return h, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file from %s: %w", filePath, err)
	}

	if err := json.Unmarshal(data, h); err != nil {
		return nil, fmt.Errorf("failed to parse history file %s: %w", filePath, err)
	}

	h.filePath = filePath
	return h, nil
}

// Save writes the history atomically when it changed since the last save.
func (h *History) Save() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.saveUnlocked()
}

// saveUnlocked performs the save operation without acquiring the lock
// Caller must hold the lock
func (h *History) saveUnlocked() error {
	if !h.modified {
		return nil
	}

	h.LastUpdated = time.Now()

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history for %s: %w", h.filePath, err)
	}

	dir := filepath.Dir(h.filePath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create history directory %s: %w", dir, err)
	}

	// Atomic write: write to temp file, then rename
	tmpFile, err := os.CreateTemp(dir, "history-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in directory %s for history %s: %w", dir, h.filePath, err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()    // Best effort cleanup
		_ = os.Remove(tmpPath) // Best effort cleanup
		return fmt.Errorf("failed to write temp file %s for history %s: %w", tmpPath, h.filePath, err)
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()    // Best effort cleanup
		_ = os.Remove(tmpPath) // Best effort cleanup
		return fmt.Errorf("failed to sync temp file %s for history %s: %w", tmpPath, h.filePath, err)
	}

	_ = tmpFile.Close() // Explicit ignore - we've already synced

	if err := os.Rename(tmpPath, h.filePath); err != nil {
		_ = os.Remove(tmpPath) // Best effort cleanup
		return fmt.Errorf("failed to rename temp file %s to %s: %w", tmpPath, h.filePath, err)
	}

	h.modified = false
	return nil
}

// Add appends a run and marks the history as modified.
func (h *History) Add(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Runs = append(h.Runs, e.clone())
	h.modified = true
}

// List returns deep copies of all runs, newest first.
func (h *History) List() []*Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]*Entry, 0, len(h.Runs))
	for _, e := range h.Runs {
		result = append(result, e.clone())
	}
	slices.SortStableFunc(result, func(a, b *Entry) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return result
}

// Last returns the most recent run of job.
func (h *History) Last(job string) (*Entry, bool) {
	for _, e := range h.List() {
		if e.Job == job {
			return e, true
		}
	}
	return nil, false
}

// Count returns the number of recorded runs.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Runs)
}

// ResetAll clears every run and persists the change.
func (h *History) ResetAll() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.Runs = nil
	h.modified = true

	return h.saveUnlocked()
}

// ResetFiltered removes runs whose job name or archive matches pattern and
// persists the change. It returns the number of runs removed.
func (h *History) ResetFiltered(pattern string) (int, error) {
	if pattern == "" {
		return 0, fmt.Errorf("pattern cannot be empty for ResetFiltered operation on history %s", h.filePath)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, fmt.Errorf("invalid pattern %q for ResetFiltered operation on history %s: %w", pattern, h.filePath, err)
	}

	return h.removeWhere(func(e *Entry) bool {
		return re.MatchString(e.Job) || re.MatchString(e.Archive)
	})
}

// Stale returns the runs that started before cutoff or, when
// missingArchives is set, whose archive no longer exists on disk.
func (h *History) Stale(cutoff time.Time, missingArchives bool) []*Entry {
	var stale []*Entry
	for _, e := range h.List() {
		if isStale(e, cutoff, missingArchives) {
			stale = append(stale, e)
		}
	}
	return stale
}

// Prune removes the runs Stale would return and persists the change.
func (h *History) Prune(cutoff time.Time, missingArchives bool) (int, error) {
	return h.removeWhere(func(e *Entry) bool {
		return isStale(e, cutoff, missingArchives)
	})
}

func isStale(e *Entry, cutoff time.Time, missingArchives bool) bool {
	if e.StartedAt.Before(cutoff) {
		return true
	}
	if !missingArchives || e.Archive == "" || e.Archive == "-" {
		return false
	}
	_, err := os.Stat(e.Archive)
	return os.IsNotExist(err)
}

func (h *History) removeWhere(match func(*Entry) bool) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.Runs[:0]
	count := 0
	for _, e := range h.Runs {
		if match(e) {
			count++
			continue
		}
		kept = append(kept, e)
	}
	clear(h.Runs[len(kept):])
	h.Runs = kept

	if count > 0 {
		h.modified = true
		if err := h.saveUnlocked(); err != nil {
			return count, err
		}
	}

	return count, nil
}

// Delete removes the history file and clears the in-memory runs.
func (h *History) Delete() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := os.Remove(h.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete history file %s: %w", h.filePath, err)
	}

	h.Runs = nil
	h.modified = false
	return nil
}
