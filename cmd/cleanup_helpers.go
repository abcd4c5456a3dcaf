package cmd

import (
	"fmt"
	"time"

	"github.com/zorak1103/restorekit/internal/config"
	"github.com/zorak1103/restorekit/internal/history"
	"github.com/zorak1103/restorekit/internal/runlog"
)

// staleData is what cleanup would remove.
type staleData struct {
	cutoff time.Time
	runs   []*history.Entry // history entries past retention or with a missing archive
	logs   []string         // run log files past retention
}

func (s *staleData) empty() bool {
	return len(s.runs) == 0 && len(s.logs) == 0
}

// retention returns the configured retention period.
func retention(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Output.RetentionDays) * 24 * time.Hour
}

// findStaleData scans the history and the transcript directory.
func findStaleData(cfg *config.Config, now time.Time) (*staleData, error) {
	h, err := history.Load(cfg.Output.HistoryFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	cutoff := now.Add(-retention(cfg))
	logs, err := runlog.NewLogger(cfg.Output.TranscriptDir, true).Prune(now.Sub(cutoff), true)
	if err != nil {
		return nil, err
	}

	return &staleData{
		cutoff: cutoff,
		runs:   h.Stale(cutoff, true),
		logs:   logs,
	}, nil
}

// removeStaleData deletes the stale history entries and run logs found at
// cutoff. It returns how many of each it removed.
func removeStaleData(cfg *config.Config, stale *staleData) (runs, logs int, err error) {
	h, err := history.Load(cfg.Output.HistoryFile)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load history: %w", err)
	}

	runs, err = h.Prune(stale.cutoff, true)
	if err != nil {
		return runs, 0, fmt.Errorf("failed to prune history: %w", err)
	}

	removed, err := runlog.NewLogger(cfg.Output.TranscriptDir, true).Prune(time.Since(stale.cutoff), false)
	if err != nil {
		return runs, len(removed), err
	}

	return runs, len(removed), nil
}
