// Package runlog writes a Markdown log for every adapted restore run.
// Each file holds the masked command line, the outcome and the full
// diagnostic transcript, for auditing restores after the fact.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zorak1103/restorekit/internal/reentry"
	"github.com/zorak1103/restorekit/internal/sanitize"
)

// Record describes one finished run.
type Record struct {
	Job        string
	Program    string
	Args       []string // unmasked; LogRun masks them
	Archive    string
	Result     reentry.Result
	StartedAt  time.Time
	Transcript string
}

// Logger handles writing run logs to Markdown files.
type Logger struct {
	baseDir string
	enabled bool
	now     func() time.Time
}

// NewLogger creates a new Logger instance.
// If enabled is false, all logging operations become no-ops.
func NewLogger(baseDir string, enabled bool) *Logger {
	return &Logger{
		baseDir: baseDir,
		enabled: enabled,
		now:     time.Now,
	}
}

// IsEnabled returns whether logging is enabled.
func (l *Logger) IsEnabled() bool {
	return l != nil && l.enabled
}

// LogRun writes rec to {baseDir}/{job}/{timestamp}.md and returns the path.
// It returns "" and nil when logging is disabled or the logger is nil.
func (l *Logger) LogRun(rec Record) (string, error) {
	if !l.IsEnabled() {
		return "", nil
	}

	jobDir := filepath.Join(l.baseDir, sanitize.Name(rec.Job))
	if err := os.MkdirAll(jobDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create log directory %s: %w", jobDir, err)
	}

	timestamp := l.now().UTC()
	filePath := filepath.Join(jobDir, timestamp.Format("2006-01-02T15-04-05.000Z")+".md")

	// 0600: the transcript may name hosts and users
	if err := os.WriteFile(filePath, []byte(Format(rec)), 0o600); err != nil {
		return "", fmt.Errorf("failed to write log file %s: %w", filePath, err)
	}

	return filePath, nil
}

// Format renders rec as Markdown.
func Format(rec Record) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Restore Log: %s\n\n", rec.Job))
	sb.WriteString(fmt.Sprintf("**Started:** %s  \n", rec.StartedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("**Program:** `%s`  \n", rec.Program))
	if rec.Archive != "" {
		sb.WriteString(fmt.Sprintf("**Archive:** `%s`  \n", rec.Archive))
	}
	sb.WriteString(fmt.Sprintf("**Outcome:** %s\n\n", rec.Result))

	sb.WriteString("## Command Line\n\n")
	sb.WriteString("```\n")
	sb.WriteString(strings.TrimSpace(rec.Program + " " + strings.Join(sanitize.MaskArgs(rec.Args), " ")))
	sb.WriteString("\n```\n\n")

	sb.WriteString("## 📊 Result\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Status | %s |\n", rec.Result.Status))
	sb.WriteString(fmt.Sprintf("| Exit Code | %d |\n", rec.Result.Code))
	sb.WriteString(fmt.Sprintf("| Errors | %d |\n", rec.Result.Errors))
	sb.WriteString(fmt.Sprintf("| Duration | %s |\n\n", rec.Result.Duration.Round(time.Millisecond)))

	sb.WriteString("## Transcript\n\n")
	if strings.TrimSpace(rec.Transcript) == "" {
		sb.WriteString("_No diagnostics were emitted._\n")
		return sb.String()
	}
	sb.WriteString("```\n")
	sb.WriteString(strings.TrimRight(rec.Transcript, "\n"))
	sb.WriteString("\n```\n")

	return sb.String()
}

// Prune removes log files older than maxAge and returns their paths. With
// dryRun it only reports them. A missing base directory is not an error.
func (l *Logger) Prune(maxAge time.Duration, dryRun bool) ([]string, error) {
	if l == nil || l.baseDir == "" {
		return nil, nil
	}

	cutoff := l.now().Add(-maxAge)
	var removed []string

	err := filepath.WalkDir(l.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if !dryRun {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove log file %s: %w", path, err)
			}
		}
		removed = append(removed, path)
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to prune run logs in %s: %w", l.baseDir, err)
	}

	return removed, nil
}
