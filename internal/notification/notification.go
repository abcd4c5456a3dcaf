// Package notification handles sending notifications to external services.
package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/containrrr/shoutrrr"
	"github.com/zorak1103/restorekit/internal/config"
)

// maxTranscriptLines bounds the transcript excerpt in a message.
const maxTranscriptLines = 10

// Notifier handles sending notifications via Shoutrrr
type Notifier struct {
	enabled     bool
	shoutrrrURL string
}

// RunSummary describes one finished restore for a notification.
type RunSummary struct {
	Job        string
	Program    string
	Archive    string
	Status     string // success, completed_with_errors or aborted
	ExitCode   int
	Errors     int
	Duration   time.Duration
	Transcript string
}

// NewNotifier initializes a Shoutrrr-based notification client from config.
func NewNotifier(cfg *config.Config) (*Notifier, error) {
	if !cfg.Notification.Enabled {
		return &Notifier{enabled: false}, nil
	}

	url := strings.TrimSpace(cfg.Notification.ShoutrrURL)
	if url == "" {
		return &Notifier{enabled: false}, fmt.Errorf("notification enabled but shoutrrr_url not configured: provide URL in format 'service://credentials' (e.g., slack://token@channel, discord://token@webhookid)")
	}

	return &Notifier{
		enabled:     true,
		shoutrrrURL: url,
	}, nil
}

// SendRunSummary delivers the outcome of a restore via the configured channel.
func (n *Notifier) SendRunSummary(s RunSummary) error {
	if !n.IsEnabled() {
		return nil // Notifications disabled
	}

	err := shoutrrr.Send(n.shoutrrrURL, FormatRunSummary(s, time.Now()))
	if err != nil {
		// Extract service type from URL (e.g., "slack://..." -> "slack")
		serviceType := "unknown"
		if idx := strings.Index(n.shoutrrrURL, "://"); idx > 0 {
			serviceType = n.shoutrrrURL[:idx]
		}
		return fmt.Errorf("notification failed to send via %s (job: %s, status: %s): %w", serviceType, s.Job, s.Status, err)
	}

	return nil
}

// FormatRunSummary renders the message body for s.
func FormatRunSummary(s RunSummary, now time.Time) string {
	var sb strings.Builder

	switch s.Status {
	case "success":
		sb.WriteString("✅ Restore succeeded\n")
	case "completed_with_errors":
		sb.WriteString("⚠️  Restore completed with errors\n")
	default:
		sb.WriteString("❌ Restore aborted\n")
	}

	sb.WriteString(fmt.Sprintf("📅 Time: %s\n", now.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("🏷️  Job: %s\n", s.Job))
	if s.Archive != "" {
		sb.WriteString(fmt.Sprintf("📦 Archive: %s\n", s.Archive))
	}
	sb.WriteString(fmt.Sprintf("🔢 Exit code: %d, errors: %d\n", s.ExitCode, s.Errors))
	sb.WriteString(fmt.Sprintf("⏱️  Duration: %s\n", s.Duration.Round(time.Millisecond)))

	if excerpt := tail(s.Transcript, maxTranscriptLines); excerpt != "" {
		sb.WriteString("\n")
		sb.WriteString(excerpt)
	}

	return sb.String()
}

// tail returns the last n lines of text.
func tail(text string, n int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// IsEnabled reports whether notifications are configured and active.
func (n *Notifier) IsEnabled() bool {
	return n != nil && n.enabled
}
