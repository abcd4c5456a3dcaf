package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zorak1103/restorekit/internal/config"
)

// validateConfigOrExit validates that the configuration is properly initialized
// and all required directories exist. Returns a user-friendly error if validation fails.
func validateConfigOrExit(cfg *config.Config, _ string) error {
	if cfg == nil {
		return fmt.Errorf("configuration not loaded\n\nrestorekit has not been initialized in this directory.\nRun 'restorekit init' to create the necessary configuration")
	}

	if cfg.ConfigFilePath == "" {
		return fmt.Errorf("no configuration file found\n\nrestorekit requires a configuration file to run.\nRun 'restorekit init' to create config.yaml in the current directory")
	}

	var missingDirs []string

	historyDir := filepath.Dir(cfg.Output.HistoryFile)
	if historyDir != "." && historyDir != "" {
		if _, err := os.Stat(historyDir); os.IsNotExist(err) {
			missingDirs = append(missingDirs, fmt.Sprintf("History file directory: %s", historyDir))
		}
	}

	// Only needed when run logs are written
	if cfg.Output.TranscriptEnabled {
		if _, err := os.Stat(cfg.Output.TranscriptDir); os.IsNotExist(err) {
			missingDirs = append(missingDirs, fmt.Sprintf("Transcript directory: %s", cfg.Output.TranscriptDir))
		}
	}

	if len(missingDirs) > 0 {
		errMsg := "required directories are missing:\n\n"
		for _, dir := range missingDirs {
			errMsg += fmt.Sprintf("  - %s\n", dir)
		}
		errMsg += "\nRun 'restorekit init' to create the required directory structure"
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the effective configuration",
	Long: `Display the effective configuration that restorekit will use at runtime.

This shows the merged configuration from:
  1. Default values
  2. Configuration file (config.yaml)
  3. Environment variables (highest priority)

Sensitive values like notification credentials are masked.`,
	Example: `  # Show current configuration
  restorekit config

  # Show with custom config file
  restorekit config --config /etc/restorekit/config.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := GetConfig()
		if cfg == nil {
			if err := GetConfigLoadError(); err != nil {
				return fmt.Errorf("configuration not loaded: %w\n\nTo get started, run: restorekit init", err)
			}
			return fmt.Errorf("configuration not loaded\n\nTo get started, run: restorekit init")
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, "=== restorekit Effective Configuration ===")
		_, _ = fmt.Fprintln(out)

		source := cfg.ConfigFilePath
		if source == "" {
			source = "(defaults and environment only)"
		}
		_, _ = fmt.Fprintf(out, "📄 Config File:    %s\n", source)
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, "🛠️  Adapter Configuration:")
		_, _ = fmt.Fprintf(out, "   Program:        %s\n", cfg.Program.Name)
		_, _ = fmt.Fprintf(out, "   Cleanup Cap:    %s\n", describeCapacity(cfg.Adapter.CleanupCapacity))
		_, _ = fmt.Fprintf(out, "   Locale:         %s\n", describeLocale(cfg.Adapter.Locale))
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, "🐳 Docker Configuration:")
		_, _ = fmt.Fprintf(out, "   Socket Path:    %s\n", cfg.Docker.SocketPath)
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, "🔔 Notification Configuration:")
		_, _ = fmt.Fprintf(out, "   Enabled:        %v\n", cfg.Notification.Enabled)
		_, _ = fmt.Fprintf(out, "   Shoutrrr URL:   %s\n", maskShoutrrrURL(cfg.Notification.ShoutrrURL))
		_, _ = fmt.Fprintln(out)

		_, _ = fmt.Fprintln(out, "📁 Output Configuration:")
		_, _ = fmt.Fprintf(out, "   Transcripts:    %s (enabled: %v)\n", cfg.Output.TranscriptDir, cfg.Output.TranscriptEnabled)
		_, _ = fmt.Fprintf(out, "   History File:   %s\n", cfg.Output.HistoryFile)
		_, _ = fmt.Fprintf(out, "   Presets Dir:    %s\n", cfg.Output.PresetsDir)
		_, _ = fmt.Fprintf(out, "   Retention:      %d days\n", cfg.Output.RetentionDays)
		_, _ = fmt.Fprintln(out)

		return nil
	},
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(configCmd)
}

func describeCapacity(n int) string {
	switch {
	case n < 0:
		return "unlimited"
	case n == 0:
		return "default (20)"
	default:
		return fmt.Sprintf("%d", n)
	}
}

func describeLocale(locale string) string {
	if locale == "" {
		return "untranslated"
	}
	return locale
}

// maskShoutrrrURL masks sensitive parts of Shoutrrr URL
func maskShoutrrrURL(url string) string {
	if url == "" {
		return "❌ Not configured"
	}

	// Extract service type (e.g., discord://, slack://, smtp://)
	parts := strings.SplitN(url, "://", 2)
	if len(parts) != 2 {
		return "✅ Configured (invalid format)"
	}

	return fmt.Sprintf("✅ Configured (%s://***)", parts[0])
}
