package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

const (
	checkmark = "✓"
)

var (
	cleanupDryRun bool
	cleanupForce  bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove stale run history and run logs",
	Long: `Identify and remove restore records that are no longer useful.

A history entry is stale when its run started more than retention_days ago or
when its archive no longer exists. A run log is stale when it is older than
retention_days. The cleanup command can list stale data or remove it with
confirmation.

Note: This command requires restorekit to be initialized. Run 'restorekit init'
first if you encounter configuration errors.`,
	Example: `  # List stale data
  restorekit cleanup list

  # Preview what would be deleted (dry-run)
  restorekit cleanup execute --dry-run

  # Delete with confirmation prompt
  restorekit cleanup execute

  # Delete without confirmation
  restorekit cleanup execute --force`,
}

var cleanupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stale run history and run logs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := GetConfig()
		if err := validateConfigOrExit(cfg, "cleanup"); err != nil {
			return err
		}

		stale, err := findStaleData(cfg, time.Now())
		if err != nil {
			return fmt.Errorf("failed to find stale data: %w", err)
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "🧹 Stale Data (retention: %d days):\n", cfg.Output.RetentionDays)
		_, _ = fmt.Fprintln(out, "")

		if stale.empty() {
			_, _ = fmt.Fprintf(out, "%s No stale data found\n", checkmark)
			_, _ = fmt.Fprintln(out, "  All storage is clean!")
			return nil
		}

		printStaleData(out, stale)

		_, _ = fmt.Fprintln(out, "")
		_, _ = fmt.Fprintln(out, "Run 'restorekit cleanup execute' to remove this data")

		return nil
	},
}

var cleanupExecuteCmd = &cobra.Command{
	Use:   "execute",
	Short: "Remove stale run history and run logs",
	Long: `Remove stale history entries and run logs.

By default, displays what will be deleted and prompts for confirmation.
Use --dry-run to preview without deleting, or --force to skip confirmation.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := GetConfig()
		if err := validateConfigOrExit(cfg, "cleanup"); err != nil {
			return err
		}

		stale, err := findStaleData(cfg, time.Now())
		if err != nil {
			return fmt.Errorf("failed to find stale data: %w", err)
		}

		out := cmd.OutOrStdout()
		if stale.empty() {
			_, _ = fmt.Fprintf(out, "%s No stale data found\n", checkmark)
			_, _ = fmt.Fprintln(out, "  All storage is clean!")
			return nil
		}

		_, _ = fmt.Fprintln(out, "⚠️  The following data will be removed:")
		_, _ = fmt.Fprintln(out, "")
		printStaleData(out, stale)
		_, _ = fmt.Fprintln(out, "")

		if cleanupDryRun {
			_, _ = fmt.Fprintln(out, "🔍 DRY RUN - No changes made")
			_, _ = fmt.Fprintln(out, "   Run without --dry-run to perform the cleanup")
			return nil
		}

		if !cleanupForce {
			_, _ = fmt.Fprint(out, "⚠️  Proceed with cleanup? (y/N): ")
			var response string
			if _, scanErr := fmt.Fscanln(cmd.InOrStdin(), &response); scanErr != nil {
				// Treat scan error as "no" response
				response = "n"
			}
			response = strings.ToLower(strings.TrimSpace(response))

			if response != "y" && response != "yes" {
				_, _ = fmt.Fprintln(out, "")
				_, _ = fmt.Fprintln(out, "❌ Cleanup canceled")
				return nil
			}
		}

		runs, logs, err := removeStaleData(cfg, stale)
		if err != nil {
			return fmt.Errorf("cleanup failed after removing %d run(s) and %d log(s): %w", runs, logs, err)
		}

		_, _ = fmt.Fprintln(out, "")
		_, _ = fmt.Fprintln(out, "✅ Cleanup complete")
		_, _ = fmt.Fprintf(out, "   Removed: %d history record(s), %d run log(s)\n", runs, logs)

		return nil
	},
}

func printStaleData(out io.Writer, stale *staleData) {
	if len(stale.runs) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, "Started\tJob\tStatus\tArchive")
		_, _ = fmt.Fprintln(w, "-------\t---\t------\t-------")
		for _, run := range stale.runs {
			archive := run.Archive
			if archive == "" {
				archive = "-"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				run.StartedAt.Format("2006-01-02 15:04:05"), run.Job, run.Status, archive)
		}
		_ = w.Flush() // Flush buffered output; error not actionable in CLI display context
		_, _ = fmt.Fprintln(out, "")
	}

	for _, path := range stale.logs {
		_, _ = fmt.Fprintf(out, "  • %s\n", path)
	}

	_, _ = fmt.Fprintf(out, "Found %d stale history record(s) and %d stale run log(s)\n", len(stale.runs), len(stale.logs))
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.AddCommand(cleanupListCmd)
	cleanupCmd.AddCommand(cleanupExecuteCmd)

	// Global cleanup flags
	cleanupCmd.PersistentFlags().BoolVar(&cleanupDryRun, "dry-run", false, "show what would be deleted without actually deleting")
	cleanupCmd.PersistentFlags().BoolVar(&cleanupForce, "force", false, "skip confirmation prompt")
}
