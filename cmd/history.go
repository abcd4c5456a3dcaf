package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zorak1103/restorekit/internal/history"
	"gopkg.in/yaml.v3"
)

var historyOutput string

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and reset the restore run history",
	Long: `History commands show and reset the record of past restore runs.

Every run started through 'restorekit restore' or 'restorekit batch' is
recorded with its job name, masked command line, archive and outcome.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded restore runs, newest first",
	Example: `  # Show the run history as a table
  restorekit history list

  # Export the run history
  restorekit history list --output json
  restorekit history list --output yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg = GetConfig()
		if err := validateConfigOrExit(cfg, "history"); err != nil {
			return err
		}

		h, err := history.Load(cfg.Output.HistoryFile)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		runs := h.List()
		out := cmd.OutOrStdout()

		switch strings.ToLower(historyOutput) {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(runs); err != nil {
				return fmt.Errorf("failed to encode history: %w", err)
			}
			return nil
		case "yaml":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(runs); err != nil {
				return fmt.Errorf("failed to encode history: %w", err)
			}
			return enc.Close()
		case "table", "":
		default:
			return fmt.Errorf("unknown output format %q (use table, json or yaml)", historyOutput)
		}

		_, _ = fmt.Fprintln(out, "📊 Restore History:")
		_, _ = fmt.Fprintln(out, "")

		if len(runs) == 0 {
			_, _ = fmt.Fprintln(out, "ℹ️  No runs recorded")
			_, _ = fmt.Fprintf(out, "   History file: %s\n", cfg.Output.HistoryFile)
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, "Started\tJob\tStatus\tExit\tErrors\tDuration\tArchive")
		_, _ = fmt.Fprintln(w, "-------\t---\t------\t----\t------\t--------\t-------")

		for _, run := range runs {
			archive := run.Archive
			if archive == "" {
				archive = "(standard input)"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
				run.StartedAt.Format("2006-01-02 15:04:05"), run.Job, run.Status,
				run.ExitCode, run.Errors, run.Duration.Round(time.Millisecond), archive)
		}

		_ = w.Flush() // Flush buffered output; error not actionable in CLI display context
		_, _ = fmt.Fprintln(out, "")
		_, _ = fmt.Fprintf(out, "Total: %d run(s)\n", len(runs))
		_, _ = fmt.Fprintf(out, "History file: %s\n", cfg.Output.HistoryFile)
		if !h.LastUpdated.IsZero() {
			_, _ = fmt.Fprintf(out, "Last updated: %s\n", h.LastUpdated.Format(time.RFC3339))
		}

		return nil
	},
}

var historyResetCmd = &cobra.Command{
	Use:   "reset [job-filter]",
	Short: "Reset the run history (optionally for specific jobs)",
	Long: `Reset removes recorded runs from the history file.

Without arguments, removes ALL runs.
With a pattern, removes only runs whose job name or archive matches it.`,
	Example: `  # Remove all recorded runs
  restorekit history reset --force

  # Remove the runs of one job
  restorekit history reset '^shop$' --force

  # Remove runs of archives below a directory
  restorekit history reset '^/backups/old/' --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg = GetConfig()
		if err := validateConfigOrExit(cfg, "history"); err != nil {
			return err
		}

		filter := ""
		if len(args) > 0 {
			filter = args[0]
		}

		out := cmd.OutOrStdout()
		if filter == "" {
			_, _ = fmt.Fprintln(out, "⚠️  Resetting history for ALL jobs")
		} else {
			_, _ = fmt.Fprintf(out, "⚠️  Resetting history for runs matching: %s\n", filter)
		}

		if !force {
			_, _ = fmt.Fprintln(out, "")
			_, _ = fmt.Fprintln(out, "❌ Aborted (use --force to confirm)")
			return nil
		}

		h, err := history.Load(cfg.Output.HistoryFile)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}

		if filter == "" {
			oldCount := h.Count()
			if err := h.Delete(); err != nil {
				return fmt.Errorf("failed to delete history file: %w", err)
			}
			_, _ = fmt.Fprintln(out, "")
			_, _ = fmt.Fprintln(out, "✅ History reset complete")
			_, _ = fmt.Fprintf(out, "   Removed %d run(s)\n", oldCount)
			_, _ = fmt.Fprintf(out, "   Deleted: %s\n", cfg.Output.HistoryFile)
			return nil
		}

		count, err := h.ResetFiltered(filter)
		if err != nil {
			return fmt.Errorf("failed to reset filtered history: %w", err)
		}

		_, _ = fmt.Fprintln(out, "")
		if count == 0 {
			_, _ = fmt.Fprintf(out, "ℹ️  No runs matched pattern: %s\n", filter)
		} else {
			_, _ = fmt.Fprintln(out, "✅ History reset complete")
			_, _ = fmt.Fprintf(out, "   Removed %d run(s) matching '%s'\n", count, filter)
		}

		return nil
	},
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyResetCmd)

	historyListCmd.Flags().StringVarP(&historyOutput, "output", "o", "table", "output format: table, json or yaml")
	historyResetCmd.Flags().BoolVar(&force, "force", false, "confirm history reset")
}
