package cmd

import (
	"github.com/spf13/cobra"
)

var (
	restoreJob    string
	restorePreset string
)

var restoreCmd = &cobra.Command{
	Use:   "restore [flags] -- [pg_restore options] [FILE]",
	Short: "Run one pg_restore invocation",
	Long: `Restore runs pg_restore in-process with the given command line.

Everything after "--" is handed to pg_restore unchanged; its diagnostics are
printed to stderr when the run ends, followed by the outcome. The run is
recorded in the history, logged to the transcript directory when enabled and
announced via Shoutrrr when notifications are enabled.

The process exits with the code the standalone tool would have used.`,
	Example: `  # List the contents of an archive
  restorekit restore -- -l /backups/shop.tar

  # Restore into a database with 4 parallel jobs
  restorekit restore --job shop -- -d shop -j 4 /backups/shop.tar

  # Restore into the PostgreSQL port a container publishes
  restorekit restore -- --container pg-dev -d shop -U postgres /backups/shop.tar

  # Use the arguments stored in presets/nightly.args
  restorekit restore --preset nightly -- /backups/shop.tar`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if err := validateConfigOrExit(cfg, "restore"); err != nil {
			return err
		}

		args, err := presetArgs(cfg, restorePreset, args)
		if err != nil {
			return err
		}

		job := restoreJob
		if job == "" {
			job = jobName(cfg, restorePreset, args)
		}

		rn, err := newRunner(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		res, err := rn.run(commandContext(cmd), job, args)
		if err != nil {
			return err
		}
		return statusError(cfg.Program.Name, res)
	},
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().StringVar(&restoreJob, "job", "", "name recorded for this run (default: preset or archive name)")
	restoreCmd.Flags().StringVar(&restorePreset, "preset", "", "prepend the arguments stored in {presets_dir}/NAME.args")
}
