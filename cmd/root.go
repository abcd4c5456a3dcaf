// Package cmd implements the CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/zorak1103/restorekit/internal/config"
	apperrors "github.com/zorak1103/restorekit/internal/errors"
	"github.com/zorak1103/restorekit/internal/version"
)

var (
	cfgFile       string
	verbose       bool
	cfg           *config.Config
	errConfigLoad error
)

var rootCmd = &cobra.Command{
	Use:   "restorekit",
	Short: "Run pg_restore in-process, as often as you like",
	Long: `restorekit runs pg_restore as a subroutine of a long-lived process.

Every run takes the familiar pg_restore command line and ends with a result
instead of terminating the process:
  - Diagnostics are captured into a transcript instead of stderr
  - Fatal errors unwind the run and release its resources
  - Runs can follow each other in one process (see 'restorekit batch')
  - Results are recorded in a run history and optional Markdown logs
  - Notifications via Shoutrrr after every restore`,
	Version:       version.GetFullVersion(),
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		configureLogging(cmd.ErrOrStderr(), verbose)

		skipConfig := cmd.Name() == "init" || cmd.Name() == "help" || cmd.Name() == "version"
		if skipConfig {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			// Commands that need a configuration fail in validateConfigOrExit;
			// init works without one.
			errConfigLoad = err
			log.WithError(err).Debug("could not load config")
		}

		if cfg != nil {
			log.WithField("file", cfg.ConfigFilePath).Debug("loaded configuration")
		}

		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	var statusErr *apperrors.RunStatusError
	if errors.As(err, &statusErr) {
		return statusErr.ExitCode()
	}
	return 1
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// GetConfig returns the loaded configuration or nil if not loaded.
// Must be called after rootCmd.PersistentPreRunE has executed.
func GetConfig() *config.Config {
	return cfg
}

// GetConfigLoadError returns any error encountered during config loading.
// Returns nil if configuration loaded successfully or was not attempted.
func GetConfigLoadError() error {
	return errConfigLoad
}

// IsVerbose returns whether verbose mode is enabled via the -v flag.
func IsVerbose() bool {
	return verbose
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
