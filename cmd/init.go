package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zorak1103/restorekit/internal/templates"
)

var (
	force bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize restorekit configuration and directory structure",
	Long: `Init creates the configuration files and directories restorekit uses.

This command will create:
  - config.yaml (sample configuration file)
  - .env (environment variable template)
  - batch.yaml (sample batch file)
  - transcripts/ (directory for Markdown run logs)
  - presets/ (directory for argument presets)

Run this once when setting up restorekit for the first time.`,
	Example: `  # Initialize in current directory
  restorekit init

  # Force overwrite existing files
  restorekit init --force`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, "🔧 Initializing restorekit...")

		for _, dir := range []string{"transcripts", "presets"} {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
			_, _ = fmt.Fprintf(out, "✅ Created directory: %s\n", dir)
		}

		files := []struct {
			name    string
			content []byte
		}{
			{"config.yaml", templates.ConfigYAML},
			{".env", templates.EnvFile},
			{"batch.yaml", templates.BatchYAML},
		}

		for _, f := range files {
			if _, err := os.Stat(f.name); err == nil && !force {
				_, _ = fmt.Fprintf(out, "⚠️  Skipping %s (already exists, use --force to overwrite)\n", f.name)
				continue
			}

			if err := os.WriteFile(f.name, f.content, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", f.name, err)
			}

			_, _ = fmt.Fprintf(out, "✅ Created %s\n", f.name)
		}

		_, _ = fmt.Fprintln(out, "\n🎉 Initialization complete!")
		_, _ = fmt.Fprintln(out, "\n📝 Next steps:")
		_, _ = fmt.Fprintln(out, "   1. Edit config.yaml (Docker socket, notifications, run logs)")
		_, _ = fmt.Fprintln(out, "   2. Run 'restorekit restore -- -l /path/to/archive' to list an archive")
		_, _ = fmt.Fprintln(out, "   3. Run 'restorekit restore -- -d mydb /path/to/archive' to restore it")

		return nil
	},
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration files")
}
