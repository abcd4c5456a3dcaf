package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zorak1103/restorekit/internal/config"
	apperrors "github.com/zorak1103/restorekit/internal/errors"
	"github.com/zorak1103/restorekit/internal/reentry"
	"gopkg.in/yaml.v3"
)

// batchFile is the YAML document read by 'restorekit batch'
type batchFile struct {
	Jobs []batchJob `yaml:"jobs"`
}

// batchJob is one restore of a batch
type batchJob struct {
	Name        string   `yaml:"name"`
	Preset      string   `yaml:"preset"`
	Args        []string `yaml:"args"`
	StopOnAbort bool     `yaml:"stop_on_abort"`
}

type batchOutcome struct {
	job     string
	result  reentry.Result
	skipped bool
}

// loadBatch reads and validates a batch file. Jobs without a name are named
// after their preset, or "job-N".
func loadBatch(path string) (*batchFile, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- batch file path is given by the user
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file %s: %w", path, err)
	}

	var bf batchFile
	if err := yaml.Unmarshal(data, &bf); err != nil {
		return nil, fmt.Errorf("failed to parse batch file %s: %w", path, err)
	}

	if len(bf.Jobs) == 0 {
		return nil, fmt.Errorf("batch file %s defines no jobs", path)
	}

	seen := make(map[string]bool, len(bf.Jobs))
	for i := range bf.Jobs {
		job := &bf.Jobs[i]
		if job.Preset == "" && len(job.Args) == 0 {
			return nil, fmt.Errorf("job %d in batch file %s needs a preset or args", i+1, path)
		}
		if job.Name == "" {
			job.Name = job.Preset
		}
		if job.Name == "" || seen[job.Name] {
			job.Name = fmt.Sprintf("job-%d", i+1)
		}
		seen[job.Name] = true
	}

	return &bf, nil
}

var batchCmd = &cobra.Command{
	Use:   "batch FILE",
	Short: "Run several restores one after another",
	Long: `Batch runs every job of a YAML batch file in order, in one process.

Each job is either a preset, an explicit pg_restore argument list, or a
preset followed by extra arguments. A job that aborts does not stop the batch
unless it sets stop_on_abort. A summary table is printed at the end, and the
command fails when any job did not succeed.

Run 'restorekit init' to create a sample batch.yaml.`,
	Example: `  # Run the jobs of batch.yaml
  restorekit batch batch.yaml

  # Show per-job log details
  restorekit batch batch.yaml --verbose`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if err := validateConfigOrExit(cfg, "batch"); err != nil {
			return err
		}

		bf, err := loadBatch(args[0])
		if err != nil {
			return err
		}

		rn, err := newRunner(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		outcomes, err := runBatch(cmd, cfg, rn, bf)
		if err != nil {
			return err
		}

		printBatchSummary(cmd, outcomes)

		var failed []string
		for _, o := range outcomes {
			if o.skipped || o.result.Status != reentry.StatusSuccess {
				failed = append(failed, o.job)
			}
		}
		if len(failed) > 0 {
			return &apperrors.BatchError{File: args[0], Failed: failed}
		}
		return nil
	},
}

func runBatch(cmd *cobra.Command, cfg *config.Config, rn *runner, bf *batchFile) ([]batchOutcome, error) {
	ctx := commandContext(cmd)
	outcomes := make([]batchOutcome, 0, len(bf.Jobs))
	stopped := false

	for _, job := range bf.Jobs {
		if stopped || ctx.Err() != nil {
			outcomes = append(outcomes, batchOutcome{job: job.Name, skipped: true})
			continue
		}

		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "▶️  %s\n", job.Name)

		args, err := presetArgs(cfg, job.Preset, job.Args)
		if err != nil {
			log.WithError(err).WithField("job", job.Name).Error("skipping job")
			outcomes = append(outcomes, batchOutcome{job: job.Name, skipped: true})
			continue
		}

		res, err := rn.run(ctx, job.Name, args)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, batchOutcome{job: job.Name, result: res})

		if !res.OK() && job.StopOnAbort {
			log.WithField("job", job.Name).Warn("job aborted, stopping batch")
			stopped = true
		}
	}

	return outcomes, nil
}

func printBatchSummary(cmd *cobra.Command, outcomes []batchOutcome) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "")
	_, _ = fmt.Fprintln(out, "📊 Batch Summary:")
	_, _ = fmt.Fprintln(out, "")

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "Job\tStatus\tExit\tErrors\tDuration")
	_, _ = fmt.Fprintln(w, "---\t------\t----\t------\t--------")

	succeeded := 0
	for _, o := range outcomes {
		if o.skipped {
			_, _ = fmt.Fprintf(w, "%s\tskipped\t-\t-\t-\n", o.job)
			continue
		}
		if o.result.Status == reentry.StatusSuccess {
			succeeded++
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", o.job, o.result.Status, o.result.ExitCode(),
			o.result.Errors, o.result.Duration.Round(time.Millisecond))
	}
	_ = w.Flush() // Flush buffered output; error not actionable in CLI display context

	_, _ = fmt.Fprintln(out, "")
	_, _ = fmt.Fprintf(out, "Succeeded: %d of %d job(s)\n", succeeded, len(outcomes))
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(batchCmd)
}
