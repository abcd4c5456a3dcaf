package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/zorak1103/restorekit/internal/config"
	"github.com/zorak1103/restorekit/internal/diag"
	apperrors "github.com/zorak1103/restorekit/internal/errors"
	"github.com/zorak1103/restorekit/internal/history"
	"github.com/zorak1103/restorekit/internal/notification"
	"github.com/zorak1103/restorekit/internal/pgrestore"
	"github.com/zorak1103/restorekit/internal/reentry"
	"github.com/zorak1103/restorekit/internal/runlog"
	"github.com/zorak1103/restorekit/internal/sanitize"
)

// runOptions are appended to every run's options; tests use it to replace
// the standard streams.
var runOptions []pgrestore.Option

// runner executes restore jobs one after another and records each outcome.
type runner struct {
	cfg      *config.Config
	out      io.Writer
	history  *history.History
	runlog   *runlog.Logger
	notifier *notification.Notifier
}

func newRunner(cfg *config.Config, out io.Writer) (*runner, error) {
	h, err := history.Load(cfg.Output.HistoryFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	notifier, err := notification.NewNotifier(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}

	return &runner{
		cfg:      cfg,
		out:      out,
		history:  h,
		runlog:   runlog.NewLogger(cfg.Output.TranscriptDir, cfg.Output.TranscriptEnabled),
		notifier: notifier,
	}, nil
}

// run performs one restore with args (without argv[0]). The returned error
// is only set when the run could not start; every outcome of the restore
// itself is in the result.
func (rn *runner) run(ctx context.Context, job string, args []string) (reentry.Result, error) {
	argv := append([]string{rn.cfg.Program.Name}, args...)
	archivePath := pgrestore.InputFile(argv)

	logger := log.WithFields(logrus.Fields{
		"job":     job,
		"program": rn.cfg.Program.Name,
		"archive": archivePath,
	})
	logger.Debug("starting restore")

	opts := []pgrestore.Option{
		pgrestore.WithDocker(rn.cfg.Docker.SocketPath, nil),
		pgrestore.WithCleanupCapacity(rn.cfg.Adapter.CleanupCapacity),
	}
	if tag, ok := rn.cfg.Language(); ok {
		opts = append(opts, pgrestore.WithLocale(tag))
	}
	opts = append(opts, runOptions...)

	var transcript diag.Transcript
	started := time.Now()
	res, err := pgrestore.Run(ctx, argv, &transcript, opts...)
	if err != nil {
		return res, fmt.Errorf("restore %s could not start: %w", job, err)
	}

	_, _ = transcript.WriteTo(rn.out)
	printResult(rn.out, job, res)

	logger = logger.WithFields(logrus.Fields{
		"status":   res.Status.String(),
		"code":     res.Code,
		"errors":   res.Errors,
		"duration": res.Duration,
	})
	logger.Info("restore finished")

	logFile, err := rn.runlog.LogRun(runlog.Record{
		Job:        job,
		Program:    rn.cfg.Program.Name,
		Args:       args,
		Archive:    archivePath,
		Result:     res,
		StartedAt:  started,
		Transcript: transcript.String(),
	})
	if err != nil {
		logger.WithError(err).Warn("failed to write run log")
	} else if logFile != "" {
		logger.WithField("file", logFile).Debug("wrote run log")
	}

	rn.history.Add(history.Entry{
		Job:       job,
		Program:   rn.cfg.Program.Name,
		Args:      sanitize.MaskArgs(args),
		Archive:   archivePath,
		Status:    res.Status.String(),
		ExitCode:  res.ExitCode(),
		Errors:    res.Errors,
		StartedAt: started,
		Duration:  res.Duration,
		LogFile:   logFile,
	})
	if err := rn.history.Save(); err != nil {
		logger.WithError(err).Warn("failed to save history")
	}

	if err := rn.notifier.SendRunSummary(notification.RunSummary{
		Job:        job,
		Program:    rn.cfg.Program.Name,
		Archive:    archivePath,
		Status:     res.Status.String(),
		ExitCode:   res.ExitCode(),
		Errors:     res.Errors,
		Duration:   res.Duration,
		Transcript: transcript.String(),
	}); err != nil {
		logger.WithError(err).Warn("failed to send notification")
	}

	return res, nil
}

// printResult writes the colored one-line outcome of a run.
func printResult(w io.Writer, job string, res reentry.Result) {
	c, symbol := color.New(color.FgGreen), "✅"
	switch res.Status {
	case reentry.StatusCompletedWithErrors:
		c, symbol = color.New(color.FgYellow), "⚠️ "
	case reentry.StatusAborted:
		c, symbol = color.New(color.FgRed), "❌"
	}
	_, _ = c.Fprintf(w, "%s %s: %s (%s)\n", symbol, job, res, res.Duration.Round(time.Millisecond))
}

// statusError turns a result that is not a success into a command error.
func statusError(program string, res reentry.Result) error {
	if res.Status == reentry.StatusSuccess {
		return nil
	}
	return &apperrors.RunStatusError{
		Program: program,
		Status:  res.Status.String(),
		Code:    res.ExitCode(),
		Errors:  res.Errors,
	}
}

// presetArgs prepends the arguments of preset (if any) to args.
func presetArgs(cfg *config.Config, preset string, args []string) ([]string, error) {
	if preset == "" {
		return args, nil
	}
	stored, err := config.GetPresetArgs(preset, cfg.Output.PresetsDir)
	if err != nil {
		return nil, err
	}
	return append(stored, args...), nil
}

// jobName picks a name for a run that was not given one: the preset, the
// archive base name, or the program name.
func jobName(cfg *config.Config, preset string, args []string) string {
	if preset != "" {
		return preset
	}
	if input := pgrestore.InputFile(append([]string{cfg.Program.Name}, args...)); input != "" {
		base := filepath.Base(input)
		if name := strings.TrimSuffix(base, filepath.Ext(base)); name != "" {
			return name
		}
	}
	return cfg.Program.Name
}
