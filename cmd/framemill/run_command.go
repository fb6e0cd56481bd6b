package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"framemill/internal/batch"
	"framemill/internal/config"
	"framemill/internal/deps"
	"framemill/internal/logging"
	"framemill/internal/report"
	"framemill/internal/runlog"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		outputFlag   string
		recursive    bool
		skipExisting bool
		testFrames   int
	)

	cmd := &cobra.Command{
		Use:   "run <input-file-or-directory>",
		Short: "Upscale one file or every supported file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			opts := batch.Options{
				SkipExisting: cfg.Batch.SkipExisting,
				Recursive:    cfg.Batch.Recursive,
				TestFrames:   testFrames,
			}
			if cmd.Flags().Changed("skip-existing") {
				opts.SkipExisting = skipExisting
			}
			if cmd.Flags().Changed("recursive") {
				opts.Recursive = recursive
			}

			opts.InputPath, err = config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			opts.OutputDir, err = resolveOutputDir(outputFlag, cfg)
			if err != nil {
				return err
			}

			return runBatch(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output directory (overrides paths.output_dir)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Scan the input directory recursively")
	cmd.Flags().BoolVar(&skipExisting, "skip-existing", true, "Skip files whose output is already current")
	cmd.Flags().IntVar(&testFrames, "test-frames", 0, "Process only the first N frames of each file")

	return cmd
}

func resolveOutputDir(flagValue string, cfg *config.Config) (string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return config.ExpandPath(flagValue)
	}
	if strings.TrimSpace(cfg.Paths.OutputDir) != "" {
		return cfg.Paths.OutputDir, nil
	}
	return "", fmt.Errorf("no output directory: pass --output or set paths.output_dir")
}

func runBatch(cmdCtx context.Context, cfg *config.Config, opts batch.Options) error {
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	inputInfo, statErr := os.Stat(opts.InputPath)
	batchMode := statErr == nil && inputInfo.IsDir()

	opts.RunID = uuid.New().String()
	logDir, logPath, err := batch.CreateRunLogDir(opts.OutputDir, batchMode, time.Now())
	if err != nil {
		return err
	}
	opts.LogDir = logDir

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String(logging.FieldRunID, opts.RunID))

	logDependencySnapshot(logger, cfg)
	if err := deps.Verify(cfg); err != nil {
		return err
	}

	store, err := runlog.Open(runlog.DefaultPath(cfg))
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}

	var profile *report.Profile
	if cfg.Profile.Enabled {
		profile = report.NewProfile()
	}
	console := batch.NewConsole(os.Stdout)

	shutdown := batch.NewShutdown(logger)
	shutdown.Add("finish progress bar", func() error {
		console.FinishFile()
		return nil
	})
	if profile != nil {
		shutdown.Add("save performance profile", func() error {
			return profile.Write(logDir)
		})
	}
	shutdown.Add("close run history", store.Close)
	defer shutdown.Execute()

	orchestrator := batch.New(logger, cfg, store, console, profile, opts)
	outcome, err := orchestrator.Run(signalCtx)
	if err != nil {
		return err
	}

	report.WriteOutcome(os.Stdout, outcome)
	logger.Info("run complete",
		logging.Int("total", outcome.Total),
		logging.Int("succeeded", outcome.Succeeded),
		logging.Int("failed", outcome.Failed),
		logging.Int("skipped", outcome.Skipped),
		logging.String("log", logPath))

	if signalCtx.Err() != nil {
		logger.Warn("run interrupted, partial results recorded",
			logging.String("log_dir", logDir))
		return context.Canceled
	}
	return nil
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	for _, status := range deps.Check(deps.Requirements(cfg)) {
		if status.Available {
			logger.Info("dependency available",
				logging.String("name", status.Name),
				logging.String("command", filepath.Base(status.Command)))
			continue
		}
		logger.Warn("dependency missing",
			logging.String("name", status.Name),
			logging.String("detail", status.Detail))
	}
}
