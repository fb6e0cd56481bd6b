package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"framemill/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if _, err := os.Stat(target); err == nil && !overwrite {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", target)
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVar(&targetPath, "path", "", "Target path for the sample configuration")
	cmd.Flags().BoolVar(&overwrite, "force", false, "Overwrite an existing file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config file:     %s\n", ctx.configPath)
			fmt.Fprintf(out, "output dir:      %s\n", orUnset(cfg.Paths.OutputDir))
			fmt.Fprintf(out, "log dir:         %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "vspipe:          %s\n", cfg.Tools.VSPipe)
			fmt.Fprintf(out, "ffmpeg:          %s\n", cfg.Tools.FFmpeg)
			fmt.Fprintf(out, "ffprobe:         %s\n", cfg.Tools.FFprobe)
			fmt.Fprintf(out, "filter script:   %s\n", cfg.Tools.FilterScript)
			fmt.Fprintf(out, "target:          %dx%d @ %s %s\n",
				cfg.Pipeline.TargetWidth, cfg.Pipeline.TargetHeight,
				cfg.Pipeline.TargetFPS, cfg.Pipeline.PixelFormat)
			fmt.Fprintf(out, "watchdog:        %ds timeout, %ds interval\n",
				cfg.Watchdog.TimeoutSeconds, cfg.Watchdog.CheckIntervalSeconds)
			fmt.Fprintf(out, "skip existing:   %v\n", cfg.Batch.SkipExisting)
			fmt.Fprintf(out, "recursive:       %v\n", cfg.Batch.Recursive)
			fmt.Fprintf(out, "logging:         %s %s\n", cfg.Logging.Format, cfg.Logging.Level)
			fmt.Fprintf(out, "profile:         %v\n", cfg.Profile.Enabled)
			return nil
		},
	}
}

func orUnset(value string) string {
	if strings.TrimSpace(value) == "" {
		return "(unset)"
	}
	return value
}
