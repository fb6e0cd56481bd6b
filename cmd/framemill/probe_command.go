package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"framemill/internal/config"
	"framemill/internal/media/ffprobe"
	"framemill/internal/report"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Inspect a media file the way the pipeline would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			prober := ffprobe.NewProber(cfg.Tools.FFprobe)
			result, err := prober.Inspect(cmd.Context(), path)
			if err != nil {
				return err
			}

			var size int64
			if info, statErr := os.Stat(path); statErr == nil {
				size = info.Size()
			}

			video := result.FirstVideoStream()
			if video == nil {
				return fmt.Errorf("no video stream in %s", path)
			}
			decision := ffprobe.DecideInterlace(video)
			frames, exact := ffprobe.FrameCount(result, size)
			frameText := report.FormatFrames(frames)
			switch {
			case frames == 0:
				frameText = "(unknown)"
			case !exact:
				frameText += " (estimated from size)"
			}

			fmt.Fprintf(cmd.OutOrStdout(), "container:       %s\n", result.Format.FormatName)
			fmt.Fprintf(cmd.OutOrStdout(), "codec:           %s\n", video.CodecName)
			fmt.Fprintf(cmd.OutOrStdout(), "pixel format:    %s\n", video.PixFmt)
			fmt.Fprintf(cmd.OutOrStdout(), "dimensions:      %dx%d\n", video.Width, video.Height)
			fmt.Fprintf(cmd.OutOrStdout(), "field order:     %s\n", orNone(video.FieldOrder))
			fmt.Fprintf(cmd.OutOrStdout(), "frame rate:      %.3f fps\n", result.FrameRate())
			fmt.Fprintf(cmd.OutOrStdout(), "duration:        %.2f s\n", result.DurationSeconds())
			fmt.Fprintf(cmd.OutOrStdout(), "frame count:     %s\n", frameText)
			fmt.Fprintf(cmd.OutOrStdout(), "interlaced:      %v\n", decision.Interlaced)
			if decision.Interlaced {
				fmt.Fprintf(cmd.OutOrStdout(), "top field first: %v\n", decision.TopFieldFirst)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "color tags:      primaries=%s trc=%s matrix=%s range=%s\n",
				orNone(video.ColorPrimaries), orNone(video.ColorTransfer),
				orNone(video.ColorSpace), orNone(video.ColorRange))
			return nil
		},
	}
}

func orNone(value string) string {
	if value == "" {
		return "(unknown)"
	}
	return value
}
