package upscale

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"framemill/internal/config"
	"framemill/internal/media"
	"framemill/internal/process"
)

// Request describes one upscale invocation.
type Request struct {
	// Source is the rewrapped intermediate to read.
	Source string
	// Output is the final artifact path.
	Output string
	// FrameLimit bounds the filter stage to frames [0, FrameLimit-1].
	// Zero leaves the range unbounded.
	FrameLimit int
}

// Build assembles the two pipeline stages for a request. Stage A's stdout is
// wired to stage B's stdin by the supervisor.
func Build(cfg *config.Config, req Request) (process.Stage, process.Stage) {
	filterArgs := []string{
		"-a", "input_file=" + req.Source,
		cfg.Tools.FilterScript,
	}
	if req.FrameLimit > 0 {
		filterArgs = append(filterArgs, "-s", "0", "-e", strconv.Itoa(req.FrameLimit-1))
	}
	filterArgs = append(filterArgs, "-")

	encodeArgs := []string{
		"-f", "rawvideo",
		"-pix_fmt", cfg.Pipeline.PixelFormat,
		"-s", fmt.Sprintf("%dx%d", cfg.Pipeline.TargetWidth, cfg.Pipeline.TargetHeight),
		"-r", cfg.Pipeline.TargetFPS,
		"-i", "-",
		"-c:v", "prores_ks",
		"-profile:v", "3",
		"-pix_fmt", cfg.Pipeline.PixelFormat,
		"-color_range", media.ColorRange,
		"-color_primaries", media.ColorPrimaries,
		"-color_trc", media.ColorTransfer,
		"-colorspace", media.ColorMatrix,
		"-video_track_timescale", timescale(cfg.Pipeline.TargetFPS),
		"-y", req.Output,
	}

	filter := process.Stage{Name: "filter", Binary: cfg.Tools.VSPipe, Args: filterArgs}
	encode := process.Stage{Name: "encode", Binary: cfg.Tools.FFmpeg, Args: encodeArgs}
	return filter, encode
}

// OutputPath returns the final artifact path for an original source file.
// The rewrap suffix never appears in the final name.
func OutputPath(source, outputDir string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(outputDir, base+".mov")
}

func timescale(fps string) string {
	rate, err := config.ParseFrameRate(fps)
	if err != nil || rate <= 0 {
		return "25"
	}
	return strconv.Itoa(int(rate + 0.5))
}
