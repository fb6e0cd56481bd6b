package rewrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"framemill/internal/logging"
	"framemill/internal/media"
	"framemill/internal/media/ffprobe"
	"framemill/internal/services"
)

// MinOutputBytes is the plausibility floor for a rewrapped artifact. An
// encoder exit code of zero is not trusted on its own.
const MinOutputBytes = 1024 * 1024

// Executor abstracts encoder execution for testability. Output is the
// combined diagnostic text of the run.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// Rewrapper invokes ffmpeg to produce the normalized ProRes intermediate.
type Rewrapper struct {
	binary string
	exec   Executor
	logger *slog.Logger
}

// New constructs a Rewrapper for the configured ffmpeg binary.
func New(logger *slog.Logger, binary string) *Rewrapper {
	return NewWithExecutor(logger, binary, commandExecutor{})
}

// NewWithExecutor allows injecting a custom executor for testing.
func NewWithExecutor(logger *slog.Logger, binary string, exec Executor) *Rewrapper {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if exec == nil {
		exec = commandExecutor{}
	}
	return &Rewrapper{
		binary: binary,
		exec:   exec,
		logger: logging.NewComponentLogger(logger, "rewrap"),
	}
}

// Args builds the encoder arguments for a source. Interlace-preserving flags
// are added only when the source is interlaced, with the field-order flag
// following the decision.
func Args(source, output string, decision ffprobe.Decision) []string {
	args := []string{
		"-i", source,
		"-c:v", "prores_ks",
		"-profile:v", "3",
		"-pix_fmt", "yuv422p10le",
	}
	if decision.Interlaced {
		top := "0"
		if decision.TopFieldFirst {
			top = "1"
		}
		args = append(args, "-flags", "+ildct+ilme", "-top", top)
	}
	args = append(args,
		"-color_primaries", media.ColorPrimaries,
		"-color_trc", media.ColorTransfer,
		"-colorspace", media.ColorMatrix,
		"-color_range", media.ColorRange,
		"-c:a", "pcm_s24le",
		"-y", output,
	)
	return args
}

// Run re-encodes the source into the output directory and returns the
// intermediate path. The source must exist before any subprocess is spawned,
// and the artifact must exist and clear the size floor afterwards.
func (r *Rewrapper) Run(ctx context.Context, source, outputDir string, decision ffprobe.Decision) (string, error) {
	if _, err := os.Stat(source); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrRewrap, "rewrap", "stat source",
				fmt.Sprintf("source file missing: %s", source), nil)
		}
		return "", services.Wrap(services.ErrRewrap, "rewrap", "stat source", source, err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrFilesystem, "rewrap", "create output directory", outputDir, err)
	}

	output := OutputPath(source, outputDir)
	args := Args(source, output, decision)

	r.logger.InfoContext(ctx, "rewrapping source",
		logging.String(logging.FieldSource, source),
		logging.String(logging.FieldOutput, output),
		logging.Bool("interlaced", decision.Interlaced),
		logging.Bool("top_field_first", decision.TopFieldFirst))

	diagnostics, err := r.exec.Run(ctx, r.binary, args)
	if err != nil {
		return "", services.Wrap(services.ErrRewrap, "rewrap", "encode",
			tailOf(diagnostics), err)
	}

	info, err := os.Stat(output)
	if err != nil {
		return "", services.Wrap(services.ErrRewrap, "rewrap", "verify artifact",
			fmt.Sprintf("encoder reported success but %s is missing", output), err)
	}
	if info.Size() < MinOutputBytes {
		return "", services.Wrap(services.ErrRewrap, "rewrap", "verify artifact",
			fmt.Sprintf("artifact implausibly small: %d bytes", info.Size()), nil)
	}
	return output, nil
}

// tailOf keeps the last few diagnostic lines so error messages carry the
// actual encoder complaint without reproducing the whole transcript.
func tailOf(diagnostics []byte) string {
	text := strings.TrimSpace(string(diagnostics))
	if text == "" {
		return "encoder exited non-zero"
	}
	lines := strings.Split(text, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "; ")
}
