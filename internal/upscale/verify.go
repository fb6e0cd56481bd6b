package upscale

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"framemill/internal/logging"
	"framemill/internal/media"
	"framemill/internal/media/ffprobe"
	"framemill/internal/services"
)

// MinArtifactBytes is the size floor below which an artifact is rejected.
const MinArtifactBytes = 1024 * 1024

// Verifier checks produced artifacts after the pipeline exits.
type Verifier struct {
	prober *ffprobe.Prober
	logger *slog.Logger
}

// NewVerifier builds a Verifier around the given prober.
func NewVerifier(logger *slog.Logger, prober *ffprobe.Prober) *Verifier {
	return &Verifier{
		prober: prober,
		logger: logging.NewComponentLogger(logger, "verifier"),
	}
}

// Integrity fails when the artifact is missing or under the size floor. A
// duration the probe cannot report is a soft pass, since some containers
// legitimately omit duration metadata.
func (v *Verifier) Integrity(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrVerification, "verifier", "integrity",
				fmt.Sprintf("artifact missing: %s", path), nil)
		}
		return services.Wrap(services.ErrVerification, "verifier", "integrity", path, err)
	}
	if info.Size() < MinArtifactBytes {
		return services.Wrap(services.ErrVerification, "verifier", "integrity",
			fmt.Sprintf("artifact under size floor: %d bytes", info.Size()), nil)
	}

	result, err := v.prober.Inspect(ctx, path)
	if err != nil {
		v.logger.WarnContext(ctx, "duration probe failed, accepting artifact on size",
			logging.String(logging.FieldOutput, path),
			logging.Error(err))
		return nil
	}
	if duration := result.DurationSeconds(); duration > 0 {
		v.logger.InfoContext(ctx, "artifact verified",
			logging.String(logging.FieldOutput, path),
			logging.Float64("duration_seconds", duration))
	} else {
		v.logger.WarnContext(ctx, "artifact reports no duration, accepting on size",
			logging.String(logging.FieldOutput, path))
	}
	return nil
}

// ColorSpace re-probes the artifact's color tags and reports whether all
// three match the target. The result is advisory; callers log a mismatch but
// never fail the job on it.
func (v *Verifier) ColorSpace(ctx context.Context, path string) bool {
	result, err := v.prober.Inspect(ctx, path)
	if err != nil {
		v.logger.WarnContext(ctx, "color probe failed",
			logging.String(logging.FieldOutput, path),
			logging.Error(err))
		return false
	}
	video := result.FirstVideoStream()
	if video == nil {
		return false
	}
	return media.MatchesTargetColor(video.ColorPrimaries, video.ColorTransfer, video.ColorSpace)
}
