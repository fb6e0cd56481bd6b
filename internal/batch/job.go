package batch

import (
	"time"

	"framemill/internal/media/ffprobe"
	"framemill/internal/runlog"
)

// Job tracks one source file's journey through the pipeline. It is created
// at discovery and mutated only by the orchestrator and the stage currently
// running it.
type Job struct {
	Source string
	Output string
	// FileID is the runlog row, zero when history is disabled.
	FileID int64

	Probe    ffprobe.Result
	ProbeErr error
	Decision ffprobe.Decision
	// FrameCount is the probed or estimated frame total; it bounds the
	// frame range only when FrameCountExact is set.
	FrameCount      int
	FrameCountExact bool

	Status runlog.Status
	Err    error
	// Frames is the last frame counter accepted by the progress monitor.
	Frames int

	StartedAt  time.Time
	FinishedAt time.Time
}

// Elapsed returns the job's wall time once finished.
func (j *Job) Elapsed() time.Duration {
	if j.StartedAt.IsZero() || j.FinishedAt.IsZero() {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}
