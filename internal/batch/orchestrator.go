package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"framemill/internal/config"
	"framemill/internal/logging"
	"framemill/internal/media/ffprobe"
	"framemill/internal/report"
	"framemill/internal/rewrap"
	"framemill/internal/runlog"
	"framemill/internal/services"
	"framemill/internal/upscale"
)

// Options are the per-run knobs resolved from flags and config.
type Options struct {
	InputPath    string
	OutputDir    string
	Recursive    bool
	SkipExisting bool
	// TestFrames bounds every job to the first N frames when positive.
	TestFrames int
	RunID      string
	LogDir     string
}

// State aggregates batch counters for the duration of one run.
type State struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	// Active is the index of the job currently running.
	Active int
}

// Orchestrator sequences jobs through the pipeline, one at a time.
type Orchestrator struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *runlog.Store
	console *Console
	profile *report.Profile
	opts    Options

	prober    *ffprobe.Prober
	rewrapper *rewrap.Rewrapper
	runner    *upscale.Runner
	verifier  *upscale.Verifier
}

// New builds an Orchestrator. store and profile may be nil when history or
// profiling is disabled.
func New(logger *slog.Logger, cfg *config.Config, store *runlog.Store, console *Console, profile *report.Profile, opts Options) *Orchestrator {
	prober := ffprobe.NewProber(cfg.Tools.FFprobe)
	return &Orchestrator{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "batch"),
		store:     store,
		console:   console,
		profile:   profile,
		opts:      opts,
		prober:    prober,
		rewrapper: rewrap.New(logger, cfg.Tools.FFmpeg),
		runner:    upscale.NewRunner(logger, cfg),
		verifier:  upscale.NewVerifier(logger, prober),
	}
}

// Run drives the whole batch and returns the aggregate outcome. Job-level
// failures are absorbed into the counters; the returned error is non-nil
// only for run-level failures, which either prevent the batch from starting
// or abort it mid-way when the output tree itself has broken.
func (o *Orchestrator) Run(ctx context.Context) (report.Outcome, error) {
	start := time.Now()

	if err := os.MkdirAll(o.opts.OutputDir, 0o755); err != nil {
		return report.Outcome{}, services.Wrap(services.ErrFilesystem, "batch", "create output directory",
			o.opts.OutputDir, err)
	}

	lock := flock.New(filepath.Join(o.opts.OutputDir, "framemill.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return report.Outcome{}, services.Wrap(services.ErrFilesystem, "batch", "acquire lock",
			lock.Path(), err)
	}
	if !locked {
		return report.Outcome{}, services.Wrap(services.ErrFilesystem, "batch", "acquire lock",
			"another run is already writing to this output directory", nil)
	}
	defer func() { _ = lock.Unlock() }()

	files, err := Discover(o.opts.InputPath, o.opts.Recursive)
	if err != nil {
		return report.Outcome{}, err
	}

	o.printDiscovery(files)

	jobs := make([]*Job, len(files))
	for i, source := range files {
		jobs[i] = &Job{Source: source, Status: runlog.StatusPending}
	}
	o.recordRunStart(ctx, jobs, start)

	state := State{Total: len(jobs)}
	var runErr error
	for i, job := range jobs {
		if ctx.Err() != nil {
			o.logger.WarnContext(ctx, "cancellation requested, leaving remaining files pending",
				logging.Int("remaining", len(jobs)-i))
			break
		}
		state.Active = i
		o.console.Printf("[%d/%d] %s", i+1, len(jobs), filepath.Base(job.Source))

		o.runJobGuarded(ctx, job)
		job.FinishedAt = time.Now()

		switch job.Status {
		case runlog.StatusSucceeded:
			state.Succeeded++
			o.console.Printf("  done in %s (%d frames)",
				job.Elapsed().Round(time.Second), job.Frames)
		case runlog.StatusSkipped:
			state.Skipped++
		default:
			state.Failed++
		}
		o.recordJobOutcome(ctx, job)

		// A broken output tree would fail every remaining file the same
		// way; stop instead of grinding through them.
		if services.RunFatal(job.Err) {
			o.logger.ErrorContext(ctx, "run-fatal failure, abandoning remaining files",
				logging.Int("remaining", len(jobs)-i-1),
				logging.Error(job.Err))
			runErr = job.Err
			break
		}
	}

	outcome := report.Outcome{
		Total:     state.Total,
		Succeeded: state.Succeeded,
		Failed:    state.Failed,
		Skipped:   state.Skipped,
		Elapsed:   time.Since(start),
		OutputDir: o.opts.OutputDir,
		LogDir:    o.opts.LogDir,
	}
	o.recordRunFinish(ctx, outcome)
	return outcome, runErr
}

func (o *Orchestrator) printDiscovery(files []string) {
	discovered := make([]report.DiscoveredFile, 0, len(files))
	for _, path := range files {
		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
		discovered = append(discovered, report.DiscoveredFile{Path: path, Size: size})
	}
	report.WriteDiscovery(o.console.Writer(), report.Discovery{
		InputPath:    o.opts.InputPath,
		OutputDir:    o.opts.OutputDir,
		Recursive:    o.opts.Recursive,
		SkipExisting: o.opts.SkipExisting,
		TestFrames:   o.opts.TestFrames,
		Files:        discovered,
	})
}

// runJobGuarded catches panics at the job boundary so one job's failure
// never aborts the batch.
func (o *Orchestrator) runJobGuarded(ctx context.Context, job *Job) {
	defer func() {
		if r := recover(); r != nil {
			job.Status = runlog.StatusFailed
			job.Err = services.Wrap(services.ErrProcess, "batch", "job",
				fmt.Sprintf("uncaught panic: %v", r), nil)
			o.logger.ErrorContext(ctx, "job panicked",
				logging.String(logging.FieldSource, job.Source),
				logging.Any("panic", fmt.Sprintf("%v", r)))
		}
	}()
	o.runJob(ctx, job)
}

func (o *Orchestrator) runJob(ctx context.Context, job *Job) {
	job.StartedAt = time.Now()
	job.Output = upscale.OutputPath(job.Source, o.opts.OutputDir)

	if EvaluateSkip(o.opts.SkipExisting, job.Source, job.Output) {
		job.Status = runlog.StatusSkipped
		o.logger.InfoContext(ctx, "skipping file, output is current",
			logging.String(logging.FieldSource, job.Source),
			logging.String(logging.FieldOutput, job.Output))
		o.console.Printf("  skipped (output up to date)")
		return
	}

	o.probe(ctx, job)

	o.setStatus(ctx, job, runlog.StatusRewrapping)
	needed, reason := rewrap.Decide(job.Probe, job.ProbeErr, job.Source)
	o.logger.InfoContext(ctx, "rewrap decision",
		logging.String(logging.FieldSource, job.Source),
		logging.Bool("rewrap", needed),
		logging.String("reason", reason))

	intermediate := job.Source
	if needed {
		rewrapStart := time.Now()
		var err error
		intermediate, err = o.rewrapper.Run(ctx, job.Source, o.opts.OutputDir, job.Decision)
		if err != nil {
			o.fail(ctx, job, err)
			return
		}
		o.recordStage("rewrap", job.Source, time.Since(rewrapStart))
	}
	o.refineFrameCount(ctx, job, intermediate)

	o.setStatus(ctx, job, runlog.StatusProcessing)
	// Only an exact count may bound the frame range; the size-based
	// estimate stays display-only and the range runs unbounded.
	limit := 0
	switch {
	case o.opts.TestFrames > 0:
		limit = o.opts.TestFrames
	case job.FrameCountExact:
		limit = job.FrameCount
	}
	monitorTotal := 0
	if job.FrameCountExact {
		monitorTotal = job.FrameCount
	}
	monitor := upscale.NewMonitor(monitorTotal, o.opts.TestFrames, o.console.Publish)
	display := limit
	if display == 0 {
		display = job.FrameCount
	}
	o.console.StartFile(job.Source, max(display, 1))

	upscaleStart := time.Now()
	err := o.runner.Run(ctx, upscale.Request{
		Source:     intermediate,
		Output:     job.Output,
		FrameLimit: limit,
	}, monitor)
	o.console.FinishFile()
	job.Frames = monitor.Completed()
	o.recordStage("upscale", job.Source, time.Since(upscaleStart))
	if o.profile != nil {
		o.profile.AddFrames(job.Frames)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = services.Wrap(services.ErrProcess, "batch", "job", "cancelled mid-pipeline", err)
		}
		o.fail(ctx, job, err)
		return
	}

	o.setStatus(ctx, job, runlog.StatusVerifying)
	if err := o.verifier.Integrity(ctx, job.Output); err != nil {
		o.fail(ctx, job, err)
		return
	}

	job.Status = runlog.StatusSucceeded
	o.logger.InfoContext(ctx, "file complete",
		logging.String(logging.FieldSource, job.Source),
		logging.String(logging.FieldOutput, job.Output),
		logging.Int("frames", job.Frames))

	// The ProRes intermediate has served its purpose once the final
	// artifact verifies.
	if intermediate != job.Output {
		if err := os.Remove(intermediate); err != nil {
			o.logger.Debug("leave intermediate in place", logging.Error(err))
		}
	}
}

func (o *Orchestrator) probe(ctx context.Context, job *Job) {
	var size int64
	if info, err := os.Stat(job.Source); err == nil {
		size = info.Size()
	}

	result, err := o.prober.Inspect(ctx, job.Source)
	if err != nil {
		// Recoverable: proceed with conservative defaults.
		job.ProbeErr = services.Wrap(services.ErrProbe, "batch", "probe", job.Source, err)
		job.Decision = ffprobe.Decision{Interlaced: true, TopFieldFirst: true}
		o.logger.WarnContext(ctx, "probe failed, assuming interlaced top-field-first",
			logging.String(logging.FieldSource, job.Source),
			logging.Error(err))
	} else {
		job.Probe = result
		job.Decision = ffprobe.DecideInterlace(result.FirstVideoStream())
	}
	job.FrameCount, job.FrameCountExact = ffprobe.FrameCount(job.Probe, size)
}

// refineFrameCount re-probes the rewrapped intermediate, which usually
// declares an exact nb_frames even when the original source did not.
func (o *Orchestrator) refineFrameCount(ctx context.Context, job *Job, intermediate string) {
	if job.FrameCountExact {
		return
	}
	result, err := o.prober.Inspect(ctx, intermediate)
	if err != nil {
		return
	}
	if frames, exact := ffprobe.FrameCount(result, 0); exact {
		job.FrameCount = frames
		job.FrameCountExact = true
		o.logger.InfoContext(ctx, "frame count resolved from intermediate",
			logging.String(logging.FieldSource, job.Source),
			logging.Int("frames", frames))
	}
}

func (o *Orchestrator) fail(ctx context.Context, job *Job, err error) {
	job.Status = runlog.StatusFailed
	job.Err = err
	o.logger.ErrorContext(ctx, "file failed",
		logging.String(logging.FieldSource, job.Source),
		logging.Error(err))
	o.console.Printf("  failed: %v", err)
}

func (o *Orchestrator) setStatus(ctx context.Context, job *Job, status runlog.Status) {
	job.Status = status
	if o.store == nil || job.FileID == 0 {
		return
	}
	if err := o.store.SetFileStatus(ctx, job.FileID, status); err != nil {
		o.logger.Warn("record status", logging.Error(err))
	}
}

func (o *Orchestrator) recordStage(stage, source string, duration time.Duration) {
	if o.profile != nil {
		o.profile.RecordStage(stage, source, duration)
	}
}

func (o *Orchestrator) recordRunStart(ctx context.Context, jobs []*Job, start time.Time) {
	if o.store == nil {
		return
	}
	err := o.store.BeginRun(ctx, runlog.Run{
		ID:         o.opts.RunID,
		StartedAt:  start,
		InputPath:  o.opts.InputPath,
		OutputDir:  o.opts.OutputDir,
		LogDir:     o.opts.LogDir,
		TestFrames: o.opts.TestFrames,
	})
	if err != nil {
		o.logger.Warn("record run start", logging.Error(err))
		return
	}
	for _, job := range jobs {
		id, err := o.store.AddFile(ctx, o.opts.RunID, job.Source)
		if err != nil {
			o.logger.Warn("record file", logging.Error(err))
			continue
		}
		job.FileID = id
	}
}

func (o *Orchestrator) recordJobOutcome(ctx context.Context, job *Job) {
	if o.store != nil && job.FileID != 0 {
		errText := ""
		if job.Err != nil {
			errText = job.Err.Error()
		}
		if err := o.store.FinishFile(ctx, job.FileID, job.Status, job.Output, errText, job.Frames); err != nil {
			o.logger.Warn("record outcome", logging.Error(err))
		}
	}

	// Advisory only, and checked after the success is already recorded: a
	// mismatch is a quality signal, never a failure.
	if job.Status == runlog.StatusSucceeded {
		ok := o.verifier.ColorSpace(ctx, job.Output)
		if o.store != nil && job.FileID != 0 {
			if err := o.store.SetColorResult(ctx, job.FileID, ok); err != nil {
				o.logger.Warn("record color result", logging.Error(err))
			}
		}
		if !ok {
			o.logger.WarnContext(ctx, "artifact color tags differ from target",
				logging.String(logging.FieldOutput, job.Output))
		}
	}
}

func (o *Orchestrator) recordRunFinish(ctx context.Context, outcome report.Outcome) {
	if o.store == nil {
		return
	}
	err := o.store.FinishRun(ctx, o.opts.RunID, time.Now(),
		outcome.Total, outcome.Succeeded, outcome.Failed, outcome.Skipped)
	if err != nil {
		o.logger.Warn("record run finish", logging.Error(err))
	}
}
