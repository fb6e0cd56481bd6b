package upscale

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"framemill/internal/config"
	"framemill/internal/logging"
	"framemill/internal/process"
	"framemill/internal/services"
)

// Runner executes one upscale pipeline under supervision.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewRunner builds a Runner for the given configuration.
func NewRunner(logger *slog.Logger, cfg *config.Config) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "upscale"),
	}
}

// Run launches the two-stage pipeline for the request, feeding every
// diagnostic line to the monitor and the watchdog, and blocks until the
// pipeline exits, the watchdog fires, or the context is cancelled. On
// cancellation the pipeline is stopped with the extended shutdown grace
// before the error is returned.
func (r *Runner) Run(ctx context.Context, req Request, monitor *Monitor) error {
	filter, encode := Build(r.cfg, req)

	var frozen atomic.Bool
	var watchdog *process.Watchdog

	supervisor, err := process.NewSupervisor(r.logger, func(line string) {
		monitor.Observe(line)
		watchdog.Touch(time.Now())
	}, filter, encode)
	if err != nil {
		return services.Wrap(services.ErrLaunch, "upscale", "build supervisor", "", err)
	}

	watchdog = process.NewWatchdog(r.logger,
		time.Duration(r.cfg.Watchdog.TimeoutSeconds)*time.Second,
		time.Duration(r.cfg.Watchdog.CheckIntervalSeconds)*time.Second,
		supervisor.Running,
		func() {
			frozen.Store(true)
			supervisor.Stop(process.DefaultStopGrace)
		})

	r.logger.InfoContext(ctx, "starting pipeline",
		logging.String(logging.FieldSource, req.Source),
		logging.String(logging.FieldOutput, req.Output),
		logging.Int("frame_limit", req.FrameLimit))

	if err := supervisor.Start(ctx); err != nil {
		return services.Wrap(services.ErrLaunch, "upscale", "start pipeline", "", err)
	}

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	go watchdog.Run(watchCtx)

	err = supervisor.Wait(ctx)
	cancelWatch()

	if ctx.Err() != nil {
		supervisor.Stop(process.ShutdownStopGrace)
		return ctx.Err()
	}
	if frozen.Load() {
		return services.Wrap(services.ErrProcess, "upscale", "watchdog",
			"pipeline frozen: no output activity within timeout", nil)
	}
	if err != nil {
		return services.Wrap(services.ErrProcess, "upscale", "pipeline",
			tail(supervisor.StderrTail()), err)
	}
	return nil
}

func tail(lines []string) string {
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "; ")
}
