package process

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"framemill/internal/logging"
)

// Watchdog declares a supervised pipeline frozen when its output goes silent
// for longer than the timeout. It deliberately never fires before the first
// output line has been observed, so a slow-starting but healthy pipeline is
// not killed during initialization.
type Watchdog struct {
	timeout  time.Duration
	interval time.Duration
	running  func() bool
	onFrozen func()
	logger   *slog.Logger

	lock       sync.Mutex
	lastOutput time.Time
	seenOutput bool
	fired      bool
}

// NewWatchdog builds a Watchdog. running reports supervised-process liveness;
// onFrozen is invoked at most once, when silence exceeds the timeout.
func NewWatchdog(logger *slog.Logger, timeout, interval time.Duration, running func() bool, onFrozen func()) *Watchdog {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Watchdog{
		timeout:  timeout,
		interval: interval,
		running:  running,
		onFrozen: onFrozen,
		logger:   logging.NewComponentLogger(logger, "watchdog"),
	}
}

// Touch records output activity at the given instant.
func (w *Watchdog) Touch(now time.Time) {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.seenOutput = true
	w.lastOutput = now
}

// Evaluate applies the freeze policy at the given instant and reports whether
// the pipeline should be declared frozen. It is a pure check; Run invokes it
// on the tick schedule, and tests drive it directly.
func (w *Watchdog) Evaluate(now time.Time) bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.fired || !w.seenOutput {
		return false
	}
	if w.running != nil && !w.running() {
		return false
	}
	if now.Sub(w.lastOutput) <= w.timeout {
		return false
	}
	w.fired = true
	return true
}

// Run polls on the check interval until the context is cancelled, the
// process exits, or a freeze is declared.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if w.running != nil && !w.running() {
				return
			}
			if w.Evaluate(now) {
				w.logger.Error("no output activity, declaring pipeline frozen",
					logging.Duration("timeout", w.timeout))
				if w.onFrozen != nil {
					w.onFrozen()
				}
				return
			}
		}
	}
}
