package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"framemill/internal/logging"
)

const (
	// DefaultStopGrace bounds the wait between SIGTERM and SIGKILL for a
	// regular stop.
	DefaultStopGrace = 10 * time.Second
	// ShutdownStopGrace is the extended grace used during signal-driven
	// shutdown.
	ShutdownStopGrace = 15 * time.Second
	// killWait bounds the final wait after SIGKILL.
	killWait = 5 * time.Second

	stderrTailLimit = 40
)

// Stage describes one command in a supervised pipeline.
type Stage struct {
	Name   string
	Binary string
	Args   []string
}

func (s Stage) String() string {
	if len(s.Args) == 0 {
		return s.Binary
	}
	return s.Binary + " " + strings.Join(s.Args, " ")
}

// Supervisor owns the lifecycle of a one- or two-stage pipeline. Exactly one
// Supervisor owns a given child process; ownership ends once termination is
// confirmed.
type Supervisor struct {
	stages []Stage
	onLine func(string)
	logger *slog.Logger

	mu      sync.Mutex
	cmds    []*exec.Cmd
	running bool
	stopped bool
	waitErr error
	tail    []string

	done    chan struct{}
	readers sync.WaitGroup
}

// NewSupervisor builds a Supervisor for the given stages. onLine receives
// every diagnostic line from every stage and may be nil.
func NewSupervisor(logger *slog.Logger, onLine func(string), stages ...Stage) (*Supervisor, error) {
	if len(stages) == 0 || len(stages) > 2 {
		return nil, fmt.Errorf("supervisor requires one or two stages, got %d", len(stages))
	}
	for _, stage := range stages {
		if strings.TrimSpace(stage.Binary) == "" {
			return nil, fmt.Errorf("stage %q has no binary", stage.Name)
		}
	}
	return &Supervisor{
		stages: stages,
		onLine: onLine,
		logger: logging.NewComponentLogger(logger, "supervisor"),
		done:   make(chan struct{}),
	}, nil
}

// Start launches every stage, wiring stage A's stdout to stage B's stdin and
// scanning both diagnostic streams. A partial start is rolled back so no
// stage outlives a failed launch.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("supervisor already started")
	}
	if s.stopped {
		return errors.New("supervisor already stopped")
	}

	cmds := make([]*exec.Cmd, len(s.stages))
	for i, stage := range s.stages {
		cmd := exec.Command(stage.Binary, stage.Args...) //nolint:gosec
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		cmds[i] = cmd
	}
	if len(cmds) == 2 {
		pipe, err := cmds[0].StdoutPipe()
		if err != nil {
			return fmt.Errorf("pipe %s to %s: %w", s.stages[0].Name, s.stages[1].Name, err)
		}
		cmds[1].Stdin = pipe
	}

	for i, cmd := range cmds {
		stderr, err := cmd.StderrPipe()
		if err != nil {
			s.killStartedLocked(cmds[:i])
			return fmt.Errorf("stderr pipe for %s: %w", s.stages[i].Name, err)
		}
		if err := cmd.Start(); err != nil {
			s.killStartedLocked(cmds[:i])
			return fmt.Errorf("start %s: %w", s.stages[i].Name, err)
		}
		s.readers.Add(1)
		go s.scanStream(stderr)
		s.logger.InfoContext(ctx, "stage started",
			logging.String(logging.FieldStage, s.stages[i].Name),
			logging.Int("pid", cmd.Process.Pid))
	}

	s.cmds = cmds
	s.running = true
	go s.reap()
	return nil
}

// Running reports whether the pipeline is still live.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Wait blocks until every stage has exited or the context is cancelled. On
// cancellation the caller is expected to invoke Stop.
func (s *Supervisor) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.waitErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop terminates the pipeline: SIGTERM to every process group, a bounded
// wait, then SIGKILL and a short final wait. It is idempotent and never
// fails; problems are logged so Stop always completes and releases watchdog
// resources.
func (s *Supervisor) Stop(grace time.Duration) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cmds := s.cmds
	live := s.running
	s.mu.Unlock()

	if !live || len(cmds) == 0 {
		return
	}
	if grace <= 0 {
		grace = DefaultStopGrace
	}

	s.signalGroups(cmds, unix.SIGTERM)
	if s.awaitExit(grace) {
		return
	}

	s.logger.Warn("graceful stop timed out, killing process group")
	s.signalGroups(cmds, unix.SIGKILL)
	if !s.awaitExit(killWait) {
		s.logger.Error("pipeline did not confirm exit after kill")
	}
}

// StderrTail returns the most recent diagnostic lines, newest last, for
// error reporting.
func (s *Supervisor) StderrTail() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tail := make([]string, len(s.tail))
	copy(tail, s.tail)
	return tail
}

func (s *Supervisor) reap() {
	s.readers.Wait()

	var waitErr error
	s.mu.Lock()
	cmds := s.cmds
	s.mu.Unlock()

	// Stage order matters: reap upstream first so the pipe closes before
	// the encoder's exit status is read.
	for i, cmd := range cmds {
		if err := cmd.Wait(); err != nil {
			// The final stage's status decides success; an upstream
			// SIGTERM/SIGPIPE exit is secondary.
			if i == len(cmds)-1 || waitErr == nil {
				waitErr = fmt.Errorf("%s: %w", s.stages[i].Name, err)
			}
		}
	}

	s.mu.Lock()
	s.waitErr = waitErr
	s.running = false
	s.mu.Unlock()
	close(s.done)
}

func (s *Supervisor) scanStream(r io.Reader) {
	defer s.readers.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.forward(scanner.Text())
	}
}

func (s *Supervisor) forward(line string) {
	s.mu.Lock()
	s.tail = append(s.tail, line)
	if len(s.tail) > stderrTailLimit {
		s.tail = s.tail[len(s.tail)-stderrTailLimit:]
	}
	onLine := s.onLine
	s.mu.Unlock()

	if onLine != nil {
		onLine(line)
	}
}

func (s *Supervisor) signalGroups(cmds []*exec.Cmd, sig unix.Signal) {
	for i, cmd := range cmds {
		if cmd.Process == nil {
			continue
		}
		if err := unix.Kill(-cmd.Process.Pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
			s.logger.Warn("signal process group",
				logging.String(logging.FieldStage, s.stages[i].Name),
				logging.String("signal", sig.String()),
				logging.Error(err))
		}
	}
}

func (s *Supervisor) awaitExit(limit time.Duration) bool {
	timer := time.NewTimer(limit)
	defer timer.Stop()
	select {
	case <-s.done:
		return true
	case <-timer.C:
		return false
	}
}

func (s *Supervisor) killStartedLocked(cmds []*exec.Cmd) {
	for _, cmd := range cmds {
		if cmd.Process == nil {
			continue
		}
		_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		_ = cmd.Wait()
	}
}
