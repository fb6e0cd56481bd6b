package batch

import (
	"fmt"
	"log/slog"
	"sync"

	"framemill/internal/logging"
)

// ShutdownAction is one best-effort cleanup step.
type ShutdownAction struct {
	Name string
	Run  func() error
}

// Shutdown executes an ordered list of independent cleanup actions. Each
// action is guarded so a failure (or panic) in one never prevents the later
// actions from running.
type Shutdown struct {
	logger *slog.Logger

	mu      sync.Mutex
	actions []ShutdownAction
	done    bool
}

// NewShutdown builds an empty action list.
func NewShutdown(logger *slog.Logger) *Shutdown {
	return &Shutdown{logger: logging.NewComponentLogger(logger, "shutdown")}
}

// Add appends an action; actions run in registration order.
func (s *Shutdown) Add(name string, run func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions = append(s.actions, ShutdownAction{Name: name, Run: run})
}

// Execute runs every action once, in order, logging failures.
func (s *Shutdown) Execute() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	actions := s.actions
	s.mu.Unlock()

	for _, action := range actions {
		s.runGuarded(action)
	}
}

func (s *Shutdown) runGuarded(action ShutdownAction) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("shutdown action panicked",
				logging.String("action", action.Name),
				logging.Any("panic", fmt.Sprintf("%v", r)))
		}
	}()
	if action.Run == nil {
		return
	}
	if err := action.Run(); err != nil {
		s.logger.Warn("shutdown action failed",
			logging.String("action", action.Name),
			logging.Error(err))
	}
}
