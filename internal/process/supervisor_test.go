package process_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"framemill/internal/process"
)

func TestSupervisorCapturesDiagnostics(t *testing.T) {
	var mu sync.Mutex
	var lines []string

	sup, err := process.NewSupervisor(nil, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	}, process.Stage{
		Name:   "emit",
		Binary: "sh",
		Args:   []string{"-c", "echo starting >&2; echo frame= 10 >&2"},
	})
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}

	ctx := context.Background()
	if err := sup.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sup.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "starting") || !strings.Contains(joined, "frame= 10") {
		t.Fatalf("missing diagnostic lines, got %q", joined)
	}
}

func TestSupervisorPipesStageAIntoStageB(t *testing.T) {
	var mu sync.Mutex
	var lines []string

	sup, err := process.NewSupervisor(nil, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	},
		process.Stage{Name: "filter", Binary: "sh", Args: []string{"-c", "printf hello"}},
		process.Stage{Name: "encode", Binary: "sh", Args: []string{"-c", "read -r data; echo got $data >&2"}},
	)
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}

	ctx := context.Background()
	if err := sup.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sup.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(strings.Join(lines, "\n"), "got hello") {
		t.Fatalf("stage B never saw stage A's output: %q", lines)
	}
}

func TestSupervisorReportsNonZeroExit(t *testing.T) {
	sup, err := process.NewSupervisor(nil, nil, process.Stage{
		Name:   "broken",
		Binary: "sh",
		Args:   []string{"-c", "echo boom >&2; exit 3"},
	})
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}

	ctx := context.Background()
	if err := sup.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sup.Wait(ctx); err == nil {
		t.Fatal("expected wait error for non-zero exit")
	}
	if tail := sup.StderrTail(); len(tail) == 0 || !strings.Contains(tail[len(tail)-1], "boom") {
		t.Fatalf("stderr tail missing diagnostic: %v", tail)
	}
}

func TestSupervisorStopTerminatesSleeper(t *testing.T) {
	sup, err := process.NewSupervisor(nil, nil, process.Stage{
		Name:   "sleeper",
		Binary: "sleep",
		Args:   []string{"60"},
	})
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}

	ctx := context.Background()
	if err := sup.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !sup.Running() {
		t.Fatal("expected Running after start")
	}

	done := make(chan struct{})
	go func() {
		sup.Stop(2 * time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Stop did not complete")
	}
	// Termination is confirmed before Stop returns.
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = sup.Wait(waitCtx)
	if sup.Running() {
		t.Fatal("process still running after Stop")
	}
}

func TestSupervisorStopIsIdempotent(t *testing.T) {
	sup, err := process.NewSupervisor(nil, nil, process.Stage{
		Name:   "quick",
		Binary: "true",
	})
	if err != nil {
		t.Fatalf("NewSupervisor: %v", err)
	}
	if err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_ = sup.Wait(context.Background())
	sup.Stop(time.Second)
	sup.Stop(time.Second)
}

func TestSupervisorRejectsZeroStages(t *testing.T) {
	if _, err := process.NewSupervisor(nil, nil); err == nil {
		t.Fatal("expected error for zero stages")
	}
}
