package batch_test

import (
	"testing"
	"time"

	"framemill/internal/batch"
)

func TestJobElapsed(t *testing.T) {
	var job batch.Job
	if job.Elapsed() != 0 {
		t.Fatalf("unstamped job elapsed = %v, want 0", job.Elapsed())
	}

	job.StartedAt = time.Now()
	if job.Elapsed() != 0 {
		t.Fatalf("unfinished job elapsed = %v, want 0", job.Elapsed())
	}

	job.FinishedAt = job.StartedAt.Add(90 * time.Second)
	if job.Elapsed() != 90*time.Second {
		t.Fatalf("elapsed = %v, want 90s", job.Elapsed())
	}
}
