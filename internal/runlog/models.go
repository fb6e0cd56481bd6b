package runlog

import "time"

// Status represents a file's position in the pipeline state machine.
type Status string

const (
	StatusPending    Status = "pending"
	StatusRewrapping Status = "rewrapping"
	StatusProcessing Status = "processing"
	StatusVerifying  Status = "verifying"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Terminal reports whether a status ends a file's journey.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Run is one batch invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	InputPath  string
	OutputDir  string
	LogDir     string
	TestFrames int
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int
}

// FileRecord is one file's outcome within a run.
type FileRecord struct {
	ID         int64
	RunID      string
	SourcePath string
	OutputPath string
	Status     Status
	Error      string
	Frames     int
	// ColorOK is the advisory color-space check result; nil until checked.
	ColorOK    *bool
	StartedAt  time.Time
	FinishedAt time.Time
}
