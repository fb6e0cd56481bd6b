package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Profile accumulates per-stage timings across a run and renders the
// performance report. Safe for use from the job loop and shutdown actions.
type Profile struct {
	mu      sync.Mutex
	started time.Time
	stages  []stageTiming
	frames  int
}

type stageTiming struct {
	stage    string
	source   string
	duration time.Duration
}

// NewProfile starts a profile clock.
func NewProfile() *Profile {
	return &Profile{started: time.Now()}
}

// RecordStage adds one stage timing for a source file.
func (p *Profile) RecordStage(stage, source string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = append(p.stages, stageTiming{stage: stage, source: source, duration: duration})
}

// AddFrames accumulates encoded frame totals for the throughput line.
func (p *Profile) AddFrames(frames int) {
	if frames <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames += frames
}

// Render produces the report text.
func (p *Profile) Render() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.started)
	var b strings.Builder
	fmt.Fprintf(&b, "framemill performance profile\n")
	fmt.Fprintf(&b, "generated: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "total wall time: %s\n", elapsed.Round(time.Second))
	if p.frames > 0 {
		fmt.Fprintf(&b, "frames encoded: %s\n", FormatFrames(p.frames))
		if secs := elapsed.Seconds(); secs > 0 {
			fmt.Fprintf(&b, "average throughput: %.2f fps\n", float64(p.frames)/secs)
		}
	}
	b.WriteString("\nstage timings:\n")
	if len(p.stages) == 0 {
		b.WriteString("  (none recorded)\n")
	}
	for _, s := range p.stages {
		fmt.Fprintf(&b, "  %-10s %-40s %s\n", s.stage, filepath.Base(s.source), s.duration.Round(time.Millisecond))
	}
	return b.String()
}

// Write saves the report into dir as performance_profile.txt.
func (p *Profile) Write(dir string) error {
	path := filepath.Join(dir, "performance_profile.txt")
	if err := os.WriteFile(path, []byte(p.Render()), 0o644); err != nil {
		return fmt.Errorf("write performance profile: %w", err)
	}
	return nil
}
