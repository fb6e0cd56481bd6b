package upscale

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// unknownTotalLead keeps a determinate-looking denominator moving when no
// frame count was probed.
const unknownTotalLead = 1000

// frameMatchers extract a frame counter from a diagnostic line, tried in
// priority order; the first match wins.
var frameMatchers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)frame=\s*(\d+)`),
	regexp.MustCompile(`(?i)Output (\d+) frames`),
	regexp.MustCompile(`(?i)(\d+) frames in`),
}

// startupMarkers flag that the downstream filter graph has begun producing.
var startupMarkers = []string{
	"[FORMAT]",
	"[SOURCE]",
	"FFmpegSource2 loaded successfully",
	"LSMASHSource loaded successfully",
}

// ExtractFrame applies the frame matchers to one line. Exposed so the
// parsing policy is testable apart from process plumbing.
func ExtractFrame(line string) (int, bool) {
	for _, matcher := range frameMatchers {
		match := matcher.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		frame, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		return frame, true
	}
	return 0, false
}

// IsStartupMarker reports whether a line announces filter-graph startup.
func IsStartupMarker(line string) bool {
	for _, marker := range startupMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// Update is one progress publication.
type Update struct {
	Completed int
	Total     int
	Speed     string
}

// Monitor scrapes frame counters from the pipeline's diagnostic stream and
// republishes monotonic progress. It retains only the most recent sample for
// the instantaneous rate, never an accumulating history.
type Monitor struct {
	total   int
	testCap int
	publish func(Update)
	now     func() time.Time

	mu        sync.Mutex
	started   bool
	lastFrame int
	lastAt    time.Time
	sampled   bool
}

// NewMonitor builds a Monitor. total is the probed frame count (0 when
// unknown) and testCap the test-mode frame bound (0 outside test mode).
// publish may be nil.
func NewMonitor(total, testCap int, publish func(Update)) *Monitor {
	return &Monitor{
		total:   total,
		testCap: testCap,
		publish: publish,
		now:     time.Now,
	}
}

// Observe processes one diagnostic line.
func (m *Monitor) Observe(line string) {
	m.ObserveAt(line, m.now())
}

// ObserveAt is Observe with an explicit timestamp so the rate computation is
// testable.
func (m *Monitor) ObserveAt(line string, at time.Time) {
	if IsStartupMarker(line) {
		m.mu.Lock()
		m.started = true
		m.mu.Unlock()
	}

	// A line may carry both a marker and a counter, so never stop at the
	// marker alone.
	frame, ok := ExtractFrame(line)
	if !ok {
		return
	}

	m.mu.Lock()
	// Out-of-order or repeated counters never regress progress.
	if m.sampled && frame <= m.lastFrame {
		m.mu.Unlock()
		return
	}

	speed := "calculating..."
	if m.sampled {
		delta := at.Sub(m.lastAt).Seconds()
		if delta > 0 {
			speed = fmt.Sprintf("%.1f fps", float64(frame-m.lastFrame)/delta)
		}
	}
	m.lastFrame = frame
	m.lastAt = at
	m.sampled = true
	update := Update{
		Completed: frame,
		Total:     m.totalLocked(frame),
		Speed:     speed,
	}
	publish := m.publish
	m.mu.Unlock()

	if publish != nil {
		publish(update)
	}
}

// Started reports whether a startup marker has been observed.
func (m *Monitor) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Completed returns the last accepted frame index.
func (m *Monitor) Completed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastFrame
}

func (m *Monitor) totalLocked(current int) int {
	if m.testCap > 0 {
		return m.testCap
	}
	if m.total > 0 {
		return m.total
	}
	return current + unknownTotalLead
}
