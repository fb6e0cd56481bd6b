package upscale_test

import (
	"testing"
	"time"

	"framemill/internal/upscale"
)

func TestExtractFramePatternPriority(t *testing.T) {
	cases := []struct {
		line  string
		frame int
		ok    bool
	}{
		{"frame=  120 fps= 12 q=-0.0 size=  102400KiB", 120, true},
		{"frame=7", 7, true},
		{"FRAME= 42", 42, true},
		{"Output 500 frames in 20.00 seconds", 500, true},
		{"3000 frames in 120.5 seconds", 3000, true},
		{"no counters here", 0, false},
		{"speed=1.5x bitrate=900kbits/s", 0, false},
	}

	for _, tc := range cases {
		frame, ok := upscale.ExtractFrame(tc.line)
		if ok != tc.ok || frame != tc.frame {
			t.Fatalf("ExtractFrame(%q) = (%d, %v), want (%d, %v)", tc.line, frame, ok, tc.frame, tc.ok)
		}
	}
}

func TestMonitorProgressIsMonotonic(t *testing.T) {
	var updates []upscale.Update
	monitor := upscale.NewMonitor(1000, 0, func(u upscale.Update) {
		updates = append(updates, u)
	})

	base := time.Now()
	monitor.ObserveAt("frame= 100", base)
	monitor.ObserveAt("frame= 50", base.Add(time.Second))
	monitor.ObserveAt("frame= 100", base.Add(2*time.Second))
	monitor.ObserveAt("frame= 150", base.Add(3*time.Second))

	if len(updates) != 2 {
		t.Fatalf("published %d updates, want 2 (out-of-order lines must be dropped)", len(updates))
	}
	if updates[0].Completed != 100 || updates[1].Completed != 150 {
		t.Fatalf("completed sequence = %d, %d; want 100, 150", updates[0].Completed, updates[1].Completed)
	}
	if monitor.Completed() != 150 {
		t.Fatalf("Completed = %d, want 150", monitor.Completed())
	}
}

func TestMonitorSpeedCalculation(t *testing.T) {
	var updates []upscale.Update
	monitor := upscale.NewMonitor(0, 0, func(u upscale.Update) {
		updates = append(updates, u)
	})

	base := time.Now()
	monitor.ObserveAt("frame= 10", base)
	monitor.ObserveAt("frame= 60", base.Add(2*time.Second))

	if len(updates) != 2 {
		t.Fatalf("published %d updates, want 2", len(updates))
	}
	if updates[0].Speed != "calculating..." {
		t.Fatalf("first speed = %q, want calculating...", updates[0].Speed)
	}
	// 50 frames over 2 seconds.
	if updates[1].Speed != "25.0 fps" {
		t.Fatalf("second speed = %q, want 25.0 fps", updates[1].Speed)
	}
}

func TestMonitorTotalFallbacks(t *testing.T) {
	var last upscale.Update
	monitor := upscale.NewMonitor(0, 0, func(u upscale.Update) { last = u })
	monitor.ObserveAt("frame= 40", time.Now())
	if last.Total != 1040 {
		t.Fatalf("unknown total = %d, want current+1000", last.Total)
	}

	monitor = upscale.NewMonitor(500, 0, func(u upscale.Update) { last = u })
	monitor.ObserveAt("frame= 40", time.Now())
	if last.Total != 500 {
		t.Fatalf("probed total = %d, want 500", last.Total)
	}

	monitor = upscale.NewMonitor(500, 200, func(u upscale.Update) { last = u })
	monitor.ObserveAt("frame= 40", time.Now())
	if last.Total != 200 {
		t.Fatalf("test-mode total = %d, want the test cap", last.Total)
	}
}

func TestMonitorStartupMarkers(t *testing.T) {
	monitor := upscale.NewMonitor(0, 0, nil)
	if monitor.Started() {
		t.Fatal("monitor must not start before any marker")
	}
	monitor.Observe("Information: FFmpegSource2 loaded successfully")
	if !monitor.Started() {
		t.Fatal("expected startup after source filter marker")
	}

	monitor = upscale.NewMonitor(0, 0, nil)
	monitor.Observe("[FORMAT] yuv422p10le 3840x2160")
	if !monitor.Started() {
		t.Fatal("expected startup after format marker")
	}
}

func TestMonitorMarkerAndCounterOnOneLine(t *testing.T) {
	var updates []upscale.Update
	monitor := upscale.NewMonitor(100, 0, func(u upscale.Update) {
		updates = append(updates, u)
	})

	monitor.ObserveAt("[SOURCE] opened, frame= 12", time.Now())

	if !monitor.Started() {
		t.Fatal("marker on a combined line must still flag startup")
	}
	if monitor.Completed() != 12 {
		t.Fatalf("Completed = %d, want 12 (counter lost behind the marker)", monitor.Completed())
	}
	if len(updates) != 1 || updates[0].Completed != 12 {
		t.Fatalf("updates = %+v, want one update at frame 12", updates)
	}
}
