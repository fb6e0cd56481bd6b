package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"framemill/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "state")
	cfgVal.Tools.FilterScript = filepath.Join(base, "upscale.vpy")
	cfgVal.Watchdog.TimeoutSeconds = 1
	cfgVal.Watchdog.CheckIntervalSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWatchdog overrides the stall-detection knobs on the test config.
func WithWatchdog(timeoutSeconds, intervalSeconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watchdog.TimeoutSeconds = timeoutSeconds
		b.cfg.Watchdog.CheckIntervalSeconds = intervalSeconds
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If scripts is nil or missing a name, the stub just
// exits zero. With no names, the default pipeline binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"vspipe", "ffmpeg", "ffprobe"}
		}
		scripts := make(map[string]string, len(names))
		for _, name := range names {
			scripts[name] = "#!/bin/sh\nexit 0\n"
		}
		b.installStubs(scripts)
	}
}

// WithScriptedBinaries installs stub executables with caller-provided shell
// bodies, for tests that need the stub to emit output or write artifacts.
func WithScriptedBinaries(scripts map[string]string) ConfigOption {
	return func(b *configBuilder) {
		b.installStubs(scripts)
	}
}

func (b *configBuilder) installStubs(scripts map[string]string) {
	binDir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	for name, body := range scripts {
		target := filepath.Join(binDir, name)
		if err := os.WriteFile(target, []byte(body), 0o755); err != nil {
			b.t.Fatalf("write stub %s: %v", name, err)
		}
	}

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
		b.t.Fatalf("set PATH: %v", err)
	}
	b.t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
