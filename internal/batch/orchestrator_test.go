package batch_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"framemill/internal/batch"
	"framemill/internal/runlog"
	"framemill/internal/services"
	"framemill/internal/testsupport"
)

const stubProbeScript = `#!/bin/sh
cat <<'EOF'
{
  "streams": [
    {
      "index": 0,
      "codec_type": "video",
      "codec_name": "mpeg2video",
      "width": 1440,
      "height": 1080,
      "field_order": "tt",
      "r_frame_rate": "25/1",
      "nb_frames": "100",
      "color_primaries": "smpte432",
      "color_transfer": "smpte428",
      "color_space": "smpte432"
    }
  ],
  "format": {
    "format_name": "mpegts",
    "duration": "4.0"
  }
}
EOF
exit 0
`

const stubEncodeScript = `#!/bin/sh
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-y" ]; then out="$a"; fi
  prev="$a"
done
cat >/dev/null 2>&1 || true
if [ -n "$out" ]; then
  dd if=/dev/zero of="$out" bs=1048576 count=2 2>/dev/null
fi
echo "frame=  100 fps=25 speed=10x" >&2
exit 0
`

const stubFilterScript = `#!/bin/sh
echo "[FORMAT] yuv422p10le 3840x2160" >&2
printf frames
exit 0
`

func TestBatchSkipsCurrentOutputs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithScriptedBinaries(map[string]string{
		"ffprobe": stubProbeScript,
		"ffmpeg":  stubEncodeScript,
		"vspipe":  stubFilterScript,
	}))

	inputDir := filepath.Join(testsupport.BaseDir(cfg), "input")
	for _, name := range []string{"first.m2ts", "second.m2ts", "third.m2ts"} {
		testsupport.WriteFile(t, filepath.Join(inputDir, name), 256)
	}

	// The second file's output already exists, is newer than its source,
	// and clears the size floor.
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.OutputDir, "second.mov"), 2*1024*1024)
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(inputDir, "second.m2ts"), old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	store := testsupport.MustOpenStore(t)
	orchestrator := batch.New(nil, cfg, store, batch.NewConsole(nil), nil, batch.Options{
		InputPath:    inputDir,
		OutputDir:    cfg.Paths.OutputDir,
		SkipExisting: true,
		RunID:        "run-batch-test",
	})

	outcome, err := orchestrator.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if outcome.Total != 3 || outcome.Succeeded != 2 || outcome.Skipped != 1 || outcome.Failed != 0 {
		t.Fatalf("outcome = %+v, want total=3 succeeded=2 skipped=1 failed=0", outcome)
	}

	for _, name := range []string{"first.mov", "third.mov"} {
		info, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, name))
		if err != nil {
			t.Fatalf("artifact %s missing: %v", name, err)
		}
		if info.Size() < 1024*1024 {
			t.Fatalf("artifact %s under size floor: %d", name, info.Size())
		}
	}

	// Intermediates are cleaned up after successful verification.
	if _, err := os.Stat(filepath.Join(cfg.Paths.OutputDir, "first_prores.mov")); err == nil {
		t.Fatal("intermediate left behind after success")
	}

	records, err := store.FilesForRun(context.Background(), "run-batch-test")
	if err != nil {
		t.Fatalf("FilesForRun: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("recorded %d files, want 3", len(records))
	}
	statuses := map[runlog.Status]int{}
	for _, record := range records {
		statuses[record.Status]++
	}
	if statuses[runlog.StatusSucceeded] != 2 || statuses[runlog.StatusSkipped] != 1 {
		t.Fatalf("recorded statuses = %v", statuses)
	}
}

func TestBatchAbsorbsJobFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithScriptedBinaries(map[string]string{
		"ffprobe": stubProbeScript,
		// The encoder fails outright, so every job fails at rewrap.
		"ffmpeg": "#!/bin/sh\necho 'ffmpeg: boom' >&2\nexit 1\n",
		"vspipe": stubFilterScript,
	}))

	inputDir := filepath.Join(testsupport.BaseDir(cfg), "input")
	testsupport.WriteFile(t, filepath.Join(inputDir, "first.m2ts"), 256)
	testsupport.WriteFile(t, filepath.Join(inputDir, "second.m2ts"), 256)

	orchestrator := batch.New(nil, cfg, nil, batch.NewConsole(nil), nil, batch.Options{
		InputPath: inputDir,
		OutputDir: cfg.Paths.OutputDir,
	})

	outcome, err := orchestrator.Run(context.Background())
	if err != nil {
		t.Fatalf("job failures must not abort the batch: %v", err)
	}
	if outcome.Total != 2 || outcome.Failed != 2 || outcome.Succeeded != 0 {
		t.Fatalf("outcome = %+v, want total=2 failed=2", outcome)
	}
}

func TestBatchRunFatalOnMissingInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	orchestrator := batch.New(nil, cfg, nil, batch.NewConsole(nil), nil, batch.Options{
		InputPath: filepath.Join(testsupport.BaseDir(cfg), "nope"),
		OutputDir: cfg.Paths.OutputDir,
	})

	if _, err := orchestrator.Run(context.Background()); err == nil {
		t.Fatal("expected run-level error for a missing input path")
	}
}

func TestBatchUnprobedSourceRunsUnbounded(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "filter.args")
	cfg := testsupport.NewConfig(t, testsupport.WithScriptedBinaries(map[string]string{
		// The probe never works for this source, so no frame count is
		// ever exact and the filter range must stay open-ended.
		"ffprobe": "#!/bin/sh\nexit 1\n",
		"ffmpeg":  stubEncodeScript,
		"vspipe": fmt.Sprintf("#!/bin/sh\necho \"$@\" > %s\necho '[FORMAT]' >&2\nprintf frames\nexit 0\n",
			argsFile),
	}))

	inputDir := filepath.Join(testsupport.BaseDir(cfg), "input")
	testsupport.WriteFile(t, filepath.Join(inputDir, "tape.m2ts"), 256)

	orchestrator := batch.New(nil, cfg, nil, batch.NewConsole(nil), nil, batch.Options{
		InputPath: inputDir,
		OutputDir: cfg.Paths.OutputDir,
	})

	outcome, err := orchestrator.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outcome.Succeeded != 1 {
		t.Fatalf("outcome = %+v, want one success", outcome)
	}

	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("filter stage never ran: %v", err)
	}
	args := string(raw)
	if strings.Contains(args, "-e ") || strings.Contains(args, "-s 0") {
		t.Fatalf("estimated frame count leaked into the frame range: %q", args)
	}
}

func TestBatchStopsOnRunFatalFailure(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "out")

	// The first encode destroys the output directory and leaves a plain
	// file in its place, so every later filesystem step must fail.
	cfg := testsupport.NewConfig(t, testsupport.WithScriptedBinaries(map[string]string{
		"ffprobe": stubProbeScript,
		"ffmpeg":  fmt.Sprintf("#!/bin/sh\nrm -rf %[1]s\n: > %[1]s\nexit 0\n", outputDir),
		"vspipe":  stubFilterScript,
	}))

	inputDir := filepath.Join(testsupport.BaseDir(cfg), "input")
	for _, name := range []string{"first.m2ts", "second.m2ts", "third.m2ts"} {
		testsupport.WriteFile(t, filepath.Join(inputDir, name), 256)
	}

	store := testsupport.MustOpenStore(t)
	orchestrator := batch.New(nil, cfg, store, batch.NewConsole(nil), nil, batch.Options{
		InputPath: inputDir,
		OutputDir: outputDir,
		RunID:     "run-fatal-test",
	})

	outcome, err := orchestrator.Run(context.Background())
	if !errors.Is(err, services.ErrFilesystem) {
		t.Fatalf("Run error = %v, want a filesystem failure", err)
	}
	// The first job fails on its own, the second hits the broken output
	// tree, and the third is never attempted.
	if outcome.Total != 3 || outcome.Failed != 2 {
		t.Fatalf("outcome = %+v, want total=3 failed=2", outcome)
	}

	records, recErr := store.FilesForRun(context.Background(), "run-fatal-test")
	if recErr != nil {
		t.Fatalf("FilesForRun: %v", recErr)
	}
	pending := 0
	for _, record := range records {
		if record.Status == runlog.StatusPending {
			pending++
		}
	}
	if pending != 1 {
		t.Fatalf("pending files = %d, want the abandoned third file", pending)
	}
}
