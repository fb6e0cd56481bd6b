package ffprobe_test

import (
	"context"
	"errors"
	"testing"

	"framemill/internal/media/ffprobe"
)

const sampleProbeJSON = `{
  "streams": [
    {
      "index": 0,
      "codec_name": "mpeg2video",
      "codec_type": "video",
      "pix_fmt": "yuv420p",
      "width": 1440,
      "height": 1080,
      "field_order": "tt",
      "r_frame_rate": "25/1",
      "nb_frames": "N/A",
      "color_primaries": "bt709",
      "color_transfer": "bt709",
      "color_space": "bt709"
    },
    {
      "index": 1,
      "codec_name": "mp2",
      "codec_type": "audio"
    }
  ],
  "format": {
    "filename": "tape.m2ts",
    "format_name": "mpegts",
    "duration": "120.00",
    "size": "1500000000"
  }
}`

func TestParseExtractsStreamsAndFormat(t *testing.T) {
	result, err := ffprobe.Parse([]byte(sampleProbeJSON))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	video := result.FirstVideoStream()
	if video == nil {
		t.Fatal("expected a video stream")
	}
	if video.CodecName != "mpeg2video" || video.Height != 1080 {
		t.Fatalf("unexpected video stream: %+v", video)
	}
	if result.Format.FormatName != "mpegts" {
		t.Fatalf("format name = %q", result.Format.FormatName)
	}
	if rate := result.FrameRate(); rate != 25 {
		t.Fatalf("frame rate = %v, want 25", rate)
	}
	if duration := result.DurationSeconds(); duration != 120 {
		t.Fatalf("duration = %v, want 120", duration)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := ffprobe.Parse([]byte("ffprobe: command error")); err == nil {
		t.Fatal("expected parse error")
	}
}

type fakeExecutor struct {
	output []byte
	err    error
	calls  int
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	f.calls++
	return f.output, f.err
}

func TestInspectSurfacesExecutorError(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("exit status 1")}
	prober := ffprobe.NewProberWithExecutor("ffprobe", exec)

	if _, err := prober.Inspect(context.Background(), "missing.mkv"); err == nil {
		t.Fatal("expected inspect error")
	}
	if exec.calls != 1 {
		t.Fatalf("executor calls = %d, want 1", exec.calls)
	}
}

func TestInspectEmptyPath(t *testing.T) {
	exec := &fakeExecutor{output: []byte(sampleProbeJSON)}
	prober := ffprobe.NewProberWithExecutor("ffprobe", exec)

	if _, err := prober.Inspect(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
	if exec.calls != 0 {
		t.Fatalf("executor should not run for empty path, calls = %d", exec.calls)
	}
}
