package upscale_test

import (
	"strings"
	"testing"

	"framemill/internal/testsupport"
	"framemill/internal/upscale"
)

func TestBuildTestModeFrameRange(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	filter, _ := upscale.Build(cfg, upscale.Request{
		Source:     "/in/tape_prores.mov",
		Output:     "/out/tape.mov",
		FrameLimit: 200,
	})

	joined := strings.Join(filter.Args, " ")
	if !strings.Contains(joined, "-s 0 -e 199") {
		t.Fatalf("filter args missing [0, 199] range: %q", joined)
	}
	if filter.Args[len(filter.Args)-1] != "-" {
		t.Fatalf("filter stage must write to stdout, args end with %q", filter.Args[len(filter.Args)-1])
	}
	if !strings.Contains(joined, "input_file=/in/tape_prores.mov") {
		t.Fatalf("filter args missing input binding: %q", joined)
	}
}

func TestBuildUnboundedWithoutFrameLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	filter, _ := upscale.Build(cfg, upscale.Request{
		Source: "/in/tape_prores.mov",
		Output: "/out/tape.mov",
	})

	joined := strings.Join(filter.Args, " ")
	if strings.Contains(joined, "-s ") || strings.Contains(joined, "-e ") {
		t.Fatalf("expected no frame range without a limit: %q", joined)
	}
}

func TestBuildEncodeStageContract(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	_, encode := upscale.Build(cfg, upscale.Request{
		Source: "/in/tape_prores.mov",
		Output: "/out/tape.mov",
	})

	joined := strings.Join(encode.Args, " ")
	for _, want := range []string{
		"-f rawvideo",
		"-pix_fmt yuv422p10le",
		"-s 3840x2160",
		"-r 25/1",
		"-i -",
		"-c:v prores_ks",
		"-profile:v 3",
		"-color_primaries 12",
		"-color_trc 11",
		"-colorspace 12",
		"-color_range tv",
		"-video_track_timescale 25",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("encode args missing %q: %q", want, joined)
		}
	}
	if encode.Args[len(encode.Args)-1] != "/out/tape.mov" {
		t.Fatalf("encode stage must end with the output path, got %q", encode.Args[len(encode.Args)-1])
	}
}

func TestOutputPathDerivation(t *testing.T) {
	got := upscale.OutputPath("/media/in/holiday tape.dv", "/media/out")
	if got != "/media/out/holiday tape.mov" {
		t.Fatalf("OutputPath = %q", got)
	}
}
