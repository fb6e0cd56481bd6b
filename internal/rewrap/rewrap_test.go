package rewrap_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"framemill/internal/media/ffprobe"
	"framemill/internal/rewrap"
	"framemill/internal/services"
	"framemill/internal/testsupport"
)

type fakeEncoder struct {
	t          *testing.T
	calls      int
	args       []string
	err        error
	artifactSz int64
}

func (f *fakeEncoder) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	f.calls++
	f.args = args
	if f.err != nil {
		return []byte("ffmpeg: conversion failed"), f.err
	}
	if f.artifactSz > 0 {
		// The output path follows -y.
		for i, arg := range args {
			if arg == "-y" && i+1 < len(args) {
				testsupport.WriteFile(f.t, args[i+1], f.artifactSz)
			}
		}
	}
	return nil, nil
}

func TestRunMissingSourceSpawnsNothing(t *testing.T) {
	enc := &fakeEncoder{t: t}
	rewrapper := rewrap.NewWithExecutor(nil, "ffmpeg", enc)

	_, err := rewrapper.Run(context.Background(), filepath.Join(t.TempDir(), "absent.m2ts"), t.TempDir(), ffprobe.Decision{})
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	if !errors.Is(err, services.ErrRewrap) {
		t.Fatalf("error not classified as rewrap failure: %v", err)
	}
	if enc.calls != 0 {
		t.Fatalf("encoder must not run for a missing source, calls = %d", enc.calls)
	}
}

func TestRunEncoderFailureCarriesDiagnostics(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "tape.m2ts")
	testsupport.WriteFile(t, source, 64)

	enc := &fakeEncoder{t: t, err: errors.New("exit status 1")}
	rewrapper := rewrap.NewWithExecutor(nil, "ffmpeg", enc)

	_, err := rewrapper.Run(context.Background(), source, dir, ffprobe.Decision{})
	if err == nil {
		t.Fatal("expected encode error")
	}
	if !strings.Contains(err.Error(), "conversion failed") {
		t.Fatalf("error missing captured diagnostics: %v", err)
	}
}

func TestRunRejectsImplausiblySmallArtifact(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "tape.m2ts")
	testsupport.WriteFile(t, source, 64)

	enc := &fakeEncoder{t: t, artifactSz: 1024}
	rewrapper := rewrap.NewWithExecutor(nil, "ffmpeg", enc)

	_, err := rewrapper.Run(context.Background(), source, dir, ffprobe.Decision{})
	if err == nil {
		t.Fatal("expected error despite zero exit: artifact is under the size floor")
	}
	if !errors.Is(err, services.ErrRewrap) {
		t.Fatalf("error not classified as rewrap failure: %v", err)
	}
}

func TestRunSucceedsAndReturnsIntermediatePath(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "holiday tape.m2ts")
	testsupport.WriteFile(t, source, 64)

	enc := &fakeEncoder{t: t, artifactSz: 2 * 1024 * 1024}
	rewrapper := rewrap.NewWithExecutor(nil, "ffmpeg", enc)

	out, err := rewrapper.Run(context.Background(), source, dir, ffprobe.Decision{Interlaced: true, TopFieldFirst: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != filepath.Join(dir, "holiday tape_prores.mov") {
		t.Fatalf("intermediate path = %q", out)
	}
}

func TestArgsInterlaceFlags(t *testing.T) {
	progressive := strings.Join(rewrap.Args("in.m2ts", "out.mov", ffprobe.Decision{}), " ")
	if strings.Contains(progressive, "ildct") || strings.Contains(progressive, "-top") {
		t.Fatalf("progressive args must not carry interlace flags: %q", progressive)
	}

	tff := strings.Join(rewrap.Args("in.m2ts", "out.mov", ffprobe.Decision{Interlaced: true, TopFieldFirst: true}), " ")
	if !strings.Contains(tff, "-flags +ildct+ilme") || !strings.Contains(tff, "-top 1") {
		t.Fatalf("tff args missing interlace flags: %q", tff)
	}

	bff := strings.Join(rewrap.Args("in.m2ts", "out.mov", ffprobe.Decision{Interlaced: true}), " ")
	if !strings.Contains(bff, "-top 0") {
		t.Fatalf("bff args missing -top 0: %q", bff)
	}

	for _, want := range []string{
		"-c:v prores_ks", "-profile:v 3", "-pix_fmt yuv422p10le",
		"-color_primaries 12", "-color_trc 11", "-colorspace 12",
		"-color_range tv", "-c:a pcm_s24le",
	} {
		if !strings.Contains(tff, want) {
			t.Fatalf("args missing %q: %q", want, tff)
		}
	}
}
