package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index          int    `json:"index"`
	CodecName      string `json:"codec_name"`
	CodecType      string `json:"codec_type"`
	PixFmt         string `json:"pix_fmt"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	FieldOrder     string `json:"field_order"`
	RFrameRate     string `json:"r_frame_rate"`
	NBFrames       string `json:"nb_frames"`
	Duration       string `json:"duration"`
	ColorPrimaries string `json:"color_primaries"`
	ColorTransfer  string `json:"color_transfer"`
	ColorSpace     string `json:"color_space"`
	ColorRange     string `json:"color_range"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
}

// Executor abstracts command execution for the prober.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// commandExecutor executes commands using os/exec.
type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.Output()
}

// Prober wraps ffprobe invocations for a configured binary.
type Prober struct {
	binary string
	exec   Executor
}

// NewProber constructs a Prober for the provided ffprobe binary.
func NewProber(binary string) *Prober {
	return NewProberWithExecutor(binary, commandExecutor{})
}

// NewProberWithExecutor allows injecting a custom executor for testing.
func NewProberWithExecutor(binary string, exec Executor) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if exec == nil {
		exec = commandExecutor{}
	}
	return &Prober{binary: binary, exec: exec}
}

// Inspect executes ffprobe against the provided path and decodes the JSON
// response. The returned error carries the tool's diagnostic text so callers
// can surface the actual cause rather than just an exit code.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", path}
	output, err := p.exec.Run(ctx, p.binary, args)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect %s: %w%s", path, err, exitDetail(err))
	}
	return Parse(output)
}

func exitDetail(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if text := strings.TrimSpace(string(exitErr.Stderr)); text != "" {
			return ": " + text
		}
	}
	return ""
}

// Parse decodes a raw ffprobe JSON payload.
func Parse(payload []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// FirstVideoStream returns the first video stream, or nil when none exists.
func (r Result) FirstVideoStream() *Stream {
	for i := range r.Streams {
		if strings.EqualFold(r.Streams[i].CodecType, "video") {
			return &r.Streams[i]
		}
	}
	return nil
}

// DurationSeconds returns the container duration in seconds, or 0 when the
// container omits it.
func (r Result) DurationSeconds() float64 {
	if d := parseFloat(r.Format.Duration); !math.IsNaN(d) && d > 0 {
		return d
	}
	if video := r.FirstVideoStream(); video != nil {
		if d := parseFloat(video.Duration); !math.IsNaN(d) && d > 0 {
			return d
		}
	}
	return 0
}

// FrameRate returns the primary video stream's frame rate in frames per
// second, or 0 when unavailable. Accepts rational "num/den" and decimal
// forms.
func (r Result) FrameRate() float64 {
	video := r.FirstVideoStream()
	if video == nil {
		return 0
	}
	return parseFrameRate(video.RFrameRate)
}

func parseFrameRate(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if num, den, ok := strings.Cut(cleaned, "/"); ok {
		n := parseFloat(num)
		d := parseFloat(den)
		if math.IsNaN(n) || math.IsNaN(d) || d == 0 {
			return 0
		}
		return n / d
	}
	if rate := parseFloat(cleaned); !math.IsNaN(rate) && rate > 0 {
		return rate
	}
	return 0
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return math.NaN()
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return math.NaN()
	}
	return parsed
}
