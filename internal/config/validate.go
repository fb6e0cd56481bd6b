package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate checks configuration invariants that would otherwise surface as
// confusing external-tool failures mid-run.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Tools.VSPipe) == "" {
		problems = append(problems, "tools.vspipe must not be empty")
	}
	if strings.TrimSpace(c.Tools.FFmpeg) == "" {
		problems = append(problems, "tools.ffmpeg must not be empty")
	}
	if strings.TrimSpace(c.Tools.FFprobe) == "" {
		problems = append(problems, "tools.ffprobe must not be empty")
	}
	if strings.TrimSpace(c.Tools.FilterScript) == "" {
		problems = append(problems, "tools.filter_script must not be empty")
	}
	if c.Pipeline.TargetWidth <= 0 || c.Pipeline.TargetHeight <= 0 {
		problems = append(problems, "pipeline.target_width and pipeline.target_height must be positive")
	}
	if _, err := ParseFrameRate(c.Pipeline.TargetFPS); err != nil {
		problems = append(problems, fmt.Sprintf("pipeline.target_fps: %v", err))
	}
	if strings.TrimSpace(c.Pipeline.PixelFormat) == "" {
		problems = append(problems, "pipeline.pixel_format must not be empty")
	}
	if c.Watchdog.TimeoutSeconds <= 0 {
		problems = append(problems, "watchdog.timeout_seconds must be positive")
	}
	if c.Watchdog.CheckIntervalSeconds <= 0 {
		problems = append(problems, "watchdog.check_interval_seconds must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ParseFrameRate parses a rational "num/den" or decimal frame-rate string.
func ParseFrameRate(value string) (float64, error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0, errors.New("empty frame rate")
	}
	if num, den, ok := strings.Cut(cleaned, "/"); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, fmt.Errorf("parse frame rate %q: %w", value, err)
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err != nil {
			return 0, fmt.Errorf("parse frame rate %q: %w", value, err)
		}
		if d == 0 {
			return 0, fmt.Errorf("frame rate %q has zero denominator", value)
		}
		return n / d, nil
	}
	rate, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", value, err)
	}
	if rate <= 0 {
		return 0, fmt.Errorf("frame rate %q must be positive", value)
	}
	return rate, nil
}
