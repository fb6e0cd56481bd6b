package ffprobe

import (
	"math"
	"strconv"
	"strings"
)

// Estimated bitstream assumptions used when a file carries neither a frame
// count nor a usable duration. The size-based estimate assumes roughly
// 20 Mbit/s at 25 fps, which keeps the guess in the right order of magnitude
// for broadcast-era captures.
const (
	estimateBitsPerSecond = 20_000_000
	estimateFrameRate     = 25
)

// FrameCount determines the number of frames in the primary video stream,
// falling back through progressively rougher tiers:
//
//  1. the stream's declared nb_frames
//  2. duration multiplied by the frame rate
//  3. an estimate from file size assuming a typical bitrate
//
// The second return reports whether the count is exact (tiers 1 and 2). The
// size-based estimate is display-only: it must never bound a frame range or
// drive any other correctness decision, so it comes back flagged inexact.
// With no signal at all the result is (0, false).
func FrameCount(result Result, fileSize int64) (int, bool) {
	if video := result.FirstVideoStream(); video != nil {
		if declared := parseFrameTotal(video.NBFrames); declared > 0 {
			return declared, true
		}
	}

	duration := result.DurationSeconds()
	rate := result.FrameRate()
	if duration > 0 && rate > 0 {
		if frames := int(math.Floor(duration * rate)); frames > 0 {
			return frames, true
		}
	}

	if fileSize > 0 {
		sizeMB := float64(fileSize) / (1024 * 1024)
		frames := int(sizeMB * 8 * 1024 * 1024 / (estimateBitsPerSecond / estimateFrameRate))
		if frames > 0 {
			return frames, false
		}
	}
	return 0, false
}

func parseFrameTotal(value string) int {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || strings.EqualFold(cleaned, "N/A") {
		return 0
	}
	frames, err := strconv.Atoi(cleaned)
	if err != nil || frames <= 0 {
		return 0
	}
	return frames
}
