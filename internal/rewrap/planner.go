package rewrap

import (
	"path/filepath"
	"strings"

	"framemill/internal/media/ffprobe"
)

// Container names that always require normalization before filtering.
var rewrapContainers = []string{"avi", "matroska", "mp4", "mpeg", "mpegts", "mxf"}

// Extensions that always require normalization, checked when the container
// name is inconclusive.
var rewrapExtensions = map[string]bool{
	".avi": true, ".mkv": true, ".mp4": true, ".m4v": true,
	".mpg": true, ".mpeg": true, ".ts": true, ".mts": true,
	".m2ts": true, ".mxf": true, ".dv": true, ".hdv": true,
}

const targetCodec = "prores"

// Decide reports whether a source needs rewrapping and why. probeErr is the
// error from probing, if any; a failed probe forces a rewrap as the safe
// default. Under the current policy the answer is always true, since even a
// source already in the target container and codec is re-encoded for color
// consistency, so the returned reason is the interesting part.
func Decide(result ffprobe.Result, probeErr error, path string) (bool, string) {
	if probeErr != nil {
		return true, "probe failed, rewrapping as a precaution"
	}

	format := strings.ToLower(result.Format.FormatName)
	for _, name := range rewrapContainers {
		if strings.Contains(format, name) {
			return true, "container " + name + " requires normalization"
		}
	}
	if ext := strings.ToLower(filepath.Ext(path)); rewrapExtensions[ext] {
		return true, "extension " + ext + " requires normalization"
	}

	if video := result.FirstVideoStream(); video != nil {
		if !strings.Contains(strings.ToLower(video.CodecName), targetCodec) {
			return true, "codec " + video.CodecName + " is not the target intermediate codec"
		}
	}

	// Already target container and codec: still rewrap so the
	// intermediate carries the pipeline's color tags.
	return true, "normalizing color tags"
}

// OutputPath returns the deterministic intermediate path for a source.
func OutputPath(source, outputDir string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(outputDir, base+"_prores.mov")
}
