package batch

import (
	"os"
	"time"
)

// skipSizeFloor is the minimum plausible output size; anything smaller is a
// broken artifact and never justifies a skip.
const skipSizeFloor = 1024 * 1024

// ShouldSkip is the pure skip rule: skip only when skipping is enabled, the
// output exists, the output is newer than the input, and the output clears
// the size floor.
func ShouldSkip(skipExisting, outputExists bool, outputNewer bool, outputSize int64) bool {
	return skipExisting && outputExists && outputNewer && outputSize >= skipSizeFloor
}

// EvaluateSkip applies the skip rule to paths on disk.
func EvaluateSkip(skipExisting bool, sourcePath, outputPath string) bool {
	if !skipExisting {
		return false
	}
	outInfo, err := os.Stat(outputPath)
	if err != nil {
		return false
	}
	srcInfo, err := os.Stat(sourcePath)
	if err != nil {
		return false
	}
	return ShouldSkip(skipExisting, true, newer(outInfo.ModTime(), srcInfo.ModTime()), outInfo.Size())
}

func newer(output, input time.Time) bool {
	return output.After(input)
}
