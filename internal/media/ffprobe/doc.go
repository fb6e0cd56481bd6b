// Package ffprobe wraps the external metadata prober and derives the facts
// later stages depend on: frame counts (with estimation fallbacks), the
// interlace decision, and color-space tags.
//
// Probe failure is recoverable by design: callers proceed with conservative
// defaults (assume interlaced, top field first, rewrap needed) rather than
// aborting the job.
package ffprobe
