// Package upscale runs the two-stage filter/encode pipeline for one file.
//
// Stage A is vspipe reading the rewrapped intermediate through the filter
// script and emitting raw frames; stage B is ffmpeg consuming those frames
// on stdin and writing the final ProRes artifact. The runner supervises both
// stages together, feeds their diagnostic lines to the progress monitor and
// the watchdog, and verifies the artifact afterwards. Only the encoder emits
// structured frame counters; vspipe's stderr contributes startup markers.
package upscale
