// Command framemill drives the batch upscaling pipeline: discover files,
// rewrap each to a normalized ProRes intermediate, run the vspipe|ffmpeg
// upscale under supervision, and verify the artifacts.
package main
