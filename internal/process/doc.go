// Package process owns child-process lifecycles for the upscale pipeline.
//
// A Supervisor launches one or two chained stages (stage A's stdout feeding
// stage B's stdin), each in its own process group, scans their diagnostic
// streams line by line, and guarantees termination on stop: graceful signal,
// bounded wait, then a process-group kill. The Watchdog declares a supervised
// pipeline frozen when output stops for longer than its timeout, but never
// before the first output line arrives.
package process
