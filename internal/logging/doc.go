// Package logging assembles the structured slog loggers used across the
// pipeline.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers so stage code tags log lines with
// the same field names everywhere. Every run appends to a per-run log file in
// addition to the console; handler writes are serialized so the monitor,
// watchdog, and main flow can share one destination.
//
// Prefer these constructors over hand-rolled slog setup so new components
// emit data with the same shape as the rest of the system.
package logging
