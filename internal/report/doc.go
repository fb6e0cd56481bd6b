// Package report renders human-facing summaries: the discovery table shown
// before a batch starts, the final batch summary, and the per-run
// performance profile written next to the run log.
package report
