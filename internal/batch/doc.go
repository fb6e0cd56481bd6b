// Package batch sequences jobs through the pipeline.
//
// The orchestrator discovers candidate files, applies the skip rule, and
// drives one job at a time through probe, rewrap, upscale, and verification,
// aggregating outcomes into the batch state. A job failure is caught at the
// job boundary and never aborts the batch; run-level failures (bad paths, no
// files) abort before the first job starts.
package batch
