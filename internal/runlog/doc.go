// Package runlog persists batch bookkeeping to SQLite.
//
// Every run gets a row in runs and every discovered file a row in run_files,
// updated as the job moves through the pipeline. The history survives across
// runs so `framemill history` can list past batches.
package runlog
