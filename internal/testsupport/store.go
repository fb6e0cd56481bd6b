package testsupport

import (
	"path/filepath"
	"testing"

	"framemill/internal/runlog"
)

// MustOpenStore opens a runlog.Store under the test's temp tree and
// registers cleanup.
func MustOpenStore(t testing.TB) *runlog.Store {
	t.Helper()

	store, err := runlog.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("runlog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
