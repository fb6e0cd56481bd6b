package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"framemill/internal/services"
)

const runLogTimeFormat = "20060102_150405"

// CreateRunLogDir creates the per-run log directory under the output
// directory and returns the directory and the log file path inside it.
func CreateRunLogDir(outputDir string, batchMode bool, now time.Time) (string, string, error) {
	stamp := now.Format(runLogTimeFormat)
	dir := filepath.Join(outputDir, "framemill_logs_"+stamp)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", services.Wrap(services.ErrFilesystem, "batch", "create run log directory", dir, err)
	}

	name := fmt.Sprintf("framemill_%s.log", stamp)
	if batchMode {
		name = fmt.Sprintf("framemill_batch_%s.log", stamp)
	}
	return dir, filepath.Join(dir, name), nil
}
