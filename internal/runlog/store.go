package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"framemill/internal/config"
)

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// DefaultPath returns the history database location for a configuration.
func DefaultPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.LogDir, "history.db")
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// BeginRun records a new run.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, started_at, input_path, output_dir, log_dir, test_frames)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		timestamp(run.StartedAt),
		run.InputPath,
		run.OutputDir,
		run.LogDir,
		run.TestFrames,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the aggregate counters once a run completes.
func (s *Store) FinishRun(ctx context.Context, runID string, finishedAt time.Time, total, succeeded, failed, skipped int) error {
	_, err := s.execWithRetry(ctx,
		`UPDATE runs SET finished_at = ?, total = ?, succeeded = ?, failed = ?, skipped = ?
         WHERE id = ?`,
		timestamp(finishedAt), total, succeeded, failed, skipped, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// AddFile records a discovered file in pending state and returns its row id.
func (s *Store) AddFile(ctx context.Context, runID, sourcePath string) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`INSERT INTO run_files (run_id, source_path, status) VALUES (?, ?, ?)`,
		runID, sourcePath, StatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// SetFileStatus moves a file to a new status, stamping start/finish times at
// the boundaries of its active life.
func (s *Store) SetFileStatus(ctx context.Context, fileID int64, status Status) error {
	now := timestamp(time.Now().UTC())
	var err error
	switch {
	case status.Terminal():
		_, err = s.execWithRetry(ctx,
			`UPDATE run_files SET status = ?, finished_at = ? WHERE id = ?`,
			status, now, fileID)
	default:
		_, err = s.execWithRetry(ctx,
			`UPDATE run_files SET status = ?, started_at = COALESCE(started_at, ?) WHERE id = ?`,
			status, now, fileID)
	}
	if err != nil {
		return fmt.Errorf("set file status: %w", err)
	}
	return nil
}

// FinishFile records a file's terminal outcome.
func (s *Store) FinishFile(ctx context.Context, fileID int64, status Status, outputPath, errText string, frames int) error {
	_, err := s.execWithRetry(ctx,
		`UPDATE run_files SET status = ?, output_path = ?, error = ?, frames = ?, finished_at = ?
         WHERE id = ?`,
		status, outputPath, errText, frames, timestamp(time.Now().UTC()), fileID,
	)
	if err != nil {
		return fmt.Errorf("finish file: %w", err)
	}
	return nil
}

// SetColorResult records the advisory color-space check outcome.
func (s *Store) SetColorResult(ctx context.Context, fileID int64, ok bool) error {
	value := 0
	if ok {
		value = 1
	}
	_, err := s.execWithRetry(ctx,
		`UPDATE run_files SET color_ok = ? WHERE id = ?`, value, fileID)
	if err != nil {
		return fmt.Errorf("set color result: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, input_path, output_dir, log_dir,
                test_frames, total, succeeded, failed, skipped
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var started string
		var finished sql.NullString
		if err := rows.Scan(&run.ID, &started, &finished, &run.InputPath, &run.OutputDir,
			&run.LogDir, &run.TestFrames, &run.Total, &run.Succeeded, &run.Failed, &run.Skipped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTimestamp(started)
		if finished.Valid {
			run.FinishedAt = parseTimestamp(finished.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FilesForRun returns every file record of a run in insertion order.
func (s *Store) FilesForRun(ctx context.Context, runID string) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, source_path, output_path, status, error, frames, color_ok,
                started_at, finished_at
         FROM run_files WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run files: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		var record FileRecord
		var status string
		var colorOK sql.NullInt64
		var started, finished sql.NullString
		if err := rows.Scan(&record.ID, &record.RunID, &record.SourcePath, &record.OutputPath,
			&status, &record.Error, &record.Frames, &colorOK, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		record.Status = Status(status)
		if colorOK.Valid {
			ok := colorOK.Int64 != 0
			record.ColorOK = &ok
		}
		if started.Valid {
			record.StartedAt = parseTimestamp(started.String)
		}
		if finished.Valid {
			record.FinishedAt = parseTimestamp(finished.String)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}
