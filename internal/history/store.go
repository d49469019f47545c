package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"aaxsplit/internal/config"
	"aaxsplit/internal/services"
)

// Store manages conversion history backed by SQLite.
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

// retryOnBusy retries op with exponential backoff while SQLite reports the
// database as locked. Parallel aaxsplit processes share one history file.
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

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
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

// Open initializes or connects to the history database under the state dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens the history database at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
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

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginConversion records a running conversion of sourcePath.
func (s *Store) BeginConversion(ctx context.Context, id, sourcePath string) (*Conversion, error) {
	if strings.TrimSpace(id) == "" {
		return nil, services.Wrap(services.ErrValidation, "history", "begin", "conversion id is required", nil)
	}
	started := time.Now().UTC()
	_, err := s.exec(ctx,
		`INSERT INTO conversions (id, source_path, status, started_at) VALUES (?, ?, ?, ?)`,
		id, sourcePath, StatusRunning, started.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert conversion: %w", err)
	}
	return &Conversion{ID: id, SourcePath: sourcePath, Status: StatusRunning, StartedAt: started}, nil
}

// RecordJobs stores the outcome of each chapter job of conversion id.
func (s *Store) RecordJobs(ctx context.Context, id string, jobs []JobRecord) error {
	if len(jobs) == 0 {
		return nil
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin jobs tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO conversion_jobs (
                conversion_id, segment, kind, label, start_seconds, end_seconds,
                output_path, succeeded, error_message, elapsed_ms
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare job insert: %w", err)
		}
		defer stmt.Close()

		for _, job := range jobs {
			if _, err := stmt.ExecContext(ctx,
				id, job.Segment, job.Kind, nullableString(job.Label), job.Start, job.End,
				job.OutputPath, boolToInt(job.Succeeded), nullableString(job.ErrorMessage),
				job.Elapsed.Milliseconds(),
			); err != nil {
				return fmt.Errorf("insert job %d: %w", job.Segment, err)
			}
		}
		return tx.Commit()
	})
}

// FinishConversion stores the final status of conversion id.
func (s *Store) FinishConversion(ctx context.Context, id string, outcome Outcome) error {
	var errKind, errMsg string
	if outcome.Err != nil {
		errKind = services.Kind(outcome.Err)
		errMsg = outcome.Err.Error()
	}
	res, err := s.exec(ctx,
		`UPDATE conversions
         SET status = ?, book_dir = ?, encrypted = ?, bitrate = ?, duration_seconds = ?,
             chapter_count = ?, error_kind = ?, error_message = ?, finished_at = ?
         WHERE id = ?`,
		outcome.Status,
		nullableString(outcome.BookDir),
		boolToInt(outcome.Encrypted),
		outcome.Bitrate,
		outcome.Duration,
		outcome.Chapters,
		nullableString(errKind),
		nullableString(errMsg),
		time.Now().UTC().Format(timeLayout),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish conversion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return services.Wrap(services.ErrNotFound, "history", "finish", "conversion "+id, nil)
	}
	return nil
}
