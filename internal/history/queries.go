package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"aaxsplit/internal/services"
)

const conversionColumns = "id, source_path, book_dir, status, encrypted, bitrate, duration_seconds, chapter_count, error_kind, error_message, started_at, finished_at"

// List returns the most recent conversions, newest first. A non-positive
// limit returns every conversion.
func (s *Store) List(ctx context.Context, limit int) ([]Conversion, error) {
	query := `SELECT ` + conversionColumns + ` FROM conversions ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	var out []Conversion
	for rows.Next() {
		conv, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		out = append(out, *conv)
	}
	return out, rows.Err()
}

// Get returns conversion id. A unique id prefix is accepted.
func (s *Store) Get(ctx context.Context, id string) (*Conversion, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "history", "get", "conversion id is required", nil)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+conversionColumns+` FROM conversions WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2`,
		id, escapeLike(id)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("get conversion: %w", err)
	}
	defer rows.Close()

	var matches []*Conversion
	for rows.Next() {
		conv, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		if conv.ID == id {
			return conv, nil
		}
		matches = append(matches, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, services.Wrap(services.ErrNotFound, "history", "get", "conversion "+id, nil)
	case 1:
		return matches[0], nil
	default:
		return nil, services.Wrap(services.ErrValidation, "history", "get", "ambiguous conversion id "+id, nil)
	}
}

// Jobs returns the recorded chapter jobs of conversion id ordered by segment.
func (s *Store) Jobs(ctx context.Context, id string) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT segment, kind, label, start_seconds, end_seconds, output_path, succeeded, error_message, elapsed_ms
         FROM conversion_jobs WHERE conversion_id = ? ORDER BY segment`, id)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []JobRecord
	for rows.Next() {
		var (
			rec       JobRecord
			label     sql.NullString
			errMsg    sql.NullString
			succeeded int
			elapsedMS int64
		)
		if err := rows.Scan(&rec.Segment, &rec.Kind, &label, &rec.Start, &rec.End, &rec.OutputPath, &succeeded, &errMsg, &elapsedMS); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		rec.Label = label.String
		rec.ErrorMessage = errMsg.String
		rec.Succeeded = succeeded != 0
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RememberKey records that key decrypted a container.
func (s *Store) RememberKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.exec(ctx,
		`INSERT INTO activation_keys (key, first_used_at, last_used_at, use_count) VALUES (?, ?, ?, 1)
         ON CONFLICT(key) DO UPDATE SET last_used_at = excluded.last_used_at, use_count = use_count + 1`,
		key, now, now,
	)
	if err != nil {
		return fmt.Errorf("remember key: %w", err)
	}
	return nil
}

// KnownKeys returns remembered keys, most recently used first.
func (s *Store) KnownKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM activation_keys ORDER BY last_used_at DESC, key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func scanConversion(scanner interface{ Scan(dest ...any) error }) (*Conversion, error) {
	var (
		conv        Conversion
		bookDir     sql.NullString
		status      string
		encrypted   int
		errKind     sql.NullString
		errMsg      sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&conv.ID, &conv.SourcePath, &bookDir, &status, &encrypted, &conv.Bitrate,
		&conv.Duration, &conv.Chapters, &errKind, &errMsg, &startedRaw, &finishedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.Wrap(services.ErrNotFound, "history", "scan", "conversion", err)
		}
		return nil, err
	}
	conv.BookDir = bookDir.String
	conv.Status = Status(status)
	conv.Encrypted = encrypted != 0
	conv.ErrorKind = errKind.String
	conv.ErrorMessage = errMsg.String
	if started, err := time.Parse(timeLayout, startedRaw); err == nil {
		conv.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := time.Parse(timeLayout, finishedRaw.String); err == nil {
			conv.FinishedAt = &finished
		}
	}
	return &conv, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func escapeLike(value string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(value)
}
