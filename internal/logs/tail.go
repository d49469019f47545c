package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"aaxsplit/internal/logging"
)

const defaultPollInterval = 250 * time.Millisecond

// ErrNoRunLogs is returned by Latest when the directory holds no run log.
var ErrNoRunLogs = errors.New("no run logs found")

// Latest returns the newest run log in dir. Run log names embed a sortable
// UTC timestamp, so the lexically greatest name is the newest run.
func Latest(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, logging.RunLogPattern))
	if err != nil {
		return "", fmt.Errorf("list run logs: %w", err)
	}
	if len(matches) == 0 {
		return "", ErrNoRunLogs
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// TailOptions controls Tail.
type TailOptions struct {
	// Lines is how many trailing lines to print first; 0 prints the whole file.
	Lines int
	// Follow keeps reading appended lines until ctx is done.
	Follow bool
	// PollInterval defaults to 250ms.
	PollInterval time.Duration
}

// Tail writes the last opts.Lines lines of path to out. With Follow set it
// then polls for appended lines and returns ctx.Err() once ctx ends.
func Tail(ctx context.Context, path string, out io.Writer, opts TailOptions) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	lines, err := lastLines(file, opts.Lines)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	if !opts.Follow {
		return nil
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	reader := bufio.NewReader(file)
	var partial []byte
	for {
		chunk, err := reader.ReadBytes('\n')
		partial = append(partial, chunk...)
		if err == nil {
			if _, werr := out.Write(partial); werr != nil {
				return werr
			}
			partial = partial[:0]
			continue
		}
		if !errors.Is(err, io.EOF) {
			return fmt.Errorf("read log file: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// lastLines reads file to the end and keeps at most limit trailing lines.
// The file offset is left at EOF for follow mode.
func lastLines(file *os.File, limit int) ([]string, error) {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if limit > 0 && len(lines) > limit {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return nil, fmt.Errorf("seek log file: %w", err)
	}
	return lines, nil
}
