package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"aaxsplit/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	// Level is the minimum level written anywhere.
	Level string
	// Format selects the run log encoding: "console" or "json".
	Format string
	// Console receives human-readable output; nil disables it.
	Console io.Writer
	// ConsoleLevel raises the floor for Console above Level.
	ConsoleLevel string
	// FilePath is the run log; empty disables it.
	FilePath string
}

// New constructs a slog logger that writes to the console, the run log, or
// both.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}
	if format != "console" && format != "json" {
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
	addSource := level <= slog.LevelDebug

	var handlers []slog.Handler
	if opts.Console != nil {
		consoleLevel := level
		if opts.ConsoleLevel != "" {
			consoleLevel = max(level, parseLevel(opts.ConsoleLevel))
		}
		color := isTerminal(opts.Console)
		handlers = append(handlers, newConsoleHandler(opts.Console, consoleOptions{
			level:      consoleLevel,
			addSource:  addSource,
			color:      color,
			timeLayout: time.TimeOnly,
			omit:       []string{FieldRunID},
		}))
	}
	if opts.FilePath != "" {
		file, err := openLogFile(opts.FilePath)
		if err != nil {
			return nil, err
		}
		if format == "json" {
			handlers = append(handlers, newJSONHandler(file, level, addSource))
		} else {
			handlers = append(handlers, newConsoleHandler(file, consoleOptions{
				level:      level,
				addSource:  addSource,
				timeLayout: time.RFC3339,
			}))
		}
	}

	switch len(handlers) {
	case 0:
		return NewNop(), nil
	case 1:
		return slog.New(handlers[0]), nil
	default:
		return slog.New(teeHandler(handlers)), nil
	}
}

// NewFromConfig logs warnings to stderr, leaving the terminal to the progress
// display, and everything at the configured level to a fresh run log in
// paths.log_dir. Debug level lifts the stderr floor as well.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Console: os.Stderr})
	}
	opts := Options{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Console:      os.Stderr,
		ConsoleLevel: "warn",
	}
	if parseLevel(cfg.Logging.Level) <= slog.LevelDebug {
		opts.ConsoleLevel = ""
	}
	if cfg.Paths.LogDir != "" {
		opts.FilePath = filepath.Join(cfg.Paths.LogDir, RunLogName(time.Now()))
	}
	return New(opts)
}

// RunLogPattern matches the files RunLogName produces.
const RunLogPattern = "aaxsplit-*.log"

// RunLogName returns the log file name for a run started at ts.
func RunLogName(ts time.Time) string {
	return "aaxsplit-" + ts.UTC().Format("20060102T150405") + ".log"
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}

func newJSONHandler(w io.Writer, level slog.Level, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	})
}

// isTerminal reports whether w is a terminal that understands ANSI colours.
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
