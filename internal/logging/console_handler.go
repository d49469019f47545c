package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

type consoleOptions struct {
	level      slog.Level
	addSource  bool
	color      bool
	timeLayout string
	// omit lists attribute keys left out of the line.
	omit []string
}

// consoleHandler writes one "time LEVEL component: message key=value" line
// per record.
type consoleHandler struct {
	mu     *sync.Mutex
	writer io.Writer
	opts   consoleOptions
	attrs  []field
	groups []string
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, opts consoleOptions) *consoleHandler {
	if opts.timeLayout == "" {
		opts.timeLayout = time.RFC3339
	}
	return &consoleHandler{mu: &sync.Mutex{}, writer: w, opts: opts}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := slices.Clone(h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.groups, attr)
		return true
	})

	component := ""
	rest := fields[:0]
	for _, f := range fields {
		switch {
		case f.key == FieldComponent:
			if component == "" {
				component = f.value.String()
			}
		case slices.Contains(h.opts.omit, f.key):
		default:
			rest = append(rest, f)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var buf bytes.Buffer
	buf.WriteString(ts.Format(h.opts.timeLayout))
	buf.WriteByte(' ')
	h.writeLevel(&buf, record.Level)
	buf.WriteByte(' ')
	if component != "" {
		buf.WriteString(component)
		buf.WriteString(": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		buf.WriteString(msg)
	} else {
		buf.WriteString("(no message)")
	}
	if h.opts.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&buf, " [%s:%d]", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range rest {
		buf.WriteByte(' ')
		buf.WriteString(f.key)
		buf.WriteByte('=')
		buf.WriteString(quoteIfNeeded(valueText(f.value)))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = slices.Clone(h.attrs)
	for _, attr := range attrs {
		clone.attrs = appendField(clone.attrs, h.groups, attr)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(slices.Clone(h.groups), name)
	return &clone
}

func (h *consoleHandler) writeLevel(buf *bytes.Buffer, level slog.Level) {
	label, color := "DEBUG", "\x1b[90m"
	switch {
	case level >= slog.LevelError:
		label, color = "ERROR", "\x1b[31m"
	case level >= slog.LevelWarn:
		label, color = "WARN", "\x1b[33m"
	case level >= slog.LevelInfo:
		label, color = "INFO", "\x1b[32m"
	}
	if !h.opts.color {
		buf.WriteString(label)
		return
	}
	buf.WriteString(color)
	buf.WriteString(label)
	buf.WriteString("\x1b[0m")
}

// appendField flattens groups into dotted keys.
func appendField(dst []field, groups []string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		inner := groups
		if attr.Key != "" {
			inner = append(slices.Clone(groups), attr.Key)
		}
		for _, member := range attr.Value.Group() {
			dst = appendField(dst, inner, member)
		}
		return dst
	}
	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(append(slices.Clone(groups), key), ".")
	}
	return append(dst, field{key: key, value: attr.Value})
}

func valueText(v slog.Value) string {
	switch v.Kind() {
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}
