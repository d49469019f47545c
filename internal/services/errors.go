package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool    = errors.New("external tool error")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrTransient       = errors.New("transient failure")
	ErrUnsupportedFile = errors.New("unsupported file")

	// ErrProbeUnavailable marks a prober that could not be launched.
	ErrProbeUnavailable = errors.New("probe unavailable")
	// ErrProbeFormat marks prober output that could not be classified.
	ErrProbeFormat = errors.New("probe output unrecognized")
	// ErrNoWorkingKey marks a container no activation key could decrypt.
	ErrNoWorkingKey = errors.New("no working activation key")
	// ErrJobFailed marks a single chapter transcode that exited unsuccessfully.
	ErrJobFailed = errors.New("chapter job failed")
	// ErrCoverExtraction marks a cover image that could not be extracted.
	ErrCoverExtraction = errors.New("cover extraction failed")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short stable classification for err, suitable for history
// records and structured logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProbeUnavailable):
		return "probe_unavailable"
	case errors.Is(err, ErrProbeFormat):
		return "probe_format"
	case errors.Is(err, ErrNoWorkingKey):
		return "no_working_key"
	case errors.Is(err, ErrJobFailed):
		return "job_failed"
	case errors.Is(err, ErrCoverExtraction):
		return "cover_extraction"
	case errors.Is(err, ErrUnsupportedFile):
		return "unsupported_file"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "transient"
	}
}

// IsFatal reports whether err aborts processing of the current file. Job and
// cover failures are collected and reported instead.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrJobFailed) && !errors.Is(err, ErrCoverExtraction)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
