package ffprobe

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"aaxsplit/internal/services"
)

// Inspect executes ffprobe against path and parses the diagnostic text it
// writes to stderr. Standard input is suppressed and the exit status is
// ignored: ffprobe is expected to describe what it can even for files it cannot
// fully interpret.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Wrap(services.ErrValidation, "probe", "inspect", "empty path", nil)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "-hide_banner", "-i", path) //nolint:gosec
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, services.Wrap(services.ErrProbeUnavailable, "probe", "launch "+binary, "", err)
		}
	}

	return ParseOutput(stderr.String())
}
