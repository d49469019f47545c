package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"aaxsplit/internal/services"
)

// stderrTailLines bounds how much ffmpeg diagnostic output is kept on failure.
const stderrTailLines = 8

// Runner executes one ffmpeg invocation and blocks until it exits.
type Runner interface {
	Run(ctx context.Context, args []string) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, args []string) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, args []string) error {
	return f(ctx, args)
}

// ExitError reports an ffmpeg process that started but exited unsuccessfully.
type ExitError struct {
	Args     []string
	ExitCode int
	// Tail holds the last lines ffmpeg wrote to stderr.
	Tail []string
	Err  error
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited with status %d", e.ExitCode)
	if len(e.Tail) > 0 {
		msg += ": " + strings.Join(e.Tail, " | ")
	}
	return msg
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner runs the configured ffmpeg binary with stdin detached.
type ExecRunner struct {
	Binary string
}

// NewExecRunner returns a runner for binary, defaulting to "ffmpeg".
func NewExecRunner(binary string) *ExecRunner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &ExecRunner{Binary: binary}
}

// Run executes ffmpeg with args. A non-zero exit yields *ExitError; a process
// that could not be started yields an error wrapping services.ErrExternalTool.
// Context cancellation kills the process and returns the context error.
func (r *ExecRunner) Run(ctx context.Context, args []string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.Binary, args...) //nolint:gosec
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{
			Args:     append([]string(nil), args...),
			ExitCode: exitErr.ExitCode(),
			Tail:     tail(stderr.String(), stderrTailLines),
			Err:      err,
		}
	}
	return services.Wrap(services.ErrExternalTool, "ffmpeg", "launch "+r.Binary, "", err)
}

// IsLaunchFailure reports whether err means ffmpeg never ran.
func IsLaunchFailure(err error) bool {
	return errors.Is(err, services.ErrExternalTool)
}

func tail(output string, n int) []string {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil
	}
	lines := strings.Split(output, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}
