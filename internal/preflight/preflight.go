package preflight

import (
	"context"
	"fmt"
	"strings"

	"aaxsplit/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks a conversion needs: the working directories
// must be writable and ffmpeg and ffprobe must resolve.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Library directory", cfg.Paths.LibraryDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	for _, status := range CheckSystemDeps(ctx, cfg) {
		if status.Optional {
			continue
		}
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Path}
		if !status.Available {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// Summarize joins failed results into one message, or returns "" when every
// check passed.
func Summarize(results []Result) string {
	failed := Failed(results)
	if len(failed) == 0 {
		return ""
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return strings.Join(parts, "; ")
}
