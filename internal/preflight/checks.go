package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"aaxsplit/internal/config"
	"aaxsplit/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckMetadataDir reports whether sidecar metadata records can be read. A
// missing directory is not a failure: books then take their names from
// container tags.
func CheckMetadataDir(path string) Result {
	const name = "Metadata directory"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Passed: true, Detail: "not configured (container tags only)"}
	}
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (absent, container tags only)", path)}
	case err != nil:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	case !info.IsDir():
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: unreadable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

// CheckSystemDeps evaluates the external binaries for the given config. Both
// RunAll and the status command use this so the requirement list lives in one
// place.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for decryption and encoding",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for chapter inspection",
		},
	}
	return deps.CheckBinaries(requirements)
}
