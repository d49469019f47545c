package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Version runs "<command> -version" and returns the version token from the
// banner line ffmpeg and ffprobe print first, e.g. "6.1.1" from
// "ffmpeg version 6.1.1 Copyright ...".
func Version(ctx context.Context, command string) (string, error) {
	cmd := exec.CommandContext(ctx, command, "-version") //nolint:gosec
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s -version: %w", command, err)
	}
	scanner := bufio.NewScanner(&stdout)
	if !scanner.Scan() {
		return "", fmt.Errorf("%s -version: empty output", command)
	}
	fields := strings.Fields(scanner.Text())
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "version" {
			return fields[i+1], nil
		}
	}
	return "", fmt.Errorf("%s -version: unrecognized banner %q", command, scanner.Text())
}
