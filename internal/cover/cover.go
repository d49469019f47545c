// Package cover copies the embedded artwork of a container next to it.
package cover

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"aaxsplit/internal/activation"
	"aaxsplit/internal/logging"
	"aaxsplit/internal/media/ffmpeg"
	"aaxsplit/internal/services"
)

// Extractor runs the single ffmpeg invocation that writes <base>.jpg.
type Extractor struct {
	runner ffmpeg.Runner
	logger *slog.Logger
}

func NewExtractor(runner ffmpeg.Runner, logger *slog.Logger) *Extractor {
	return &Extractor{runner: runner, logger: logging.NewComponentLogger(logger, "cover")}
}

// ImagePath returns where the cover for input is written.
func ImagePath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".jpg"
}

// Extract writes the cover image and returns its path. On failure it returns
// "" and an error wrapping services.ErrCoverExtraction.
func (e *Extractor) Extract(ctx context.Context, input string, key activation.Key) (string, error) {
	output := ImagePath(input)
	if err := e.runner.Run(ctx, ffmpeg.CoverArgs(string(key), input, output)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", services.Wrap(services.ErrCoverExtraction, "cover", "extract", input, err)
	}
	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		return "", services.Wrap(services.ErrCoverExtraction, "cover", "extract", "ffmpeg wrote no image for "+input, err)
	}
	logging.WithContext(ctx, e.logger).Debug("cover extracted", logging.String("path", output))
	return output, nil
}
