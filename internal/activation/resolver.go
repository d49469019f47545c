package activation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"aaxsplit/internal/logging"
	"aaxsplit/internal/media/ffmpeg"
	"aaxsplit/internal/services"
)

// NoWorkingKeyError reports that every candidate, including the absent key,
// failed its trial.
type NoWorkingKeyError struct {
	Path  string
	Tried []Key
}

func (e *NoWorkingKeyError) Error() string {
	labels := make([]string, len(e.Tried))
	for i, k := range e.Tried {
		labels[i] = k.Redacted()
	}
	return fmt.Sprintf("%s: %s (tried %s)", services.ErrNoWorkingKey, e.Path, strings.Join(labels, ", "))
}

func (e *NoWorkingKeyError) Unwrap() error {
	return services.ErrNoWorkingKey
}

// Resolver finds a working key by trial transcodes.
type Resolver struct {
	runner ffmpeg.Runner
	codec  string
	format string
	logger *slog.Logger
}

// NewResolver constructs a resolver whose trials decode into codec/format.
func NewResolver(runner ffmpeg.Runner, codec, format string, logger *slog.Logger) *Resolver {
	return &Resolver{
		runner: runner,
		codec:  codec,
		format: format,
		logger: logging.NewComponentLogger(logger, "activation"),
	}
}

// Resolve tries the absent key and then each candidate in order, stopping at
// the first trial that succeeds. Blank and repeated candidates are skipped.
// Trials run strictly one after another.
func (r *Resolver) Resolve(ctx context.Context, path string, candidates []Key) (Key, error) {
	logger := logging.WithContext(ctx, r.logger)

	seen := make(map[Key]struct{}, len(candidates)+1)
	order := make([]Key, 0, len(candidates)+1)
	order = append(order, "")
	seen[""] = struct{}{}
	for _, c := range candidates {
		c = Key(strings.TrimSpace(string(c)))
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		order = append(order, c)
	}

	tried := make([]Key, 0, len(order))
	for _, key := range order {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		started := time.Now()
		err := r.runner.Run(ctx, ffmpeg.TrialArgs(string(key), path, r.codec, r.format))
		tried = append(tried, key)
		if err == nil {
			logger.Info("activation key accepted",
				logging.String("key", key.Redacted()),
				logging.Int("trials", len(tried)),
				logging.Duration("elapsed", time.Since(started)),
			)
			return key, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if ffmpeg.IsLaunchFailure(err) {
			return "", err
		}
		logger.Debug("activation key rejected",
			logging.String("key", key.Redacted()),
			logging.Error(err),
		)
	}
	return "", &NoWorkingKeyError{Path: path, Tried: tried}
}
