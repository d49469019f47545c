package conversion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"aaxsplit/internal/activation"
	"aaxsplit/internal/chapters"
	"aaxsplit/internal/config"
	"aaxsplit/internal/cover"
	"aaxsplit/internal/fileutil"
	"aaxsplit/internal/history"
	"aaxsplit/internal/logging"
	"aaxsplit/internal/media/ffmpeg"
	"aaxsplit/internal/media/ffprobe"
	"aaxsplit/internal/services"
)

// Prober inspects a container.
type Prober func(ctx context.Context, path string) (ffprobe.Result, error)

// Session converts containers according to one configuration.
type Session struct {
	cfg      *config.Config
	runner   ffmpeg.Runner
	prober   Prober
	store    *history.Store
	progress Progress
	bitrate  int
	logger   *slog.Logger
}

// Option customizes a Session.
type Option func(*Session)

// WithRunner replaces the ffmpeg runner.
func WithRunner(r ffmpeg.Runner) Option {
	return func(s *Session) { s.runner = r }
}

// WithProber replaces the ffprobe invocation.
func WithProber(p Prober) Option {
	return func(s *Session) { s.prober = p }
}

// WithHistory records conversions and remembers keys in store.
func WithHistory(store *history.Store) Option {
	return func(s *Session) { s.store = store }
}

// WithProgress reports job scheduling to p.
func WithProgress(p Progress) Option {
	return func(s *Session) { s.progress = p }
}

// WithForcedBitrate makes every output use kbps regardless of the bitrate the
// container declares.
func WithForcedBitrate(kbps int) Option {
	return func(s *Session) { s.bitrate = kbps }
}

// NewSession builds a session. Without options it runs the configured ffmpeg
// and ffprobe binaries and keeps no history.
func NewSession(cfg *config.Config, logger *slog.Logger, opts ...Option) *Session {
	s := &Session{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "conversion"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runner == nil {
		s.runner = ffmpeg.NewExecRunner(cfg.FFmpegBinary())
	}
	if s.prober == nil {
		binary := cfg.FFprobeBinary()
		s.prober = func(ctx context.Context, path string) (ffprobe.Result, error) {
			return ffprobe.Inspect(ctx, binary, path)
		}
	}
	return s
}

// Split converts the container at path into chapter files next to it.
//
// Job failures do not make Split fail: the report lists them and the status is
// partial. Split returns an error only when the file as a whole could not be
// converted.
func (s *Session) Split(ctx context.Context, path string) (*Report, error) {
	started := time.Now()
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if info, statErr := os.Stat(path); statErr != nil {
		return nil, services.Wrap(services.ErrNotFound, "convert", "open", path, statErr)
	} else if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "convert", "open", path+" is a directory", nil)
	}
	base := fileutil.StripExt(path)

	lock := flock.New(base + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", lock.Path(), err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrValidation, "convert", "lock", path+" is already being converted", nil)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	report := &Report{ConversionID: uuid.NewString(), Source: path, Status: history.StatusRunning}
	ctx = services.WithConversionID(ctx, report.ConversionID)
	ctx = services.WithRequestID(ctx, report.ConversionID)
	ctx = services.WithSource(ctx, path)
	logger := logging.WithContext(ctx, s.logger)
	s.begin(ctx, logger, report)

	err = s.split(ctx, logger, report, base)
	report.Elapsed = time.Since(started)
	if err != nil {
		report.Status = history.StatusFailed
	}
	s.finish(ctx, logger, report, err)
	if err != nil {
		logging.ErrorWithContext(logger, "conversion failed", "conversion_failed",
			logging.String("kind", services.Kind(err)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(err)),
		)
		return report, err
	}
	logger.Info("conversion finished",
		logging.String("status", string(report.Status)),
		logging.Int("segments", len(report.Jobs)),
		logging.Int("failed", len(report.Failed)),
		logging.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

func (s *Session) split(ctx context.Context, logger *slog.Logger, report *Report, base string) error {
	probe, err := s.prober(services.WithStage(ctx, "probe"), report.Source)
	if err != nil {
		return err
	}
	report.Probe = probe

	report.RawDump = base + ".txt"
	if err := fileutil.WriteLinesCRLF(report.RawDump, probe.Lines); err != nil {
		return fmt.Errorf("write probe dump: %w", err)
	}

	key, err := s.resolveKey(services.WithStage(ctx, "activation"), report.Source)
	if err != nil {
		return err
	}
	report.Key = key

	if report.Cover, err = cover.NewExtractor(s.runner, s.logger).Extract(services.WithStage(ctx, "cover"), report.Source, key); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logging.WarnWithContext(logger, "cover extraction failed", "cover_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "book has no cover image"),
		)
	}

	report.Bitrate = s.bitrateFor(probe)
	opts := s.chapterOptions(report.Bitrate)
	jobs, err := chapters.Plan(probe.ChapterList(), opts, base)
	if err != nil {
		return err
	}

	scheduler := chapters.NewScheduler(s.runner, opts, s.logger)
	if s.progress != nil {
		s.progress.Planned(report.Source, jobs)
		scheduler.OnResult(s.progress.Finished)
	}
	logger.Info("splitting",
		logging.Int("segments", len(jobs)),
		logging.Int("bitrate", report.Bitrate),
		logging.Int("parallel", scheduler.Concurrency()),
		logging.Bool("encrypted", !key.IsZero()),
	)
	report.Jobs = scheduler.Run(services.WithStage(ctx, "chapters"), report.Source, key, jobs)
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, r := range report.Jobs {
		if r.Err != nil {
			report.Failed = append(report.Failed, r)
		}
	}
	switch {
	case len(report.Failed) == 0:
		report.Status = history.StatusCompleted
	case len(report.Failed) < len(report.Jobs):
		report.Status = history.StatusPartial
	default:
		report.Status = history.StatusFailed
		logging.ErrorWithContext(logger, "every segment failed", "segments_failed",
			logging.Int("segments", len(report.Jobs)),
			logging.Error(report.Failed[0].Err),
			logging.String(logging.FieldErrorHint, "run aaxsplit probe on the file and check the run log"),
		)
	}
	return nil
}

func (s *Session) resolveKey(ctx context.Context, path string) (activation.Key, error) {
	candidates := activation.Keys(s.cfg.Conversion.ActivationBytes...)
	if s.store != nil {
		known, err := s.store.KnownKeys(ctx)
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, s.logger), "remembered keys unavailable", "history_read_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "only configured activation keys are tried"),
			)
		}
		candidates = append(candidates, activation.Keys(known...)...)
	}

	resolver := activation.NewResolver(s.runner, s.cfg.Conversion.Codec, s.cfg.Conversion.Format, s.logger)
	key, err := resolver.Resolve(ctx, path, candidates)
	if err != nil {
		return "", err
	}
	if s.store != nil && !key.IsZero() {
		if err := s.store.RememberKey(ctx, string(key)); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, s.logger), "failed to remember activation key", "history_write_failed",
				logging.Error(err),
			)
		}
	}
	return key, nil
}

func (s *Session) bitrateFor(probe ffprobe.Result) int {
	if s.bitrate > 0 {
		return s.bitrate
	}
	if probe.Bitrate > 0 {
		return probe.Bitrate
	}
	return s.cfg.Conversion.Bitrate
}

func (s *Session) chapterOptions(bitrate int) chapters.Options {
	conv := s.cfg.Conversion
	return chapters.Options{
		Bitrate:     bitrate,
		Snip:        conv.Snip,
		IntroTrim:   conv.SnipIntroSeconds,
		OutroTrim:   conv.SnipOutroSeconds,
		Concurrency: conv.Parallel,
		Codec:       conv.Codec,
		Format:      conv.Format,
		Extension:   conv.Extension,
		JobTimeout:  time.Duration(conv.JobTimeoutSeconds) * time.Second,
	}
}

func (s *Session) begin(ctx context.Context, logger *slog.Logger, report *Report) {
	if s.store == nil {
		return
	}
	if _, err := s.store.BeginConversion(ctx, report.ConversionID, report.Source); err != nil {
		logging.WarnWithContext(logger, "failed to record conversion start", "history_write_failed", logging.Error(err))
	}
}

func (s *Session) finish(ctx context.Context, logger *slog.Logger, report *Report, splitErr error) {
	if s.store == nil {
		return
	}
	// Record the outcome even when the conversion was cancelled.
	ctx = context.WithoutCancel(ctx)

	records := make([]history.JobRecord, 0, len(report.Jobs))
	for _, r := range report.Jobs {
		rec := history.JobRecord{
			Segment:    r.Job.Index,
			Kind:       string(r.Job.Kind),
			Label:      r.Job.Label,
			Start:      r.Job.Start,
			End:        r.Job.End,
			OutputPath: r.Job.OutputPath,
			Succeeded:  r.Err == nil,
			Elapsed:    r.Elapsed,
		}
		if r.Err != nil {
			rec.ErrorMessage = r.Err.Error()
		}
		records = append(records, rec)
	}
	if err := s.store.RecordJobs(ctx, report.ConversionID, records); err != nil {
		logging.WarnWithContext(logger, "failed to record segments", "history_write_failed", logging.Error(err))
	}

	outcome := history.Outcome{
		Status:    report.Status,
		BookDir:   filepath.Dir(report.Source),
		Encrypted: !report.Key.IsZero(),
		Bitrate:   report.Bitrate,
		Duration:  report.Probe.Duration,
		Chapters:  report.chapterCount(),
		Err:       splitErr,
	}
	if splitErr == nil && len(report.Failed) > 0 {
		outcome.Err = report.Failed[0].Err
	}
	if err := s.store.FinishConversion(ctx, report.ConversionID, outcome); err != nil {
		logging.WarnWithContext(logger, "failed to record conversion outcome", "history_write_failed", logging.Error(err))
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrNoWorkingKey):
		return "pass the account's activation bytes with -a or set conversion.activation_bytes"
	case errors.Is(err, services.ErrProbeUnavailable):
		return "install ffprobe or set tools.ffprobe"
	case errors.Is(err, services.ErrProbeFormat):
		return "the file may be truncated or not a media container"
	case errors.Is(err, services.ErrValidation):
		return "check the snip lengths and input file"
	default:
		return "check logs for details"
	}
}
