package chapters

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"aaxsplit/internal/activation"
	"aaxsplit/internal/logging"
	"aaxsplit/internal/media/ffmpeg"
	"aaxsplit/internal/services"
)

// JobResult is the outcome of one job. Err is nil on success.
type JobResult struct {
	Job     Job
	Err     error
	Elapsed time.Duration
}

// JobError reports a job whose transcode did not succeed. It matches both
// services.ErrJobFailed and the underlying cause.
type JobError struct {
	Job Job
	Err error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s: segment %03d (%s): %v", services.ErrJobFailed, e.Job.Index, e.Job.Label, e.Err)
}

func (e *JobError) Unwrap() []error {
	return []error{services.ErrJobFailed, e.Err}
}

// Scheduler runs planned jobs for one input file.
type Scheduler struct {
	runner   ffmpeg.Runner
	opts     Options
	logger   *slog.Logger
	observer func(JobResult)
}

// NewScheduler builds a scheduler. A non-positive Concurrency defaults to the
// number of CPUs.
func NewScheduler(runner ffmpeg.Runner, opts Options, logger *slog.Logger) *Scheduler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	return &Scheduler{
		runner: runner,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "scheduler"),
	}
}

// OnResult registers fn to receive each result as its job finishes. Calls are
// serialized.
func (s *Scheduler) OnResult(fn func(JobResult)) {
	s.observer = fn
}

// Concurrency returns the effective worker limit.
func (s *Scheduler) Concurrency() int {
	return s.opts.Concurrency
}

// Run executes jobs against input with key and returns one result per job in
// the order given. It returns only after every job has finished.
func (s *Scheduler) Run(ctx context.Context, input string, key activation.Key, jobs []Job) []JobResult {
	results := make([]JobResult, len(jobs))
	logger := logging.WithContext(ctx, s.logger)

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	var observe sync.Mutex

	for i, job := range jobs {
		g.Go(func() error {
			results[i] = s.runJob(ctx, logger, input, key, job)
			if s.observer != nil {
				observe.Lock()
				s.observer(results[i])
				observe.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Scheduler) runJob(ctx context.Context, logger *slog.Logger, input string, key activation.Key, job Job) JobResult {
	started := time.Now()
	if err := ctx.Err(); err != nil {
		return JobResult{Job: job, Err: &JobError{Job: job, Err: err}}
	}

	jobCtx := ctx
	if s.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.opts.JobTimeout)
		defer cancel()
	}

	args := ffmpeg.SegmentArgs(ffmpeg.Segment{
		Key:      string(key),
		Input:    input,
		Start:    job.Start,
		Duration: job.Duration(),
		Title:    job.Label,
		Track:    job.Index,
		Codec:    s.opts.Codec,
		Bitrate:  s.opts.Bitrate,
		Format:   s.opts.Format,
		Output:   job.OutputPath,
	})
	err := s.runner.Run(jobCtx, args)
	result := JobResult{Job: job, Elapsed: time.Since(started)}
	if err != nil {
		result.Err = &JobError{Job: job, Err: err}
		logging.WarnWithContext(logger, "segment failed", "segment_failed",
			logging.Int(logging.FieldSegment, job.Index),
			logging.String("label", job.Label),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rerun the file or inspect the ffmpeg output above"),
			logging.String(logging.FieldImpact, "this segment is missing from the book"),
		)
		return result
	}
	logger.Debug("segment complete",
		logging.Int(logging.FieldSegment, job.Index),
		logging.String("output", job.OutputPath),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result
}

// SpanFromArgs recovers the start and duration of a rendered segment
// invocation.
func SpanFromArgs(args []string) (start, duration float64, err error) {
	ss, ok := ffmpeg.FlagValue(args, "-ss")
	if !ok {
		return 0, 0, fmt.Errorf("span from args: missing -ss")
	}
	t, ok := ffmpeg.FlagValue(args, "-t")
	if !ok {
		return 0, 0, fmt.Errorf("span from args: missing -t")
	}
	if start, err = strconv.ParseFloat(ss, 64); err != nil {
		return 0, 0, fmt.Errorf("span from args: %w", err)
	}
	if duration, err = strconv.ParseFloat(t, 64); err != nil {
		return 0, 0, fmt.Errorf("span from args: %w", err)
	}
	return start, duration, nil
}
