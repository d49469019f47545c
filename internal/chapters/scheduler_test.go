package chapters_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"aaxsplit/internal/activation"
	"aaxsplit/internal/chapters"
	"aaxsplit/internal/logging"
	"aaxsplit/internal/media/ffmpeg"
	"aaxsplit/internal/media/ffprobe"
	"aaxsplit/internal/services"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	active  int
	maxSeen int
	delay   time.Duration
	fail    map[string]bool
}

func (r *fakeRunner) Run(ctx context.Context, args []string) error {
	r.mu.Lock()
	r.calls = append(r.calls, args)
	r.active++
	if r.active > r.maxSeen {
		r.maxSeen = r.active
	}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
	}()

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	output := args[len(args)-1]
	if r.fail[output] {
		return &ffmpeg.ExitError{ExitCode: 1, Tail: []string{"Invalid data found when processing input"}}
	}
	return nil
}

func planFive(t *testing.T) []chapters.Job {
	t.Helper()
	input := make([]ffprobe.Chapter, 5)
	for i := range input {
		input[i] = ffprobe.Chapter{Start: float64(i * 10), End: float64(i*10 + 10)}
	}
	opts := snipOptions()
	opts.Snip = false
	jobs, err := chapters.Plan(input, opts, "b")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	return jobs
}

func TestSchedulerRespectsConcurrencyLimit(t *testing.T) {
	runner := &fakeRunner{delay: 20 * time.Millisecond}
	opts := snipOptions()
	opts.Concurrency = 2
	scheduler := chapters.NewScheduler(runner, opts, logging.NewNop())

	results := scheduler.Run(context.Background(), "in.aax", "", planFive(t))
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("unexpected error: %v", r.Err)
		}
	}
	if runner.maxSeen > 2 {
		t.Fatalf("expected at most 2 concurrent jobs, saw %d", runner.maxSeen)
	}
	if len(runner.calls) != 5 {
		t.Fatalf("expected 5 invocations, got %d", len(runner.calls))
	}
}

func TestSchedulerIsolatesFailures(t *testing.T) {
	runner := &fakeRunner{fail: map[string]bool{"b_part003.ogg": true}}
	opts := snipOptions()
	opts.Concurrency = 3
	scheduler := chapters.NewScheduler(runner, opts, nil)

	var mu sync.Mutex
	var observed []int
	scheduler.OnResult(func(r chapters.JobResult) {
		mu.Lock()
		observed = append(observed, r.Job.Index)
		mu.Unlock()
	})

	results := scheduler.Run(context.Background(), "in.aax", activation.Key("cafebabe"), planFive(t))
	if len(observed) != 5 {
		t.Fatalf("observer saw %d results", len(observed))
	}
	failed := 0
	for i, r := range results {
		if r.Job.Index != i+1 {
			t.Fatalf("results must follow job order: %d at %d", r.Job.Index, i)
		}
		if r.Err == nil {
			continue
		}
		failed++
		if r.Job.Index != 3 {
			t.Fatalf("unexpected failing job %d", r.Job.Index)
		}
		if !errors.Is(r.Err, services.ErrJobFailed) {
			t.Fatalf("expected ErrJobFailed, got %v", r.Err)
		}
		var exitErr *ffmpeg.ExitError
		if !errors.As(r.Err, &exitErr) {
			t.Fatalf("expected the ffmpeg cause to be preserved: %v", r.Err)
		}
	}
	if failed != 1 {
		t.Fatalf("expected exactly one failure, got %d", failed)
	}
	for _, args := range runner.calls {
		if key, _ := ffmpeg.FlagValue(args, "-activation_bytes"); key != "cafebabe" {
			t.Fatalf("every job must reuse the resolved key: %q", args)
		}
	}
}

func TestSchedulerSynchronousWithConcurrencyOne(t *testing.T) {
	runner := &fakeRunner{delay: 5 * time.Millisecond}
	opts := snipOptions()
	opts.Concurrency = 1
	results := chapters.NewScheduler(runner, opts, nil).Run(context.Background(), "in.aax", "", planFive(t))
	if runner.maxSeen != 1 {
		t.Fatalf("expected sequential execution, saw %d", runner.maxSeen)
	}
	for i, args := range runner.calls {
		if args[len(args)-1] != results[i].Job.OutputPath {
			t.Fatalf("expected submission order with one worker")
		}
	}
}

func TestSchedulerJobTimeout(t *testing.T) {
	runner := &fakeRunner{delay: time.Second}
	opts := snipOptions()
	opts.Concurrency = 5
	opts.JobTimeout = 10 * time.Millisecond
	results := chapters.NewScheduler(runner, opts, nil).Run(context.Background(), "in.aax", "", planFive(t))
	for _, r := range results {
		if !errors.Is(r.Err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", r.Err)
		}
	}
}

func TestSchedulerDefaultsConcurrency(t *testing.T) {
	s := chapters.NewScheduler(&fakeRunner{}, chapters.Options{}, nil)
	if s.Concurrency() < 1 {
		t.Fatalf("expected positive default concurrency, got %d", s.Concurrency())
	}
}

func TestSpanRoundTrip(t *testing.T) {
	input := []ffprobe.Chapter{
		{Start: 0, End: 1234.567891},
		{Start: 1234.567891, End: 3723.5},
	}
	jobs, err := chapters.Plan(input, snipOptions(), "b")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for _, job := range jobs {
		args := ffmpeg.SegmentArgs(ffmpeg.Segment{Input: "in", Start: job.Start, Duration: job.Duration(), Codec: "libvorbis", Bitrate: 64, Format: "ogg", Output: job.OutputPath})
		start, duration, err := chapters.SpanFromArgs(args)
		if err != nil {
			t.Fatalf("SpanFromArgs: %v", err)
		}
		if diff := start + duration - job.End; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("job %d: start+duration=%v, end=%v", job.Index, start+duration, job.End)
		}
	}
	if _, _, err := chapters.SpanFromArgs([]string{"-i", "x"}); err == nil {
		t.Fatal("expected error for args without a span")
	}
}
