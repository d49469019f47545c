package conversion_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"aaxsplit/internal/chapters"
	"aaxsplit/internal/config"
	"aaxsplit/internal/conversion"
	"aaxsplit/internal/history"
	"aaxsplit/internal/logging"
	"aaxsplit/internal/media/ffmpeg"
	"aaxsplit/internal/media/ffprobe"
	"aaxsplit/internal/services"
	"aaxsplit/internal/testsupport"
)

var probeLines = []string{
	"Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'B00EXAMPLE.aax':",
	"  Metadata:",
	"    title           : The Example Book",
	"  Duration: 00:03:20.00, start: 0.000000, bitrate: 64 kb/s",
	"    Chapter #0:0: start 0.000000, end 100.000000",
	"    Metadata:",
	"      title           : Opening",
	"    Chapter #0:1: start 100.000000, end 200.000000",
	"    Stream #0:0(eng): Audio: aac (LC) (aavd / 0x64766161), 44100 Hz, stereo, fltp, 62 kb/s (default)",
}

// fakeFFmpeg stands in for ffmpeg: trials succeed only with the accepted key,
// cover and segment jobs write their output file.
type fakeFFmpeg struct {
	mu      sync.Mutex
	accept  string
	failSeg map[int]bool
	calls   [][]string
	noCover bool
}

func (f *fakeFFmpeg) Run(_ context.Context, args []string) error {
	f.mu.Lock()
	f.calls = append(f.calls, args)
	f.mu.Unlock()

	key, _ := ffmpeg.FlagValue(args, "-activation_bytes")
	output := args[len(args)-1]
	switch {
	case output == os.DevNull:
		if key != f.accept {
			return &ffmpeg.ExitError{ExitCode: 1, Tail: []string{"Invalid data found when processing input"}}
		}
		return nil
	case strings.HasSuffix(output, ".jpg"):
		if f.noCover {
			return &ffmpeg.ExitError{ExitCode: 1}
		}
		return os.WriteFile(output, []byte("jpeg"), 0o644)
	}
	track, _ := ffmpeg.FlagValue(args, "-metadata")
	for seg := range f.failSeg {
		if strings.HasSuffix(output, segmentSuffix(seg)) {
			return &ffmpeg.ExitError{ExitCode: 1, Tail: []string{track}}
		}
	}
	return os.WriteFile(output, []byte("ogg"), 0o644)
}

func (f *fakeFFmpeg) trials() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for _, args := range f.calls {
		if args[len(args)-1] == os.DevNull {
			key, _ := ffmpeg.FlagValue(args, "-activation_bytes")
			keys = append(keys, key)
		}
	}
	return keys
}

func segmentSuffix(seg int) string {
	return filepath.Base(chapters.OutputPath("", seg, "ogg"))
}

func staticProber(lines []string) conversion.Prober {
	return func(context.Context, string) (ffprobe.Result, error) {
		return ffprobe.Parse(lines)
	}
}

func writeContainer(t *testing.T, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(cfg.Paths.LibraryDir, "Example", "B00EXAMPLE.aax")
	testsupport.WriteFile(t, path, 256)
	return path
}

func TestSplitCompletesUnencryptedBook(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	input := writeContainer(t, cfg)
	runner := &fakeFFmpeg{}

	session := conversion.NewSession(cfg, logging.NewNop(),
		conversion.WithRunner(runner),
		conversion.WithProber(staticProber(probeLines)),
		conversion.WithHistory(store),
	)
	report, err := session.Split(context.Background(), input)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if report.Status != history.StatusCompleted {
		t.Fatalf("unexpected status %s", report.Status)
	}
	if !report.Key.IsZero() {
		t.Fatalf("expected no key, got %q", report.Key)
	}
	if report.Bitrate != 64 {
		t.Fatalf("expected probe bitrate, got %d", report.Bitrate)
	}
	if len(report.Jobs) != 4 || report.Succeeded() != 4 {
		t.Fatalf("expected intro, two chapters and outro, got %d jobs", len(report.Jobs))
	}

	base := strings.TrimSuffix(input, ".aax")
	for i := 0; i < 4; i++ {
		if _, err := os.Stat(chapters.OutputPath(base, i, "ogg")); err != nil {
			t.Fatalf("segment %d missing: %v", i, err)
		}
	}
	if report.Cover != base+".jpg" {
		t.Fatalf("unexpected cover %q", report.Cover)
	}
	dump, err := os.ReadFile(base + ".txt")
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if !strings.HasPrefix(string(dump), probeLines[0]+"\r\n") || strings.Count(string(dump), "\r\n") != len(probeLines) {
		t.Fatalf("unexpected dump %q", dump)
	}
	if _, err := os.Stat(base + ".lock"); !os.IsNotExist(err) {
		t.Fatalf("lock file should be removed: %v", err)
	}

	conv, err := store.Get(context.Background(), report.ConversionID)
	if err != nil {
		t.Fatalf("history Get: %v", err)
	}
	if conv.Status != history.StatusCompleted || conv.Chapters != 2 || conv.Encrypted || conv.BookDir != filepath.Dir(input) {
		t.Fatalf("unexpected history record %+v", conv)
	}
	jobs, err := store.Jobs(context.Background(), report.ConversionID)
	if err != nil || len(jobs) != 4 {
		t.Fatalf("expected 4 recorded jobs, got %d (%v)", len(jobs), err)
	}
}

func TestSplitResolvesAndRemembersKey(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithActivationBytes("deadbeef", "CAFEBABE"))
	store := testsupport.MustOpenHistory(t, cfg)
	runner := &fakeFFmpeg{accept: "cafebabe"}

	session := conversion.NewSession(cfg, nil,
		conversion.WithRunner(runner),
		conversion.WithProber(staticProber(probeLines)),
		conversion.WithHistory(store),
	)
	report, err := session.Split(context.Background(), writeContainer(t, cfg))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if report.Key != "cafebabe" {
		t.Fatalf("unexpected key %q", report.Key)
	}
	if got := strings.Join(runner.trials(), ","); got != ",deadbeef,cafebabe" {
		t.Fatalf("unexpected trial order %q", got)
	}
	for _, args := range runner.calls {
		if args[len(args)-1] == os.DevNull {
			continue
		}
		if key, _ := ffmpeg.FlagValue(args, "-activation_bytes"); key != "cafebabe" {
			t.Fatalf("expected resolved key on every job, got %q", args)
		}
	}

	// A later run with no configured keys finds the remembered one.
	bare := testsupport.NewConfig(t)
	bare.Paths.StateDir = cfg.Paths.StateDir
	second := &fakeFFmpeg{accept: "cafebabe"}
	report, err = conversion.NewSession(bare, nil,
		conversion.WithRunner(second),
		conversion.WithProber(staticProber(probeLines)),
		conversion.WithHistory(store),
	).Split(context.Background(), writeContainer(t, bare))
	if err != nil {
		t.Fatalf("second Split: %v", err)
	}
	if got := strings.Join(second.trials(), ","); got != ",cafebabe" {
		t.Fatalf("expected remembered key to be tried, got %q", got)
	}
}

func TestSplitPartialFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	runner := &fakeFFmpeg{failSeg: map[int]bool{2: true}}

	report, err := conversion.NewSession(cfg, nil,
		conversion.WithRunner(runner),
		conversion.WithProber(staticProber(probeLines)),
		conversion.WithHistory(store),
	).Split(context.Background(), writeContainer(t, cfg))
	if err != nil {
		t.Fatalf("partial failure must not fail the file: %v", err)
	}
	if report.Status != history.StatusPartial {
		t.Fatalf("expected partial status, got %s", report.Status)
	}
	if len(report.Failed) != 1 || report.Failed[0].Job.Index != 2 {
		t.Fatalf("unexpected failures %+v", report.Failed)
	}
	if !errors.Is(report.Failed[0].Err, services.ErrJobFailed) {
		t.Fatalf("expected ErrJobFailed, got %v", report.Failed[0].Err)
	}
	conv, err := store.Get(context.Background(), report.ConversionID)
	if err != nil || conv.Status != history.StatusPartial || conv.ErrorKind != "job_failed" {
		t.Fatalf("unexpected history record %+v (%v)", conv, err)
	}
}

func TestSplitEverySegmentFailedIsRecordedNotReturned(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	runner := &fakeFFmpeg{failSeg: map[int]bool{0: true, 1: true, 2: true, 3: true}}

	report, err := conversion.NewSession(cfg, nil,
		conversion.WithRunner(runner),
		conversion.WithProber(staticProber(probeLines)),
		conversion.WithHistory(store),
	).Split(context.Background(), writeContainer(t, cfg))
	if err != nil {
		t.Fatalf("segment failures must not abort the file: %v", err)
	}
	if report.Status != history.StatusFailed || report.Succeeded() != 0 || len(report.Failed) != len(report.Jobs) {
		t.Fatalf("unexpected report %+v", report)
	}
	conv, err := store.Get(context.Background(), report.ConversionID)
	if err != nil || conv.Status != history.StatusFailed || conv.ErrorKind != "job_failed" {
		t.Fatalf("unexpected history record %+v (%v)", conv, err)
	}
	jobs, err := store.Jobs(context.Background(), report.ConversionID)
	if err != nil || len(jobs) != len(report.Jobs) {
		t.Fatalf("expected every segment recorded, got %d (%v)", len(jobs), err)
	}
}

func TestSplitFatalErrors(t *testing.T) {
	cases := map[string]struct {
		runner *fakeFFmpeg
		prober conversion.Prober
		cfg    []testsupport.ConfigOption
		want   error
	}{
		"no working key": {
			runner: &fakeFFmpeg{accept: "never"},
			prober: staticProber(probeLines),
			cfg:    []testsupport.ConfigOption{testsupport.WithActivationBytes("deadbeef")},
			want:   services.ErrNoWorkingKey,
		},
		"probe unavailable": {
			runner: &fakeFFmpeg{},
			prober: func(context.Context, string) (ffprobe.Result, error) {
				return ffprobe.Result{}, services.Wrap(services.ErrProbeUnavailable, "probe", "launch", "", nil)
			},
			want: services.ErrProbeUnavailable,
		},
		"snip longer than chapter": {
			runner: &fakeFFmpeg{},
			prober: staticProber(probeLines),
			cfg:    []testsupport.ConfigOption{testsupport.WithSnip(true, 150, 3.6)},
			want:   services.ErrValidation,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t, tc.cfg...)
			store := testsupport.MustOpenHistory(t, cfg)
			report, err := conversion.NewSession(cfg, nil,
				conversion.WithRunner(tc.runner),
				conversion.WithProber(tc.prober),
				conversion.WithHistory(store),
			).Split(context.Background(), writeContainer(t, cfg))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if report == nil || report.Status != history.StatusFailed {
				t.Fatalf("expected failed report, got %+v", report)
			}
			conv, getErr := store.Get(context.Background(), report.ConversionID)
			if getErr != nil || conv.Status != history.StatusFailed || conv.ErrorMessage == "" {
				t.Fatalf("unexpected history record %+v (%v)", conv, getErr)
			}
		})
	}
}

func TestSplitCoverFailureIsNotFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	report, err := conversion.NewSession(cfg, nil,
		conversion.WithRunner(&fakeFFmpeg{noCover: true}),
		conversion.WithProber(staticProber(probeLines)),
	).Split(context.Background(), writeContainer(t, cfg))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if report.Cover != "" || report.Status != history.StatusCompleted {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestSplitBitrateSelection(t *testing.T) {
	noBitrate := append([]string(nil), probeLines...)
	noBitrate[3] = "  Duration: 00:03:20.00, start: 0.000000, bitrate: N/A"

	cases := map[string]struct {
		lines []string
		opts  []conversion.Option
		want  int
	}{
		"declared": {probeLines, nil, 64},
		"fallback": {noBitrate, nil, 96},
		"forced":   {probeLines, []conversion.Option{conversion.WithForcedBitrate(32)}, 32},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			runner := &fakeFFmpeg{}
			opts := append([]conversion.Option{conversion.WithRunner(runner), conversion.WithProber(staticProber(tc.lines))}, tc.opts...)
			report, err := conversion.NewSession(cfg, nil, opts...).Split(context.Background(), writeContainer(t, cfg))
			if err != nil {
				t.Fatalf("Split: %v", err)
			}
			if report.Bitrate != tc.want {
				t.Fatalf("expected bitrate %d, got %d", tc.want, report.Bitrate)
			}
			for _, args := range runner.calls {
				if v, ok := ffmpeg.FlagValue(args, "-b:a"); ok && v != strconv.Itoa(tc.want)+"k" {
					t.Fatalf("unexpected -b:a %q", v)
				}
			}
		})
	}
}

func TestSplitRefusesConcurrentConversion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	input := writeContainer(t, cfg)
	lock := flock.New(strings.TrimSuffix(input, ".aax") + ".lock")
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-lock: %v", err)
	}
	defer lock.Unlock()

	runner := &fakeFFmpeg{}
	_, err = conversion.NewSession(cfg, nil,
		conversion.WithRunner(runner),
		conversion.WithProber(staticProber(probeLines)),
	).Split(context.Background(), input)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected lock contention error, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatal("no ffmpeg work may start while another conversion holds the lock")
	}
}

func TestSplitMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := conversion.NewSession(cfg, nil, conversion.WithRunner(&fakeFFmpeg{})).
		Split(context.Background(), filepath.Join(cfg.Paths.LibraryDir, "missing.aax"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type recordingProgress struct {
	mu       sync.Mutex
	planned  int
	finished int
}

func (p *recordingProgress) Planned(_ string, jobs []chapters.Job) {
	p.planned = len(jobs)
}

func (p *recordingProgress) Finished(chapters.JobResult) {
	p.mu.Lock()
	p.finished++
	p.mu.Unlock()
}

func TestSplitReportsProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSnip(false, 0, 0))
	progress := &recordingProgress{}
	_, err := conversion.NewSession(cfg, nil,
		conversion.WithRunner(&fakeFFmpeg{}),
		conversion.WithProber(staticProber(probeLines)),
		conversion.WithProgress(progress),
	).Split(context.Background(), writeContainer(t, cfg))
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if progress.planned != 2 || progress.finished != 2 {
		t.Fatalf("unexpected progress events: planned=%d finished=%d", progress.planned, progress.finished)
	}
}
