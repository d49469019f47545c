package chapters

import (
	"fmt"
	"sort"
	"time"

	"aaxsplit/internal/media/ffprobe"
	"aaxsplit/internal/services"
)

// Kind classifies a job by its position in the book.
type Kind string

const (
	KindIntro   Kind = "intro"
	KindChapter Kind = "chapter"
	KindOutro   Kind = "outro"
)

// Options control boundary computation and job execution.
type Options struct {
	// Bitrate in kb/s for every output file.
	Bitrate     int
	Snip        bool
	IntroTrim   float64
	OutroTrim   float64
	Concurrency int
	Codec       string
	Format      string
	Extension   string
	// JobTimeout bounds a single job; zero disables the bound.
	JobTimeout time.Duration
}

// Job is one transcode of the span [Start, End) into OutputPath.
type Job struct {
	Index      int
	Kind       Kind
	Start      float64
	End        float64
	Label      string
	OutputPath string
}

// Duration returns the span length in seconds.
func (j Job) Duration() float64 {
	return j.End - j.Start
}

// OutputPath renders the file name for segment index of the book at base.
func OutputPath(base string, index int, extension string) string {
	return fmt.Sprintf("%s_part%03d.%s", base, index, extension)
}

// Plan computes the job list for chapters. base is the input path without its
// extension. The result is ordered by Index.
func Plan(chapters []ffprobe.Chapter, opts Options, base string) ([]Job, error) {
	if len(chapters) == 0 {
		return nil, services.Wrap(services.ErrValidation, "plan", "chapters", "no chapters to split", nil)
	}
	if opts.IntroTrim < 0 || opts.OutroTrim < 0 {
		return nil, services.Wrap(services.ErrValidation, "plan", "snip", "snip lengths must not be negative", nil)
	}
	ext := opts.Extension
	if ext == "" {
		ext = opts.Format
	}

	last := len(chapters) - 1
	jobs := make([]Job, 0, len(chapters)+2)
	for i, ch := range chapters {
		start, end := ch.Start, ch.End

		if opts.Snip && i == 0 {
			cut := ch.Start + opts.IntroTrim
			if cut > 0 {
				jobs = append(jobs, Job{Index: 0, Kind: KindIntro, Start: 0, End: cut, Label: string(KindIntro)})
			}
			start = cut
		}
		if opts.Snip && i == last {
			cut := ch.End - opts.OutroTrim
			if cut < ch.End {
				jobs = append(jobs, Job{Index: len(chapters) + 1, Kind: KindOutro, Start: cut, End: ch.End, Label: string(KindOutro)})
			}
			end = cut
		}
		if end <= start {
			return nil, services.Wrap(services.ErrValidation, "plan", "snip",
				fmt.Sprintf("chapter %d is %.3fs long, too short for the configured snip", i+1, ch.Duration()), nil)
		}

		label := ch.Title
		if label == "" {
			label = fmt.Sprintf("Chapter %d", i+1)
		}
		jobs = append(jobs, Job{Index: i + 1, Kind: KindChapter, Start: start, End: end, Label: label})
	}

	sort.Slice(jobs, func(a, b int) bool { return jobs[a].Index < jobs[b].Index })
	for i := range jobs {
		jobs[i].OutputPath = OutputPath(base, jobs[i].Index, ext)
	}
	return jobs, nil
}
