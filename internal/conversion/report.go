package conversion

import (
	"time"

	"aaxsplit/internal/activation"
	"aaxsplit/internal/chapters"
	"aaxsplit/internal/history"
	"aaxsplit/internal/media/ffprobe"
)

// Report describes the outcome of one Split.
type Report struct {
	ConversionID string
	Source       string
	Probe        ffprobe.Result
	Key          activation.Key
	Bitrate      int
	Cover        string
	RawDump      string
	Jobs         []chapters.JobResult
	Failed       []chapters.JobResult
	Status       history.Status
	Elapsed      time.Duration
}

// Succeeded returns the number of jobs that completed.
func (r *Report) Succeeded() int {
	if r == nil {
		return 0
	}
	return len(r.Jobs) - len(r.Failed)
}

// Progress receives scheduling events for a Split.
type Progress interface {
	Planned(source string, jobs []chapters.Job)
	Finished(result chapters.JobResult)
}

func (r *Report) chapterCount() int {
	n := 0
	for _, res := range r.Jobs {
		if res.Job.Kind == chapters.KindChapter {
			n++
		}
	}
	return n
}
