package history

import "time"

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Status is the lifecycle state of a conversion.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// Conversion is one Split of one input file.
type Conversion struct {
	ID           string
	SourcePath   string
	BookDir      string
	Status       Status
	Encrypted    bool
	Bitrate      int
	Duration     float64
	Chapters     int
	ErrorKind    string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Elapsed returns how long the conversion ran, or zero while it is running.
func (c Conversion) Elapsed() time.Duration {
	if c.FinishedAt == nil {
		return 0
	}
	return c.FinishedAt.Sub(c.StartedAt)
}

// JobRecord is the stored outcome of one chapter job.
type JobRecord struct {
	Segment      int
	Kind         string
	Label        string
	Start        float64
	End          float64
	OutputPath   string
	Succeeded    bool
	ErrorMessage string
	Elapsed      time.Duration
}

// Outcome summarises a finished conversion for FinishConversion.
type Outcome struct {
	Status    Status
	BookDir   string
	Encrypted bool
	Bitrate   int
	Duration  float64
	Chapters  int
	Err       error
}
