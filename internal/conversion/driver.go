package conversion

import (
	"context"
	"fmt"
	"log/slog"

	"aaxsplit/internal/history"
	"aaxsplit/internal/logging"
	"aaxsplit/internal/services"
)

// Dispatcher routes one input file to the handler for its type.
type Dispatcher interface {
	Handle(ctx context.Context, path string) (*Report, error)
}

// FileOutcome is the result of one input file.
type FileOutcome struct {
	Path   string
	Report *Report
	Err    error
}

// Failure returns the error that made the file fail, or nil. A file whose
// segments all failed has a report and no Err but still counts as failed.
func (o FileOutcome) Failure() error {
	if o.Err != nil {
		return o.Err
	}
	if o.Report != nil && o.Report.Status == history.StatusFailed && len(o.Report.Failed) > 0 {
		return fmt.Errorf("every segment failed: %w", o.Report.Failed[0].Err)
	}
	return nil
}

// Driver converts a list of files one after another.
type Driver struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewDriver(dispatcher Dispatcher, logger *slog.Logger) *Driver {
	return &Driver{dispatcher: dispatcher, logger: logging.NewComponentLogger(logger, "driver")}
}

// Run processes files in order. A failing file is logged and the driver moves
// on; once ctx is cancelled the remaining files are reported with the context
// error without being attempted.
func (d *Driver) Run(ctx context.Context, files []string) []FileOutcome {
	outcomes := make([]FileOutcome, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			outcomes = append(outcomes, FileOutcome{Path: path, Err: err})
			continue
		}
		logger := d.logger.With(logging.String(logging.FieldSource, path))
		logger.Info("processing file")

		report, err := d.dispatcher.Handle(ctx, path)
		outcome := FileOutcome{Path: path, Report: report, Err: err}
		outcomes = append(outcomes, outcome)
		if failure := outcome.Failure(); failure != nil {
			logging.ErrorWithContext(logger, "file failed", "file_failed",
				logging.String("kind", services.Kind(failure)),
				logging.Error(failure),
			)
		}
	}
	return outcomes
}

// FailedCount returns how many outcomes failed.
func FailedCount(outcomes []FileOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Failure() != nil {
			n++
		}
	}
	return n
}
