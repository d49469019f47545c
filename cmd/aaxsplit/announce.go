package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"aaxsplit/internal/conversion"
	"aaxsplit/internal/logging"
	"aaxsplit/internal/notifications"
	"aaxsplit/internal/services/jellyfin"
)

// announceRun publishes per-file and run summaries and refreshes the media
// server when at least one book landed. Delivery failures are logged only.
func announceRun(ctx context.Context, logger *slog.Logger, notifier notifications.Service, refresher jellyfin.Refresher, outcomes []conversion.FileOutcome, elapsed time.Duration) {
	converted := 0
	for _, outcome := range outcomes {
		var err error
		if failure := outcome.Failure(); failure != nil {
			err = notifier.NotifyError(ctx, failure, filepath.Base(outcome.Path))
		} else if outcome.Report != nil {
			converted++
			err = notifier.NotifyBookConverted(ctx, bookTitle(outcome.Report), filepath.Dir(outcome.Report.Source), len(outcome.Report.Failed))
		}
		if err != nil {
			logging.WarnWithContext(logger, "notification failed", "notification_failed",
				logging.String(logging.FieldSource, outcome.Path),
				logging.Error(err),
			)
		}
	}
	if err := notifier.NotifyRunCompleted(ctx, converted, conversion.FailedCount(outcomes), elapsed); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed", logging.Error(err))
	}
	if converted == 0 {
		return
	}
	if err := refresher.Refresh(ctx); err != nil {
		logging.WarnWithContext(logger, "jellyfin refresh failed", "library_refresh_failed", logging.Error(err))
		return
	}
	logger.Debug("library refresh requested")
}

func bookTitle(report *conversion.Report) string {
	if title := report.Probe.Tag("title", "album"); title != "" {
		return title
	}
	return filepath.Base(filepath.Dir(report.Source))
}
