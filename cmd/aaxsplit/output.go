package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"aaxsplit/internal/conversion"
	"aaxsplit/internal/history"
	"aaxsplit/internal/services"
)

func printOutcomes(out io.Writer, outcomes []conversion.FileOutcome) {
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(out, "%s: failed (%s): %v\n", o.Path, services.Kind(o.Err), o.Err)
			continue
		}
		r := o.Report
		fmt.Fprintf(out, "%s: %s, %d/%d segments, %d kb/s, key %s, %s\n",
			r.Source, r.Status, r.Succeeded(), len(r.Jobs), r.Bitrate, r.Key.Redacted(),
			r.Elapsed.Round(time.Millisecond))
		if r.Status == history.StatusCompleted {
			continue
		}
		rows := make([][]string, 0, len(r.Failed))
		for _, f := range r.Failed {
			rows = append(rows, []string{
				strconv.Itoa(f.Job.Index),
				f.Job.Label,
				formatSpan(f.Job.Start, f.Job.End),
				f.Err.Error(),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Segment", "Label", "Span", "Error"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
		))
	}
}

func formatSpan(start, end float64) string {
	return fmt.Sprintf("%s-%s", formatSeconds(start), formatSeconds(end))
}

// formatSeconds renders seconds as H:MM:SS.mmm.
func formatSeconds(v float64) string {
	d := time.Duration(v * float64(time.Second)).Round(time.Millisecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, s, d/time.Millisecond)
}
