package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"aaxsplit/internal/history"
)

type conversionJSON struct {
	ID           string         `json:"id"`
	Source       string         `json:"source"`
	BookDir      string         `json:"book_dir,omitempty"`
	Status       history.Status `json:"status"`
	Encrypted    bool           `json:"encrypted"`
	Bitrate      int            `json:"bitrate_kbps,omitempty"`
	Duration     float64        `json:"duration,omitempty"`
	Chapters     int            `json:"chapters"`
	ErrorKind    string         `json:"error_kind,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
	Segments     []segmentJSON  `json:"segments,omitempty"`
}

type segmentJSON struct {
	Segment   int     `json:"segment"`
	Kind      string  `json:"kind"`
	Label     string  `json:"label"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Output    string  `json:"output"`
	Succeeded bool    `json:"succeeded"`
	Error     string  `json:"error,omitempty"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				conversions, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					payload := make([]conversionJSON, 0, len(conversions))
					for _, c := range conversions {
						payload = append(payload, toConversionJSON(c, nil))
					}
					return writeJSON(cmd, payload)
				}
				out := cmd.OutOrStdout()
				if len(conversions) == 0 {
					fmt.Fprintln(out, "No conversions recorded")
					return nil
				}
				rows := make([][]string, 0, len(conversions))
				for _, c := range conversions {
					rows = append(rows, []string{
						shortID(c.ID),
						c.StartedAt.Local().Format("2006-01-02 15:04"),
						string(c.Status),
						strconv.Itoa(c.Chapters),
						formatElapsed(c),
						c.SourcePath,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Started", "Status", "Chapters", "Elapsed", "Source"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum conversions to list")
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print JSON instead of tables")

	cmd.AddCommand(newHistoryShowCommand(ctx, &asJSON))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext, asJSON *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one conversion and its segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				conv, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				jobs, err := store.Jobs(cmd.Context(), conv.ID)
				if err != nil {
					return err
				}
				if *asJSON {
					return writeJSON(cmd, toConversionJSON(*conv, jobs))
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:        %s\n", conv.ID)
				fmt.Fprintf(out, "Source:    %s\n", conv.SourcePath)
				fmt.Fprintf(out, "Book dir:  %s\n", conv.BookDir)
				fmt.Fprintf(out, "Status:    %s\n", conv.Status)
				fmt.Fprintf(out, "Encrypted: %s\n", yesNo(conv.Encrypted))
				fmt.Fprintf(out, "Bitrate:   %d kb/s\n", conv.Bitrate)
				fmt.Fprintf(out, "Duration:  %s\n", formatSeconds(conv.Duration))
				fmt.Fprintf(out, "Elapsed:   %s\n", formatElapsed(*conv))
				if conv.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:     %s (%s)\n", conv.ErrorMessage, conv.ErrorKind)
				}
				if len(jobs) == 0 {
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, j := range jobs {
					result := "ok"
					if !j.Succeeded {
						result = j.ErrorMessage
					}
					rows = append(rows, []string{strconv.Itoa(j.Segment), j.Label, formatSpan(j.Start, j.End), result})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Segment", "Label", "Span", "Result"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func toConversionJSON(c history.Conversion, jobs []history.JobRecord) conversionJSON {
	payload := conversionJSON{
		ID:           c.ID,
		Source:       c.SourcePath,
		BookDir:      c.BookDir,
		Status:       c.Status,
		Encrypted:    c.Encrypted,
		Bitrate:      c.Bitrate,
		Duration:     c.Duration,
		Chapters:     c.Chapters,
		ErrorKind:    c.ErrorKind,
		ErrorMessage: c.ErrorMessage,
		StartedAt:    c.StartedAt,
		FinishedAt:   c.FinishedAt,
	}
	for _, j := range jobs {
		payload.Segments = append(payload.Segments, segmentJSON{
			Segment:   j.Segment,
			Kind:      j.Kind,
			Label:     j.Label,
			Start:     j.Start,
			End:       j.End,
			Output:    j.OutputPath,
			Succeeded: j.Succeeded,
			Error:     j.ErrorMessage,
		})
	}
	return payload
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatElapsed(c history.Conversion) string {
	if c.FinishedAt == nil {
		return "-"
	}
	return c.Elapsed().Round(time.Second).String()
}
