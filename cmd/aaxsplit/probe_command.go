package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"aaxsplit/internal/language"
	"aaxsplit/internal/media/ffprobe"
)

type probeChapterJSON struct {
	ID    string  `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Title string  `json:"title,omitempty"`
}

type probeJSON struct {
	Duration float64            `json:"duration"`
	Bitrate  int                `json:"bitrate_kbps,omitempty"`
	Metadata map[string]string  `json:"metadata"`
	Chapters []probeChapterJSON `json:"chapters"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var raw bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe FILE",
		Short: "Show the chapters, tags and streams ffprobe reports for a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := ffprobe.Inspect(cmd.Context(), cfg.FFprobeBinary(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				for _, line := range result.Lines {
					fmt.Fprintln(out, line)
				}
				return nil
			}
			if asJSON {
				return writeJSON(cmd, toProbeJSON(result))
			}
			renderProbe(cmd, result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print ffprobe's output unparsed")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the parsed result as JSON")
	return cmd
}

func renderProbe(cmd *cobra.Command, result ffprobe.Result) {
	out := cmd.OutOrStdout()
	bitrate := "unknown"
	if result.Bitrate > 0 {
		bitrate = fmt.Sprintf("%d kb/s", result.Bitrate)
	}
	fmt.Fprintf(out, "Duration: %s  Bitrate: %s\n", formatSeconds(result.Duration), bitrate)

	keys := make([]string, 0, len(result.Metadata))
	for key := range result.Metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	tags := make([][]string, 0, len(keys))
	for _, key := range keys {
		tags = append(tags, []string{key, result.Metadata[key]})
	}
	if len(tags) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Tag", "Value"}, tags, nil))
	}

	chapterList := result.ChapterList()
	chapterRows := make([][]string, 0, len(chapterList))
	for i, ch := range chapterList {
		chapterRows = append(chapterRows, []string{
			strconv.Itoa(i + 1),
			formatSeconds(ch.Start),
			formatSeconds(ch.End),
			formatSeconds(ch.Duration()),
			ch.Title,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"#", "Start", "End", "Length", "Title"},
		chapterRows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
	))

	streamRows := make([][]string, 0, len(result.StreamOrder))
	for _, id := range result.StreamOrder {
		stream := result.Streams[id]
		streamRows = append(streamRows, []string{stream.ID, stream.Kind, language.DisplayName(stream.Language), stream.Format})
	}
	if len(streamRows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Stream", "Kind", "Language", "Codec"}, streamRows, nil))
	}
}

func toProbeJSON(result ffprobe.Result) probeJSON {
	payload := probeJSON{
		Duration: result.Duration,
		Bitrate:  result.Bitrate,
		Metadata: result.Metadata,
	}
	if payload.Metadata == nil {
		payload.Metadata = map[string]string{}
	}
	for _, ch := range result.ChapterList() {
		payload.Chapters = append(payload.Chapters, probeChapterJSON{ID: ch.ID, Start: ch.Start, End: ch.End, Title: ch.Title})
	}
	return payload
}
