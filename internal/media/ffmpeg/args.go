package ffmpeg

import (
	"fmt"
	"os"
	"strconv"
)

// TrialDuration is the clip length decoded when testing an activation key.
const TrialDuration = 0.01

// TrialArgs renders the invocation that checks whether key decrypts input.
// An empty key omits the activation flag entirely.
func TrialArgs(key, input, codec, format string) []string {
	args := []string{"-y"}
	if key != "" {
		args = append(args, "-activation_bytes", key)
	}
	return append(args,
		"-ss", "0",
		"-i", input,
		"-t", formatSeconds(TrialDuration),
		"-vn",
		"-codec:a", codec,
		"-f", format,
		os.DevNull,
	)
}

// Segment describes one time span of a container to transcode.
type Segment struct {
	Key      string
	Input    string
	Start    float64
	Duration float64
	Title    string
	Track    int
	Codec    string
	// Bitrate in kb/s.
	Bitrate int
	Format  string
	Output  string
}

// SegmentArgs renders the invocation for one segment job. The seek is placed
// before the input so ffmpeg seeks the demuxer; -accurate_seek keeps the cut
// sample-exact.
func SegmentArgs(seg Segment) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	if seg.Key != "" {
		args = append(args, "-activation_bytes", seg.Key)
	}
	args = append(args,
		"-accurate_seek",
		"-ss", formatSeconds(seg.Start),
		"-i", seg.Input,
		"-t", formatSeconds(seg.Duration),
		"-vn",
		"-map_metadata", "-1",
	)
	if seg.Title != "" {
		args = append(args, "-metadata", "title="+seg.Title)
	}
	if seg.Track > 0 {
		args = append(args, "-metadata", "track="+strconv.Itoa(seg.Track))
	}
	return append(args,
		"-codec:a", seg.Codec,
		"-b:a", fmt.Sprintf("%dk", seg.Bitrate),
		"-f", seg.Format,
		seg.Output,
	)
}

// CoverArgs renders the invocation that extracts the first video stream of
// input as a single image. The trailing ? makes the map optional so a
// container without artwork fails on output instead of on mapping.
func CoverArgs(key, input, output string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	if key != "" {
		args = append(args, "-activation_bytes", key)
	}
	return append(args,
		"-i", input,
		"-an",
		"-map", "0:v:0?",
		"-frames:v", "1",
		output,
	)
}

// FlagValue returns the value following the first occurrence of flag in args.
func FlagValue(args []string, flag string) (string, bool) {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1], true
		}
	}
	return "", false
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
