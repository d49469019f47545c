package ffprobe

// Result is the structured snapshot of one ffprobe run. It is not modified
// after Parse returns.
type Result struct {
	// Bitrate is the container bitrate in kb/s, or 0 when ffprobe did not report one.
	Bitrate int
	// Duration is the container duration in seconds.
	Duration float64
	// Start is the container start offset in seconds.
	Start float64
	// Metadata holds container tags. The first occurrence of a key wins.
	Metadata map[string]string
	Chapters []Chapter
	Streams  map[string]Stream
	// StreamOrder lists stream IDs in the order ffprobe reported them.
	StreamOrder []string
	// Lines is the full raw stderr line sequence.
	Lines []string

	hasDuration bool
}

// Chapter is a time span within the container.
type Chapter struct {
	ID    string
	Start float64
	End   float64
	Title string
}

// Duration returns the chapter length in seconds.
func (c Chapter) Duration() float64 {
	return c.End - c.Start
}

// CodecFamily identifies codecs with a dedicated sub-parser.
type CodecFamily string

const (
	CodecMP3     CodecFamily = "mp3"
	CodecAAC     CodecFamily = "aac"
	CodecUnknown CodecFamily = "unknown"
)

// CodecDetail carries codec parameters parsed from a stream description.
type CodecDetail struct {
	Family       CodecFamily
	SampleRateHz int
	Channels     string
	SampleFormat string
	BitrateKbps  int
}

// Stream describes one stream of the container.
type Stream struct {
	ID       string
	Language string
	Kind     string
	// Format is the raw codec description text.
	Format string
	Codec  CodecDetail
}

// HasDuration reports whether ffprobe reported a parseable container duration.
func (r Result) HasDuration() bool {
	return r.hasDuration
}

// ChapterList returns the reported chapters. When the container reports none,
// a single untitled chapter spanning the whole duration is returned instead.
func (r Result) ChapterList() []Chapter {
	if len(r.Chapters) == 0 {
		return []Chapter{{ID: "0", Start: 0, End: r.Duration}}
	}
	out := make([]Chapter, len(r.Chapters))
	copy(out, r.Chapters)
	return out
}

// Tag returns the first metadata value stored under any of the given keys.
func (r Result) Tag(keys ...string) string {
	for _, key := range keys {
		if value, ok := r.Metadata[key]; ok && value != "" {
			return value
		}
	}
	return ""
}

// AudioStream returns the first audio stream, if any.
func (r Result) AudioStream() (Stream, bool) {
	for _, id := range r.StreamOrder {
		stream := r.Streams[id]
		if stream.Kind == "Audio" {
			return stream, true
		}
	}
	return Stream{}, false
}
