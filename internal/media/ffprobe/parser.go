package ffprobe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"aaxsplit/internal/services"
)

type parseState int

const (
	statePreamble parseState = iota
	stateHeader
	stateMetadata
	stateBody
)

func (s parseState) String() string {
	switch s {
	case statePreamble:
		return "preamble"
	case stateHeader:
		return "header"
	case stateMetadata:
		return "metadata"
	case stateBody:
		return "body"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type blockKind int

const (
	blockNone blockKind = iota
	blockChapter
	blockStream
)

var (
	reInput         = regexp.MustCompile(`^Input #[0-9]+`)
	reMetadataStart = regexp.MustCompile(`^  Metadata:\s*$`)
	reDurationLine  = regexp.MustCompile(`^  Duration: `)
	reDuration      = regexp.MustCompile(`Duration: ([0-9]+(?::[0-9]+)*(?:\.[0-9]+)?)`)
	reStart         = regexp.MustCompile(`start: (-?[0-9]+(?:\.[0-9]+)?)`)
	reBitrate       = regexp.MustCompile(`bitrate: ([0-9]+) kb/s`)
	reBlockStart    = regexp.MustCompile(`^\s+(?:Chapter|Stream) #`)
	reChapter       = regexp.MustCompile(`^\s+Chapter #([0-9]+(?::[0-9]+)?): start (-?[0-9]+(?:\.[0-9]+)?), end (-?[0-9]+(?:\.[0-9]+)?)\s*$`)
	reChapterTitle  = regexp.MustCompile(`^\s+title\s*: (.+)$`)
	reStream        = regexp.MustCompile(`^\s+Stream #([0-9]+(?::[0-9]+)?)(?:\[0x[0-9a-fA-F]+\])?(?:\(([^)]+)\))?(?:\[0x[0-9a-fA-F]+\])?: ([^:]+): (.+)$`)
)

// codecParsers are tried in order against a stream's codec description.
var codecParsers = []struct {
	family  CodecFamily
	pattern *regexp.Regexp
}{
	{CodecMP3, regexp.MustCompile(`^mp3(?: \([^)]*\))*, ([0-9]+) Hz, (stereo|mono), ((?:[su](?:8|16|24|32)|flt)p?), ([0-9]+) kb/s`)},
	{CodecAAC, regexp.MustCompile(`^aac(?: \([^)]*\))*, ([0-9]+) Hz, (stereo|mono), ((?:[su](?:8|16|24|32)|flt)p?), ([0-9]+) kb/s`)},
}

type parser struct {
	state     parseState
	result    Result
	lastBlock blockKind
	lastKey   string
}

// Parse interprets ffprobe's stderr line sequence. Lines that match no known
// shape are ignored. Parse fails with services.ErrProbeFormat when no input
// header is ever seen, or when neither a duration nor a chapter is reported.
func Parse(lines []string) (Result, error) {
	p := &parser{
		state: statePreamble,
		result: Result{
			Metadata: make(map[string]string),
			Streams:  make(map[string]Stream),
			Lines:    append([]string(nil), lines...),
		},
	}

	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		current := p.state
		if p.dispatch(current, line) {
			continue
		}
		if current != stateBody {
			p.body(line)
		}
	}

	if p.state == statePreamble {
		return Result{}, services.Wrap(services.ErrProbeFormat, "probe", "parse", "no input header in ffprobe output", nil)
	}
	if !p.result.hasDuration && len(p.result.Chapters) == 0 {
		return Result{}, services.Wrap(services.ErrProbeFormat, "probe", "parse", "ffprobe reported neither duration nor chapters", nil)
	}
	return p.result, nil
}

// ParseOutput splits raw ffprobe stderr into lines and parses them.
func ParseOutput(output string) (Result, error) {
	return Parse(SplitLines(output))
}

// SplitLines splits captured output into lines, dropping the trailing newline.
func SplitLines(output string) []string {
	output = strings.TrimRight(output, "\r\n")
	if output == "" {
		return nil
	}
	return strings.Split(output, "\n")
}

// dispatch runs the handler for state and reports whether it consumed line.
func (p *parser) dispatch(state parseState, line string) bool {
	switch state {
	case statePreamble:
		return p.preamble(line)
	case stateHeader:
		return p.header(line)
	case stateMetadata:
		return p.metadata(line)
	case stateBody:
		return p.body(line)
	default:
		panic(fmt.Sprintf("ffprobe: unhandled parser state %s", state))
	}
}

func (p *parser) preamble(line string) bool {
	if reInput.MatchString(line) {
		p.state = stateHeader
	}
	return true
}

func (p *parser) header(line string) bool {
	switch {
	case reMetadataStart.MatchString(line):
		p.state = stateMetadata
		return true
	case reDurationLine.MatchString(line):
		p.durationLine(line)
		p.state = stateBody
		return true
	default:
		return false
	}
}

func (p *parser) metadata(line string) bool {
	switch {
	case reDurationLine.MatchString(line):
		p.durationLine(line)
		p.state = stateBody
		return true
	case reBlockStart.MatchString(line):
		p.state = stateBody
		return false
	}

	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		// Multi-line tag values continue on lines with an empty key.
		if p.lastKey != "" {
			p.result.Metadata[p.lastKey] += "\n" + value
		}
		return true
	}
	if _, exists := p.result.Metadata[key]; exists {
		p.lastKey = ""
		return true
	}
	p.result.Metadata[key] = value
	p.lastKey = key
	return true
}

func (p *parser) body(line string) bool {
	if m := reChapter.FindStringSubmatch(line); m != nil {
		start, _ := strconv.ParseFloat(m[2], 64)
		end, _ := strconv.ParseFloat(m[3], 64)
		if start >= end {
			p.lastBlock = blockNone
			return true
		}
		p.result.Chapters = append(p.result.Chapters, Chapter{ID: m[1], Start: start, End: end})
		p.lastBlock = blockChapter
		return true
	}

	if m := reStream.FindStringSubmatch(line); m != nil {
		stream := Stream{
			ID:       m[1],
			Language: m[2],
			Kind:     strings.TrimSpace(m[3]),
			Format:   strings.TrimSpace(m[4]),
		}
		stream.Codec = parseCodec(stream.Format)
		if _, exists := p.result.Streams[stream.ID]; !exists {
			p.result.StreamOrder = append(p.result.StreamOrder, stream.ID)
		}
		p.result.Streams[stream.ID] = stream
		p.lastBlock = blockStream
		return true
	}

	if m := reChapterTitle.FindStringSubmatch(line); m != nil {
		if p.lastBlock != blockChapter || len(p.result.Chapters) == 0 {
			return false
		}
		last := &p.result.Chapters[len(p.result.Chapters)-1]
		if last.Title == "" {
			last.Title = strings.TrimSpace(m[1])
		}
		return true
	}

	return false
}

func (p *parser) durationLine(line string) {
	if m := reDuration.FindStringSubmatch(line); m != nil {
		if seconds, err := ParseTimestamp(m[1]); err == nil {
			p.result.Duration = seconds
			p.result.hasDuration = true
		}
	}
	if m := reStart.FindStringSubmatch(line); m != nil {
		p.result.Start, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := reBitrate.FindStringSubmatch(line); m != nil {
		p.result.Bitrate, _ = strconv.Atoi(m[1])
	}
}

func parseCodec(format string) CodecDetail {
	for _, candidate := range codecParsers {
		m := candidate.pattern.FindStringSubmatch(format)
		if m == nil {
			continue
		}
		rate, _ := strconv.Atoi(m[1])
		bitrate, _ := strconv.Atoi(m[4])
		return CodecDetail{
			Family:       candidate.family,
			SampleRateHz: rate,
			Channels:     m[2],
			SampleFormat: m[3],
			BitrateKbps:  bitrate,
		}
	}
	return CodecDetail{Family: CodecUnknown}
}

// ParseTimestamp converts an HH:MM:SS.fraction timestamp into seconds by
// treating the colon separated components as a mixed-radix-60 number.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("parse timestamp: empty value")
	}
	var total float64
	for _, part := range strings.Split(value, ":") {
		component, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, fmt.Errorf("parse timestamp %q: %w", value, err)
		}
		if component < 0 {
			return 0, fmt.Errorf("parse timestamp %q: negative component", value)
		}
		total = total*60 + component
	}
	return total, nil
}
