// Package ffprobe runs ffprobe against an audiobook container and parses the
// human-readable diagnostic text it writes to stderr.
//
// The text is not a stable machine format, so parsing is a small line-oriented
// automaton (preamble, header, metadata, body) that ignores lines it does not
// recognise instead of failing on minor drift between ffprobe releases.
//
// Key types:
//   - Result: container metadata, chapters, streams and the raw lines
//   - Chapter: a titled time span in the container
//   - Stream: stream description with optional codec-specific detail
//
// Primary entry points:
//   - Inspect: executes ffprobe and parses its stderr
//   - Parse: parses an already captured line sequence
package ffprobe
