// Package ffmpeg renders the ffmpeg invocations aaxsplit relies on and runs
// them as subprocesses.
//
// Three invocation shapes exist: a key trial that decodes the first hundredth
// of a second into the null device, a segment job that transcodes one time
// span of the container into its own output file, and a cover job that copies
// the attached picture out of the container. Builders return plain argument
// slices so callers and tests can inspect them; a Runner executes them.
package ffmpeg
