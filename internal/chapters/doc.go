// Package chapters turns a probed chapter list into transcode jobs and runs
// them on a bounded worker pool.
//
// Plan computes one job per chapter plus optional intro and outro stubs when
// snipping is enabled. Jobs are numbered in playback order: the intro is
// segment 0, chapter i is segment i+1 and the outro follows the last chapter,
// so chapter files keep the same names whether or not snipping is on.
//
// Scheduler.Run dispatches the jobs to ffmpeg with at most Concurrency
// processes in flight. A failing job never cancels its siblings; every job
// runs to completion and reports its own result.
package chapters
