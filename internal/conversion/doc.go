// Package conversion runs the per-file split pipeline and the multi-file
// driver around it.
//
// Session.Split takes one container through probe, raw dump, key resolution,
// cover extraction, planning and the chapter worker pool, and records the
// outcome in the history store. Sessions for the same file are serialized with
// a lock file next to the container.
//
// Driver.Run hands each input to a Dispatcher (the file-type registry) and
// keeps going after a file fails.
package conversion
