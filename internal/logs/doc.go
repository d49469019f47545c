// Package logs reads back the per-run log files a conversion leaves in the
// log directory.
//
// Latest picks the most recent run log; Tail prints its last lines and, in
// follow mode, keeps polling for new ones until the context ends.
package logs
