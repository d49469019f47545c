// Package logging assembles the slog loggers used across aaxsplit.
//
// A logger writes warnings to the console and every record at the configured
// level to a per-run log file, either as console-style lines or JSON. The
// package also owns the standard field names, helpers that stamp conversion
// IDs, stages and source paths from a context, the run_id handler, and the
// pruning of old run logs.
package logging
