// Package services defines shared utilities consumed by the conversion
// pipeline and its collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp conversion IDs, stage names, source paths and
//     correlation identifiers for logging.
//   - The error taxonomy (probe unavailable, probe format, no working key, job
//     failed, cover extraction) plus the Wrap helper that tags failures with a
//     marker so callers can classify them with errors.Is.
//
// Use these helpers when wiring new pipeline stages so error handling and
// observability stay uniform.
package services
