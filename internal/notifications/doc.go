// Package notifications publishes convert-run summaries to an ntfy topic.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers can notify unconditionally.
package notifications
