// Package main hosts the aaxsplit CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into conversions,
// container inspection, history queries, configuration scaffolding, and
// readiness checks. It centralizes configuration resolution, flag overrides,
// and logger setup so subcommands can focus on output instead of wiring.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through dedicated commands or flags here.
package main
