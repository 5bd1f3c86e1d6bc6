// Package logging assembles structured slog loggers and formatting helpers used
// across the despatch tools.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code automatically
// tags log lines with the active site and submission batch id. The package
// also provides a no-op logger for tests and wiring code that cannot fail, and
// prunes its own aged log files.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the system.
package logging
