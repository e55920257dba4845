// Package logging assembles structured slog loggers and formatting helpers used
// across menumatch.
//
// It owns the configurable console/JSON handlers, tees output into an optional
// JSON log file, and exposes context-aware helpers so pipeline code can tag
// log lines with run IDs, image names, and stages. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// records with the same shape as the rest of the system.
package logging
