// Package logging assembles structured slog loggers for ffcuesplitter.
//
// It owns the console ("pretty") and JSON handlers, level and output
// plumbing, the optional JSON file copy of every record, and context-aware
// helpers that tag log lines with the run id, track number, and stage carried
// on a context. A no-op logger is provided for tests and wiring code that
// cannot fail.
package logging
