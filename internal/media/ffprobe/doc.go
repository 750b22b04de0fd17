// Package ffprobe runs ffprobe and parses its default bracketed report.
//
// Key types:
//   - Options: which sections ffprobe prints and how
//   - Report: stream and format sections parsed from the default writer
//   - Record: key/value pairs of one section
//
// Entry points:
//   - Inspect: executes ffprobe in report mode and returns a parsed Report
//   - Custom: executes ffprobe with a caller-selected writer and returns raw text
//   - Parse: converts captured default-writer output into a Report
//
// Helper methods on Report provide stream selection by codec type, format
// lookups and numeric accessors that understand both raw and -pretty values.
package ffprobe
