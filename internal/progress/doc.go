// Package progress renders ffmpeg job events on a terminal.
//
// Machine-mode jobs get a progress bar advanced by whole seconds; detailed
// jobs rewrite a single status line in place. Dry runs print the command
// each job would have executed.
package progress
