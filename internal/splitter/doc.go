// Package splitter orchestrates one split run: it fills open-ended track
// durations with ffprobe, applies the overwrite policy, runs one ffmpeg job
// per track in order, and moves each finished file into the output
// directory.
//
// Jobs run strictly one after another. The first failed or interrupted job
// aborts the run; tracks already moved into place stay there. A run holds an
// exclusive lock on the output directory so two runs never share a job log,
// and every job outcome is recorded in the history store when one is
// configured. Dry runs print the planned commands and touch nothing.
package splitter
