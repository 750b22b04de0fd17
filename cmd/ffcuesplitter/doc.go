// Package main implements the ffcuesplitter command-line interface.
//
// The split command loads a CUE sheet, probes the sources of open-ended
// tracks, and runs one ffmpeg job per track with the configured progress
// display. The probe, status, history and config commands inspect media,
// the environment and past runs.
package main
