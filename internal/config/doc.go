// Package config loads, normalizes, and validates ffcuesplitter configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FFMPEG_BINARY and FFPROBE_BINARY. FFmpegSettings turns the loaded values
// into the immutable engine settings used for one run.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config
