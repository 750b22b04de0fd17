package config

import (
	"fmt"
	"slices"

	"github.com/xpol/FFcuesplitter/internal/services/ffmpeg"
)

var ffmpegLogLevels = []string{"quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validateSplit(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateFFmpeg() error {
	if !slices.Contains(ffmpegLogLevels, c.FFmpeg.LogLevel) {
		return fmt.Errorf("ffmpeg.loglevel %q is not a valid ffmpeg log level", c.FFmpeg.LogLevel)
	}
	if _, err := ffmpeg.ParseProgressMode(c.FFmpeg.ProgressMeter); err != nil {
		return fmt.Errorf("ffmpeg.progress_meter: %w", err)
	}
	if _, err := ffmpeg.ParseFormat(c.FFmpeg.Format); err != nil {
		return fmt.Errorf("ffmpeg.format: %w", err)
	}
	if _, err := ffmpeg.SplitParams(c.FFmpeg.AddParams); err != nil {
		return fmt.Errorf("ffmpeg.add_params: %w", err)
	}
	return nil
}

func (c *Config) validateSplit() error {
	switch c.Split.Overwrite {
	case OverwriteAsk, OverwriteNever, OverwriteAlways:
		return nil
	default:
		return fmt.Errorf("split.overwrite must be one of ask, never, always (got %q)", c.Split.Overwrite)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
}
