package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeFFprobe()
	c.normalizeSplit()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = defaultHistoryDB
	}
	if c.Paths.HistoryDB, err = expandPath(c.Paths.HistoryDB); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeFFmpeg() {
	c.FFmpeg.Binary = strings.TrimSpace(c.FFmpeg.Binary)
	if c.FFmpeg.Binary == "" || c.FFmpeg.Binary == defaultFFmpeg {
		if value, ok := os.LookupEnv("FFMPEG_BINARY"); ok && strings.TrimSpace(value) != "" {
			c.FFmpeg.Binary = strings.TrimSpace(value)
		}
	}
	if c.FFmpeg.Binary == "" {
		c.FFmpeg.Binary = defaultFFmpeg
	}
	c.FFmpeg.LogLevel = strings.ToLower(strings.TrimSpace(c.FFmpeg.LogLevel))
	if c.FFmpeg.LogLevel == "" {
		c.FFmpeg.LogLevel = defaultFFmpegLevel
	}
	c.FFmpeg.ProgressMeter = strings.ToLower(strings.TrimSpace(c.FFmpeg.ProgressMeter))
	if c.FFmpeg.ProgressMeter == "" {
		c.FFmpeg.ProgressMeter = defaultMeter
	}
	c.FFmpeg.Format = strings.ToLower(strings.TrimSpace(c.FFmpeg.Format))
	if c.FFmpeg.Format == "" {
		c.FFmpeg.Format = defaultFormat
	}
	c.FFmpeg.AddParams = strings.TrimSpace(c.FFmpeg.AddParams)
	c.FFmpeg.JobLog = filepath.Base(strings.TrimSpace(c.FFmpeg.JobLog))
	if c.FFmpeg.JobLog == "" || c.FFmpeg.JobLog == "." || c.FFmpeg.JobLog == string(filepath.Separator) {
		c.FFmpeg.JobLog = defaultJobLog
	}
}

func (c *Config) normalizeFFprobe() {
	c.FFprobe.Binary = strings.TrimSpace(c.FFprobe.Binary)
	if c.FFprobe.Binary == "" || c.FFprobe.Binary == defaultFFprobe {
		if value, ok := os.LookupEnv("FFPROBE_BINARY"); ok && strings.TrimSpace(value) != "" {
			c.FFprobe.Binary = strings.TrimSpace(value)
		}
	}
	if c.FFprobe.Binary == "" {
		c.FFprobe.Binary = defaultFFprobe
	}
}

func (c *Config) normalizeSplit() {
	c.Split.Overwrite = strings.ToLower(strings.TrimSpace(c.Split.Overwrite))
	if c.Split.Overwrite == "" {
		c.Split.Overwrite = defaultOverwrite
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
