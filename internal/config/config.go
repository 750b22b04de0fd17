package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/xpol/FFcuesplitter/internal/services/ffmpeg"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	// OutputDir receives the split tracks. Empty means "next to the CUE sheet".
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	HistoryDB string `toml:"history_db"`
}

// FFmpeg contains the transcoding engine settings.
type FFmpeg struct {
	Binary        string `toml:"binary"`
	LogLevel      string `toml:"loglevel"`
	ProgressMeter string `toml:"progress_meter"`
	Format        string `toml:"format"`
	AddParams     string `toml:"add_params"`
	// JobLog is the per-job ffmpeg log file name, placed in the output directory.
	JobLog string `toml:"job_log"`
}

// FFprobe contains the inspection engine settings.
type FFprobe struct {
	Binary string `toml:"binary"`
}

// Split contains run behaviour.
type Split struct {
	Overwrite string `toml:"overwrite"`
	DryRun    bool   `toml:"dry_run"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// History controls the job outcome store.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Config encapsulates all configuration values for ffcuesplitter.
//
// Configuration sections by subsystem:
//   - Paths: output, log and history locations
//   - FFmpeg: engine binary, log level, progress meter, output format
//   - FFprobe: inspection binary
//   - Split: overwrite policy and dry run
//   - Logging: application log format and level
//   - History: SQLite job history toggle
type Config struct {
	Paths   Paths   `toml:"paths"`
	FFmpeg  FFmpeg  `toml:"ffmpeg"`
	FFprobe FFprobe `toml:"ffprobe"`
	Split   Split   `toml:"split"`
	Logging Logging `toml:"logging"`
	History History `toml:"history"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log directory and, when history is enabled,
// the directory holding the history database. The output directory is created
// per run by the splitter so dry runs stay side-effect free.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if c.History.Enabled && c.Paths.HistoryDB != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.HistoryDB))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// OutputDirFor returns the configured output directory, or the directory of
// the CUE sheet when none is configured.
func (c *Config) OutputDirFor(cuePath string) string {
	if c.Paths.OutputDir != "" {
		return c.Paths.OutputDir
	}
	dir, err := filepath.Abs(filepath.Dir(cuePath))
	if err != nil {
		return filepath.Dir(cuePath)
	}
	return dir
}

// FFmpegSettings builds the immutable engine settings for one run writing
// into outputDir. Values were validated by Load, so parse errors fall back to
// defaults.
func (c *Config) FFmpegSettings(outputDir string) ffmpeg.Settings {
	mode, err := ffmpeg.ParseProgressMode(c.FFmpeg.ProgressMeter)
	if err != nil {
		mode = ffmpeg.ModeDetailed
	}
	format, err := ffmpeg.ParseFormat(c.FFmpeg.Format)
	if err != nil {
		format = ffmpeg.FormatFLAC
	}
	return ffmpeg.Settings{
		Binary:      c.FFmpeg.Binary,
		LogLevel:    c.FFmpeg.LogLevel,
		Mode:        mode,
		Format:      format,
		ExtraParams: c.FFmpeg.AddParams,
		OutputDir:   outputDir,
		LogPath:     filepath.Join(outputDir, c.FFmpeg.JobLog),
		DryRun:      c.Split.DryRun,
	}
}

// ApplicationLogPath returns the application log file inside the log directory.
func (c *Config) ApplicationLogPath() string {
	if c.Paths.LogDir == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, applicationLogName)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}
