package config

const (
	defaultConfigPath   = "~/.config/ffcuesplitter/config.toml"
	projectConfigName   = "ffcuesplitter.toml"
	defaultLogDir       = "~/.local/share/ffcuesplitter/logs"
	defaultHistoryDB    = "~/.local/share/ffcuesplitter/history.db"
	applicationLogName  = "ffcuesplitter.log"
	defaultFFmpeg       = "ffmpeg"
	defaultFFprobe      = "ffprobe"
	defaultFFmpegLevel  = "warning"
	defaultMeter        = "detailed"
	defaultFormat       = "flac"
	defaultJobLog       = "ffcuesplitter.log"
	defaultOverwrite    = OverwriteAsk
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
	defaultHistoryState = true
)

// Overwrite policies for existing destination files.
const (
	OverwriteAsk    = "ask"
	OverwriteNever  = "never"
	OverwriteAlways = "always"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		FFmpeg: FFmpeg{
			Binary:        defaultFFmpeg,
			LogLevel:      defaultFFmpegLevel,
			ProgressMeter: defaultMeter,
			Format:        defaultFormat,
			JobLog:        defaultJobLog,
		},
		FFprobe: FFprobe{
			Binary: defaultFFprobe,
		},
		Split: Split{
			Overwrite: defaultOverwrite,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: defaultHistoryState,
		},
	}
}
