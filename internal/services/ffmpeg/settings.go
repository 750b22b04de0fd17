package ffmpeg

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ProgressMode selects how a running job is observed.
type ProgressMode int

const (
	ModeDetailed ProgressMode = iota
	ModeMachine
	ModeStandard
)

func (m ProgressMode) String() string {
	switch m {
	case ModeMachine:
		return "machine"
	case ModeStandard:
		return "standard"
	default:
		return "detailed"
	}
}

// flags returns the ffmpeg options that make the engine emit the output the
// strategy consumes.
func (m ProgressMode) flags() []string {
	switch m {
	case ModeMachine:
		return []string{"-progress", "pipe:1", "-nostats", "-nostdin"}
	case ModeStandard:
		return nil
	default:
		return []string{"-stats", "-hide_banner", "-nostdin"}
	}
}

// ParseProgressMode accepts the mode names plus the meter aliases used by
// older configurations ("mymet", "tqdm").
func ParseProgressMode(value string) (ProgressMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "detailed", "mymet":
		return ModeDetailed, nil
	case "machine", "tqdm", "bar":
		return ModeMachine, nil
	case "standard":
		return ModeStandard, nil
	default:
		return ModeDetailed, fmt.Errorf("unknown progress mode %q (want detailed, machine or standard)", value)
	}
}

// Format binds an output format name to its encoder and sample rate.
type Format struct {
	Name       string
	Codec      string
	Extension  string
	SampleRate int
}

var (
	FormatWAV  = Format{Name: "wav", Codec: "pcm_s16le", Extension: "wav", SampleRate: 44100}
	FormatFLAC = Format{Name: "flac", Codec: "flac", Extension: "flac", SampleRate: 44100}
	FormatOGG  = Format{Name: "ogg", Codec: "libvorbis", Extension: "ogg", SampleRate: 44100}
	FormatMP3  = Format{Name: "mp3", Codec: "libmp3lame", Extension: "mp3", SampleRate: 44100}
)

// Formats lists the supported output formats.
func Formats() []Format {
	return []Format{FormatWAV, FormatFLAC, FormatOGG, FormatMP3}
}

// ParseFormat resolves a format by name.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, format := range Formats() {
		if format.Name == name {
			return format, nil
		}
	}
	return Format{}, fmt.Errorf("unsupported output format %q", name)
}

// Settings is the immutable per-run configuration shared by Build and Runner.
type Settings struct {
	Binary      string
	LogLevel    string
	Mode        ProgressMode
	Format      Format
	ExtraParams string
	OutputDir   string
	LogPath     string
	DryRun      bool
}

const (
	defaultBinary   = "ffmpeg"
	defaultLogLevel = "warning"
	defaultLogName  = "ffcuesplitter.log"
)

func (s Settings) withDefaults() Settings {
	s.Binary = strings.TrimSpace(s.Binary)
	if s.Binary == "" {
		s.Binary = defaultBinary
	}
	s.LogLevel = strings.TrimSpace(s.LogLevel)
	if s.LogLevel == "" {
		s.LogLevel = defaultLogLevel
	}
	if s.Format.Name == "" {
		s.Format = FormatFLAC
	}
	if strings.TrimSpace(s.LogPath) == "" {
		s.LogPath = defaultLogName
		if s.OutputDir != "" {
			s.LogPath = filepath.Join(s.OutputDir, defaultLogName)
		}
	}
	return s
}
