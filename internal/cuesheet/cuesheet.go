package cuesheet

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// SampleRate is the CD sample rate every offset is expressed in.
	SampleRate = 44100
	// FramesPerSecond is the CUE timestamp frame rate.
	FramesPerSecond = 75

	samplesPerFrame = SampleRate / FramesPerSecond
)

// ErrNoTracks is returned for sheets without any TRACK entry.
var ErrNoTracks = errors.New("cue sheet has no tracks")

// Metadata holds the tags written to every output file. Absent fields stay empty.
type Metadata struct {
	Artist  string
	Album   string
	Title   string
	Genre   string
	Date    string
	Comment string
	DiscID  string
}

// Track describes one audio track to extract.
type Track struct {
	File     string
	Number   int
	Start    int64 // samples at SampleRate
	End      int64 // samples at SampleRate; 0 when the track runs to the end of File
	Duration float64
	Meta     Metadata
}

// HasEnd reports whether the track has an explicit end offset.
func (t Track) HasEnd() bool {
	return t.End > 0
}

// Sheet is a parsed cue sheet.
type Sheet struct {
	Path     string
	Encoding string
	Meta     Metadata
	Tracks   []Track
}

// ParseError reports a malformed line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cue sheet line %d: %s", e.Line, e.Msg)
}

// Load reads and parses the cue sheet at path. Relative FILE entries are
// resolved against the sheet's directory.
func Load(path string) (*Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cue sheet: %w", err)
	}
	sheet, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	sheet.Path = path
	return sheet, nil
}

// Parse parses raw cue sheet bytes; baseDir resolves relative FILE entries.
func Parse(data []byte, baseDir string) (*Sheet, error) {
	text, encoding, err := decode(data)
	if err != nil {
		return nil, err
	}
	sheet := &Sheet{Encoding: encoding}

	var (
		currentFile string
		current     *Track
		haveIndex   bool
	)
	finishTrack := func(line int) error {
		if current == nil {
			return nil
		}
		if !haveIndex {
			return &ParseError{Line: line, Msg: fmt.Sprintf("track %d has no INDEX 01", current.Number)}
		}
		sheet.Tracks = append(sheet.Tracks, *current)
		current = nil
		return nil
	}

	lines := strings.Split(text, "\n")
	for i, raw := range lines {
		lineNo := i + 1
		fields := splitFields(strings.TrimSpace(strings.TrimRight(raw, "\r")))
		if len(fields) == 0 {
			continue
		}
		switch strings.ToUpper(fields[0]) {
		case "REM":
			if len(fields) < 3 {
				continue
			}
			value := strings.Join(fields[2:], " ")
			target := &sheet.Meta
			if current != nil {
				target = &current.Meta
			}
			switch strings.ToUpper(fields[1]) {
			case "GENRE":
				target.Genre = value
			case "DATE":
				target.Date = value
			case "DISCID":
				target.DiscID = value
			case "COMMENT":
				target.Comment = value
			}
		case "PERFORMER":
			if len(fields) < 2 {
				continue
			}
			if current != nil {
				current.Meta.Artist = fields[1]
			} else {
				sheet.Meta.Artist = fields[1]
			}
		case "TITLE":
			if len(fields) < 2 {
				continue
			}
			if current != nil {
				current.Meta.Title = fields[1]
			} else {
				sheet.Meta.Album = fields[1]
			}
		case "FILE":
			// A track still waiting for INDEX 01 starts in the new file;
			// EAC writes its pregap into the previous one.
			if haveIndex {
				if err := finishTrack(lineNo); err != nil {
					return nil, err
				}
			}
			if len(fields) < 2 {
				return nil, &ParseError{Line: lineNo, Msg: "FILE without a name"}
			}
			currentFile = fields[1]
			if !filepath.IsAbs(currentFile) && baseDir != "" {
				currentFile = filepath.Join(baseDir, currentFile)
			}
		case "TRACK":
			if err := finishTrack(lineNo); err != nil {
				return nil, err
			}
			if currentFile == "" {
				return nil, &ParseError{Line: lineNo, Msg: "TRACK before FILE"}
			}
			if len(fields) < 2 {
				return nil, &ParseError{Line: lineNo, Msg: "TRACK without a number"}
			}
			number, err := strconv.Atoi(fields[1])
			if err != nil || number <= 0 {
				return nil, &ParseError{Line: lineNo, Msg: fmt.Sprintf("invalid track number %q", fields[1])}
			}
			current = &Track{Number: number}
			haveIndex = false
		case "INDEX":
			if current == nil || len(fields) < 3 {
				continue
			}
			if fields[1] != "01" && fields[1] != "1" {
				continue
			}
			samples, err := ParseTimestamp(fields[2])
			if err != nil {
				return nil, &ParseError{Line: lineNo, Msg: err.Error()}
			}
			current.File = currentFile
			current.Start = samples
			haveIndex = true
		}
	}
	if err := finishTrack(len(lines)); err != nil {
		return nil, err
	}
	if len(sheet.Tracks) == 0 {
		return nil, ErrNoTracks
	}

	for i := range sheet.Tracks {
		track := &sheet.Tracks[i]
		track.Meta = mergeMetadata(sheet.Meta, track.Meta)
		if i+1 < len(sheet.Tracks) && sheet.Tracks[i+1].File == track.File {
			next := sheet.Tracks[i+1].Start
			if next <= track.Start {
				return nil, fmt.Errorf("track %d: next track starts before it (%d <= %d)", track.Number, next, track.Start)
			}
			track.End = next
			track.Duration = SamplesToSeconds(track.End - track.Start)
		}
	}
	return sheet, nil
}

// SetDuration fills the duration of open-ended tracks from the length of their
// source file. Tracks that already have an end offset are left untouched.
func (s *Sheet) SetDuration(file string, fileSeconds float64) {
	for i := range s.Tracks {
		track := &s.Tracks[i]
		if track.File != file || track.HasEnd() {
			continue
		}
		remaining := fileSeconds - SamplesToSeconds(track.Start)
		if remaining < 0 {
			remaining = 0
		}
		track.Duration = math.Round(remaining*1e6) / 1e6
	}
}

// OpenEndedFiles returns, in track order, the distinct source files holding a
// track without an end offset. Those tracks need the file's length.
func (s *Sheet) OpenEndedFiles() []string {
	var files []string
	seen := make(map[string]bool)
	for _, track := range s.Tracks {
		if track.HasEnd() || seen[track.File] {
			continue
		}
		seen[track.File] = true
		files = append(files, track.File)
	}
	return files
}

// SamplesToSeconds converts a sample offset to seconds rounded to 6 decimals.
func SamplesToSeconds(samples int64) float64 {
	return math.Round(float64(samples)/SampleRate*1e6) / 1e6
}

// ParseTimestamp converts an mm:ss:ff cue timestamp to samples.
func ParseTimestamp(value string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	nums := make([]int64, 3)
	for i, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
		nums[i] = n
	}
	if nums[1] >= 60 || nums[2] >= FramesPerSecond {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	frames := (nums[0]*60+nums[1])*FramesPerSecond + nums[2]
	return frames * samplesPerFrame, nil
}

func mergeMetadata(album, track Metadata) Metadata {
	merged := track
	merged.Album = album.Album
	if merged.Artist == "" {
		merged.Artist = album.Artist
	}
	if merged.Genre == "" {
		merged.Genre = album.Genre
	}
	if merged.Date == "" {
		merged.Date = album.Date
	}
	if merged.Comment == "" {
		merged.Comment = album.Comment
	}
	if merged.DiscID == "" {
		merged.DiscID = album.DiscID
	}
	return merged
}

// splitFields splits a cue line on whitespace, keeping double-quoted values together.
func splitFields(line string) []string {
	var (
		fields  []string
		b       strings.Builder
		quoted  bool
		pending bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			pending = true
		case (r == ' ' || r == '\t') && !quoted:
			if pending {
				fields = append(fields, b.String())
				b.Reset()
				pending = false
			}
		default:
			b.WriteRune(r)
			pending = true
		}
	}
	if pending {
		fields = append(fields, b.String())
	}
	return fields
}
