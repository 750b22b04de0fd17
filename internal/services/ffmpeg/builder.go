package ffmpeg

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/xpol/FFcuesplitter/internal/cuesheet"
	"github.com/xpol/FFcuesplitter/internal/textutil"
)

// Invocation is a fully formed ffmpeg command for one track.
type Invocation struct {
	Args     []string // argv, binary first
	Duration float64  // seconds, bounds progress
	Track    int
	Output   string
}

// String renders the invocation as a shell-quoted command line.
func (inv Invocation) String() string {
	return shellquote.Join(inv.Args...)
}

// Build produces the ffmpeg invocation for track, one of total tracks.
// Every metadata key is emitted even when its value is empty so the
// destination tags match across formats.
func Build(settings Settings, track cuesheet.Track, total int) Invocation {
	s := settings.withDefaults()

	args := []string{s.Binary, "-loglevel", s.LogLevel}
	args = append(args, s.Mode.flags()...)
	args = append(args, "-i", track.File)
	args = append(args, "-ss", FormatSeconds(cuesheet.SamplesToSeconds(track.Start)))
	if track.HasEnd() {
		args = append(args, "-to", FormatSeconds(cuesheet.SamplesToSeconds(track.End)))
	}
	for _, tag := range metadataTags(track, total) {
		args = append(args, "-metadata", tag)
	}
	args = append(args, "-c:a", s.Format.Codec, "-ar", strconv.Itoa(s.Format.SampleRate))
	extra, err := SplitParams(s.ExtraParams)
	if err != nil {
		// Config validation rejects malformed parameters before a split.
		extra = strings.Fields(s.ExtraParams)
	}
	args = append(args, extra...)

	output := filepath.Join(s.OutputDir, OutputName(track.Number, track.Meta.Title, s.Format))
	args = append(args, output)

	return Invocation{
		Args:     args,
		Duration: track.Duration,
		Track:    track.Number,
		Output:   output,
	}
}

func metadataTags(track cuesheet.Track, total int) []string {
	meta := track.Meta
	return []string{
		"ARTIST=" + meta.Artist,
		"ALBUM=" + meta.Album,
		"TITLE=" + meta.Title,
		fmt.Sprintf("TRACK=%d/%d", track.Number, total),
		"GENRE=" + meta.Genre,
		"DATE=" + meta.Date,
		"COMMENT=" + meta.Comment,
		"DISCID=" + meta.DiscID,
	}
}

// OutputName returns "NN - Title.ext" with filesystem-unsafe characters removed
// from the title.
func OutputName(number int, title string, format Format) string {
	title = textutil.SanitizeFileName(title)
	if title == "" {
		title = fmt.Sprintf("Track %02d", number)
	}
	name := fmt.Sprintf("%02d - %s", number, title)
	if format.Extension != "" {
		name += "." + format.Extension
	}
	return name
}

// FormatSeconds renders seconds the way the -ss/-to arguments expect them:
// shortest exact decimal, always with a fractional part ("1.0", "0.5").
func FormatSeconds(seconds float64) string {
	out := strconv.FormatFloat(seconds, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

// SplitParams splits free-form extra parameters with POSIX shell word
// rules. An unterminated quote or trailing backslash is an error.
func SplitParams(params string) ([]string, error) {
	words, err := shellquote.Split(params)
	if err != nil {
		return nil, fmt.Errorf("extra ffmpeg parameters %q: %w", params, err)
	}
	return words, nil
}
