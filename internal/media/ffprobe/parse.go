package ffprobe

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrMultipleFormats is returned when a report holds more than one [FORMAT] section.
var ErrMultipleFormats = errors.New("ffprobe report contains more than one format section")

const (
	streamOpen  = "[STREAM]"
	streamClose = "[/STREAM]"
	formatOpen  = "[FORMAT]"
	formatClose = "[/FORMAT]"
)

// Record holds the key/value pairs of one report section.
type Record map[string]string

// Get returns the trimmed value for key, or "" when missing.
func (r Record) Get(key string) string {
	return r[key]
}

// CodecType returns the stream's codec_type entry.
func (r Record) CodecType() string {
	return r["codec_type"]
}

// Report is the parsed default-writer output: streams in report order and the
// container format section.
type Report struct {
	Streams []Record
	Format  Record
}

type parseState int

const (
	outside parseState = iota
	inStream
	inFormat
)

// Parse converts default-writer ffprobe output into a Report. Lines outside
// any section and lines without '=' are ignored. A report with no stream
// sections is valid.
func Parse(text string) (Report, error) {
	rawStreams, rawFormats := collectSections(text)
	if len(rawFormats) > 1 {
		return Report{}, ErrMultipleFormats
	}

	report := Report{Streams: make([]Record, 0, len(rawStreams))}
	for _, lines := range rawStreams {
		report.Streams = append(report.Streams, toRecord(lines))
	}
	if len(rawFormats) == 1 {
		report.Format = toRecord(rawFormats[0])
	}
	return report, nil
}

// collectSections walks the text once, grouping the raw lines of each
// stream and format section.
func collectSections(text string) (streams, formats [][]string) {
	state := outside
	var current []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		switch strings.TrimSpace(line) {
		case streamOpen:
			state, current = inStream, nil
			continue
		case formatOpen:
			state, current = inFormat, nil
			continue
		case streamClose:
			if state == inStream {
				streams = append(streams, current)
			}
			state, current = outside, nil
			continue
		case formatClose:
			if state == inFormat {
				formats = append(formats, current)
			}
			state, current = outside, nil
			continue
		}
		if state != outside {
			current = append(current, line)
		}
	}
	return streams, formats
}

func toRecord(lines []string) Record {
	record := make(Record, len(lines))
	for _, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		record[key] = strings.TrimSpace(value)
	}
	return record
}

// StreamsOfType returns the streams whose codec_type matches codecType.
func (r Report) StreamsOfType(codecType string) []Record {
	var out []Record
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType(), codecType) {
			out = append(out, stream)
		}
	}
	return out
}

// VideoStreams returns the video stream sections.
func (r Report) VideoStreams() []Record { return r.StreamsOfType("video") }

// AudioStreams returns the audio stream sections.
func (r Report) AudioStreams() []Record { return r.StreamsOfType("audio") }

// SubtitleStreams returns the subtitle stream sections.
func (r Report) SubtitleStreams() []Record { return r.StreamsOfType("subtitle") }

// VideoStreamCount returns the number of video streams discovered.
func (r Report) VideoStreamCount() int { return len(r.VideoStreams()) }

// AudioStreamCount returns the number of audio streams discovered.
func (r Report) AudioStreamCount() int { return len(r.AudioStreams()) }

// FormatRecord returns the format section, or nil when the report has none.
func (r Report) FormatRecord() Record {
	return r.Format
}

// FormatValue returns a single format entry.
func (r Report) FormatValue(key string) (string, bool) {
	value, ok := r.Format[key]
	return value, ok
}

// DurationSeconds returns the container duration in seconds, 0 when absent
// and NaN when the value cannot be parsed. Both raw seconds and the
// sexagesimal -pretty form are accepted.
func (r Report) DurationSeconds() float64 {
	return parseDuration(r.Format["duration"])
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Report) SizeBytes() int64 {
	size := parseQuantity(r.Format["size"])
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(math.Round(size))
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Report) BitRate() int64 {
	rate := parseQuantity(r.Format["bit_rate"])
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return int64(math.Round(rate))
}

func parseDuration(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || cleaned == "N/A" {
		return 0
	}
	if !strings.Contains(cleaned, ":") {
		return parseFloat(cleaned)
	}
	total := 0.0
	for _, part := range strings.Split(cleaned, ":") {
		n, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return math.NaN()
		}
		total = total*60 + n
	}
	return total
}

var unitPrefixes = []struct {
	prefix string
	factor float64
}{
	{"Ki", 1 << 10}, {"Mi", 1 << 20}, {"Gi", 1 << 30}, {"Ti", 1 << 40},
	{"K", 1e3}, {"M", 1e6}, {"G", 1e9}, {"T", 1e12},
}

// parseQuantity accepts plain numbers and -pretty values such as
// "12.5 MiB" or "1.411 Mbit/s".
func parseQuantity(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || cleaned == "N/A" {
		return 0
	}
	number, unit, found := strings.Cut(cleaned, " ")
	if !found {
		return parseFloat(cleaned)
	}
	n := parseFloat(number)
	for _, p := range unitPrefixes {
		if strings.HasPrefix(unit, p.prefix) {
			return n * p.factor
		}
	}
	return n
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
