package ffmpeg

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const maxLineBytes = 1024 * 1024

var (
	timePattern = regexp.MustCompile(`time=\s*(-?)(\d+):(\d{1,2}):(\d{1,2}(?:\.\d+)?)`)
	statPattern = regexp.MustCompile(`([A-Za-z_]+)=\s*(\S+)`)
)

// ScanDetailed drains ffmpeg's -stats diagnostic stream. Every line is copied
// to log verbatim; lines carrying a time= marker are turned into EventPosition
// updates relative to duration. It returns when r reaches end of stream.
func ScanDetailed(r io.Reader, log io.Writer, duration float64, emit func(Event)) error {
	scanner := newLineScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if log != nil {
			if _, err := io.WriteString(log, line+"\n"); err != nil {
				return fmt.Errorf("write job log: %w", err)
			}
		}
		if emit == nil || !strings.Contains(line, "time=") {
			continue
		}
		if event, ok := ParseStatsLine(line, duration); ok {
			emit(event)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ffmpeg stats: %w", err)
	}
	return nil
}

// ParseStatsLine converts one -stats line into a position event. The message
// lists the percentage followed by every key: value pair of the line.
func ParseStatsLine(line string, duration float64) (Event, bool) {
	match := timePattern.FindStringSubmatch(line)
	if match == nil {
		return Event{}, false
	}
	hours, _ := strconv.ParseFloat(match[2], 64)
	minutes, _ := strconv.ParseFloat(match[3], 64)
	secs, err := strconv.ParseFloat(match[4], 64)
	if err != nil {
		return Event{}, false
	}
	position := hours*3600 + minutes*60 + secs
	if match[1] == "-" {
		position = 0
	}

	percent := 0.0
	if duration > 0 {
		percent = math.Min(100, position/duration*100)
	}

	pairs := statPattern.FindAllStringSubmatch(line, -1)
	parts := make([]string, 0, len(pairs)+1)
	parts = append(parts, fmt.Sprintf("%3.0f%%", percent))
	for _, pair := range pairs {
		parts = append(parts, pair[1]+": "+pair[2])
	}

	return Event{
		Kind:    EventPosition,
		Total:   duration,
		Seconds: position,
		Percent: percent,
		Message: strings.Join(parts, " | "),
	}, true
}

// ScanMachine drains `-progress pipe:1` output. Each out_time_ms report (which
// ffmpeg expresses in microseconds) becomes an EventAdvance carrying the whole
// seconds processed since the previous report, clamped at zero.
func ScanMachine(r io.Reader, emit func(Event)) error {
	scanner := newLineScanner(r)
	var tracker deltaTracker
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok || strings.TrimSpace(key) != "out_time_ms" {
			continue
		}
		micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			continue
		}
		delta := tracker.advance(micros)
		if emit != nil {
			emit(Event{Kind: EventAdvance, Delta: delta, Seconds: float64(tracker.processed)})
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ffmpeg progress: %w", err)
	}
	return nil
}

type deltaTracker struct {
	processed int64
}

// advance records a new elapsed time and returns the non-negative whole-second delta.
func (d *deltaTracker) advance(micros int64) int {
	seconds := int64(math.Round(float64(micros) / 1_000_000))
	delta := seconds - d.processed
	if delta <= 0 {
		return 0
	}
	d.processed = seconds
	return int(delta)
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	scanner.Split(scanLines)
	return scanner
}

// scanLines splits on either \n or \r; ffmpeg terminates -stats updates with a
// bare carriage return.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
