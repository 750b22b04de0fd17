package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleOutput is shared by a console handler and every handler derived
// from it, so writes stay serialized and repeated-field suppression sees the
// whole stream.
type consoleOutput struct {
	mu   sync.Mutex
	w    io.Writer
	seen map[string]map[string]string
}

type consoleHandler struct {
	out       *consoleOutput
	level     *slog.LevelVar
	addSource bool
	attrs     []slog.Attr
	groups    []string
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{
		out:       &consoleOutput{w: w, seen: make(map[string]map[string]string)},
		level:     lvl,
		addSource: addSource,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// consoleEntry is a record reduced to what the console line shows.
type consoleEntry struct {
	when      time.Time
	level     slog.Level
	message   string
	component string
	track     string
	stage     string
	source    *slog.Source
	// fields excludes the component, which is already in the header.
	fields []kv
	all    []kv
}

func (h *consoleHandler) entryFor(record slog.Record) consoleEntry {
	entry := consoleEntry{
		when:    record.Time,
		level:   record.Level,
		message: strings.TrimSpace(record.Message),
		source:  record.Source(),
	}
	if entry.when.IsZero() {
		entry.when = time.Now()
	}
	if entry.message == "" {
		entry.message = "(no message)"
	}

	collected := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	for _, attr := range h.attrs {
		flattenAttr(&collected, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&collected, h.groups, attr)
		return true
	})

	for _, field := range collected {
		switch field.key {
		case FieldComponent:
			if entry.component == "" {
				entry.component = attrString(field.value)
			}
			continue
		case FieldTrack:
			if entry.track == "" {
				entry.track = attrString(field.value)
			}
		case FieldStage:
			if entry.stage == "" {
				entry.stage = attrString(field.value)
			}
		}
		entry.fields = append(entry.fields, field)
	}
	entry.fields = lastValueWins(entry.fields)
	entry.all = lastValueWins(collected)
	return entry
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}
	entry := h.entryFor(record)

	var buf bytes.Buffer
	h.writeHeader(&buf, entry)
	buf.WriteByte('\n')

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	if entry.level < slog.LevelInfo {
		writeDebugFields(&buf, entry.all)
	} else {
		h.writeSummaryFields(&buf, entry)
	}
	_, err := h.out.w.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) writeHeader(buf *bytes.Buffer, entry consoleEntry) {
	fmt.Fprintf(buf, "%s %s", formatTimestamp(entry.when), levelLabel(entry.level))
	if entry.component != "" {
		buf.WriteString(" [" + entry.component + "]")
	}
	if subject := FormatSubject(entry.track, entry.stage); subject != "" {
		buf.WriteString(" " + subject)
	}
	buf.WriteString(" – " + entry.message)
	if h.addSource && entry.source != nil {
		fmt.Fprintf(buf, " [%s:%d]", filepath.Base(entry.source.File), entry.source.Line)
	}
}

// writeSummaryFields writes the highlighted fields of an info-or-above entry.
// Must be called with out.mu held.
func (h *consoleHandler) writeSummaryFields(buf *bytes.Buffer, entry consoleEntry) {
	fields, hidden := selectInfoFields(entry.fields, infoAttrLimit, entry.level >= slog.LevelWarn)
	fields = h.out.dropRepeats(infoSummaryKey(entry.component, entry.track), fields, entry.level)
	for _, field := range fields {
		fmt.Fprintf(buf, "    - %s: %s\n", field.label, field.value)
	}
	switch {
	case hidden == 1:
		buf.WriteString("    + 1 more field hidden\n")
	case hidden > 1:
		fmt.Fprintf(buf, "    + %d more fields hidden\n", hidden)
	}
}

func writeDebugFields(buf *bytes.Buffer, fields []kv) {
	for _, field := range fields {
		if field.key == "" {
			continue
		}
		fmt.Fprintf(buf, "    %s: %s\n", field.key, formatValue(field.value))
	}
}

// dropRepeats removes info fields whose value has not changed since the last
// entry for the same component and track. Warnings and errors always show
// every field but still refresh the remembered values.
func (o *consoleOutput) dropRepeats(key string, fields []infoField, level slog.Level) []infoField {
	if key == "" || len(fields) == 0 {
		return fields
	}
	last, ok := o.seen[key]
	if !ok {
		last = make(map[string]string)
		o.seen[key] = last
	}
	kept := fields[:0:0]
	for _, field := range fields {
		prev, known := last[field.label]
		last[field.label] = field.value
		if level <= slog.LevelInfo && known && prev == field.value {
			continue
		}
		kept = append(kept, field)
	}
	return kept
}

// FormatSubject builds the "Track 03 (split)" subject used in console output.
func FormatSubject(track, stage string) string {
	track = strings.TrimSpace(track)
	stage = strings.TrimSpace(stage)
	if n, err := strconv.Atoi(track); err == nil {
		track = fmt.Sprintf("%02d", n)
	}
	switch {
	case track != "" && stage != "":
		return "Track " + track + " (" + stage + ")"
	case track != "":
		return "Track " + track
	default:
		return stage
	}
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	derived := *h
	derived.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &derived
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	derived := *h
	derived.groups = append(append([]string(nil), h.groups...), name)
	return &derived
}

type kv struct {
	key   string
	value slog.Value
}

// lastValueWins keeps the first position of each key with its latest value.
func lastValueWins(fields []kv) []kv {
	index := make(map[string]int, len(fields))
	out := make([]kv, 0, len(fields))
	for _, field := range fields {
		if field.key == "" {
			continue
		}
		if i, ok := index[field.key]; ok {
			out[i].value = field.value
			continue
		}
		index[field.key] = len(out)
		out = append(out, field)
	}
	return out
}

// flattenAttr expands groups into dotted keys.
func flattenAttr(dst *[]kv, groups []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		inner := groups
		if attr.Key != "" {
			inner = append(append([]string(nil), groups...), attr.Key)
		}
		for _, member := range value.Group() {
			flattenAttr(dst, inner, member)
		}
		return
	}
	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(append(append([]string(nil), groups...), attr.Key), ".")
		key = strings.TrimSuffix(key, ".")
	}
	*dst = append(*dst, kv{key: key, value: value})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
