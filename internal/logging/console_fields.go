package logging

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	"cue_file",
	"output",
	"output_dir",
	"title",
	"performer",
	"tracks",
	"format",
	"mode",
	"percent",
	"command",
	"exit_code",
	"error_message",
	"error",
	FieldErrorHint,
	FieldImpact,
	"log_path",
	"size_bytes",
	"total_bytes",
	"elapsed",
	"duration",
	"succeeded",
	"failed",
	"status",
	"reason",
}

var highlightRank = func() map[string]int {
	rank := make(map[string]int, len(infoHighlightKeys))
	for i, key := range infoHighlightKeys {
		rank[key] = i
	}
	return rank
}()

func fieldRank(key string) int {
	if r, ok := highlightRank[key]; ok {
		return r
	}
	return len(infoHighlightKeys)
}

// selectInfoFields orders attrs with highlighted keys first and formats up to
// limit of them (0 means all). It also reports how many were left out. Unless
// includeDebug is set, debug-only keys and long values are left out too.
func selectInfoFields(attrs []kv, limit int, includeDebug bool) ([]infoField, int) {
	ordered := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		if !skipInfoKey(attr.key) {
			ordered = append(ordered, attr)
		}
	}
	slices.SortStableFunc(ordered, func(a, b kv) int {
		return cmp.Compare(fieldRank(a.key), fieldRank(b.key))
	})

	var result []infoField
	hidden := 0
	for _, attr := range ordered {
		if !includeDebug && isDebugOnlyKey(attr.key) {
			hidden++
			continue
		}
		value := formatValueForKey(attr.key, attr.value)
		if (!includeDebug && shouldHideInfoValue(attr.key, value)) || (limit > 0 && len(result) >= limit) {
			hidden++
			continue
		}
		result = append(result, infoField{label: displayLabel(attr.key), value: value})
	}
	return result, hidden
}

// formatValueForKey applies unit-aware formatting based on the key name.
func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()

	if isByteSizeKey(key) {
		switch v.Kind() {
		case slog.KindInt64:
			return formatBytes(v.Int64())
		case slog.KindUint64:
			return formatBytes(int64(v.Uint64()))
		}
	}
	if isDurationKey(key) && v.Kind() == slog.KindDuration {
		return formatDurationHuman(v.Duration())
	}
	if isPercentKey(key) && v.Kind() == slog.KindFloat64 {
		return formatPercent(v.Float64())
	}
	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}

	value := formatValue(v)
	if key == "error" || key == "error_message" {
		value = truncateErrorValue(value)
	}
	return value
}

func isByteSizeKey(key string) bool {
	return strings.HasSuffix(key, "_bytes") || key == "size"
}

func isDurationKey(key string) bool {
	return strings.HasSuffix(key, "_duration") ||
		strings.HasSuffix(key, "_elapsed") ||
		key == "elapsed" ||
		key == "duration"
}

func isPercentKey(key string) bool {
	return key == "percent" || strings.HasSuffix(key, "_percent")
}

func truncateErrorValue(value string) string {
	value = strings.TrimSpace(value)
	const maxLen = 200
	if len(value) > maxLen {
		value = value[:maxLen] + "…"
	}
	return value
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldTrack, FieldStage, FieldComponent:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	switch key {
	case "", FieldRunID, "args", "pid", "probe_binary", "charset", "temp_dir", "lock_path":
		return true
	}
	return strings.HasPrefix(key, "ffprobe.")
}

func shouldHideInfoValue(key, value string) bool {
	switch key {
	case "error_message", "error", "command", "log_path":
		return false
	}
	return len(value) > 120
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldErrorHint:
		return "Hint"
	case "cue_file":
		return "Cue Sheet"
	case "output_dir":
		return "Output Dir"
	case "log_path":
		return "Log"
	case "size_bytes":
		return "Size"
	case "total_bytes":
		return "Total"
	case "exit_code":
		return "Exit Code"
	default:
		return titleizeKey(key)
	}
}

// titleizeKey turns "output_dir" into "Output Dir".
func titleizeKey(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == '.'
	})
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// infoSummaryKey scopes repeated-field suppression to one component and track.
func infoSummaryKey(component, track string) string {
	component = strings.TrimSpace(component)
	track = strings.TrimSpace(track)
	switch {
	case component == "" && track == "":
		return ""
	case track == "":
		return component
	default:
		return component + "#" + track
	}
}
