package cuesheet

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decode returns the sheet text as UTF-8 along with the detected source charset.
func decode(data []byte) (string, string, error) {
	encoding := "utf-8"
	var fallback transform.Transformer = unicode.UTF8.NewDecoder()
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		encoding = "utf-16"
	case !utf8.Valid(data):
		encoding = "windows-1252"
		fallback = charmap.Windows1252.NewDecoder()
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(fallback), data)
	if err != nil {
		return "", "", fmt.Errorf("decode cue sheet (%s): %w", encoding, err)
	}
	return string(out), encoding, nil
}
