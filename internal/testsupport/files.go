package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FakeFFmpeg writes a line of stats to stderr and "audio" into its last
// argument, the output file.
const FakeFFmpeg = `for last; do :; done
echo "size=       1kB time=00:00:01.00 bitrate= 8.0kbits/s speed=10x" >&2
printf 'audio' > "$last"
`

// FakeFFprobe returns a script printing a default-writer report whose format
// section carries duration seconds.
func FakeFFprobe(duration float64) string {
	return fmt.Sprintf(`cat <<'REPORT'
[STREAM]
index=0
codec_name=flac
codec_type=audio
[/STREAM]
[FORMAT]
format_name=flac
duration=%f
[/FORMAT]
REPORT
`, duration)
}

// WriteScript writes an executable /bin/sh script and returns its path.
func WriteScript(t testing.TB, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
	return path
}

// WriteCueSheet writes a sheet for album.flac in dir with one track per title,
// each starting a minute after the previous, and returns its path.
func WriteCueSheet(t testing.TB, dir string, titles ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("REM GENRE Rock\nREM DATE 1999\nPERFORMER \"Band\"\nTITLE \"Album\"\nFILE \"album.flac\" WAVE\n")
	for i, title := range titles {
		fmt.Fprintf(&b, "  TRACK %02d AUDIO\n    TITLE %q\n    INDEX 01 %02d:00:00\n", i+1, title, i)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, "album.cue")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write cue sheet: %v", err)
	}
	WriteFile(t, filepath.Join(dir, "album.flac"), 64)
	return path
}

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(strings.Repeat("B", int(size))), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
