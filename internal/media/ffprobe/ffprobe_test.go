package ffprobe_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/xpol/FFcuesplitter/internal/media/ffprobe"
	"github.com/xpol/FFcuesplitter/internal/services"
)

func writeStub(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffprobe")
	script := []byte("#!/bin/sh\n" + body + "\n")
	if err := os.WriteFile(path, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestReportArgs(t *testing.T) {
	got := ffprobe.ReportArgs(ffprobe.DefaultOptions(), "/music/a b.flac")
	want := []string{"-i", "/music/a b.flac", "-v", "error", "-pretty", "-show_format", "-show_streams", "-print_format", "default"}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected report args %v", got)
	}

	got = ffprobe.ReportArgs(ffprobe.Options{ShowFormat: true}, "x.wav")
	want = []string{"-i", "x.wav", "-v", "error", "-show_format", "-print_format", "default"}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected minimal report args %v", got)
	}
}

func TestCustomArgs(t *testing.T) {
	opts := ffprobe.Options{Select: "a:0", Entries: "stream=codec_type", Writer: "compact=nk=1:p=0"}
	got := ffprobe.CustomArgs(opts, "x.flac")
	want := []string{"-i", "x.flac", "-v", "error", "-select_streams", "a:0", "-show_entries", "stream=codec_type", "-of", "compact=nk=1:p=0"}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected custom args %v", got)
	}
	if got := ffprobe.CustomArgs(ffprobe.Options{}, "x.flac"); got[len(got)-1] != "default" {
		t.Fatalf("expected default writer, got %v", got)
	}
}

func TestInspectParsesStubOutput(t *testing.T) {
	body := "cat <<'EOF'\n" + sampleReport + "EOF"
	opts := ffprobe.DefaultOptions()
	opts.Binary = writeStub(t, body)

	report, err := ffprobe.Inspect(context.Background(), opts, "/music/album.flac")
	if err != nil {
		t.Fatalf("Inspect returned error: %v", err)
	}
	if report.AudioStreamCount() != 1 {
		t.Fatalf("expected 1 audio stream, got %d", report.AudioStreamCount())
	}
}

func TestInspectFailureCarriesStderr(t *testing.T) {
	opts := ffprobe.DefaultOptions()
	opts.Binary = writeStub(t, "echo \"$2: No such file or directory\" >&2\nexit 1")

	_, err := ffprobe.Inspect(context.Background(), opts, "/music/missing.flac")
	if !errors.Is(err, services.ErrEngineFailure) {
		t.Fatalf("expected engine failure, got %v", err)
	}
	var engineErr *services.EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("expected EngineError, got %T", err)
	}
	if engineErr.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", engineErr.ExitCode)
	}
	if !strings.Contains(err.Error(), "/music/missing.flac: No such file or directory") {
		t.Fatalf("expected diagnostic text in error, got %q", err.Error())
	}
}

func TestInspectMissingBinary(t *testing.T) {
	opts := ffprobe.DefaultOptions()
	opts.Binary = filepath.Join(t.TempDir(), "missing-ffprobe")
	_, err := ffprobe.Inspect(context.Background(), opts, "/music/album.flac")
	if !errors.Is(err, services.ErrSpawn) {
		t.Fatalf("expected spawn error, got %v", err)
	}
}

func TestInspectRejectsEmptyPath(t *testing.T) {
	if _, err := ffprobe.Inspect(context.Background(), ffprobe.DefaultOptions(), "  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestCustomReturnsRawOutput(t *testing.T) {
	opts := ffprobe.Options{Writer: "json", ShowFormat: true}
	opts.Binary = writeStub(t, "for arg in \"$@\"; do echo \"$arg\"; done")

	out, err := ffprobe.Custom(context.Background(), opts, "x.flac")
	if err != nil {
		t.Fatalf("Custom returned error: %v", err)
	}
	want := strings.Join([]string{"-i", "x.flac", "-v", "error", "-show_format", "-of", "json"}, "\n") + "\n"
	if out != want {
		t.Fatalf("unexpected raw output %q", out)
	}
}
