package splitter_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/xpol/FFcuesplitter/internal/config"
	"github.com/xpol/FFcuesplitter/internal/cuesheet"
	"github.com/xpol/FFcuesplitter/internal/history"
	"github.com/xpol/FFcuesplitter/internal/media/ffprobe"
	"github.com/xpol/FFcuesplitter/internal/services"
	"github.com/xpol/FFcuesplitter/internal/services/ffmpeg"
	"github.com/xpol/FFcuesplitter/internal/splitter"
	"github.com/xpol/FFcuesplitter/internal/testsupport"
)

type memoryRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (m *memoryRecorder) Record(_ context.Context, entry history.Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return int64(len(m.entries)), nil
}

type scriptedPrompter struct {
	answer bool
	asked  []string
}

func (p *scriptedPrompter) ConfirmOverwrite(path string) (bool, error) {
	p.asked = append(p.asked, path)
	return p.answer, nil
}

type fixture struct {
	cfg    *config.Config
	sheet  *cuesheet.Sheet
	outDir string
}

func newFixture(t *testing.T, ffmpegBody string, titles ...string) fixture {
	t.Helper()
	return newConfiguredFixture(t, []testsupport.ConfigOption{testsupport.WithFakeFFmpeg(ffmpegBody)}, titles...)
}

func newConfiguredFixture(t *testing.T, opts []testsupport.ConfigOption, titles ...string) fixture {
	t.Helper()
	opts = append(opts, testsupport.WithFakeFFprobe(testsupport.FakeFFprobe(180)))
	cfg := testsupport.NewConfig(t, opts...)
	cuePath := testsupport.WriteCueSheet(t, filepath.Join(testsupport.BaseDir(cfg), "album"), titles...)
	sheet, err := cuesheet.Load(cuePath)
	if err != nil {
		t.Fatalf("load cue sheet: %v", err)
	}
	return fixture{cfg: cfg, sheet: sheet, outDir: cfg.Paths.OutputDir}
}

func (f fixture) options(overwrite string) splitter.Options {
	probe := ffprobe.DefaultOptions()
	probe.Binary = f.cfg.FFprobe.Binary
	return splitter.Options{
		Settings:  f.cfg.FFmpegSettings(f.outDir),
		Probe:     probe,
		Overwrite: overwrite,
	}
}

func TestRunSplitsEveryTrack(t *testing.T) {
	f := newFixture(t, testsupport.FakeFFmpeg, "Intro", "Outro")
	rec := &memoryRecorder{}
	var events []ffmpeg.EventKind

	s := splitter.New(f.options(splitter.OverwriteAlways),
		splitter.WithRecorder(rec),
		splitter.WithProgress(func(evt ffmpeg.Event) { events = append(events, evt.Kind) }),
	)
	result, err := s.Run(context.Background(), f.sheet)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for _, name := range []string{"01 - Intro.flac", "02 - Outro.flac"} {
		data, err := os.ReadFile(filepath.Join(f.outDir, name))
		if err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
		if string(data) != "audio" {
			t.Fatalf("unexpected content in %s: %q", name, data)
		}
	}
	if got := f.sheet.Tracks[1].Duration; got != 120 {
		t.Fatalf("expected probed duration 120 for the last track, got %v", got)
	}
	if leftovers, _ := filepath.Glob(filepath.Join(f.outDir, ".ffcuesplitter-*")); len(leftovers) != 0 {
		t.Fatalf("expected work directory removed, found %v", leftovers)
	}
	logData, err := os.ReadFile(filepath.Join(f.outDir, "ffcuesplitter.log"))
	if err != nil {
		t.Fatalf("read job log: %v", err)
	}
	if !strings.HasPrefix(string(logData), "COMMAND: ") || !strings.Contains(string(logData), "TRACK=2/2") {
		t.Fatalf("expected job log of the last track, got %q", logData)
	}

	if result.Count(history.StatusDone) != 2 || result.TotalBytes() != 10 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(rec.entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(rec.entries))
	}
	for _, entry := range rec.entries {
		if entry.RunID != result.RunID || entry.Status != history.StatusDone {
			t.Fatalf("unexpected history entry %+v", entry)
		}
	}
	if events[0] != ffmpeg.EventStart || events[len(events)-1] != ffmpeg.EventDone {
		t.Fatalf("unexpected event sequence %v", events)
	}
}

func TestRunAbortsOnFirstFailure(t *testing.T) {
	body := `case "$*" in *TRACK=2/*) echo "Invalid data found" >&2; exit 1;; esac
` + testsupport.FakeFFmpeg
	f := newFixture(t, body, "One", "Two", "Three")
	rec := &memoryRecorder{}

	result, err := splitter.New(f.options(splitter.OverwriteAlways), splitter.WithRecorder(rec)).Run(context.Background(), f.sheet)
	if err == nil {
		t.Fatal("expected failure")
	}
	var engineErr *services.EngineError
	if !errors.As(err, &engineErr) || !errors.Is(err, services.ErrEngineFailure) {
		t.Fatalf("expected engine failure, got %v", err)
	}
	if engineErr.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", engineErr.ExitCode)
	}
	if len(result.Tracks) != 2 {
		t.Fatalf("expected the run to stop after track 2, got %d results", len(result.Tracks))
	}
	if _, err := os.Stat(filepath.Join(f.outDir, "01 - One.flac")); err != nil {
		t.Fatalf("expected first track kept: %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.outDir, "03 - Three.flac")); !os.IsNotExist(err) {
		t.Fatalf("third track must not run, stat err=%v", err)
	}
	logData, _ := os.ReadFile(engineErr.LogPath)
	if !strings.Contains(string(logData), "Invalid data found") {
		t.Fatalf("expected failing job diagnostics in log, got %q", logData)
	}
	last := rec.entries[len(rec.entries)-1]
	if last.Status != history.StatusFailed || last.ExitCode != 1 || last.LogPath == "" {
		t.Fatalf("unexpected failure entry %+v", last)
	}
}

func TestRunRecordsIntoHistoryStore(t *testing.T) {
	f := newFixture(t, testsupport.FakeFFmpeg, "Intro", "Outro")
	store := testsupport.MustOpenHistory(t, f.cfg)

	result, err := splitter.New(f.options(splitter.OverwriteAlways), splitter.WithRecorder(store)).Run(context.Background(), f.sheet)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	entries, err := store.ByRun(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("ByRun: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 stored entries, got %d", len(entries))
	}
	if entries[1].Track != 2 || entries[1].Title != "Outro" || entries[1].SizeBytes != 5 {
		t.Fatalf("unexpected stored entry %+v", entries[1])
	}
	if entries[0].CueSheet != f.sheet.Path || entries[0].Elapsed() < 0 {
		t.Fatalf("unexpected stored entry %+v", entries[0])
	}
}

func TestRunOverwritePolicies(t *testing.T) {
	cases := []struct {
		name      string
		policy    string
		answer    bool
		wantData  string
		wantState history.Status
		wantAsked bool
	}{
		{name: "never", policy: splitter.OverwriteNever, wantData: "old", wantState: history.StatusSkipped},
		{name: "always", policy: splitter.OverwriteAlways, wantData: "audio", wantState: history.StatusDone},
		{name: "ask declined", policy: splitter.OverwriteAsk, answer: false, wantData: "old", wantState: history.StatusSkipped, wantAsked: true},
		{name: "ask accepted", policy: splitter.OverwriteAsk, answer: true, wantData: "audio", wantState: history.StatusDone, wantAsked: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, testsupport.FakeFFmpeg, "Intro")
			existing := filepath.Join(f.outDir, "01 - Intro.flac")
			if err := os.MkdirAll(f.outDir, 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(existing, []byte("old"), 0o644); err != nil {
				t.Fatal(err)
			}
			prompter := &scriptedPrompter{answer: tc.answer}

			result, err := splitter.New(f.options(tc.policy), splitter.WithPrompter(prompter)).Run(context.Background(), f.sheet)
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			data, _ := os.ReadFile(existing)
			if string(data) != tc.wantData {
				t.Fatalf("expected %q, got %q", tc.wantData, data)
			}
			if result.Tracks[0].Status != tc.wantState {
				t.Fatalf("expected status %s, got %s", tc.wantState, result.Tracks[0].Status)
			}
			if asked := len(prompter.asked) > 0; asked != tc.wantAsked {
				t.Fatalf("prompted=%v, want %v", asked, tc.wantAsked)
			}
		})
	}
}

func TestDryRunTouchesNothing(t *testing.T) {
	f := newConfiguredFixture(t, []testsupport.ConfigOption{
		testsupport.WithFakeFFmpeg("exit 9\n"),
		testsupport.WithDryRun(),
	}, "Intro", "Outro")
	var commands []string

	s := splitter.New(f.options(splitter.OverwriteAlways),
		splitter.WithProgress(func(evt ffmpeg.Event) {
			if evt.Kind == ffmpeg.EventCommand {
				commands = append(commands, evt.Message)
			}
		}),
	)
	result, err := s.Run(context.Background(), f.sheet)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !result.DryRun || len(commands) != 2 {
		t.Fatalf("expected two dry-run commands, got %v", commands)
	}
	if !strings.Contains(commands[1], "02 - Outro.flac") {
		t.Fatalf("expected final destination in command, got %q", commands[1])
	}
	if _, err := os.Stat(f.outDir); !os.IsNotExist(err) {
		t.Fatalf("dry run must not create the output directory, stat err=%v", err)
	}
}

func TestRunRejectsLockedOutputDir(t *testing.T) {
	f := newFixture(t, testsupport.FakeFFmpeg, "Intro")
	if err := os.MkdirAll(f.outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	held := flock.New(filepath.Join(f.outDir, ".ffcuesplitter.lock"))
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("take lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	_, err = splitter.New(f.options(splitter.OverwriteAlways)).Run(context.Background(), f.sheet)
	if !errors.Is(err, splitter.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunProbeFailureStopsBeforeJobs(t *testing.T) {
	f := newFixture(t, testsupport.FakeFFmpeg, "Intro")
	f.cfg.FFprobe.Binary = testsupport.WriteScript(t, filepath.Join(t.TempDir(), "ffprobe"), "echo 'album.flac: Invalid data' >&2\nexit 1\n")

	_, err := splitter.New(f.options(splitter.OverwriteAlways)).Run(context.Background(), f.sheet)
	if !errors.Is(err, services.ErrEngineFailure) {
		t.Fatalf("expected probe failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid data") {
		t.Fatalf("expected ffprobe stderr in error, got %v", err)
	}
	if _, err := os.Stat(f.outDir); !os.IsNotExist(err) {
		t.Fatalf("output directory must not be created, stat err=%v", err)
	}
}

func TestRunInterrupted(t *testing.T) {
	f := newFixture(t, "exec sleep 30\n", "Long", "Never")
	rec := &memoryRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := splitter.New(f.options(splitter.OverwriteAlways),
		splitter.WithRecorder(rec),
		splitter.WithRunnerOptions(ffmpeg.WithGracePeriod(2*time.Second)),
		splitter.WithProgress(func(evt ffmpeg.Event) {
			if evt.Kind == ffmpeg.EventStart {
				cancel()
			}
		}),
	)

	start := time.Now()
	result, err := s.Run(ctx, f.sheet)
	if !errors.Is(err, services.ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Fatal("interrupt took too long")
	}
	if len(result.Tracks) != 1 || result.Tracks[0].Status != history.StatusInterrupted {
		t.Fatalf("unexpected result %+v", result.Tracks)
	}
	if len(rec.entries) != 1 || rec.entries[0].Status != history.StatusInterrupted {
		t.Fatalf("expected interrupted history entry, got %+v", rec.entries)
	}
}

func TestRunRejectsEmptySheet(t *testing.T) {
	_, err := splitter.New(splitter.Options{}).Run(context.Background(), &cuesheet.Sheet{})
	if !errors.Is(err, cuesheet.ErrNoTracks) {
		t.Fatalf("expected ErrNoTracks, got %v", err)
	}
}
