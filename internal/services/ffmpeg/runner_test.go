package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/xpol/FFcuesplitter/internal/services"
)

func useHelper(t *testing.T, mode string) *[]string {
	t.Helper()
	var captured []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = append([]string{name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FFMPEG_HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
	return &captured
}

func testInvocation(dir string) Invocation {
	return Invocation{
		Args:     []string{"ffmpeg", "-i", "album.flac", filepath.Join(dir, "01 - One.flac")},
		Duration: 4,
		Track:    1,
		Output:   filepath.Join(dir, "01 - One.flac"),
	}
}

func collect(events *[]Event) func(Event) {
	return func(evt Event) {
		*events = append(*events, evt)
	}
}

func TestRunMissingBinaryIsSpawnError(t *testing.T) {
	dir := t.TempDir()
	runner := NewRunner(Settings{OutputDir: dir, Mode: ModeDetailed})
	inv := testInvocation(dir)
	inv.Args[0] = filepath.Join(dir, "no-such-ffmpeg")

	var events []Event
	err := runner.Run(context.Background(), inv, collect(&events))
	if !errors.Is(err, services.ErrSpawn) {
		t.Fatalf("expected spawn error, got %v", err)
	}
	if errors.Is(err, services.ErrEngineFailure) {
		t.Fatalf("spawn error must not be an engine failure: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no progress events for a job that never started, got %v", events)
	}
}

func TestRunDetailedSuccess(t *testing.T) {
	useHelper(t, "stats")
	dir := t.TempDir()
	runner := NewRunner(Settings{OutputDir: dir, Mode: ModeDetailed})

	var events []Event
	if err := runner.Run(context.Background(), testInvocation(dir), collect(&events)); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if events[0].Kind != EventStart || events[len(events)-1].Kind != EventDone {
		t.Fatalf("unexpected event sequence %v", events)
	}
	positions := 0
	for _, evt := range events {
		if evt.Kind == EventPosition {
			positions++
			if evt.Track != 1 {
				t.Fatalf("expected track number on event, got %d", evt.Track)
			}
		}
	}
	if positions != 2 {
		t.Fatalf("expected 2 position events, got %d", positions)
	}

	data, err := os.ReadFile(runner.Settings().LogPath)
	if err != nil {
		t.Fatalf("read job log: %v", err)
	}
	if !strings.Contains(string(data), "COMMAND: ffmpeg -i album.flac") {
		t.Fatalf("expected command header in job log:\n%s", data)
	}
	if !strings.Contains(string(data), "time=00:00:02.00") {
		t.Fatalf("expected stats lines in job log:\n%s", data)
	}
}

func TestRunDetailedFailureCarriesLogAndExitCode(t *testing.T) {
	useHelper(t, "fail")
	dir := t.TempDir()
	runner := NewRunner(Settings{OutputDir: dir, Mode: ModeDetailed})

	var events []Event
	err := runner.Run(context.Background(), testInvocation(dir), collect(&events))
	if !errors.Is(err, services.ErrEngineFailure) {
		t.Fatalf("expected engine failure, got %v", err)
	}
	var engineErr *services.EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("expected EngineError, got %T", err)
	}
	if engineErr.ExitCode != 2 {
		t.Fatalf("expected exit code 2, got %d", engineErr.ExitCode)
	}
	if engineErr.LogPath != filepath.Join(dir, "ffcuesplitter.log") {
		t.Fatalf("unexpected log path %q", engineErr.LogPath)
	}
	if !strings.Contains(err.Error(), "see log details") {
		t.Fatalf("expected log hint in error, got %q", err.Error())
	}
	last := events[len(events)-1]
	if last.Kind != EventFailed || last.ExitCode != 2 {
		t.Fatalf("expected failed event with exit code, got %+v", last)
	}
}

func TestRunMachineEmitsDeltas(t *testing.T) {
	useHelper(t, "progress")
	dir := t.TempDir()
	runner := NewRunner(Settings{OutputDir: dir, Mode: ModeMachine})

	var deltas []int
	err := runner.Run(context.Background(), testInvocation(dir), func(evt Event) {
		if evt.Kind == EventAdvance {
			deltas = append(deltas, evt.Delta)
		}
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if fmt.Sprint(deltas) != "[1 2 0]" {
		t.Fatalf("unexpected deltas %v", deltas)
	}

	data, err := os.ReadFile(filepath.Join(dir, "ffcuesplitter.log"))
	if err != nil {
		t.Fatalf("read job log: %v", err)
	}
	if !strings.Contains(string(data), "diagnostic on stderr") {
		t.Fatalf("expected stderr captured in job log:\n%s", data)
	}
}

func TestRunStandardFailureIncludesEngineText(t *testing.T) {
	useHelper(t, "fail")
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	runner := NewRunner(Settings{OutputDir: dir, Mode: ModeStandard}, WithPassthrough(&stdout, &stderr))

	err := runner.Run(context.Background(), testInvocation(dir), nil)
	var engineErr *services.EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("expected EngineError, got %v", err)
	}
	if engineErr.ExitCode != 2 {
		t.Fatalf("expected exit code 2, got %d", engineErr.ExitCode)
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Fatalf("expected engine text in error, got %q", err.Error())
	}
	if !strings.Contains(stderr.String(), "Invalid data found") {
		t.Fatalf("expected stderr passthrough, got %q", stderr.String())
	}
	data, err := os.ReadFile(filepath.Join(dir, "ffcuesplitter.log"))
	if err != nil {
		t.Fatalf("read job log: %v", err)
	}
	if strings.TrimSpace(string(data)) != "COMMAND: "+testInvocation(dir).String() {
		t.Fatalf("expected header-only job log, got:\n%s", data)
	}
}

func TestRunDryRunDoesNotSpawn(t *testing.T) {
	captured := useHelper(t, "fail")
	dir := t.TempDir()
	runner := NewRunner(Settings{OutputDir: dir, DryRun: true})

	var events []Event
	if err := runner.Run(context.Background(), testInvocation(dir), collect(&events)); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(*captured) != 0 {
		t.Fatalf("dry run must not start a process, got %v", *captured)
	}
	if len(events) != 1 || events[0].Kind != EventCommand {
		t.Fatalf("expected single command event, got %v", events)
	}
	if !strings.HasPrefix(events[0].Message, "ffmpeg -i album.flac") {
		t.Fatalf("unexpected command text %q", events[0].Message)
	}
	if _, err := os.Stat(filepath.Join(dir, "ffcuesplitter.log")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("dry run should not create a job log, err=%v", err)
	}
}

func TestRunInterruptTerminatesEngine(t *testing.T) {
	useHelper(t, "hang")
	dir := t.TempDir()
	runner := NewRunner(Settings{OutputDir: dir, Mode: ModeDetailed}, WithGracePeriod(2*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx, testInvocation(dir), func(evt Event) {
			if evt.Kind == EventStart {
				close(started)
			}
		})
	}()

	<-started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, services.ErrInterrupted) {
			t.Fatalf("expected interrupted error, got %v", err)
		}
		if errors.Is(err, services.ErrEngineFailure) {
			t.Fatalf("interrupt must not be reported as engine failure: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("runner did not return after cancellation")
	}
}

func TestRunStandardKeepsStderrTail(t *testing.T) {
	useHelper(t, "noisy")
	dir := t.TempDir()
	runner := NewRunner(Settings{OutputDir: dir, Mode: ModeStandard}, WithPassthrough(io.Discard, io.Discard))

	err := runner.Run(context.Background(), testInvocation(dir), nil)
	var engineErr *services.EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("expected engine error, got %v", err)
	}
	if len(engineErr.Detail) > stderrTailBytes {
		t.Fatalf("expected detail bounded to %d bytes, got %d", stderrTailBytes, len(engineErr.Detail))
	}
	if !strings.HasSuffix(engineErr.Detail, "Conversion failed!") {
		t.Fatalf("expected last stderr line in detail, got %q", engineErr.Detail[max(0, len(engineErr.Detail)-40):])
	}
}

type fakeWatch struct{ seen bool }

func (w fakeWatch) Seen() bool { return w.seen }
func (w fakeWatch) Stop()      {}

func useWatch(t *testing.T, seen bool) {
	t.Helper()
	original := watchInterrupts
	watchInterrupts = func() interruptWatch { return fakeWatch{seen: seen} }
	t.Cleanup(func() {
		watchInterrupts = original
	})
}

func TestRunSignalDeathIsInterrupt(t *testing.T) {
	useHelper(t, "sigint")
	useWatch(t, false)
	dir := t.TempDir()
	runner := NewRunner(Settings{OutputDir: dir, Mode: ModeDetailed})

	err := runner.Run(context.Background(), testInvocation(dir), nil)
	if !errors.Is(err, services.ErrInterrupted) {
		t.Fatalf("expected interrupt, got %v", err)
	}
	if errors.Is(err, services.ErrEngineFailure) {
		t.Fatalf("signal death must not be an engine failure: %v", err)
	}
}

func TestRunExit255AfterSignalIsInterrupt(t *testing.T) {
	useHelper(t, "exit255")
	useWatch(t, true)
	dir := t.TempDir()
	runner := NewRunner(Settings{OutputDir: dir, Mode: ModeMachine})

	var events []Event
	err := runner.Run(context.Background(), testInvocation(dir), collect(&events))
	if !errors.Is(err, services.ErrInterrupted) {
		t.Fatalf("expected interrupt, got %v", err)
	}
	if last := events[len(events)-1]; last.Kind != EventFailed || last.Message != "interrupted" {
		t.Fatalf("unexpected final event %+v", last)
	}
}

func TestRunExit255WithoutSignalIsEngineFailure(t *testing.T) {
	useHelper(t, "exit255")
	useWatch(t, false)
	dir := t.TempDir()
	runner := NewRunner(Settings{OutputDir: dir, Mode: ModeDetailed})

	err := runner.Run(context.Background(), testInvocation(dir), nil)
	var engineErr *services.EngineError
	if !errors.As(err, &engineErr) || !errors.Is(err, services.ErrEngineFailure) {
		t.Fatalf("expected engine failure, got %v", err)
	}
	if engineErr.ExitCode != 255 {
		t.Fatalf("expected exit code 255, got %d", engineErr.ExitCode)
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	switch os.Getenv("FFMPEG_HELPER_MODE") {
	case "stats":
		fmt.Fprint(os.Stderr, "size=  10kB time=00:00:01.00 bitrate=1.0kbits/s\r")
		fmt.Fprint(os.Stderr, "size=  20kB time=00:00:02.00 bitrate=1.0kbits/s\n")
		os.Exit(0)
	case "progress":
		fmt.Fprintln(os.Stderr, "diagnostic on stderr")
		fmt.Println("out_time_ms=1000000")
		fmt.Println("progress=continue")
		fmt.Println("out_time_ms=3000000")
		fmt.Println("out_time_ms=2000000")
		fmt.Println("progress=end")
		os.Exit(0)
	case "fail":
		fmt.Fprintln(os.Stderr, "album.flac: Invalid data found when processing input")
		os.Exit(2)
	case "noisy":
		for i := range 400 {
			fmt.Fprintf(os.Stderr, "[flac @ 0x%04x] decoding frame %d of a long diagnostic stream\n", i, i)
		}
		fmt.Fprint(os.Stderr, "Conversion failed!\n")
		os.Exit(1)
	case "exit255":
		fmt.Fprintln(os.Stderr, "Exiting normally, received signal 2.")
		os.Exit(255)
	case "sigint":
		_ = unix.Kill(os.Getpid(), unix.SIGINT)
		time.Sleep(5 * time.Second)
		os.Exit(0)
	case "hang":
		fmt.Fprint(os.Stderr, "size=  10kB time=00:00:01.00 bitrate=1.0kbits/s\r")
		time.Sleep(30 * time.Second)
		os.Exit(0)
	default:
		os.Exit(0)
	}
}
