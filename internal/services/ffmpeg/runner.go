package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/armon/circbuf"
	"golang.org/x/sys/unix"

	"github.com/xpol/FFcuesplitter/internal/logging"
	"github.com/xpol/FFcuesplitter/internal/services"
)

const (
	toolName           = "ffmpeg"
	defaultGracePeriod = 5 * time.Second
	stderrTailBytes    = 8 * 1024
)

// ffmpeg exits 255 when it stops on SIGINT or SIGTERM.
const ffmpegInterruptedExit = 255

// commandContext is swapped in tests.
var commandContext = exec.CommandContext

// Option configures the runner.
type Option func(*Runner)

// WithLogger sets the structured logger used for job diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPassthrough sets where the standard strategy forwards the engine's own
// output. Defaults to the process stdout and stderr.
func WithPassthrough(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		if stdout != nil {
			r.stdout = stdout
		}
		if stderr != nil {
			r.stderr = stderr
		}
	}
}

// WithGracePeriod bounds how long an interrupted engine may take to exit after
// SIGTERM before it is killed.
func WithGracePeriod(grace time.Duration) Option {
	return func(r *Runner) {
		if grace > 0 {
			r.grace = grace
		}
	}
}

// Runner executes ffmpeg invocations using the configured progress strategy.
type Runner struct {
	settings Settings
	logger   *slog.Logger
	stdout   io.Writer
	stderr   io.Writer
	grace    time.Duration
}

// NewRunner constructs a runner for settings.
func NewRunner(settings Settings, opts ...Option) *Runner {
	r := &Runner{
		settings: settings.withDefaults(),
		logger:   logging.NewNop(),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		grace:    defaultGracePeriod,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, toolName)
	return r
}

// Settings returns the effective settings after defaults were applied.
func (r *Runner) Settings() Settings {
	return r.settings
}

// Run executes one invocation and blocks until the engine exits. Progress
// events are delivered synchronously on the calling goroutine's behalf; the
// final event is always EventDone or EventFailed for a job that started.
func (r *Runner) Run(ctx context.Context, inv Invocation, progress func(Event)) error {
	emit := func(evt Event) {
		if progress == nil {
			return
		}
		if evt.Track == 0 {
			evt.Track = inv.Track
		}
		progress(evt)
	}

	if r.settings.DryRun {
		emit(Event{Kind: EventCommand, Message: inv.String()})
		return nil
	}
	if len(inv.Args) == 0 {
		return services.Wrap(services.ErrConfiguration, "split", "ffmpeg", "empty invocation", nil)
	}
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrInterrupted, "split", "ffmpeg", fmt.Sprintf("track %d", inv.Track), err)
	}

	logger := logging.WithContext(ctx, r.logger).With(
		logging.Track(inv.Track),
		logging.String("output", inv.Output),
	)
	logger.Debug("ffmpeg command", logging.String("command", inv.String()), logging.String("mode", r.settings.Mode.String()))

	cmd := commandContext(ctx, inv.Args[0], inv.Args[1:]...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(unix.SIGTERM)
	}
	cmd.WaitDelay = r.grace

	watch := watchInterrupts()
	defer watch.Stop()

	var err error
	switch r.settings.Mode {
	case ModeMachine:
		err = r.runMachine(ctx, watch, cmd, inv, logger, emit)
	case ModeStandard:
		err = r.runStandard(ctx, watch, cmd, inv, emit)
	default:
		err = r.runDetailed(ctx, watch, cmd, inv, logger, emit)
	}
	if err != nil {
		logger.Debug("ffmpeg job ended with error", logging.Error(err))
	} else {
		logger.Debug("ffmpeg job completed")
	}
	return err
}

func (r *Runner) runDetailed(ctx context.Context, watch interruptWatch, cmd *exec.Cmd, inv Invocation, logger *slog.Logger, emit func(Event)) error {
	logFile, err := r.openJobLog(inv)
	if err != nil {
		return spawnError(err)
	}
	defer logFile.Close()

	pipe, err := cmd.StderrPipe()
	if err != nil {
		return spawnError(err)
	}
	if err := cmd.Start(); err != nil {
		return spawnError(err)
	}
	emit(Event{Kind: EventStart, Total: inv.Duration})

	sampler := logging.NewProgressSampler(10)
	scanErr := ScanDetailed(pipe, logFile, inv.Duration, func(evt Event) {
		if sampler.ShouldLog(inv.Track, evt.Percent) {
			logger.Debug("ffmpeg progress", logging.Float64("percent", evt.Percent), logging.Float64("position", evt.Seconds))
		}
		emit(evt)
	})
	if scanErr != nil {
		_, _ = io.Copy(io.Discard, pipe)
	}
	return r.finish(ctx, watch, inv, cmd.Wait(), r.settings.LogPath, "", emit)
}

func (r *Runner) runMachine(ctx context.Context, watch interruptWatch, cmd *exec.Cmd, inv Invocation, logger *slog.Logger, emit func(Event)) error {
	logFile, err := r.openJobLog(inv)
	if err != nil {
		return spawnError(err)
	}
	defer logFile.Close()

	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return spawnError(err)
	}
	cmd.Stderr = logFile
	if err := cmd.Start(); err != nil {
		return spawnError(err)
	}
	emit(Event{Kind: EventStart, Total: inv.Duration})

	sampler := logging.NewProgressSampler(10)
	scanErr := ScanMachine(pipe, func(evt Event) {
		evt.Total = inv.Duration
		if inv.Duration > 0 {
			evt.Percent = min(100, evt.Seconds/inv.Duration*100)
		}
		if sampler.ShouldLog(inv.Track, evt.Percent) {
			logger.Debug("ffmpeg progress", logging.Float64("percent", evt.Percent), logging.Int("delta", evt.Delta))
		}
		emit(evt)
	})
	if scanErr != nil {
		_, _ = io.Copy(io.Discard, pipe)
	}
	return r.finish(ctx, watch, inv, cmd.Wait(), r.settings.LogPath, "", emit)
}

func (r *Runner) runStandard(ctx context.Context, watch interruptWatch, cmd *exec.Cmd, inv Invocation, emit func(Event)) error {
	logFile, err := r.openJobLog(inv)
	if err != nil {
		return spawnError(err)
	}
	if err := logFile.Close(); err != nil {
		return spawnError(fmt.Errorf("close job log: %w", err))
	}

	tail, err := circbuf.NewBuffer(stderrTailBytes)
	if err != nil {
		return spawnError(err)
	}
	cmd.Stdout = r.stdout
	cmd.Stderr = io.MultiWriter(r.stderr, tail)
	if err := cmd.Start(); err != nil {
		return spawnError(err)
	}
	emit(Event{Kind: EventStart, Total: inv.Duration})
	waitErr := cmd.Wait()
	return r.finish(ctx, watch, inv, waitErr, r.settings.LogPath, strings.TrimSpace(tail.String()), emit)
}

// finish classifies the single Wait result of a job. A terminal Ctrl-C
// reaches ffmpeg directly, so the engine can exit before ctx is cancelled;
// a SIGINT/SIGTERM death, or ffmpeg's 255 after the process saw a signal,
// counts as an interrupt too.
func (r *Runner) finish(ctx context.Context, watch interruptWatch, inv Invocation, waitErr error, logPath, detail string, emit func(Event)) error {
	if waitErr == nil {
		emit(Event{Kind: EventDone, Total: inv.Duration, Seconds: inv.Duration, Percent: 100})
		return nil
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	cause := ctx.Err()
	if cause == nil && (killedByInterrupt(exitErr) || (exitCode == ffmpegInterruptedExit && watch.Seen())) {
		cause = fmt.Errorf("ffmpeg stopped by signal: %w", waitErr)
	}
	if cause != nil {
		emit(Event{Kind: EventFailed, ExitCode: exitCode, Message: "interrupted"})
		return services.Wrap(services.ErrInterrupted, "split", "ffmpeg", fmt.Sprintf("track %d", inv.Track), cause)
	}

	engineErr := &services.EngineError{
		Tool:     toolName,
		LogPath:  logPath,
		ExitCode: exitCode,
		Detail:   detail,
		Kind:     services.ErrEngineFailure,
		Err:      waitErr,
	}
	emit(Event{Kind: EventFailed, ExitCode: exitCode, LogPath: logPath, Message: engineErr.Error()})
	return engineErr
}

// openJobLog truncates the job log and writes the invocation header. Jobs run
// sequentially, so each job owns the file until the next one reopens it.
func (r *Runner) openJobLog(inv Invocation) (*os.File, error) {
	path := r.settings.LogPath
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open job log: %w", err)
	}
	if _, err := fmt.Fprintf(file, "COMMAND: %s\n\n", inv.String()); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("write job log: %w", err)
	}
	return file, nil
}

func spawnError(err error) error {
	return &services.EngineError{
		Tool:     toolName,
		ExitCode: -1,
		Kind:     services.ErrSpawn,
		Err:      err,
	}
}

// interruptWatch reports whether the process received an interrupt while a
// job was running.
type interruptWatch interface {
	Seen() bool
	Stop()
}

// watchInterrupts is swapped in tests.
var watchInterrupts = func() interruptWatch {
	w := &signalWatch{ch: make(chan os.Signal, 1)}
	signal.Notify(w.ch, os.Interrupt, unix.SIGTERM)
	return w
}

type signalWatch struct {
	ch chan os.Signal
}

func (w *signalWatch) Seen() bool {
	select {
	case <-w.ch:
		return true
	default:
		return false
	}
}

func (w *signalWatch) Stop() {
	signal.Stop(w.ch)
}

func killedByInterrupt(exitErr *exec.ExitError) bool {
	if exitErr == nil {
		return false
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return false
	}
	return status.Signal() == syscall.SIGINT || status.Signal() == syscall.SIGTERM
}
