package splitter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/xpol/FFcuesplitter/internal/cuesheet"
	"github.com/xpol/FFcuesplitter/internal/fileutil"
	"github.com/xpol/FFcuesplitter/internal/history"
	"github.com/xpol/FFcuesplitter/internal/logging"
	"github.com/xpol/FFcuesplitter/internal/media/ffprobe"
	"github.com/xpol/FFcuesplitter/internal/services"
	"github.com/xpol/FFcuesplitter/internal/services/ffmpeg"
)

const (
	lockFileName  = ".ffcuesplitter.lock"
	tempDirPrefix = ".ffcuesplitter-"
	jobLogName    = "ffcuesplitter.log"
)

// Overwrite policies for destination files that already exist.
const (
	OverwriteAsk    = "ask"
	OverwriteNever  = "never"
	OverwriteAlways = "always"
)

// ErrLocked reports another run writing into the same output directory.
var ErrLocked = errors.New("output directory is locked by another run")

// Prompter decides whether an existing destination file may be replaced.
type Prompter interface {
	ConfirmOverwrite(path string) (bool, error)
}

// Recorder persists job outcomes. *history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) (int64, error)
}

// Options describes one split configuration.
type Options struct {
	// Settings are the engine settings. OutputDir is the final destination;
	// jobs write into a temporary directory beneath it.
	Settings ffmpeg.Settings
	// Probe configures the duration lookup for tracks without an end.
	Probe ffprobe.Options
	// Overwrite is one of OverwriteAsk, OverwriteNever or OverwriteAlways.
	Overwrite string
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Splitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProgress sets the callback receiving every runner event.
func WithProgress(fn func(ffmpeg.Event)) Option {
	return func(s *Splitter) {
		s.progress = fn
	}
}

// WithPrompter sets the overwrite prompt used by the "ask" policy.
func WithPrompter(p Prompter) Option {
	return func(s *Splitter) {
		s.prompter = p
	}
}

// WithRecorder enables history recording.
func WithRecorder(r Recorder) Option {
	return func(s *Splitter) {
		s.recorder = r
	}
}

// WithRunnerOptions passes options through to the ffmpeg runner.
func WithRunnerOptions(opts ...ffmpeg.Option) Option {
	return func(s *Splitter) {
		s.runnerOpts = append(s.runnerOpts, opts...)
	}
}

// WithOutput sets where per-track headers and the summary are printed.
func WithOutput(w io.Writer) Option {
	return func(s *Splitter) {
		if w != nil {
			s.out = w
		}
	}
}

// Splitter runs split jobs for parsed cue sheets.
type Splitter struct {
	opts       Options
	logger     *slog.Logger
	progress   func(ffmpeg.Event)
	prompter   Prompter
	recorder   Recorder
	runnerOpts []ffmpeg.Option
	out        io.Writer
}

// New constructs a splitter.
func New(opts Options, options ...Option) *Splitter {
	opts.Overwrite = strings.ToLower(strings.TrimSpace(opts.Overwrite))
	if opts.Overwrite == "" {
		opts.Overwrite = OverwriteAsk
	}
	if opts.Settings.LogPath == "" && opts.Settings.OutputDir != "" {
		opts.Settings.LogPath = filepath.Join(opts.Settings.OutputDir, jobLogName)
	}
	s := &Splitter{
		opts:   opts,
		logger: logging.NewNop(),
		out:    io.Discard,
	}
	for _, option := range options {
		option(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "splitter")
	return s
}

// TrackResult is the outcome of one planned track.
type TrackResult struct {
	Number    int
	Title     string
	Output    string
	Status    history.Status
	SizeBytes int64
	Elapsed   time.Duration
	Err       error
}

// Result summarizes a run.
type Result struct {
	RunID     string
	OutputDir string
	DryRun    bool
	Tracks    []TrackResult
}

// TotalBytes sums the sizes of written tracks.
func (r *Result) TotalBytes() int64 {
	var total int64
	for _, track := range r.Tracks {
		total += track.SizeBytes
	}
	return total
}

// Count returns how many tracks ended with status.
func (r *Result) Count(status history.Status) int {
	n := 0
	for _, track := range r.Tracks {
		if track.Status == status {
			n++
		}
	}
	return n
}

type job struct {
	track cuesheet.Track
	dest  string
	skip  bool
}

// Run splits every track of sheet. The returned result is non-nil whenever
// planning succeeded, including when a job failed.
func (s *Splitter) Run(ctx context.Context, sheet *cuesheet.Sheet) (*Result, error) {
	if sheet == nil || len(sheet.Tracks) == 0 {
		return nil, cuesheet.ErrNoTracks
	}
	outDir := s.opts.Settings.OutputDir
	if strings.TrimSpace(outDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "split", "plan", "output directory not set", nil)
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("split started",
		logging.Event("split_start"),
		logging.String("cue_file", sheet.Path),
		logging.String("output_dir", outDir),
		logging.Int("tracks", len(sheet.Tracks)),
		logging.String("format", s.opts.Settings.Format.Name),
		logging.String("mode", s.opts.Settings.Mode.String()),
	)

	if err := s.fillDurations(services.WithStage(ctx, "probe"), sheet); err != nil {
		return nil, err
	}

	result := &Result{RunID: runID, OutputDir: outDir, DryRun: s.opts.Settings.DryRun}
	if s.opts.Settings.DryRun {
		return result, s.dryRun(ctx, sheet, result)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	lock := flock.New(filepath.Join(outDir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, outDir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release output lock", logging.Error(err))
		}
	}()

	jobs, err := s.plan(sheet)
	if err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp(outDir, tempDirPrefix)
	if err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	settings := s.opts.Settings
	settings.OutputDir = tempDir
	runner := ffmpeg.NewRunner(settings, append([]ffmpeg.Option{ffmpeg.WithLogger(s.logger)}, s.runnerOpts...)...)

	total := len(sheet.Tracks)
	for _, j := range jobs {
		trackCtx := services.WithTrack(services.WithStage(ctx, "split"), j.track.Number)
		if j.skip {
			tr := TrackResult{Number: j.track.Number, Title: j.track.Meta.Title, Output: j.dest, Status: history.StatusSkipped}
			result.Tracks = append(result.Tracks, tr)
			fmt.Fprintf(s.out, "Track %02d/%02d skipped: %s exists\n", j.track.Number, total, filepath.Base(j.dest))
			s.record(trackCtx, sheet, tr, time.Now(), nil)
			continue
		}
		tr, err := s.runJob(trackCtx, runner, settings, sheet, j)
		result.Tracks = append(result.Tracks, tr)
		if err != nil {
			return result, err
		}
	}

	logger.Info("split finished",
		logging.Event("split_complete"),
		logging.Int("succeeded", result.Count(history.StatusDone)),
		logging.Int("skipped", result.Count(history.StatusSkipped)),
		logging.Int64("total_bytes", result.TotalBytes()),
	)
	return result, nil
}

func (s *Splitter) runJob(ctx context.Context, runner *ffmpeg.Runner, settings ffmpeg.Settings, sheet *cuesheet.Sheet, j job) (TrackResult, error) {
	logger := logging.WithContext(ctx, s.logger)
	total := len(sheet.Tracks)
	inv := ffmpeg.Build(settings, j.track, total)
	tr := TrackResult{Number: j.track.Number, Title: j.track.Meta.Title, Output: j.dest}

	fmt.Fprintf(s.out, "Track %02d/%02d: %s\n", j.track.Number, total, filepath.Base(j.dest))
	started := time.Now()
	err := runner.Run(ctx, inv, s.progress)
	if err == nil {
		ctx = services.WithStage(ctx, "move")
		if moveErr := fileutil.MoveFile(inv.Output, j.dest); moveErr != nil {
			err = services.Wrap(services.ErrEngineFailure, "move", "rename", filepath.Base(j.dest), moveErr)
		}
	}
	tr.Elapsed = time.Since(started)
	tr.Status = jobStatus(err)
	tr.Err = err

	if err != nil {
		if tr.Status == history.StatusInterrupted {
			logging.WarnWithContext(logger, "track interrupted", "track_interrupted",
				logging.Impact("remaining tracks were not split"),
				logging.Hint("re-run the split to finish the album"),
			)
		} else {
			logging.ErrorWithContext(logger, "track failed", "track_failed",
				logging.Error(err),
				logging.Hint("inspect the ffmpeg log; the run stopped at this track"),
			)
		}
		s.record(ctx, sheet, tr, started, err)
		return tr, err
	}

	if info, statErr := os.Stat(j.dest); statErr == nil {
		tr.SizeBytes = info.Size()
	}
	logger.Info("track written",
		logging.Event("track_complete"),
		logging.String("output", j.dest),
		logging.Int64("size_bytes", tr.SizeBytes),
		logging.Duration("elapsed", tr.Elapsed),
	)
	s.record(ctx, sheet, tr, started, nil)
	return tr, nil
}

func (s *Splitter) dryRun(ctx context.Context, sheet *cuesheet.Sheet, result *Result) error {
	runner := ffmpeg.NewRunner(s.opts.Settings, append([]ffmpeg.Option{ffmpeg.WithLogger(s.logger)}, s.runnerOpts...)...)
	total := len(sheet.Tracks)
	for _, track := range sheet.Tracks {
		inv := ffmpeg.Build(s.opts.Settings, track, total)
		trackCtx := services.WithTrack(ctx, track.Number)
		if err := runner.Run(trackCtx, inv, s.progress); err != nil {
			return err
		}
		result.Tracks = append(result.Tracks, TrackResult{Number: track.Number, Title: track.Meta.Title, Output: inv.Output})
	}
	return nil
}

// plan resolves destinations and applies the overwrite policy before any job
// runs so a prompt never interrupts a progress display.
func (s *Splitter) plan(sheet *cuesheet.Sheet) ([]job, error) {
	jobs := make([]job, 0, len(sheet.Tracks))
	always := s.opts.Overwrite == OverwriteAlways
	for _, track := range sheet.Tracks {
		dest := filepath.Join(s.opts.Settings.OutputDir, ffmpeg.OutputName(track.Number, track.Meta.Title, s.opts.Settings.Format))
		j := job{track: track, dest: dest}
		if _, err := os.Stat(dest); err == nil && !always {
			switch s.opts.Overwrite {
			case OverwriteNever:
				j.skip = true
			default:
				if s.prompter == nil {
					j.skip = true
					break
				}
				yes, err := s.prompter.ConfirmOverwrite(dest)
				if err != nil {
					return nil, fmt.Errorf("overwrite prompt: %w", err)
				}
				j.skip = !yes
			}
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("inspect destination: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

func (s *Splitter) record(ctx context.Context, sheet *cuesheet.Sheet, tr TrackResult, started time.Time, err error) {
	if s.recorder == nil {
		return
	}
	runID, _ := services.RunIDFromContext(ctx)
	entry := history.Entry{
		RunID:      runID,
		CueSheet:   sheet.Path,
		Track:      tr.Number,
		Title:      tr.Title,
		OutputPath: tr.Output,
		Status:     tr.Status,
		SizeBytes:  tr.SizeBytes,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err != nil {
		entry.Message = err.Error()
		var engineErr *services.EngineError
		if errors.As(err, &engineErr) {
			entry.ExitCode = engineErr.ExitCode
			entry.LogPath = engineErr.LogPath
		}
	}
	if _, recErr := s.recorder.Record(context.WithoutCancel(ctx), entry); recErr != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "failed to record job history", "history_write_failed",
			logging.Error(recErr),
			logging.Impact("history will miss this track"),
			logging.Hint("check that the history database is writable"),
		)
	}
}

// jobStatus maps a job error to the history status recorded for it.
func jobStatus(err error) history.Status {
	switch {
	case err == nil:
		return history.StatusDone
	case errors.Is(err, services.ErrInterrupted):
		return history.StatusInterrupted
	default:
		return history.StatusFailed
	}
}
