package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/xpol/FFcuesplitter/internal/config"
	"github.com/xpol/FFcuesplitter/internal/cuesheet"
	"github.com/xpol/FFcuesplitter/internal/deps"
	"github.com/xpol/FFcuesplitter/internal/history"
	"github.com/xpol/FFcuesplitter/internal/media/ffprobe"
	"github.com/xpol/FFcuesplitter/internal/preflight"
	"github.com/xpol/FFcuesplitter/internal/progress"
	"github.com/xpol/FFcuesplitter/internal/services/ffmpeg"
	"github.com/xpol/FFcuesplitter/internal/splitter"
)

type splitFlags struct {
	input         string
	format        string
	outputDir     string
	overwrite     string
	ffmpegBinary  string
	ffmpegLevel   string
	ffmpegParams  string
	ffprobeBinary string
	progressMeter string
	dryRun        bool
	noHistory     bool
}

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var flags splitFlags

	cmd := &cobra.Command{
		Use:   "split [cue-file]",
		Short: "Split the audio image described by a CUE sheet into tracks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cuePath := strings.TrimSpace(flags.input)
			if len(args) == 1 {
				if cuePath != "" && cuePath != args[0] {
					return errors.New("cue file given both as argument and --input")
				}
				cuePath = args[0]
			}
			if cuePath == "" {
				return errors.New("a cue file is required (argument or --input)")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applySplitFlags(cmd, cfg, flags); err != nil {
				return err
			}
			return runSplit(cmd, ctx, cfg, cuePath, flags.noHistory)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.input, "input", "i", "", "CUE sheet to split")
	f.StringVarP(&flags.format, "format", "f", "", "Output format: wav, flac, ogg or mp3")
	f.StringVarP(&flags.outputDir, "output-dir", "o", "", "Directory receiving the tracks (default: next to the CUE sheet)")
	f.StringVar(&flags.overwrite, "overwrite", "", "Existing files: ask, never or always")
	f.StringVar(&flags.ffmpegBinary, "ffmpeg-binary", "", "ffmpeg executable")
	f.StringVar(&flags.ffmpegLevel, "ffmpeg-loglevel", "", "ffmpeg -loglevel value")
	f.StringVar(&flags.ffmpegParams, "ffmpeg-add-params", "", "Extra ffmpeg parameters inserted before the output file")
	f.StringVar(&flags.ffprobeBinary, "ffprobe-binary", "", "ffprobe executable")
	f.StringVarP(&flags.progressMeter, "progress-meter", "p", "", "Progress display: detailed, machine or standard")
	f.BoolVar(&flags.dryRun, "dry", false, "Print the ffmpeg commands without running them")
	f.BoolVar(&flags.noHistory, "no-history", false, "Do not record job outcomes")

	return cmd
}

// applySplitFlags overrides configured values with explicitly set flags and
// re-validates the result.
func applySplitFlags(cmd *cobra.Command, cfg *config.Config, flags splitFlags) error {
	changed := cmd.Flags().Changed
	if changed("format") {
		cfg.FFmpeg.Format = strings.ToLower(strings.TrimSpace(flags.format))
	}
	if changed("output-dir") {
		dir, err := config.ExpandPath(strings.TrimSpace(flags.outputDir))
		if err != nil {
			return fmt.Errorf("--output-dir: %w", err)
		}
		cfg.Paths.OutputDir = dir
	}
	if changed("overwrite") {
		cfg.Split.Overwrite = strings.ToLower(strings.TrimSpace(flags.overwrite))
	}
	if changed("ffmpeg-binary") {
		cfg.FFmpeg.Binary = strings.TrimSpace(flags.ffmpegBinary)
	}
	if changed("ffmpeg-loglevel") {
		cfg.FFmpeg.LogLevel = strings.ToLower(strings.TrimSpace(flags.ffmpegLevel))
	}
	if changed("ffmpeg-add-params") {
		cfg.FFmpeg.AddParams = flags.ffmpegParams
	}
	if changed("ffprobe-binary") {
		cfg.FFprobe.Binary = strings.TrimSpace(flags.ffprobeBinary)
	}
	if changed("progress-meter") {
		cfg.FFmpeg.ProgressMeter = strings.ToLower(strings.TrimSpace(flags.progressMeter))
	}
	if changed("dry") {
		cfg.Split.DryRun = flags.dryRun
	}
	return cfg.Validate()
}

func runSplit(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, cuePath string, noHistory bool) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	sheet, err := cuesheet.Load(cuePath)
	if err != nil {
		return err
	}
	outDir := cfg.OutputDirFor(cuePath)
	settings := cfg.FFmpegSettings(outDir)

	if !settings.DryRun {
		if err := checkSplitReady(cfg, outDir); err != nil {
			return err
		}
	}

	logger, err := ctx.loggerFor(cmd)
	if err != nil {
		return err
	}

	probe := ffprobe.DefaultOptions()
	probe.Binary = deps.ResolveFFprobe(cfg.FFmpeg.Binary, cfg.FFprobe.Binary)

	console := progress.NewConsole(out, settings.Mode)
	options := []splitter.Option{
		splitter.WithLogger(logger),
		splitter.WithProgress(console.Handle),
		splitter.WithPrompter(newLinePrompter(cmd.InOrStdin(), out)),
		splitter.WithRunnerOptions(ffmpeg.WithLogger(logger), ffmpeg.WithPassthrough(out, errOut)),
		splitter.WithOutput(out),
	}
	if cfg.History.Enabled && !noHistory && !settings.DryRun {
		store, err := history.Open(cfg.Paths.HistoryDB)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		options = append(options, splitter.WithRecorder(store))
	}

	s := splitter.New(splitter.Options{
		Settings:  settings,
		Probe:     probe,
		Overwrite: cfg.Split.Overwrite,
	}, options...)

	fmt.Fprintf(out, "Splitting %s (%d tracks, %s)\n", filepath.Base(sheet.Path), len(sheet.Tracks), settings.Format.Name)
	result, runErr := s.Run(cmd.Context(), sheet)
	if result != nil {
		printSplitResult(out, result, settings, shouldColorize(out))
	}
	return runErr
}

func checkSplitReady(cfg *config.Config, outDir string) error {
	if missing := deps.Missing(preflight.CheckSystemDeps(cfg)); len(missing) > 0 {
		return fmt.Errorf("%s unavailable: %s", missing[0].Name, missing[0].Detail)
	}
	if failed := preflight.Failed(preflight.RunAll(cfg, outDir)); len(failed) > 0 {
		parts := make([]string, 0, len(failed))
		for _, r := range failed {
			parts = append(parts, r.Name+": "+r.Detail)
		}
		return fmt.Errorf("preflight failed: %s", strings.Join(parts, "; "))
	}
	return nil
}

func printSplitResult(w io.Writer, result *splitter.Result, settings ffmpeg.Settings, colorize bool) {
	if result.DryRun {
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderTrackPlan(result))
		fmt.Fprintln(w, paint(styleFor(statusInfo).attr, fmt.Sprintf("Dry run: %d commands, nothing written", len(result.Tracks)), colorize))
		return
	}
	if len(result.Tracks) == 0 {
		return
	}

	rows := make([][]string, 0, len(result.Tracks))
	var elapsed time.Duration
	for _, tr := range result.Tracks {
		size := "-"
		if tr.SizeBytes > 0 {
			size = humanize.IBytes(uint64(tr.SizeBytes))
		}
		took := "-"
		if tr.Elapsed > 0 {
			took = tr.Elapsed.Round(time.Millisecond).String()
			elapsed += tr.Elapsed
		}
		rows = append(rows, []string{
			fmt.Sprintf("%02d", tr.Number),
			tr.Title,
			filepath.Base(tr.Output),
			string(tr.Status),
			size,
			took,
		})
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderTable(
		[]string{"#", "Title", "File", "Status", "Size", "Elapsed"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))

	done := result.Count(history.StatusDone)
	skipped := result.Count(history.StatusSkipped)
	failed := result.Count(history.StatusFailed) + result.Count(history.StatusInterrupted)
	summary := fmt.Sprintf("%d written, %d skipped, %s in %s", done, skipped,
		humanize.IBytes(uint64(result.TotalBytes())), result.OutputDir)
	kind := statusOK
	if failed > 0 {
		kind = statusError
		summary = fmt.Sprintf("%s; stopped after a failure, see %s", summary, settings.LogPath)
	}
	if elapsed > 0 {
		summary += " (" + elapsed.Round(time.Second).String() + ")"
	}
	fmt.Fprintln(w, paint(styleFor(kind).attr, summary, colorize))
}

func renderTrackPlan(result *splitter.Result) string {
	rows := make([][]string, 0, len(result.Tracks))
	for _, tr := range result.Tracks {
		rows = append(rows, []string{strconv.Itoa(tr.Number), tr.Title, tr.Output})
	}
	return renderTable([]string{"#", "Title", "Output"}, rows, []columnAlignment{alignRight})
}

func shouldColorize(w io.Writer) bool {
	return progress.IsTerminal(w)
}
