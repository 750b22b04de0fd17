package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/xpol/FFcuesplitter/internal/deps"
	"github.com/xpol/FFcuesplitter/internal/media/ffprobe"
)

var probeWriters = []string{"default", "json", "xml", "csv", "compact", "flat", "ini"}

// streamColumns are the stream entries shown in the report table.
var streamColumns = []string{"index", "codec_type", "codec_name", "sample_rate", "channels", "channel_layout", "duration"}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var (
		writer   string
		selected string
		entries  string
		noPretty bool
	)

	cmd := &cobra.Command{
		Use:   "probe <media-file>",
		Short: "Show ffprobe information for a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts := ffprobe.DefaultOptions()
			opts.Binary = deps.ResolveFFprobe(cfg.FFmpeg.Binary, cfg.FFprobe.Binary)
			opts.Pretty = !noPretty

			out := cmd.OutOrStdout()
			custom := cmd.Flags().Changed("writer") || cmd.Flags().Changed("select") || cmd.Flags().Changed("entries")
			if !custom {
				report, err := ffprobe.Inspect(cmd.Context(), opts, args[0])
				if err != nil {
					return err
				}
				renderProbeReport(out, args[0], report)
				return nil
			}

			writer = strings.ToLower(strings.TrimSpace(writer))
			if writer != "" && !slices.Contains(probeWriters, writer) {
				return fmt.Errorf("unsupported writer %q (want one of %s)", writer, strings.Join(probeWriters, ", "))
			}
			opts.Writer = writer
			opts.Select = selected
			opts.Entries = entries
			if strings.TrimSpace(entries) != "" {
				opts.ShowFormat = false
				opts.ShowStreams = false
			}
			raw, err := ffprobe.Custom(cmd.Context(), opts, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(out, raw)
			if raw != "" && !strings.HasSuffix(raw, "\n") {
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&writer, "writer", "", "Raw output writer: "+strings.Join(probeWriters, ", "))
	cmd.Flags().StringVar(&selected, "select", "", "Stream specifier passed to -select_streams (e.g. a:0)")
	cmd.Flags().StringVar(&entries, "entries", "", "Entries passed to -show_entries (e.g. format=duration)")
	cmd.Flags().BoolVar(&noPretty, "no-pretty", false, "Print raw values instead of human-readable units")
	return cmd
}

func renderProbeReport(w io.Writer, path string, report ffprobe.Report) {
	fmt.Fprintln(w, path)

	if len(report.Streams) > 0 {
		rows := make([][]string, 0, len(report.Streams))
		for _, stream := range report.Streams {
			row := make([]string, len(streamColumns))
			for i, key := range streamColumns {
				row[i] = stream.Get(key)
			}
			rows = append(rows, row)
		}
		fmt.Fprintln(w, renderTable(streamColumns, rows, []columnAlignment{alignRight}))
	} else {
		fmt.Fprintln(w, "No streams reported.")
	}

	format := report.FormatRecord()
	if len(format) == 0 {
		return
	}
	keys := make([]string, 0, len(format))
	for key := range format {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	rows := make([][]string, 0, len(keys)+2)
	for _, key := range keys {
		rows = append(rows, []string{key, format[key]})
	}
	if size := report.SizeBytes(); size > 0 {
		rows = append(rows, []string{"size (bytes)", humanize.Comma(size)})
	}
	if seconds := report.DurationSeconds(); seconds > 0 {
		rows = append(rows, []string{"duration (s)", strconv.FormatFloat(seconds, 'f', 3, 64)})
	}
	fmt.Fprintln(w, renderTable([]string{"format", "value"}, rows, nil))
}
