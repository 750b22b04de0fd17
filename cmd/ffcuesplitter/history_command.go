package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/xpol/FFcuesplitter/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded split jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "History is disabled in the configuration.")
				return nil
			}
			store, err := history.Open(cfg.Paths.HistoryDB)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			var entries []history.Entry
			if id := strings.TrimSpace(runID); id != "" {
				entries, err = store.ByRun(cmd.Context(), id)
			} else {
				entries, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No jobs recorded.")
				return nil
			}
			fmt.Fprintln(out, renderHistory(entries, time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of recent jobs to show")
	cmd.Flags().StringVar(&runID, "run", "", "Show every job of one run id")
	return cmd
}

func renderHistory(entries []history.Entry, now time.Time) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		size := "-"
		if e.SizeBytes > 0 {
			size = humanize.IBytes(uint64(e.SizeBytes))
		}
		when := "-"
		if !e.FinishedAt.IsZero() {
			when = humanize.RelTime(e.FinishedAt, now, "ago", "from now")
		}
		detail := filepath.Base(e.OutputPath)
		if e.Status == history.StatusFailed || e.Status == history.StatusInterrupted {
			detail = e.Message
		}
		rows = append(rows, []string{
			shortRunID(e.RunID),
			filepath.Base(e.CueSheet),
			strconv.Itoa(e.Track),
			string(e.Status),
			size,
			when,
			detail,
		})
	}
	return renderTable(
		[]string{"Run", "CUE", "#", "Status", "Size", "Finished", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight},
	)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
