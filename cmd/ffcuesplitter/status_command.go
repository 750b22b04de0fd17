package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xpol/FFcuesplitter/internal/deps"
	"github.com/xpol/FFcuesplitter/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check engine binaries and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			target := strings.TrimSpace(outputDir)
			if target == "" {
				target = cfg.Paths.OutputDir
			}

			var lines []string
			lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
			problems := 0
			for _, status := range preflight.CheckSystemDeps(cfg) {
				kind, msg := depStatus(status)
				if kind == statusError {
					problems++
				}
				lines = append(lines, renderStatusLine(status.Name, kind, msg, colorize))
			}
			sidecar := deps.CheckFFprobeForFFmpeg(cfg.FFmpeg.Binary)
			sidecarKind, sidecarMsg := depStatus(sidecar)
			if sidecarKind == statusError {
				sidecarKind = statusWarn
			}
			lines = append(lines, renderStatusLine("FFprobe for FFmpeg", sidecarKind, sidecarMsg, colorize))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Directories", colorize)...)
			if target == "" {
				lines = append(lines, renderStatusLine("Output directory", statusInfo, "next to each CUE sheet", colorize))
			}
			for _, result := range preflight.RunAll(cfg, target) {
				if target == "" && result.Name == "Output directory" {
					continue
				}
				kind := statusOK
				if !result.Passed {
					kind = statusError
					problems++
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			lines = append(lines,
				renderStatusLine("Config", statusInfo, ctx.configLabel(), colorize),
				renderStatusLine("Format", statusInfo, cfg.FFmpeg.Format, colorize),
				renderStatusLine("Progress meter", statusInfo, cfg.FFmpeg.ProgressMeter, colorize),
				renderStatusLine("Overwrite", statusInfo, cfg.Split.Overwrite, colorize),
			)

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			if problems > 0 {
				return fmt.Errorf("%d check(s) failed", problems)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Check this output directory instead of the configured one")
	return cmd
}

func depStatus(status deps.Status) (statusKind, string) {
	if status.Available {
		return statusOK, status.Location()
	}
	if status.Optional {
		return statusWarn, status.Detail
	}
	return statusError, status.Detail
}
