package preflight

import (
	"github.com/xpol/FFcuesplitter/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem checks for a run writing into outputDir.
func RunAll(cfg *config.Config, outputDir string) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckOutputTarget("Output directory", outputDir)}
	results = append(results, CheckOutputTarget("Log directory", cfg.Paths.LogDir))
	if cfg.History.Enabled {
		results = append(results, CheckOutputTarget("History directory", parentDir(cfg.Paths.HistoryDB)))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
