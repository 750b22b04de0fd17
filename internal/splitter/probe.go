package splitter

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/xpol/FFcuesplitter/internal/cuesheet"
	"github.com/xpol/FFcuesplitter/internal/logging"
	"github.com/xpol/FFcuesplitter/internal/media/ffprobe"
	"github.com/xpol/FFcuesplitter/internal/services"
)

const maxConcurrentProbes = 4

// fillDurations probes every source file holding an open-ended track and
// stores the remaining length on those tracks.
func (s *Splitter) fillDurations(ctx context.Context, sheet *cuesheet.Sheet) error {
	files := sheet.OpenEndedFiles()
	if len(files) == 0 {
		return nil
	}

	durations := make([]float64, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)
	for i, file := range files {
		g.Go(func() error {
			report, err := ffprobe.Inspect(gctx, s.opts.Probe, file)
			if err != nil {
				return fmt.Errorf("probe %s: %w", file, err)
			}
			seconds := report.DurationSeconds()
			if math.IsNaN(seconds) || seconds <= 0 {
				return services.Wrap(services.ErrEngineFailure, "probe", "ffprobe", "no usable duration for "+file, nil)
			}
			durations[i] = seconds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger := logging.WithContext(ctx, s.logger)
	for i, file := range files {
		sheet.SetDuration(file, durations[i])
		logger.Debug("source duration", logging.String("source", file), logging.Float64("duration_seconds", durations[i]))
	}
	return nil
}
