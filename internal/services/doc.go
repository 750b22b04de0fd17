// Package services defines shared utilities consumed by the split pipeline and
// the external engine wrappers (ffmpeg, ffprobe).
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and track numbers for logging
//     and tracing.
//   - Structured error markers (spawn failure, engine failure, interruption),
//     the EngineError type that carries log path and exit code context, and the
//     Wrap helper that tags failures for later classification.
//
// Use these helpers when wiring new engine integrations so failure reporting
// stays uniform across the pipeline.
package services
