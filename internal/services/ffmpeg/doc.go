// Package ffmpeg builds ffmpeg invocations for cue sheet tracks and runs them
// while observing progress.
//
// Build turns a cuesheet.Track into the exact argv ffmpeg receives together
// with the duration used to bound progress. Runner executes one Invocation at a
// time under one of three ProgressMode strategies:
//
//   - ModeDetailed reads the -stats diagnostic stream, copies every line to
//     the job log and emits EventPosition updates meant to overwrite the
//     previous display line.
//   - ModeMachine reads `-progress pipe:1` key=value output from stdout while
//     stderr goes straight to the job log, and emits EventAdvance deltas in
//     whole seconds that never go negative.
//   - ModeStandard lets ffmpeg write to the terminal and only waits for it.
//
// Draining is separated from process handling: ScanDetailed and ScanMachine
// work on any io.Reader so captured output can be replayed in tests. Context
// cancellation asks the child to terminate with SIGTERM and reports
// services.ErrInterrupted.
package ffmpeg
