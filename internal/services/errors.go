package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSpawn marks failures to start an engine binary (missing or not executable).
	ErrSpawn = errors.New("engine spawn error")
	// ErrEngineFailure marks an engine that ran and exited with a non-zero status.
	ErrEngineFailure = errors.New("engine failure")
	// ErrInterrupted marks user-requested cancellation. It is not a fault.
	ErrInterrupted = errors.New("interrupted")
	// ErrConfiguration marks invalid settings detected before any engine runs.
	ErrConfiguration = errors.New("configuration error")
)

// EngineError describes a failed engine invocation with enough context to
// diagnose it without re-running: the job log path, the exit code, or the
// engine's own diagnostic text.
type EngineError struct {
	Tool     string
	LogPath  string
	ExitCode int
	Detail   string
	Kind     error
	Err      error
}

func (e *EngineError) Error() string {
	if e == nil {
		return ""
	}
	tool := e.Tool
	if tool == "" {
		tool = "engine"
	}
	if errors.Is(e.Kind, ErrSpawn) {
		if e.Err != nil {
			return fmt.Sprintf("%s: cannot start: %v", tool, e.Err)
		}
		return fmt.Sprintf("%s: cannot start", tool)
	}
	var b strings.Builder
	b.WriteString(tool)
	b.WriteString(" FAILED")
	if e.LogPath != "" {
		fmt.Fprintf(&b, ": see log details: '%s'", e.LogPath)
	}
	if detail := strings.TrimSpace(e.Detail); detail != "" {
		b.WriteString(": ")
		b.WriteString(detail)
	}
	fmt.Fprintf(&b, " (exit status %d)", e.ExitCode)
	return b.String()
}

// Unwrap exposes both the failure marker and the underlying cause to
// errors.Is / errors.As.
func (e *EngineError) Unwrap() []error {
	if e == nil {
		return nil
	}
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrEngineFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
