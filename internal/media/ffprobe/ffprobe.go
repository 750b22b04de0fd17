package ffprobe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/xpol/FFcuesplitter/internal/services"
)

const toolName = "ffprobe"

// commandContext is swapped in tests.
var commandContext = exec.CommandContext

// Options controls the ffprobe invocation.
type Options struct {
	Binary      string
	Pretty      bool
	Select      string // -select_streams, custom mode only
	Entries     string // -show_entries, custom mode only
	ShowFormat  bool
	ShowStreams bool
	Writer      string // -of, custom mode only; empty means "default"
}

// DefaultOptions returns the report-mode options: human-readable values with
// both format and stream sections.
func DefaultOptions() Options {
	return Options{
		Binary:      toolName,
		Pretty:      true,
		ShowFormat:  true,
		ShowStreams: true,
	}
}

func (o Options) binary() string {
	if b := strings.TrimSpace(o.Binary); b != "" {
		return b
	}
	return toolName
}

// ReportArgs returns the argv (without the binary) for report mode.
func ReportArgs(opts Options, path string) []string {
	args := []string{"-i", path, "-v", "error"}
	if opts.Pretty {
		args = append(args, "-pretty")
	}
	if opts.ShowFormat {
		args = append(args, "-show_format")
	}
	if opts.ShowStreams {
		args = append(args, "-show_streams")
	}
	return append(args, "-print_format", "default")
}

// CustomArgs returns the argv (without the binary) for custom-writer mode.
func CustomArgs(opts Options, path string) []string {
	args := []string{"-i", path, "-v", "error"}
	if opts.Pretty {
		args = append(args, "-pretty")
	}
	if s := strings.TrimSpace(opts.Select); s != "" {
		args = append(args, "-select_streams", s)
	}
	if e := strings.TrimSpace(opts.Entries); e != "" {
		args = append(args, "-show_entries", e)
	}
	if opts.ShowFormat {
		args = append(args, "-show_format")
	}
	if opts.ShowStreams {
		args = append(args, "-show_streams")
	}
	writer := strings.TrimSpace(opts.Writer)
	if writer == "" {
		writer = "default"
	}
	return append(args, "-of", writer)
}

// Inspect executes ffprobe against path in report mode and parses the result.
// Select, Entries and Writer are ignored.
func Inspect(ctx context.Context, opts Options, path string) (Report, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Report{}, errors.New("ffprobe inspect: empty path")
	}
	out, err := run(ctx, opts.binary(), ReportArgs(opts, path))
	if err != nil {
		return Report{}, err
	}
	report, err := Parse(out)
	if err != nil {
		return Report{}, fmt.Errorf("ffprobe parse %s: %w", path, err)
	}
	return report, nil
}

// Custom executes ffprobe with the caller's writer, selection and entries and
// returns stdout unmodified.
func Custom(ctx context.Context, opts Options, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("ffprobe custom: empty path")
	}
	return run(ctx, opts.binary(), CustomArgs(opts, path))
}

func run(ctx context.Context, binary string, args []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrInterrupted, "probe", toolName, "", err)
	}
	var stdout, stderr bytes.Buffer
	cmd := commandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", &services.EngineError{Tool: toolName, ExitCode: -1, Kind: services.ErrSpawn, Err: err}
	}
	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", services.Wrap(services.ErrInterrupted, "probe", toolName, "", ctxErr)
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return "", &services.EngineError{
			Tool:     toolName,
			ExitCode: exitCode,
			Detail:   stderr.String(),
			Kind:     services.ErrEngineFailure,
			Err:      err,
		}
	}
	return stdout.String(), nil
}
