package logging

import (
	"context"
	"errors"
	"log/slog"
)

// fileCopyHandler sends every record to the console handler and mirrors it
// to the log file handler. Each side filters by its own level, so the file
// can keep debug records the console hides.
type fileCopyHandler struct {
	console slog.Handler
	file    slog.Handler
}

func newFileCopyHandler(console, file slog.Handler) slog.Handler {
	switch {
	case console == nil && file == nil:
		return slog.DiscardHandler
	case file == nil:
		return console
	case console == nil:
		return file
	}
	return &fileCopyHandler{console: console, file: file}
}

func (h *fileCopyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.file.Enabled(ctx, level)
}

func (h *fileCopyHandler) Handle(ctx context.Context, record slog.Record) error {
	var consoleErr, fileErr error
	if h.console.Enabled(ctx, record.Level) {
		consoleErr = h.console.Handle(ctx, record.Clone())
	}
	if h.file.Enabled(ctx, record.Level) {
		fileErr = h.file.Handle(ctx, record)
	}
	return errors.Join(consoleErr, fileErr)
}

func (h *fileCopyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &fileCopyHandler{console: h.console.WithAttrs(attrs), file: h.file.WithAttrs(attrs)}
}

func (h *fileCopyHandler) WithGroup(name string) slog.Handler {
	return &fileCopyHandler{console: h.console.WithGroup(name), file: h.file.WithGroup(name)}
}
