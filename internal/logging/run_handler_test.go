package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestRunIDHandler(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(newRunIDHandler(base, "run-123"))
	logger.Info("test message")

	if !strings.Contains(buf.String(), `"run_id":"run-123"`) {
		t.Errorf("expected run_id in output, got: %s", buf.String())
	}
}

func TestRunIDHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(newRunIDHandler(base, "run-abc")).With("extra", "value")
	logger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, `"run_id":"run-abc"`) {
		t.Errorf("expected run_id in output, got: %s", output)
	}
	if !strings.Contains(output, `"extra":"value"`) {
		t.Errorf("expected extra attr in output, got: %s", output)
	}
}

func TestRunIDHandler_ExplicitRunIDWins(t *testing.T) {
	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, nil)
	logger := slog.New(newRunIDHandler(base, "run-default")).With(FieldRunID, "run-explicit")
	logger.Info("test message")

	output := buf.String()
	if strings.Count(output, `"run_id"`) != 1 || !strings.Contains(output, "run-explicit") {
		t.Errorf("expected single explicit run_id, got: %s", output)
	}
}

func TestRunIDHandler_NilBase(t *testing.T) {
	handler := newRunIDHandler(nil, "run-123")
	if handler != slog.DiscardHandler {
		t.Errorf("expected discard handler when base is nil, got: %T", handler)
	}
}
