package splitter

import (
	"fmt"
	"testing"

	"github.com/xpol/FFcuesplitter/internal/history"
	"github.com/xpol/FFcuesplitter/internal/services"
)

func TestJobStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want history.Status
	}{
		{"success", nil, history.StatusDone},
		{"interrupt", services.Wrap(services.ErrInterrupted, "ffmpeg", "run", "", nil), history.StatusInterrupted},
		{"wrapped interrupt", fmt.Errorf("track 2: %w", services.ErrInterrupted), history.StatusInterrupted},
		{"engine failure", &services.EngineError{Tool: "ffmpeg", ExitCode: 1, Kind: services.ErrEngineFailure}, history.StatusFailed},
	}
	for _, tt := range tests {
		if got := jobStatus(tt.err); got != tt.want {
			t.Fatalf("%s: jobStatus = %s, want %s", tt.name, got, tt.want)
		}
	}
}
