package history

import "time"

// Status is the terminal state of one job.
type Status string

const (
	StatusDone        Status = "done"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
	StatusSkipped     Status = "skipped"
)

// Entry is one recorded job outcome.
type Entry struct {
	ID         int64
	RunID      string
	CueSheet   string
	Track      int
	Title      string
	OutputPath string
	Status     Status
	ExitCode   int
	LogPath    string
	Message    string
	SizeBytes  int64
	StartedAt  time.Time
	FinishedAt time.Time
}

// Elapsed returns how long the job ran.
func (e Entry) Elapsed() time.Duration {
	if e.StartedAt.IsZero() || e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}
