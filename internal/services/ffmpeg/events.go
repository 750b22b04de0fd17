package ffmpeg

// EventKind identifies a progress event.
type EventKind int

const (
	// EventCommand carries the would-be command line in dry-run mode.
	EventCommand EventKind = iota
	// EventStart is emitted once the process is running; Total holds the track duration.
	EventStart
	// EventPosition is a detailed-meter update that replaces the previous display line.
	EventPosition
	// EventAdvance is a machine-progress increment of Delta whole seconds.
	EventAdvance
	// EventDone marks a successful job.
	EventDone
	// EventFailed marks a failed or interrupted job so displays can close.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventStart:
		return "start"
	case EventPosition:
		return "position"
	case EventAdvance:
		return "advance"
	case EventDone:
		return "done"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event reports incremental progress or the terminal outcome of one job.
type Event struct {
	Kind     EventKind
	Track    int
	Total    float64
	Seconds  float64
	Percent  float64
	Delta    int
	Message  string
	ExitCode int
	LogPath  string
}
