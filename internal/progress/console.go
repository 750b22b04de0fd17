package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/xpol/FFcuesplitter/internal/services/ffmpeg"
)

const lineIndent = "    "

// Option configures a Console.
type Option func(*Console)

// WithInteractive overrides terminal detection.
func WithInteractive(interactive bool) Option {
	return func(c *Console) {
		c.interactive = interactive
	}
}

// Console turns runner events into terminal output. It is safe for use by
// one job at a time; events of the next job reset its state.
type Console struct {
	mu          sync.Mutex
	w           io.Writer
	mode        ffmpeg.ProgressMode
	interactive bool

	bar      *progressbar.ProgressBar
	lineLen  int
	lastLine string
}

// NewConsole returns a renderer writing to w for jobs run in mode.
func NewConsole(w io.Writer, mode ffmpeg.ProgressMode, opts ...Option) *Console {
	if w == nil {
		w = os.Stdout
	}
	c := &Console{w: w, mode: mode, interactive: IsTerminal(w)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle renders one event. Its signature matches the runner's progress callback.
func (c *Console) Handle(evt ffmpeg.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch evt.Kind {
	case ffmpeg.EventCommand:
		fmt.Fprintln(c.w, evt.Message)
	case ffmpeg.EventStart:
		c.reset()
		if c.mode == ffmpeg.ModeMachine {
			c.bar = c.newBar(evt.Track, evt.Total)
		}
	case ffmpeg.EventPosition:
		c.writeLine(evt.Message)
	case ffmpeg.EventAdvance:
		if c.bar != nil && evt.Delta > 0 {
			_ = c.bar.Add(evt.Delta)
		}
	case ffmpeg.EventDone:
		if c.bar != nil {
			_ = c.bar.Finish()
			fmt.Fprintln(c.w)
		}
		c.endLine()
		c.reset()
	case ffmpeg.EventFailed:
		if c.bar != nil {
			_ = c.bar.Exit()
			fmt.Fprintln(c.w)
		}
		c.endLine()
		c.reset()
	}
}

func (c *Console) newBar(track int, total float64) *progressbar.ProgressBar {
	maxSeconds := int64(total + 0.5)
	if maxSeconds <= 0 {
		maxSeconds = -1
	}
	return progressbar.NewOptions64(maxSeconds,
		progressbar.OptionSetWriter(c.w),
		progressbar.OptionSetDescription(fmt.Sprintf("Track %02d", track)),
		progressbar.OptionSetItsString("s"),
		progressbar.OptionShowIts(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionUseANSICodes(c.interactive),
		progressbar.OptionEnableColorCodes(c.interactive),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// writeLine rewrites the detailed status line. Without a terminal only the
// final line of a job is printed.
func (c *Console) writeLine(msg string) {
	c.lastLine = msg
	if !c.interactive {
		return
	}
	line := lineIndent + msg
	pad := ""
	if n := c.lineLen - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(c.w, "\r%s%s", line, pad)
	c.lineLen = len(line)
}

func (c *Console) endLine() {
	switch {
	case c.interactive && c.lineLen > 0:
		fmt.Fprintln(c.w)
	case !c.interactive && c.lastLine != "":
		fmt.Fprintln(c.w, lineIndent+c.lastLine)
	}
}

func (c *Console) reset() {
	c.bar = nil
	c.lineLen = 0
	c.lastLine = ""
}

// IsTerminal reports whether w is a terminal file descriptor.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
