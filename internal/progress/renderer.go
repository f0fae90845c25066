package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
)

const (
	defaultWidth = 80
	minBar       = 20
	maxBar       = 60
	// "  [bar] 100%  0:00" minus the bar itself
	barChrome = 16
)

// BarRenderer shows generation progress. On a TTY it redraws a status line
// and a bar in place; elsewhere it prints one line per stage.
type BarRenderer struct {
	out   io.Writer
	start time.Time
	isTTY bool
	width int

	last      Event
	lastStage Stage
	drawn     int // lines currently on screen (TTY only)
}

// NewBarRenderer creates a renderer for out, detecting TTY mode and width.
func NewBarRenderer(out *os.File) *BarRenderer {
	fd := out.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)

	width := defaultWidth
	if tty {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
	}
	return newBarRenderer(out, tty, width)
}

// NewPlainRenderer creates a renderer that always prints single lines.
func NewPlainRenderer(out io.Writer) *BarRenderer {
	return newBarRenderer(out, false, defaultWidth)
}

func newBarRenderer(out io.Writer, tty bool, width int) *BarRenderer {
	return &BarRenderer{out: out, start: time.Now(), isTTY: tty, width: width}
}

// Handle processes a progress event. It satisfies the Callback type.
func (r *BarRenderer) Handle(e Event) {
	e.Elapsed = time.Since(r.start)
	if e.Stage == StageComplete {
		e.Percent = 1
	}
	// later events may omit the character; keep showing it
	if e.Character == "" {
		e.Character = r.last.Character
	}
	r.last = e

	if !r.isTTY {
		if e.Stage != r.lastStage {
			r.lastStage = e.Stage
			fmt.Fprintf(r.out, "[%s] %s\n", formatElapsed(e.Elapsed), statusLine(e))
		}
		return
	}

	r.erase()
	fmt.Fprintf(r.out, "  %s\n  %s %3d%%  %s",
		statusLine(e), renderBar(e.Percent, r.barWidth()), int(e.Percent*100), formatElapsed(e.Elapsed))
	r.drawn = 2
}

// Finish clears the progress display and prints a summary of the last event.
func (r *BarRenderer) Finish() {
	r.erase()

	e := r.last
	switch {
	case e.Error != nil:
		fmt.Fprintf(r.out, "\n  Error: %v\n", e.Error)
	case e.Stage != StageComplete:
	case e.OutputFile != "":
		fmt.Fprintf(r.out, "\n  Dialogue saved to %s (%s)\n", e.OutputFile, formatElapsed(e.Elapsed))
	default:
		fmt.Fprintf(r.out, "\n  %s (%s)\n", e.Message, formatElapsed(e.Elapsed))
	}
}

// statusLine renders "<character> | <message> -> <file>", omitting empty parts.
func statusLine(e Event) string {
	var b strings.Builder
	if e.Character != "" {
		b.WriteString(e.Character)
		b.WriteString(" | ")
	}
	b.WriteString(e.Message)
	if e.OutputFile != "" {
		b.WriteString(" -> ")
		b.WriteString(filepath.Base(e.OutputFile))
	}
	return b.String()
}

// erase moves the cursor back over the lines drawn by the last event.
func (r *BarRenderer) erase() {
	if !r.isTTY || r.drawn == 0 {
		return
	}
	fmt.Fprint(r.out, "\r\033[2K"+strings.Repeat("\033[A\033[2K", r.drawn-1)+"\r")
	r.drawn = 0
}

func (r *BarRenderer) barWidth() int {
	return min(max(r.width-barChrome, minBar), maxBar)
}

// renderBar draws a [####....] bar of the given width.
func renderBar(pct float64, width int) string {
	pct = min(max(pct, 0), 1)
	filled := min(int(pct*float64(width)), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// formatElapsed formats a duration as M:SS.
func formatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
