package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// writerIsTTY returns true if the given writer exposes an Fd() method
// (e.g. *os.File) and that fd is a terminal. Falls back to false for
// plain io.Writer values such as *bytes.Buffer.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// ProgressBar tracks manifests completed during a multi-manifest audit.
// Example: [=========>          ]  2/4 app/build.gradle.kts
//
// It writes to stderr by default so that reports on stdout stay parseable.
// Safe for concurrent use by audit workers.
type ProgressBar struct {
	total   int
	current int
	label   string
	width   int
	mu      sync.Mutex
	writer  io.Writer
}

// NewProgress creates a progress bar for total items.
func NewProgress(total int) *ProgressBar {
	return &ProgressBar{
		total:  total,
		width:  30,
		writer: os.Stderr,
	}
}

// SetWriter sets the output writer (useful for testing).
func (p *ProgressBar) SetWriter(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writer = w
}

// Done marks one item finished, labels the bar with it and redraws.
func (p *ProgressBar) Done(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current < p.total {
		p.current++
	}
	p.label = label
	p.render()
}

// Finish ends the bar's line on a terminal. On other writers the final
// state has already been printed by the last Done.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writerIsTTY(p.writer) {
		fmt.Fprintln(p.writer)
	}
}

// render draws the bar (must be called with lock held).
func (p *ProgressBar) render() {
	filled := 0
	if p.total > 0 {
		filled = (p.current * p.width) / p.total
	}

	var bar strings.Builder
	bar.WriteString("[")
	for i := 0; i < p.width; i++ {
		switch {
		case i < filled-1:
			bar.WriteString("=")
		case i == filled-1:
			bar.WriteString(">")
		default:
			bar.WriteString(" ")
		}
	}
	bar.WriteString("]")

	digits := len(fmt.Sprint(p.total))
	count := fmt.Sprintf("%*d/%d", digits, p.current, p.total)

	if writerIsTTY(p.writer) {
		// Overwrite the line; pad to clear a longer previous label.
		fmt.Fprintf(p.writer, "\r%s %s %-40s", bar.String(), count, truncate(p.label, 40))
		return
	}

	// Non-TTY: one line per completed item is easier to read in CI logs.
	fmt.Fprintf(p.writer, "%s %s %s\n", bar.String(), count, p.label)
}
