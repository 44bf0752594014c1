// Package progress prints a single self-overwriting status line on an
// interactive terminal; when stdout is not a terminal (redirected output,
// CI logs, pipes) no status line is printed. Lines printed with
// Reporter.Line appear in both cases.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

var isTerminal = func(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}(os.Stdout)

// Reporter prints durable lines and, on a terminal, a single redrawn
// progress line updated at most ten times a second.
type Reporter struct {
	out io.Writer

	mu         sync.Mutex
	lastLine   string
	lastRedraw time.Time
}

// New returns a Reporter writing to os.Stdout.
func New() *Reporter {
	return &Reporter{out: os.Stdout}
}

// Line prints a durable line, such as a command's run summary. Lines
// printed this way are never overwritten.
func (r *Reporter) Line(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format+"\n", args...)
}

// Status redraws a single transient progress line on a terminal (throttled
// to 10 updates per second); on a non-terminal it is a no-op, since
// overwriting a line makes no sense in a log file or pipe.
func (r *Reporter) Status(filesScanned uint64, bytesScanned uint64) {
	if !isTerminal {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Since(r.lastRedraw) < 100*time.Millisecond {
		return
	}
	r.lastRedraw = time.Now()
	line := fmt.Sprintf("scanning: %d files, %s", filesScanned, humanize.Bytes(bytesScanned))
	pad := len(r.lastLine) - len(line)
	if pad > 0 {
		line += fmt.Sprintf("%*s", pad, "")
	}
	fmt.Fprintf(r.out, "\r%s", line)
	r.lastLine = line
}

// Done clears the transient status line, if one was drawn.
func (r *Reporter) Done() {
	if !isTerminal {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastLine != "" {
		fmt.Fprintf(r.out, "\r%*s\r", len(r.lastLine), "")
		r.lastLine = ""
	}
}
