package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/harrison/filepair/internal/logger"
)

// consoleMonitor renders engine progress as an in-place ASCII bar when
// stdout is a terminal, and stays quiet otherwise so piped output remains
// clean. It implements engine.Monitor.
type consoleMonitor struct {
	out         io.Writer
	log         *logger.ConsoleLogger
	bar         *logger.ProgressBar
	interactive bool
	mu          sync.Mutex
	rendered    bool
}

func newConsoleMonitor(out io.Writer, log *logger.ConsoleLogger) *consoleMonitor {
	interactive := false
	if f, ok := out.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &consoleMonitor{
		out:         out,
		log:         log,
		bar:         logger.NewProgressBar(0, 30, interactive),
		interactive: interactive,
	}
}

// FileCounts logs the scanned directory sizes before matching starts.
func (m *consoleMonitor) FileCounts(sourceCount, targetCount int) {
	m.log.LogInfo(fmt.Sprintf("found %d source file(s), %d target file(s)", sourceCount, targetCount))
}

// Progress redraws the bar in place. Totals reset between phases, so the
// bar is cleared rather than assumed monotonic.
func (m *consoleMonitor) Progress(completed, total int) {
	if !m.interactive {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.bar.Set(completed, total)
	fmt.Fprintf(m.out, "\r\033[K%s", m.bar.Render())
	m.rendered = true
}

// Finish terminates the progress line so subsequent output starts clean.
func (m *consoleMonitor) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rendered {
		fmt.Fprintln(m.out)
		m.rendered = false
	}
}
