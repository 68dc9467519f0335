// Package output formats CLI command results: status lines with icons
// and an in-place progress bar for long-running index operations. Write
// errors are ignored throughout; console output is best-effort.
package output

import (
	"fmt"
	"io"
	"strings"
)

const progressBarWidth = 30

// Writer prints formatted command output.
type Writer struct {
	out io.Writer
}

// New returns a Writer targeting out.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Status prints one line prefixed by icon (three-space padded if empty).
func (w *Writer) Status(icon, msg string) {
	if icon == "" {
		icon = "  "
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
}

// Statusf is Status with fmt formatting.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a checkmarked line.
func (w *Writer) Success(msg string) { w.Status("✅", msg) }

// Successf is Success with fmt formatting.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning line.
func (w *Writer) Warning(msg string) { w.Status("⚠️ ", msg) }

// Warningf is Warning with fmt formatting.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error line.
func (w *Writer) Error(msg string) { w.Status("❌", msg) }

// Errorf is Error with fmt formatting.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Progress redraws an in-place progress bar. The line is terminated once
// current reaches total; interrupted runs should call ProgressDone.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		return
	}
	filled := current * progressBarWidth / total
	if filled > progressBarWidth {
		filled = progressBarWidth
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)
	_, _ = fmt.Fprintf(w.out, "\r[%s] %d%% %s", bar, current*100/total, msg)
	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

// ProgressDone terminates an in-progress bar line.
func (w *Writer) ProgressDone() {
	_, _ = fmt.Fprintln(w.out)
}
