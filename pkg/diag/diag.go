// Package diag implements the compiler's diagnostic accounting: a per-Bag
// error counter, red/yellow-tagged messages, and the CheckErrors barrier
// the pipeline calls between stages.
package diag

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Bag accumulates diagnostics and tracks the monotonically increasing error
// count that gates pipeline progression. The count belongs to the Bag, not
// to the process: the compiler pipeline creates one Bag per source file.
type Bag struct {
	out        io.Writer
	errorCount uint
	errs       []string
	warns      []string
	colorize   bool
}

// NewBag creates a diagnostic bag writing to w. Colorization is enabled only
// when w is a real terminal, matching the teacher pack's isatty-gated color
// usage.
func NewBag(w io.Writer) *Bag {
	colorize := false
	if f, ok := w.(*os.File); ok {
		colorize = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Bag{out: w, colorize: colorize}
}

// Errorf records a red-tagged error at line, incrementing the error count.
func (b *Bag) Errorf(line uint, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	full := fmt.Sprintf("%s [line %d]", msg, line)
	b.errorCount++
	b.errs = append(b.errs, full)

	tag := "ERROR:"
	if b.colorize {
		tag = color.New(color.FgRed, color.Bold).Sprint("ERROR:")
	}
	fmt.Fprintf(b.out, "%s %s\n", tag, full)
}

// Warnf records a yellow-tagged warning at line. Warnings never count
// towards the error total and never block a pipeline stage.
func (b *Bag) Warnf(line uint, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	full := fmt.Sprintf("%s [line %d]", msg, line)
	b.warns = append(b.warns, full)

	tag := "WARNING:"
	if b.colorize {
		tag = color.New(color.FgYellow, color.Bold).Sprint("WARNING:")
	}
	fmt.Fprintf(b.out, "%s %s\n", tag, full)
}

// ErrorCount returns the number of errors recorded so far.
func (b *Bag) ErrorCount() uint {
	return b.errorCount
}

// CheckErrors is the pipeline barrier: it reports whether compilation
// should continue past the current stage.
func (b *Bag) CheckErrors() error {
	if b.errorCount > 0 {
		return fmt.Errorf("compilation halted: %d error(s) reported", b.errorCount)
	}
	return nil
}

// Errors returns every recorded error message, in report order.
func (b *Bag) Errors() []string { return b.errs }

// Warnings returns every recorded warning message, in report order.
func (b *Bag) Warnings() []string { return b.warns }
