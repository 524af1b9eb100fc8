package errors

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Printer writes diagnostics to an error stream, one line each. It is safe
// for concurrent use so workers can report without interleaving lines.
type Printer struct {
	out      io.Writer
	color    bool
	location *color.Color
	severity *color.Color
	mu       sync.Mutex
}

// NewPrinter creates a printer writing to out. Colour is used only when
// useColor is set, out is a terminal and NO_COLOR is unset.
func NewPrinter(out io.Writer, useColor bool) *Printer {
	return newPrinter(out, useColor && colorSupported(out))
}

func newPrinter(out io.Writer, enabled bool) *Printer {
	p := &Printer{
		out:      out,
		color:    enabled,
		location: color.New(color.Bold),
		severity: color.New(color.FgRed, color.Bold),
	}
	// The package-wide color.NoColor reflects stdout, not out.
	if enabled {
		p.location.EnableColor()
		p.severity.EnableColor()
	}
	return p
}

// colorSupported reports whether out is a terminal that accepts escapes.
func colorSupported(out io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok || os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Print writes err as a single line.
func (p *Printer) Print(err error) {
	if err == nil {
		return
	}

	line := p.format(err)

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, line)
}

func (p *Printer) format(err error) string {
	msg := strings.ReplaceAll(err.Error(), "\n", " ")

	var se *SemtexError
	if !p.color || !errors.As(err, &se) || se.FilePath == "" {
		return msg
	}

	location := se.FilePath
	if se.Line > 0 {
		location = fmt.Sprintf("%s:%d", se.FilePath, se.Line)
	}
	rest := strings.TrimPrefix(msg, location+": ")

	return p.location.Sprint(location+":") + " " + p.severity.Sprint("error:") + " " + rest
}
