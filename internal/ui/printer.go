package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	prefix      = "[negma]"
	errorPrefix = "[negma error]"
	warnPrefix  = "[negma warning]"
)

// Printer writes operator-facing messages. Progress goes to out; warnings,
// errors and hints go to errOut.
type Printer struct {
	out      io.Writer
	errOut   io.Writer
	theme    Theme
	useColor bool
}

func NewPrinter(out, errOut io.Writer, theme Theme, useColor bool) *Printer {
	return &Printer{out: out, errOut: errOut, theme: theme, useColor: useColor}
}

// NewStdPrinter prints to stdout and stderr, styled only when stdout is a terminal.
func NewStdPrinter() *Printer {
	return NewPrinter(os.Stdout, os.Stderr, DefaultTheme(), IsTerminal(os.Stdout))
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Info prints a progress message: "[negma] Applying home-manager switch..."
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintf(p.out, "%s %s\n", p.style(prefix, p.theme.Prefix), fmt.Sprintf(format, args...))
}

// InfoDetail prints a progress message with a muted detail, usually a path or command.
func (p *Printer) InfoDetail(msg, detail string) {
	fmt.Fprintf(p.out, "%s %s %s\n", p.style(prefix, p.theme.Prefix), msg, p.style(detail, p.theme.Muted))
}

func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintf(p.out, "%s %s\n", p.style(prefix, p.theme.Prefix), p.style(fmt.Sprintf(format, args...), p.theme.Success))
}

func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintf(p.errOut, "%s %s\n", p.style(warnPrefix, p.theme.Warn), fmt.Sprintf(format, args...))
}

// Error prints err's first line as the title and any further lines as details.
func (p *Printer) Error(err error) {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	fmt.Fprintf(p.errOut, "%s %s\n", p.style(errorPrefix, p.theme.Error), lines[0])
	for _, d := range lines[1:] {
		if strings.TrimSpace(d) == "" {
			continue
		}
		fmt.Fprintf(p.errOut, "%s %s\n", p.style("↳", p.theme.Error), p.style(d, p.theme.Muted))
	}
}

func (p *Printer) Hint(format string, args ...any) {
	fmt.Fprintf(p.errOut, "%s %s\n", p.style("hint:", p.theme.Hint), fmt.Sprintf(format, args...))
}

func (p *Printer) Header(text string) {
	fmt.Fprintln(p.out, p.style(text, p.theme.Header))
}

// Line prints text unstyled.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Muted renders text in the muted style without printing it.
func (p *Printer) Muted(text string) string {
	return p.style(text, p.theme.Muted)
}

// Highlight renders text in the success style without printing it.
func (p *Printer) Highlight(text string) string {
	return p.style(text, p.theme.Success)
}

func (p *Printer) style(text string, s lipgloss.Style) string {
	if !p.useColor {
		return text
	}
	return s.Render(text)
}
