// Package ui writes envchain's user-facing messages. Warnings and errors are
// styled when the destination is a terminal and plain otherwise.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Console writes command output to Out and diagnostics to Err.
type Console struct {
	Out     io.Writer
	Err     io.Writer
	program string

	warnLabel  lipgloss.Style
	errorLabel lipgloss.Style
}

// NewConsole creates a Console. program prefixes error diagnostics.
func NewConsole(out, errOut io.Writer, program string) *Console {
	r := lipgloss.NewRenderer(errOut)
	return &Console{
		Out:        out,
		Err:        errOut,
		program:    program,
		warnLabel:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
		errorLabel: r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
	}
}

// Warnf reports a soft failure.
func (c *Console) Warnf(format string, args ...any) {
	fmt.Fprintf(c.Err, "%s %s", c.warnLabel.Render("WARNING:"), line(format, args))
}

// Errorf reports a failure that ends the invocation.
func (c *Console) Errorf(format string, args ...any) {
	fmt.Fprintf(c.Err, "%s: %s %s", c.program, c.errorLabel.Render("error:"), line(format, args))
}

// Printf writes command output.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

// Println writes one line of command output.
func (c *Console) Println(s string) {
	fmt.Fprintln(c.Out, s)
}

func line(format string, args []any) string {
	s := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s
}
