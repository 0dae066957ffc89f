// Package prompt reads secret values interactively.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/benaskins/envchain/internal/secure"
)

// ErrNotTerminal is returned when hidden input is requested but stdin is not
// a terminal.
var ErrNotTerminal = errors.New("--noecho (-n) requires stdin to be a terminal")

// Prompter asks for one value per call. Plain prompts print "LABEL: "; hidden
// prompts print "LABEL (noecho):" and disable echo.
type Prompter struct {
	in  io.Reader
	out io.Writer
	fd  int
	tty bool
	buf *bufio.Reader
}

// New creates a Prompter reading from in. Line editing and hidden input are
// available when in is a terminal.
func New(in *os.File, out io.Writer) *Prompter {
	fd := int(in.Fd())
	return &Prompter{
		in:  in,
		out: out,
		fd:  fd,
		tty: term.IsTerminal(fd),
		buf: bufio.NewReader(in),
	}
}

// NewReader creates a Prompter over a non-terminal reader.
func NewReader(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out, fd: -1, buf: bufio.NewReader(in)}
}

// Ask prompts for label and returns the entered line without its newline.
// End of input before any character is io.EOF.
func (p *Prompter) Ask(label string, noecho bool) (*secure.Secret, error) {
	if noecho {
		return p.askHidden(label)
	}
	if p.tty {
		return p.askTerminal(label)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	return p.readLine()
}

func (p *Prompter) askHidden(label string) (*secure.Secret, error) {
	if !p.tty {
		return nil, ErrNotTerminal
	}
	fmt.Fprintf(p.out, "%s (noecho):", label)
	line, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		secure.Wipe(line)
		return nil, fmt.Errorf("read %s: %w", label, err)
	}
	return secure.New(line), nil
}

func (p *Prompter) askTerminal(label string) (*secure.Secret, error) {
	state, err := term.MakeRaw(p.fd)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", label, err)
	}
	defer term.Restore(p.fd, state)

	t := newLineEditor(struct {
		io.Reader
		io.Writer
	}{p.in, p.out}, label+": ")
	line, err := t.ReadLine()
	if err != nil {
		return nil, err
	}
	return secure.FromString(line), nil
}

// noHistory keeps entered values out of the line editor's recall buffer.
type noHistory struct{}

func (noHistory) Add(string)    {}
func (noHistory) Len() int      { return 0 }
func (noHistory) At(int) string { panic("prompt: empty history") }

func newLineEditor(rw io.ReadWriter, prompt string) *term.Terminal {
	t := term.NewTerminal(rw, prompt)
	t.History = noHistory{}
	return t
}

// readLine reads through the shared buffer so consecutive prompts never lose
// input that was read ahead.
func (p *Prompter) readLine() (*secure.Secret, error) {
	line, err := p.buf.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		secure.Wipe(line)
		return nil, err
	}
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
		if n > 0 && line[n-1] == '\r' {
			n--
		}
	}
	s := secure.New(line[:n])
	secure.Wipe(line)
	return s, nil
}
