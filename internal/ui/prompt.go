package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNotTerminal is returned when a prompt needs an interactive terminal.
var ErrNotTerminal = errors.New("stdin is not a terminal")

// Prompter asks the user questions on a terminal.
type Prompter struct {
	in  *os.File
	out io.Writer
}

// NewPrompter creates a prompter reading from in and writing prompts to out.
// Nil values default to os.Stdin and os.Stderr.
func NewPrompter(in *os.File, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &Prompter{in: in, out: out}
}

// Interactive reports whether the prompter can ask questions.
func (p *Prompter) Interactive() bool {
	return IsTerminal(p.in)
}

// Password reads a secret without echoing it.
func (p *Prompter) Password(label string) (string, error) {
	if !p.Interactive() {
		return "", ErrNotTerminal
	}
	_, _ = fmt.Fprint(p.out, WarningTitleStyle.Render(label+": "))
	secret, err := term.ReadPassword(int(p.in.Fd()))
	_, _ = fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(secret), nil
}

// Confirm asks a yes/no question. Anything but y or yes counts as no.
func (p *Prompter) Confirm(question string) (bool, error) {
	if !p.Interactive() {
		return false, ErrNotTerminal
	}
	_, _ = fmt.Fprint(p.out, WarningTitleStyle.Render(question+" [y/N]: "))
	return readYes(p.in)
}

func readYes(r io.Reader) (bool, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
