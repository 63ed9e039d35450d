package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes UI components to a writer.
type Printer struct {
	out   io.Writer
	width int
	live  bool // out is a terminal, so drawings can be replaced
	drawn int  // lines of the last progress drawing
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	f, ok := w.(*os.File)
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
		live:  ok && IsTerminal(f),
	}
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Printf writes formatted content
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// Muted prints a secondary line
func (p *Printer) Muted(content string) {
	p.Println(MutedStyle.Render(content))
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params ...Param) {
	p.Println(NewHeader(title, command, params...).SetWidth(p.width).Render())
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details ...Param) {
	p.Println(NewSuccessResult(title, details...).SetWidth(p.width).Render())
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details ...Param) {
	p.Println(NewWarningResult(title, details...).SetWidth(p.width).Render())
}

// PrintError prints an error result box with troubleshooting lines
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(NewFailureResult(title, err, troubleshooting).SetWidth(p.width).Render())
}

// PrintTable prints a table
func (p *Printer) PrintTable(headers []string, rows [][]string) {
	p.Println(RenderTable(headers, rows))
}

// ShowProgress draws pr. On a terminal each call replaces the previous
// drawing; elsewhere only the finished state is printed.
func (p *Printer) ShowProgress(pr *Progress) {
	if !p.live {
		if pr.Finished() {
			p.Println(pr.SetWidth(p.width).Render())
		}
		return
	}
	if p.drawn > 0 {
		// Cursor up and clear to the end of the screen.
		p.Printf("\x1b[%dA\x1b[J", p.drawn)
	}
	out := pr.SetWidth(p.width).Render()
	p.Println(out)
	p.drawn = lipgloss.Height(out)
	if pr.Finished() {
		p.drawn = 0
	}
}
