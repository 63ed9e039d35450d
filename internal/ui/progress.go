package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// StepStatus is the state of one step
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepFailed
	StepSkipped
)

// Step is one line of a multi-step operation
type Step struct {
	Number  int
	Name    string
	Status  StepStatus
	Message string // e.g. "attempt 2/4", "restart pending"
}

// Progress draws a bar and a numbered step list for an operation that runs
// through a fixed sequence, such as apply-and-verify.
type Progress struct {
	Label   string
	Steps   []Step
	Current int
	Percent float64
	Width   int
	bar     progress.Model
}

// NewProgress creates a progress display with one pending step per name.
func NewProgress(label string, names ...string) *Progress {
	steps := make([]Step, len(names))
	for i, name := range names {
		steps[i] = Step{Number: i + 1, Name: name}
	}
	p := &Progress{Label: label, Steps: steps}
	return p.SetWidth(GetTerminalWidth())
}

// SetWidth sizes the bar to fit width.
func (p *Progress) SetWidth(width int) *Progress {
	p.Width = width
	p.bar = progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(min(max(width-24, 20), 50)),
		progress.WithoutPercentage(),
	)
	return p
}

// Total is the number of steps.
func (p *Progress) Total() int {
	return len(p.Steps)
}

// UpdateStep sets a step's status and note. Out of range steps are ignored.
func (p *Progress) UpdateStep(number int, status StepStatus, message string) {
	if number < 1 || number > len(p.Steps) {
		return
	}
	p.Steps[number-1].Status = status
	p.Steps[number-1].Message = message

	if status == StepRunning {
		p.Current = number
		return
	}
	done := 0
	for _, s := range p.Steps {
		if s.Status == StepComplete || s.Status == StepSkipped {
			done++
		}
	}
	p.Percent = float64(done) / float64(len(p.Steps))
}

// StartStep marks a step as running
func (p *Progress) StartStep(number int, message string) {
	p.UpdateStep(number, StepRunning, message)
}

// CompleteStep marks a step as complete
func (p *Progress) CompleteStep(number int, message string) {
	p.UpdateStep(number, StepComplete, message)
}

// FailStep marks a step as failed
func (p *Progress) FailStep(number int, message string) {
	p.UpdateStep(number, StepFailed, message)
}

// SkipStep marks a step as skipped
func (p *Progress) SkipStep(number int, message string) {
	p.UpdateStep(number, StepSkipped, message)
}

// Finished reports whether a step failed or no step is left to run.
func (p *Progress) Finished() bool {
	open := false
	for _, s := range p.Steps {
		switch s.Status {
		case StepFailed:
			return true
		case StepPending, StepRunning:
			open = true
		}
	}
	return !open
}

// Render returns the label, bar and step list.
func (p *Progress) Render() string {
	var b strings.Builder

	if p.Label != "" {
		b.WriteString(ProgressLabelStyle.Render(p.Label))
		b.WriteString("\n\n")
	}

	bar := fmt.Sprintf("%s  %3.0f%%  [%d/%d]", p.bar.ViewAs(p.Percent), p.Percent*100, p.Current, len(p.Steps))
	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(bar))
	b.WriteString("\n\n")

	lines := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		lines = append(lines, p.renderStep(s))
	}
	b.WriteString(strings.Join(lines, "\n"))

	return b.String()
}

func (p *Progress) renderStep(s Step) string {
	var (
		marker string
		style  lipgloss.Style
	)
	switch s.Status {
	case StepComplete:
		marker, style = SuccessMarker, StepCompleteStyle
	case StepRunning:
		marker, style = StepMarkerRunning, StepRunningStyle
	case StepFailed:
		marker, style = FailureMarker, ErrorTitleStyle
	case StepSkipped:
		marker, style = StepMarkerSkipped, StepPendingStyle
	default:
		marker, style = StepMarkerPending, StepPendingStyle
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  [%d/%d] ", s.Number, len(p.Steps))
	b.WriteString(style.Render(s.Name))
	b.WriteString(strings.Repeat(" ", max(32-lipgloss.Width(s.Name), 1)))
	b.WriteString(style.Render(marker))
	if s.Message != "" {
		b.WriteString("  ")
		b.WriteString(StepNoteStyle.Render("(" + s.Message + ")"))
	}
	return b.String()
}

// String implements fmt.Stringer
func (p *Progress) String() string {
	return p.Render()
}
