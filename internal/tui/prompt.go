package tui

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/log15/internal/scheduler"
)

// promptModel is the interval label prompt. The scheduler decides when it
// appears and disappears; this model only collects the text and submits it.
type promptModel struct {
	sched *scheduler.Scheduler
	width int

	active     bool
	intervalID int64
	number     int
	total      int

	form      *huh.Form
	formLabel *string
}

func newPromptModel(sched *scheduler.Scheduler) promptModel {
	label := ""
	return promptModel{
		sched:     sched,
		formLabel: &label,
	}
}

func (p *promptModel) setSize(w, _ int) {
	p.width = w
}

func (p promptModel) show(intervalID int64) (promptModel, tea.Cmd) {
	ts := p.sched.TimerState()
	p.active = true
	p.intervalID = intervalID
	p.number = ts.IntervalNumber
	p.total = ts.TotalIntervals
	return p.resetForm()
}

func (p promptModel) resetForm() (promptModel, tea.Cmd) {
	*p.formLabel = ""
	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("What are you working on?").
				CharLimit(50).
				Value(p.formLabel),
		),
	).WithShowHelp(false).WithShowErrors(true)
	return p, p.form.Init()
}

func (p promptModel) hide() promptModel {
	p.active = false
	p.form = nil
	return p
}

func (p promptModel) update(msg tea.Msg) (promptModel, tea.Cmd) {
	if !p.active || p.form == nil {
		return p, nil
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	if p.form.State == huh.StateCompleted {
		return p.submit()
	}

	return p, cmd
}

func (p promptModel) submit() (promptModel, tea.Cmd) {
	text := *p.formLabel

	isLast, err := p.sched.SubmitLabel(p.intervalID, text)
	switch {
	case errors.Is(err, scheduler.ErrValidation):
		// Empty label: keep prompting.
		return p.resetForm()
	case err != nil:
		p = p.hide()
		return p, func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
	}

	p = p.hide()
	if isLast {
		return p, nil
	}
	return p, func() tea.Msg {
		return statusMsg{text: "Recorded"}
	}
}

func (p promptModel) view() string {
	if !p.active || p.form == nil {
		return ""
	}

	w := p.width - 4
	title := titleStyle.Render(fmt.Sprintf("Interval %d of %d", p.number, p.total))
	hint := mutedStyle.Render("enter: record  (blank after 10 min is marked away)")

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		p.form.View(),
		hint,
	)
	return promptPanelStyle.Width(w).Render(content)
}
