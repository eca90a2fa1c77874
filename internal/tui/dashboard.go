package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/log15/internal/aggregate"
	"github.com/sadopc/log15/internal/scheduler"
	"github.com/sadopc/log15/internal/status"
	"github.com/sadopc/log15/internal/store"
)

type dashboardModel struct {
	store  *store.Store
	sched  *scheduler.Scheduler
	width  int
	height int

	state   status.State
	daily   *aggregate.Daily
	summary *aggregate.Visualization

	prompt promptModel

	// Start form state
	formActive   bool
	form         *huh.Form
	formDuration *string
}

func newDashboardModel(s *store.Store, sched *scheduler.Scheduler) dashboardModel {
	duration := "60"
	return dashboardModel{
		store:        s,
		sched:        sched,
		prompt:       newPromptModel(sched),
		formDuration: &duration,
	}
}

func (d dashboardModel) Init() tea.Cmd {
	return d.loadData()
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
	d.prompt.setSize(w, h)
}

func (d dashboardModel) inputActive() bool {
	return d.formActive || d.prompt.active
}

type dashboardDataMsg struct {
	state   status.State
	daily   *aggregate.Daily
	summary *aggregate.Visualization
}

func (d dashboardModel) loadData() tea.Cmd {
	return func() tea.Msg {
		today := time.Now().Format("2006-01-02")

		state, err := status.Derive(d.store, today)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}

		var summary *aggregate.Visualization
		if state == status.SummaryReady {
			blocks, _ := d.store.WorkblocksByDate(today)
			for i := len(blocks) - 1; i >= 0; i-- {
				if blocks[i].Status == store.WorkblockCompleted {
					intervals, _ := d.store.IntervalsByWorkblock(blocks[i].ID)
					viz := aggregate.BuildVisualization(blocks[i], intervals)
					summary = &viz
					break
				}
			}
		}

		return dashboardDataMsg{
			state:   state,
			daily:   d.sched.Daily(),
			summary: summary,
		}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	// Prompt lifecycle messages bypass any capturing form.
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.state = msg.state
		d.daily = msg.daily
		d.summary = msg.summary
		return d, nil

	case showPromptMsg:
		var cmd tea.Cmd
		d.prompt, cmd = d.prompt.show(msg.intervalID)
		return d, cmd

	case hidePromptMsg:
		d.prompt = d.prompt.hide()
		return d, nil
	}

	if d.formActive && d.form != nil {
		return d.updateForm(msg)
	}
	if d.prompt.active {
		var cmd tea.Cmd
		d.prompt, cmd = d.prompt.update(msg)
		return d, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Start):
			if d.sched.Active() != nil {
				return d, func() tea.Msg {
					return statusMsg{text: "A workblock is already running", isError: true}
				}
			}
			return d.showStartForm()

		case key.Matches(msg, keys.Cancel):
			return d.cancelWorkblock()
		}
	}
	return d, nil
}

func (d dashboardModel) showStartForm() (dashboardModel, tea.Cmd) {
	*d.formDuration = "60"
	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Workblock duration (minutes)").
				Value(d.formDuration).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n <= 0 {
						return fmt.Errorf("enter a positive number of minutes")
					}
					return nil
				}),
		),
	).WithShowHelp(true).WithShowErrors(true)

	d.formActive = true
	return d, d.form.Init()
}

func (d dashboardModel) updateForm(msg tea.Msg) (dashboardModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			d.formActive = false
			d.form = nil
			return d, nil
		}
	}

	form, cmd := d.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		d.form = f
	}

	if d.form.State == huh.StateCompleted {
		d.formActive = false
		d.form = nil
		minutes, _ := strconv.Atoi(strings.TrimSpace(*d.formDuration))
		return d.startWorkblock(minutes)
	}

	return d, cmd
}

func (d dashboardModel) startWorkblock(minutes int) (dashboardModel, tea.Cmd) {
	_, err := d.sched.Start(minutes)
	switch {
	case errors.Is(err, scheduler.ErrConflict):
		return d, func() tea.Msg {
			return statusMsg{text: "A workblock is already running", isError: true}
		}
	case err != nil:
		return d, func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
	}
	return d, tea.Batch(
		d.loadData(),
		func() tea.Msg { return statusMsg{text: fmt.Sprintf("Workblock started (%s)", formatMinutes(minutes))} },
	)
}

func (d dashboardModel) cancelWorkblock() (dashboardModel, tea.Cmd) {
	wb := d.sched.Active()
	if wb == nil {
		return d, nil
	}
	if err := d.sched.Cancel(wb.ID); err != nil {
		return d, func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Error: %v", err), isError: true}
		}
	}
	d.prompt = d.prompt.hide()
	return d, tea.Batch(
		d.loadData(),
		func() tea.Msg { return statusMsg{text: "Workblock cancelled"} },
	)
}

func (d dashboardModel) view() string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4

	if d.formActive && d.form != nil {
		title := titleStyle.Render("Start Workblock")
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", d.form.View())
		return panelStyle.Width(contentWidth).Render(content)
	}

	var panels []string
	panels = append(panels, d.renderTimerPanel(contentWidth))

	if d.prompt.active {
		panels = append(panels, d.prompt.view())
	}

	if d.summary != nil && d.sched.Active() == nil {
		panels = append(panels, d.renderSummaryPanel(contentWidth))
	}

	panels = append(panels, d.renderDailyPanel(contentWidth))

	return lipgloss.JoinVertical(lipgloss.Left, panels...)
}

func (d dashboardModel) renderTimerPanel(w int) string {
	ts := d.sched.TimerState()

	if ts.Running {
		countdown := timerStyle.Width(w - 6).Render(formatCountdown(d.sched.RemainingSeconds()))
		indicator := successStyle.Render(fmt.Sprintf("●  FOCUS — interval %d of %d", ts.IntervalNumber, ts.TotalIntervals))
		blockLine := mutedStyle.Render(fmt.Sprintf("Workblock of %s, started %s",
			formatMinutes(d.sched.Active().DurationMinutes),
			ts.IntervalStart.Local().Format("15:04"),
		))

		content := lipgloss.JoinVertical(lipgloss.Center,
			countdown,
			indicator,
			blockLine,
		)
		return panelStyle.Width(w).BorderForeground(colorPrimary).Render(content)
	}

	countdown := timerStyle.Width(w - 6).Render("--:--")
	stateName := strings.ReplaceAll(strings.ToUpper(d.state.String()), "_", " ")
	indicator := mutedStyle.Render("■  " + stateName)
	hint := mutedStyle.Render("Press s to start a workblock")

	content := lipgloss.JoinVertical(lipgloss.Center,
		countdown,
		indicator,
		hint,
	)
	return panelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderSummaryPanel(w int) string {
	title := titleStyle.Render("Workblock Summary")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for _, e := range d.summary.Timeline {
		label := e.Label
		style := normalItemStyle
		if e.Status == string(store.IntervalAutoAway) {
			style = warningStyle
		}
		start := formatClock(e.StartTime)
		rows = append(rows, style.Render(fmt.Sprintf("  %s  %-30s %s", start, label, formatMinutes(e.Minutes))))
	}

	if len(d.summary.Activities) > 0 {
		rows = append(rows, "")
		for _, a := range d.summary.Activities {
			rows = append(rows, fmt.Sprintf("  %s %s (%.0f%%)",
				highlightStyle.Render(formatMinutes(a.Minutes)),
				a.Label,
				a.Percentage,
			))
		}
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderDailyPanel(w int) string {
	title := titleStyle.Render("Today")

	if d.daily == nil || d.daily.TotalWorkblocks == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No completed workblocks yet"),
		)
		return panelStyle.Width(w).Render(content)
	}

	total := highlightStyle.Render(fmt.Sprintf("%s across %d workblocks",
		formatMinutes(d.daily.TotalMinutes), d.daily.TotalWorkblocks))

	var rows []string
	rows = append(rows, fmt.Sprintf("%s  %s", title, total))
	for _, a := range d.daily.Activities {
		rows = append(rows, fmt.Sprintf("  %-30s %8s  %5.1f%%", a.Label, formatMinutes(a.Minutes), a.Percentage))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

// formatClock renders the HH:MM of an RFC3339 timestamp string.
func formatClock(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("15:04")
}
