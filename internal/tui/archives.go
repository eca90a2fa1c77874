package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/log15/internal/aggregate"
	"github.com/sadopc/log15/internal/store"
)

var chartColors = []lipgloss.Color{
	colorPrimary, colorSuccess, colorWarning, colorAccent, colorHighlight,
}

type archivesModel struct {
	store  *store.Store
	width  int
	height int

	archives []store.DailyArchive
	cursor   int

	viewingDetail bool
	detailDate    string
	detail        *aggregate.DaySnapshot
	chart         barchart.Model
}

func newArchivesModel(s *store.Store) archivesModel {
	return archivesModel{
		store: s,
		chart: barchart.New(60, 12),
	}
}

func (a *archivesModel) setSize(w, h int) {
	a.width = w
	a.height = h
}

type archivesDataMsg struct {
	archives []store.DailyArchive
}

func (a archivesModel) refresh() tea.Cmd {
	return func() tea.Msg {
		archives, _ := a.store.ListArchives()
		return archivesDataMsg{archives: archives}
	}
}

func (a archivesModel) update(msg tea.Msg) (archivesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case archivesDataMsg:
		a.archives = msg.archives
		if a.cursor >= len(a.archives) {
			a.cursor = max(0, len(a.archives)-1)
		}
		return a, nil

	case tea.KeyMsg:
		if a.viewingDetail {
			if key.Matches(msg, keys.Back) {
				a.viewingDetail = false
				a.detail = nil
			}
			return a, nil
		}

		switch {
		case key.Matches(msg, keys.Up):
			if a.cursor > 0 {
				a.cursor--
			}
		case key.Matches(msg, keys.Down):
			if a.cursor < len(a.archives)-1 {
				a.cursor++
			}
		case key.Matches(msg, keys.Enter):
			if len(a.archives) > 0 {
				return a.openDetail(a.archives[a.cursor])
			}
		}
	}
	return a, nil
}

func (a archivesModel) openDetail(arch store.DailyArchive) (archivesModel, tea.Cmd) {
	snap, err := aggregate.DecodeSnapshot(arch.Snapshot)
	if err != nil {
		return a, func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Corrupt archive for %s: %v", arch.Date, err), isError: true}
		}
	}
	a.detail = &snap
	a.detailDate = arch.Date
	a.viewingDetail = true
	a.buildChart()
	return a, nil
}

func (a *archivesModel) buildChart() {
	chartWidth := a.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	a.chart = barchart.New(chartWidth, 10)

	if a.detail == nil || a.detail.Daily == nil {
		return
	}

	var bars []barchart.BarData
	for i, act := range a.detail.Daily.Activities {
		style := lipgloss.NewStyle().Foreground(chartColors[i%len(chartColors)])
		label := act.Label
		if r := []rune(label); len(r) > 10 {
			label = string(r[:10])
		}
		bars = append(bars, barchart.BarData{
			Label: label,
			Values: []barchart.BarValue{{
				Name:  act.Label,
				Value: float64(act.Minutes),
				Style: style,
			}},
		})
	}
	if len(bars) == 0 {
		bars = []barchart.BarData{{
			Label:  "none",
			Values: []barchart.BarValue{{Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}},
		}}
	}

	a.chart.PushAll(bars)
	a.chart.Draw()
}

func (a archivesModel) view() string {
	if a.viewingDetail {
		return a.renderDetail()
	}
	return a.renderList()
}

func (a archivesModel) renderList() string {
	w := a.width - 4
	title := titleStyle.Render("Archived Days")

	if len(a.archives) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("Nothing archived yet. Days are archived at midnight."),
		)
		return panelStyle.Width(w).Render(content)
	}

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	header := mutedStyle.Render(fmt.Sprintf("  %-12s %12s %12s", "Date", "Workblocks", "Total"))
	rows = append(rows, header)

	for i, arch := range a.archives {
		cursor := "  "
		style := normalItemStyle
		if i == a.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-12s %12d %12s",
			cursor, arch.Date, arch.TotalWorkblocks, formatMinutes(arch.TotalMinutes))))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: details  esc: back"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (a archivesModel) renderDetail() string {
	w := a.width - 4
	title := titleStyle.Render(a.detailDate)

	var rows []string
	rows = append(rows, title)

	daily := a.detail.Daily
	if daily != nil {
		rows = append(rows, highlightStyle.Render(fmt.Sprintf("%s across %d workblocks",
			formatMinutes(daily.TotalMinutes), daily.TotalWorkblocks)))
	}
	rows = append(rows, "")
	rows = append(rows, a.chart.View())

	if daily != nil && len(daily.Timeline) > 0 {
		rows = append(rows, "")
		rows = append(rows, titleStyle.Render("Timeline"))
		for _, e := range daily.Timeline {
			style := normalItemStyle
			if e.Status == string(store.IntervalAutoAway) {
				style = warningStyle
			}
			rows = append(rows, style.Render(fmt.Sprintf("  %s  %-30s %s",
				formatClock(e.StartTime), e.Label, formatMinutes(e.Minutes))))
		}
	}

	if daily != nil && len(daily.Phrases) > 0 {
		rows = append(rows, "")
		rows = append(rows, titleStyle.Render("Phrases"))
		for _, ph := range daily.Phrases {
			rows = append(rows, fmt.Sprintf("  %3d× %s", ph.Count, ph.Phrase))
		}
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  esc: back"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
