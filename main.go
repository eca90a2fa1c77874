package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/log15/internal/dayboundary"
	"github.com/sadopc/log15/internal/scheduler"
	"github.com/sadopc/log15/internal/store"
	"github.com/sadopc/log15/internal/tui"
)

func main() {
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	s, err := store.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	monitor := dayboundary.New(s, time.Now)
	bridge := tui.NewBridge()
	sched := scheduler.New(s, nil, bridge, monitor, scheduler.LoadConfig(s))

	// Archive any stale days before the scheduler rebuilds today's state.
	today := time.Now().Format("2006-01-02")
	if _, err := monitor.CheckAndReset(today); err != nil {
		fmt.Fprintf(os.Stderr, "error archiving previous days: %v\n", err)
		os.Exit(1)
	}
	if err := sched.Restore(); err != nil {
		fmt.Fprintf(os.Stderr, "error restoring state: %v\n", err)
		os.Exit(1)
	}
	defer sched.Shutdown()

	hasActive := func() bool { return sched.Active() != nil }
	if err := monitor.StartSweep(hasActive, bridge.Fault); err != nil {
		fmt.Fprintf(os.Stderr, "error starting midnight sweep: %v\n", err)
		os.Exit(1)
	}
	defer monitor.StopSweep()

	app := tui.NewApp(s, sched, bridge)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
