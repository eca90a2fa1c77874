package tui

import (
	"fmt"
	"time"

	"github.com/sadopc/log15/internal/status"
)

// viewState represents the currently active view.
type viewState int

const (
	viewToday viewState = iota
	viewArchives
)

var viewNames = []string{"Today", "Archives"}

// --- Messages ---

// Scheduler events arrive through the Bridge as these messages.

type intervalAdvancedMsg struct {
	intervalID int64
	number     int
}

type workblockCompletedMsg struct {
	workblockID int64
}

type statusChangedMsg struct {
	state status.State
}

type showPromptMsg struct {
	intervalID int64
}

type summaryReadyMsg struct {
	workblockID int64
}

type hidePromptMsg struct{}

type faultMsg struct {
	err error
}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatCountdown(secs int64) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func formatMinutes(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}
