package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/log15/internal/status"
)

// Bridge adapts scheduler events into Bubble Tea messages. The scheduler
// emits while holding its lock, so sends must never block: the channel is
// buffered and overflow drops the event; every view re-reads state on the
// next tick anyway.
type Bridge struct {
	ch chan tea.Msg
}

func NewBridge() *Bridge {
	return &Bridge{ch: make(chan tea.Msg, 64)}
}

// Wait returns a command that delivers the next scheduler event.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		return <-b.ch
	}
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.ch <- msg:
	default:
	}
}

func (b *Bridge) IntervalAdvanced(intervalID int64, number int) {
	b.send(intervalAdvancedMsg{intervalID: intervalID, number: number})
}

func (b *Bridge) WorkblockCompleted(workblockID int64) {
	b.send(workblockCompletedMsg{workblockID: workblockID})
}

func (b *Bridge) StatusChanged(state status.State) {
	b.send(statusChangedMsg{state: state})
}

func (b *Bridge) ShowPrompt(intervalID int64) {
	b.send(showPromptMsg{intervalID: intervalID})
}

func (b *Bridge) SummaryReady(workblockID int64) {
	b.send(summaryReadyMsg{workblockID: workblockID})
}

func (b *Bridge) HidePrompt() {
	b.send(hidePromptMsg{})
}

func (b *Bridge) Fault(err error) {
	b.send(faultMsg{err: err})
}
