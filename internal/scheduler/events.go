package scheduler

import "github.com/sadopc/log15/internal/status"

// Events receives scheduler notifications. Implementations must not call
// back into the scheduler synchronously; the scheduler holds its lock while
// emitting.
type Events interface {
	// IntervalAdvanced fires when a new interval becomes current.
	IntervalAdvanced(intervalID int64, number int)
	// WorkblockCompleted fires after a workblock reaches completed.
	WorkblockCompleted(workblockID int64)
	// StatusChanged carries the freshly derived tray state.
	StatusChanged(state status.State)
	// ShowPrompt asks the prompt surface to appear for an interval.
	ShowPrompt(intervalID int64)
	// SummaryReady asks an open prompt to switch from the recorded
	// confirmation to the summary-ready view before closing.
	SummaryReady(workblockID int64)
	// HidePrompt asks the prompt surface to close.
	HidePrompt()
	// Fault reports a failure from a timer-driven path that has no caller
	// to return an error to.
	Fault(err error)
}

// NopEvents discards all notifications.
type NopEvents struct{}

func (NopEvents) IntervalAdvanced(int64, int)     {}
func (NopEvents) WorkblockCompleted(int64)        {}
func (NopEvents) StatusChanged(status.State)      {}
func (NopEvents) ShowPrompt(int64)                {}
func (NopEvents) SummaryReady(int64)              {}
func (NopEvents) HidePrompt()                     {}
func (NopEvents) Fault(error)                     {}
