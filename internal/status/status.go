// Package status derives the three-state tray indicator from store
// contents. It is a pure query: the store stays the single source of truth
// and the indicator can never drift from it.
package status

import (
	"fmt"

	"github.com/sadopc/log15/internal/store"
)

type State int

const (
	Idle State = iota
	Active
	SummaryReady
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case SummaryReady:
		return "summary_ready"
	default:
		return "idle"
	}
}

// Derive computes the indicator for today. An active workblock always wins,
// regardless of anything completed earlier in the day. SummaryReady needs at
// least one completed, non-archived workblock with today's date; cancelled
// workblocks never count.
func Derive(s *store.Store, today string) (State, error) {
	active, err := s.ActiveWorkblock()
	if err != nil {
		return Idle, fmt.Errorf("derive status: %w", err)
	}
	if active != nil {
		return Active, nil
	}

	blocks, err := s.WorkblocksByDate(today)
	if err != nil {
		return Idle, fmt.Errorf("derive status: %w", err)
	}
	for _, wb := range blocks {
		if wb.Status == store.WorkblockCompleted && !wb.Archived {
			return SummaryReady, nil
		}
	}
	return Idle, nil
}
