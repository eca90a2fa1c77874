// Package scheduler owns the single active workblock and drives it through
// its intervals on wall-clock cadence, independent of any UI surface. All
// mutations to the active workblock and its intervals pass through here;
// concurrent triggers (user submission, timeout, shutdown) are serialized
// under one mutex, and the pending -> terminal transition is additionally a
// compare-and-set in the store, so a lost race is a no-op, never an error
// and never a double-write.
package scheduler

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sadopc/log15/internal/aggregate"
	"github.com/sadopc/log15/internal/status"
	"github.com/sadopc/log15/internal/store"
)

const dateLayout = "2006-01-02"

// BoundaryChecker gates workblock creation on day rollover. Satisfied by
// dayboundary.Monitor.
type BoundaryChecker interface {
	CheckAndReset(today string) ([]string, error)
}

// TimerState is a read-only projection of the running timer for the UI.
type TimerState struct {
	WorkblockID    int64
	IntervalID     int64
	IntervalNumber int
	TotalIntervals int
	IntervalStart  time.Time
	Running        bool
}

type activeBlock struct {
	workblock      store.Workblock
	intervalID     int64
	intervalNumber int
	intervalStart  time.Time
	totalIntervals int
}

// armedTimers holds the two timers scoped to one interval: the interval
// timer that advances the workblock, and the auto-away deadline.
type armedTimers struct {
	interval Timer
	away     Timer
}

type Scheduler struct {
	mu       sync.Mutex
	store    *store.Store
	clock    Clock
	events   Events
	boundary BoundaryChecker
	cfg      Config

	active *activeBlock
	timers map[int64]*armedTimers // keyed by interval id

	daily     *aggregate.Daily
	dailyDate string
}

func New(st *store.Store, clock Clock, events Events, boundary BoundaryChecker, cfg Config) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	if events == nil {
		events = NopEvents{}
	}
	return &Scheduler{
		store:    st,
		clock:    clock,
		events:   events,
		boundary: boundary,
		cfg:      cfg,
		timers:   make(map[int64]*armedTimers),
	}
}

// totalIntervals truncates: a 50-minute workblock gets three intervals, the
// last absorbing the remainder (15, 15, 20).
func (s *Scheduler) totalIntervals(durationMinutes int) int {
	n := durationMinutes / s.cfg.IntervalMinutes
	if n < 1 {
		n = 1
	}
	return n
}

// lengthOf returns the planned minutes of the n-th interval: nominal length
// for all but the last, which takes the remainder.
func (s *Scheduler) lengthOf(n, durationMinutes int) int {
	total := s.totalIntervals(durationMinutes)
	if n < total {
		return s.cfg.IntervalMinutes
	}
	return durationMinutes - (total-1)*s.cfg.IntervalMinutes
}

// Start creates a new workblock. It runs the day-boundary check first, then
// refuses with ErrConflict if a workblock is already active.
func (s *Scheduler) Start(durationMinutes int) (*store.Workblock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if durationMinutes <= 0 {
		return nil, fmt.Errorf("duration must be positive: %w", ErrValidation)
	}

	today := s.clock.Now().Format(dateLayout)
	if s.boundary != nil {
		if _, err := s.boundary.CheckAndReset(today); err != nil {
			return nil, fmt.Errorf("day-boundary check: %w", err)
		}
	}

	// The check may have force-completed a workblock that was still active
	// from a prior date; release its timers before the conflict check.
	if s.active != nil && s.active.workblock.Date != today {
		s.disarmLocked(s.active.intervalID)
		s.active = nil
		s.events.HidePrompt()
	}

	if s.active != nil {
		return nil, fmt.Errorf("workblock %d is already active: %w", s.active.workblock.ID, ErrConflict)
	}
	if wb, err := s.store.ActiveWorkblock(); err != nil {
		return nil, err
	} else if wb != nil {
		return nil, fmt.Errorf("workblock %d is already active: %w", wb.ID, ErrConflict)
	}

	now := s.clock.Now()
	wb, err := s.store.CreateWorkblock(durationMinutes, now)
	if err != nil {
		return nil, err
	}
	iv, err := s.store.CreateInterval(wb.ID, 1, s.lengthOf(1, durationMinutes), now)
	if err != nil {
		return nil, err
	}

	s.rollDayLocked(wb.Date)
	s.active = &activeBlock{
		workblock:      *wb,
		intervalID:     iv.ID,
		intervalNumber: 1,
		intervalStart:  now,
		totalIntervals: s.totalIntervals(durationMinutes),
	}
	s.armLocked(iv.ID, time.Duration(iv.LengthMinutes)*time.Minute)

	s.events.IntervalAdvanced(iv.ID, 1)
	s.events.ShowPrompt(iv.ID)
	s.emitStatusLocked()
	return wb, nil
}

// Cancel aborts the active workblock. Both timers are disarmed before the
// call returns, so no late callback can resurrect the cancelled state.
func (s *Scheduler) Cancel(workblockID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.workblock.ID != workblockID {
		return fmt.Errorf("workblock %d is not active: %w", workblockID, ErrNotFound)
	}

	s.disarmLocked(s.active.intervalID)
	now := s.clock.Now()
	if err := s.store.CancelWorkblock(workblockID, now); err != nil {
		return err
	}
	if err := s.store.ClosePendingIntervals(workblockID, now); err != nil {
		return err
	}

	s.active = nil
	s.events.HidePrompt()
	s.emitStatusLocked()
	return nil
}

// SubmitLabel records the user's label for an interval and reports whether
// it was the workblock's final interval. Submitting against an interval the
// timeout already closed is a silent no-op: the race is expected, not a
// fault.
func (s *Scheduler) SubmitLabel(intervalID int64, text string) (isLast bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	label := strings.TrimSpace(text)
	if label == "" {
		return false, fmt.Errorf("label is empty: %w", ErrValidation)
	}
	if r := []rune(label); len(r) > s.cfg.LabelMaxChars {
		label = string(r[:s.cfg.LabelMaxChars])
	}

	if s.active == nil || s.active.intervalID != intervalID {
		iv, err := s.store.GetInterval(intervalID)
		if err != nil {
			return false, fmt.Errorf("interval %d: %w", intervalID, ErrNotFound)
		}
		if iv.Status != store.IntervalPending {
			// Already terminal; the submission lost an earlier race.
			return false, nil
		}
		return false, fmt.Errorf("interval %d is not current: %w", intervalID, ErrNotFound)
	}

	won, err := s.store.RecordInterval(intervalID, label, store.IntervalRecorded, s.clock.Now())
	if err != nil {
		return false, err
	}
	if !won {
		// The auto-away deadline fired first; their write stands.
		return false, nil
	}

	s.disarmAwayLocked(intervalID)

	if s.active.intervalNumber >= s.active.totalIntervals {
		s.events.SummaryReady(s.active.workblock.ID)
		if err := s.completeLocked(); err != nil {
			return true, err
		}
		return true, nil
	}
	s.events.HidePrompt()
	return false, nil
}

// intervalElapsed runs when an interval's planned time is over: the next
// interval starts. On the final interval it does nothing: completion waits
// for the label or the away timeout.
func (s *Scheduler) intervalElapsed(intervalID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.intervalID != intervalID {
		return // stale timer against a superseded interval
	}
	if s.active.intervalNumber >= s.active.totalIntervals {
		return
	}

	s.disarmLocked(intervalID)
	now := s.clock.Now()
	next := s.active.intervalNumber + 1
	length := s.lengthOf(next, s.active.workblock.DurationMinutes)

	iv, err := s.store.CreateInterval(s.active.workblock.ID, next, length, now)
	if err != nil {
		s.events.Fault(fmt.Errorf("create interval %d: %w", next, err))
		return
	}

	s.active.intervalID = iv.ID
	s.active.intervalNumber = next
	s.active.intervalStart = now
	s.armLocked(iv.ID, time.Duration(length)*time.Minute)

	s.events.IntervalAdvanced(iv.ID, next)
	s.events.ShowPrompt(iv.ID)
}

// tickTimeout runs when the auto-away deadline elapses. If the interval is
// still pending it is closed with the away sentinel; if the user's
// submission won the race, this is a no-op.
func (s *Scheduler) tickTimeout(intervalID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.intervalID != intervalID {
		return
	}

	won, err := s.store.RecordInterval(intervalID, AwayLabel, store.IntervalAutoAway, s.clock.Now())
	if err != nil {
		s.events.Fault(fmt.Errorf("auto-away interval %d: %w", intervalID, err))
		return
	}
	if !won {
		return
	}

	s.events.HidePrompt()
	if s.active.intervalNumber >= s.active.totalIntervals {
		if err := s.completeLocked(); err != nil {
			s.events.Fault(err)
		}
	}
}

// completeLocked finishes the active workblock: terminal status, end time,
// incremental fold into the daily aggregate, and completion events.
func (s *Scheduler) completeLocked() error {
	a := s.active
	s.disarmLocked(a.intervalID)

	if err := s.store.CompleteWorkblock(a.workblock.ID, s.clock.Now()); err != nil {
		return err
	}
	wb, err := s.store.GetWorkblock(a.workblock.ID)
	if err != nil {
		return err
	}
	intervals, err := s.store.IntervalsByWorkblock(wb.ID)
	if err != nil {
		return err
	}

	// Aggregation keys off the date the workblock started, even past
	// midnight.
	s.rollDayLocked(wb.Date)
	s.daily.Add(*wb, intervals)

	s.active = nil
	s.events.WorkblockCompleted(wb.ID)
	s.emitStatusLocked()
	return nil
}

// Restore re-arms timers for a workblock left active by a previous run and
// rebuilds today's aggregate from raw rows. Call once at startup, after the
// day-boundary check.
func (s *Scheduler) Restore() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	today := now.Format(dateLayout)

	// Disaster-recovery path: the transient aggregate is re-derivable from
	// rows at any time.
	if err := s.rebuildDailyLocked(today); err != nil {
		return err
	}

	wb, err := s.store.ActiveWorkblock()
	if err != nil {
		return err
	}
	if wb == nil {
		s.emitStatusLocked()
		return nil
	}

	total := s.totalIntervals(wb.DurationMinutes)
	iv, err := s.store.PendingInterval(wb.ID)
	if err != nil {
		return err
	}

	if iv == nil {
		// Crash landed between recording an interval and what follows it.
		intervals, err := s.store.IntervalsByWorkblock(wb.ID)
		if err != nil {
			return err
		}
		last := len(intervals)
		if last >= total {
			s.active = &activeBlock{workblock: *wb, totalIntervals: total}
			return s.completeLocked()
		}
		next := last + 1
		length := s.lengthOf(next, wb.DurationMinutes)
		created, err := s.store.CreateInterval(wb.ID, next, length, now)
		if err != nil {
			return err
		}
		s.active = &activeBlock{
			workblock:      *wb,
			intervalID:     created.ID,
			intervalNumber: next,
			intervalStart:  now,
			totalIntervals: total,
		}
		s.armLocked(created.ID, time.Duration(length)*time.Minute)
		s.events.IntervalAdvanced(created.ID, next)
		s.events.ShowPrompt(created.ID)
		s.emitStatusLocked()
		return nil
	}

	s.active = &activeBlock{
		workblock:      *wb,
		intervalID:     iv.ID,
		intervalNumber: iv.Number,
		intervalStart:  iv.StartTime,
		totalIntervals: total,
	}
	// Re-arm with the remainders; elapsed deadlines fire immediately.
	length := time.Duration(iv.LengthMinutes) * time.Minute
	s.armRemainderLocked(iv.ID,
		iv.StartTime.Add(length).Sub(now),
		iv.StartTime.Add(s.cfg.AwayTimeout).Sub(now),
	)
	s.events.ShowPrompt(iv.ID)
	s.emitStatusLocked()
	return nil
}

// Shutdown stops all timers without touching persisted state; an active
// workblock is picked up again by Restore on the next run.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.timers {
		s.disarmLocked(id)
	}
}

// --- Read-only projections ---

// Active returns a copy of the active workblock, or nil.
func (s *Scheduler) Active() *store.Workblock {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	wb := s.active.workblock
	return &wb
}

func (s *Scheduler) TimerState() TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return TimerState{}
	}
	return TimerState{
		WorkblockID:    s.active.workblock.ID,
		IntervalID:     s.active.intervalID,
		IntervalNumber: s.active.intervalNumber,
		TotalIntervals: s.active.totalIntervals,
		IntervalStart:  s.active.intervalStart,
		Running:        true,
	}
}

// RemainingSeconds reports the seconds left in the current interval,
// clamped at zero; 0 when no workblock is running.
func (s *Scheduler) RemainingSeconds() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return 0
	}
	length := time.Duration(s.lengthOf(s.active.intervalNumber, s.active.workblock.DurationMinutes)) * time.Minute
	remaining := s.active.intervalStart.Add(length).Sub(s.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	return int64(remaining.Seconds())
}

// Daily returns an immutable snapshot of the in-memory daily aggregate.
func (s *Scheduler) Daily() *aggregate.Daily {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.daily == nil {
		return aggregate.NewDaily()
	}
	return s.daily.Clone()
}

// --- Internals ---

func (s *Scheduler) armLocked(intervalID int64, length time.Duration) {
	s.armRemainderLocked(intervalID, length, s.cfg.AwayTimeout)
}

func (s *Scheduler) armRemainderLocked(intervalID int64, length, away time.Duration) {
	s.timers[intervalID] = &armedTimers{
		interval: s.clock.AfterFunc(length, func() { s.intervalElapsed(intervalID) }),
		away:     s.clock.AfterFunc(away, func() { s.tickTimeout(intervalID) }),
	}
}

func (s *Scheduler) disarmLocked(intervalID int64) {
	if a, ok := s.timers[intervalID]; ok {
		a.interval.Stop()
		a.away.Stop()
		delete(s.timers, intervalID)
	}
}

func (s *Scheduler) disarmAwayLocked(intervalID int64) {
	if a, ok := s.timers[intervalID]; ok {
		a.away.Stop()
	}
}

func (s *Scheduler) rollDayLocked(date string) {
	if s.dailyDate != date {
		s.daily = aggregate.NewDaily()
		s.dailyDate = date
	}
	if s.daily == nil {
		s.daily = aggregate.NewDaily()
	}
}

func (s *Scheduler) rebuildDailyLocked(date string) error {
	blocks, err := s.store.WorkblocksByDate(date)
	if err != nil {
		return err
	}
	daily := aggregate.NewDaily()
	for _, wb := range blocks {
		intervals, err := s.store.IntervalsByWorkblock(wb.ID)
		if err != nil {
			return err
		}
		daily.Add(wb, intervals)
	}
	s.daily = daily
	s.dailyDate = date
	return nil
}

func (s *Scheduler) emitStatusLocked() {
	st, err := status.Derive(s.store, s.clock.Now().Format(dateLayout))
	if err != nil {
		s.events.Fault(err)
		return
	}
	s.events.StatusChanged(st)
}
