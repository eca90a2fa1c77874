// Package dayboundary detects date rollover and archives the prior day:
// detect, archive, reset. The check runs at process start and before every
// workblock creation, so a new workblock is never created against a stale,
// unarchived day. A midnight cron sweep covers long-running idle sessions.
package dayboundary

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sadopc/log15/internal/aggregate"
	"github.com/sadopc/log15/internal/store"
)

const dateLayout = "2006-01-02"

type Monitor struct {
	store *store.Store
	now   func() time.Time
	cron  *cron.Cron
}

func New(s *store.Store, now func() time.Time) *Monitor {
	if now == nil {
		now = time.Now
	}
	return &Monitor{store: s, now: now}
}

// CheckAndReset archives every date before today that still has unarchived
// workblocks. Workblocks still active from a prior date are force-completed
// first; a day rollover never silently drops one. Returns the archived
// dates, oldest first.
func (m *Monitor) CheckAndReset(today string) ([]string, error) {
	dates, err := m.store.UnarchivedDatesBefore(today)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, nil
	}

	if _, err := m.store.ForceCompleteActiveBefore(today, m.now()); err != nil {
		return nil, err
	}

	var archived []string
	for _, date := range dates {
		if err := m.archiveDate(date); err != nil {
			return archived, fmt.Errorf("archive %s: %w", date, err)
		}
		archived = append(archived, date)
	}
	return archived, nil
}

// archiveDate builds the day snapshot fresh from raw rows, never from the
// in-memory transient aggregate, and writes it. The store commits the
// archive row and the archived flags as one transaction.
func (m *Monitor) archiveDate(date string) error {
	if existing, err := m.store.ArchiveByDate(date); err != nil {
		return err
	} else if existing != nil {
		// Archives are immutable once written.
		return nil
	}

	workblocks, err := m.store.WorkblocksByDate(date)
	if err != nil {
		return err
	}
	if len(workblocks) == 0 {
		return nil
	}

	blocks := make([]aggregate.Block, 0, len(workblocks))
	for _, wb := range workblocks {
		intervals, err := m.store.IntervalsByWorkblock(wb.ID)
		if err != nil {
			return err
		}
		blocks = append(blocks, aggregate.Block{Workblock: wb, Intervals: intervals})
	}

	// Archive totals mirror the aggregate: cancelled workblocks are rows in
	// the snapshot but never counted.
	snap := aggregate.BuildDaySnapshot(blocks)
	snapshot, err := aggregate.EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	_, err = m.store.CreateArchive(date, snap.Daily.TotalWorkblocks, snap.Daily.TotalMinutes, snapshot, m.now())
	return err
}

// StartSweep schedules a nightly check just after midnight. The sweep runs
// only while no workblock is active: an in-flight workblock keeps its
// start-time date and is archived at the next Start or startup instead.
func (m *Monitor) StartSweep(hasActive func() bool, onErr func(error)) error {
	m.cron = cron.New(cron.WithLocation(time.Local))
	_, err := m.cron.AddFunc("1 0 * * *", func() {
		if hasActive != nil && hasActive() {
			return
		}
		if _, err := m.CheckAndReset(m.now().Format(dateLayout)); err != nil && onErr != nil {
			onErr(err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule midnight sweep: %w", err)
	}
	m.cron.Start()
	return nil
}

// StopSweep stops the nightly check and waits for a running job to finish.
func (m *Monitor) StopSweep() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
}
