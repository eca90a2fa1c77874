package store

import (
	"database/sql"
	"fmt"
	"time"
)

const workblockCols = `id, date, start_time, end_time, duration_minutes, status, archived, created_at`

// CreateWorkblock inserts a new active workblock starting at now. The date
// column records the calendar day the workblock started on; every later
// aggregation keys off it, even when the workblock spans midnight.
func (s *Store) CreateWorkblock(durationMinutes int, now time.Time) (*Workblock, error) {
	date := now.Format("2006-01-02")
	nowStr := now.Format(time.RFC3339)
	res, err := s.db.Exec(
		`INSERT INTO workblocks (date, start_time, duration_minutes, status, created_at)
		 VALUES (?, ?, ?, 'active', ?)`,
		date, nowStr, durationMinutes, nowStr,
	)
	if err != nil {
		return nil, fmt.Errorf("create workblock: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetWorkblock(id)
}

func (s *Store) GetWorkblock(id int64) (*Workblock, error) {
	row := s.db.QueryRow(
		`SELECT `+workblockCols+` FROM workblocks WHERE id = ?`, id,
	)
	wb, err := scanWorkblock(row)
	if err != nil {
		return nil, fmt.Errorf("get workblock %d: %w", id, err)
	}
	return wb, nil
}

// ActiveWorkblock returns the single active workblock, or nil if none exists.
func (s *Store) ActiveWorkblock() (*Workblock, error) {
	row := s.db.QueryRow(
		`SELECT ` + workblockCols + ` FROM workblocks
		 WHERE status = 'active' ORDER BY start_time DESC LIMIT 1`,
	)
	wb, err := scanWorkblock(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active workblock: %w", err)
	}
	return wb, nil
}

func (s *Store) WorkblocksByDate(date string) ([]Workblock, error) {
	rows, err := s.db.Query(
		`SELECT `+workblockCols+` FROM workblocks
		 WHERE date = ? ORDER BY start_time ASC, id ASC`, date,
	)
	if err != nil {
		return nil, fmt.Errorf("workblocks by date: %w", err)
	}
	defer rows.Close()

	var blocks []Workblock
	for rows.Next() {
		wb, err := scanWorkblock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, *wb)
	}
	return blocks, rows.Err()
}

// CompleteWorkblock closes a workblock naturally. The declared duration is
// kept; only end time and status change.
func (s *Store) CompleteWorkblock(id int64, end time.Time) error {
	_, err := s.db.Exec(
		`UPDATE workblocks SET status = 'completed', end_time = ? WHERE id = ?`,
		end.Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("complete workblock %d: %w", id, err)
	}
	return nil
}

func (s *Store) CancelWorkblock(id int64, end time.Time) error {
	_, err := s.db.Exec(
		`UPDATE workblocks SET status = 'cancelled', end_time = ? WHERE id = ?`,
		end.Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("cancel workblock %d: %w", id, err)
	}
	return nil
}

// ForceCompleteActiveBefore closes any workblock still active from a date
// before today. A day rollover never silently drops a workblock.
func (s *Store) ForceCompleteActiveBefore(today string, end time.Time) (int64, error) {
	res, err := s.db.Exec(
		`UPDATE workblocks SET status = 'completed', end_time = ?
		 WHERE status = 'active' AND date < ?`,
		end.Format(time.RFC3339), today,
	)
	if err != nil {
		return 0, fmt.Errorf("force-complete stale workblocks: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// UnarchivedDatesBefore returns the distinct dates before today that still
// have unarchived workblocks, oldest first.
func (s *Store) UnarchivedDatesBefore(today string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT date FROM workblocks
		 WHERE archived = 0 AND date < ? ORDER BY date ASC`, today,
	)
	if err != nil {
		return nil, fmt.Errorf("unarchived dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkblock(row rowScanner) (*Workblock, error) {
	wb := &Workblock{}
	var startTime, createdAt, status string
	var endTime sql.NullString

	err := row.Scan(&wb.ID, &wb.Date, &startTime, &endTime,
		&wb.DurationMinutes, &status, &wb.Archived, &createdAt)
	if err != nil {
		return nil, err
	}
	wb.Status = WorkblockStatus(status)
	wb.StartTime, _ = time.Parse(time.RFC3339, startTime)
	if endTime.Valid {
		t, _ := time.Parse(time.RFC3339, endTime.String)
		wb.EndTime = &t
	}
	wb.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return wb, nil
}
