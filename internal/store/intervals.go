package store

import (
	"database/sql"
	"fmt"
	"time"
)

const intervalCols = `id, workblock_id, number, start_time, end_time, length_minutes, label, status, recorded_at`

func (s *Store) CreateInterval(workblockID int64, number, lengthMinutes int, start time.Time) (*Interval, error) {
	res, err := s.db.Exec(
		`INSERT INTO intervals (workblock_id, number, start_time, length_minutes, status)
		 VALUES (?, ?, ?, ?, 'pending')`,
		workblockID, number, start.Format(time.RFC3339), lengthMinutes,
	)
	if err != nil {
		return nil, fmt.Errorf("create interval: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetInterval(id)
}

func (s *Store) GetInterval(id int64) (*Interval, error) {
	row := s.db.QueryRow(
		`SELECT `+intervalCols+` FROM intervals WHERE id = ?`, id,
	)
	iv, err := scanInterval(row)
	if err != nil {
		return nil, fmt.Errorf("get interval %d: %w", id, err)
	}
	return iv, nil
}

func (s *Store) IntervalsByWorkblock(workblockID int64) ([]Interval, error) {
	rows, err := s.db.Query(
		`SELECT `+intervalCols+` FROM intervals
		 WHERE workblock_id = ? ORDER BY number ASC`, workblockID,
	)
	if err != nil {
		return nil, fmt.Errorf("intervals by workblock: %w", err)
	}
	defer rows.Close()

	var intervals []Interval
	for rows.Next() {
		iv, err := scanInterval(rows)
		if err != nil {
			return nil, err
		}
		intervals = append(intervals, *iv)
	}
	return intervals, rows.Err()
}

// PendingInterval returns the latest pending interval of a workblock, or nil.
func (s *Store) PendingInterval(workblockID int64) (*Interval, error) {
	row := s.db.QueryRow(
		`SELECT `+intervalCols+` FROM intervals
		 WHERE workblock_id = ? AND status = 'pending'
		 ORDER BY number DESC LIMIT 1`, workblockID,
	)
	iv, err := scanInterval(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pending interval: %w", err)
	}
	return iv, nil
}

// RecordInterval performs the pending -> terminal transition. The update is
// a compare-and-set on status: whichever caller (user submission or timeout)
// gets here first wins, the loser sees won=false and must treat it as a
// no-op. An interval is never written twice.
func (s *Store) RecordInterval(id int64, label string, status IntervalStatus, now time.Time) (won bool, err error) {
	nowStr := now.Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE intervals SET label = ?, status = ?, end_time = ?, recorded_at = ?
		 WHERE id = ? AND status = 'pending'`,
		label, string(status), nowStr, nowStr, id,
	)
	if err != nil {
		return false, fmt.Errorf("record interval %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record interval %d: %w", id, err)
	}
	return n > 0, nil
}

// ClosePendingIntervals stamps an end time on any still-pending interval of
// a workblock without recording a label. Used on cancellation; the interval
// stays pending and is excluded from aggregates.
func (s *Store) ClosePendingIntervals(workblockID int64, end time.Time) error {
	_, err := s.db.Exec(
		`UPDATE intervals SET end_time = ?
		 WHERE workblock_id = ? AND status = 'pending'`,
		end.Format(time.RFC3339), workblockID,
	)
	if err != nil {
		return fmt.Errorf("close pending intervals: %w", err)
	}
	return nil
}

func scanInterval(row rowScanner) (*Interval, error) {
	iv := &Interval{}
	var startTime, status string
	var endTime, label, recordedAt sql.NullString

	err := row.Scan(&iv.ID, &iv.WorkblockID, &iv.Number, &startTime, &endTime,
		&iv.LengthMinutes, &label, &status, &recordedAt)
	if err != nil {
		return nil, err
	}
	iv.Status = IntervalStatus(status)
	iv.StartTime, _ = time.Parse(time.RFC3339, startTime)
	if endTime.Valid {
		t, _ := time.Parse(time.RFC3339, endTime.String)
		iv.EndTime = &t
	}
	if label.Valid {
		iv.Label = &label.String
	}
	if recordedAt.Valid {
		t, _ := time.Parse(time.RFC3339, recordedAt.String)
		iv.RecordedAt = &t
	}
	return iv, nil
}
