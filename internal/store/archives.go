package store

import (
	"database/sql"
	"fmt"
	"time"
)

const archiveCols = `id, date, total_workblocks, total_minutes, snapshot, archived_at`

// CreateArchive writes the archive row for a date and flags all of that
// date's workblocks archived, in one transaction. Partial archival is never
// observable: either both writes land or neither does.
func (s *Store) CreateArchive(date string, totalWorkblocks, totalMinutes int, snapshot string, now time.Time) (*DailyArchive, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO daily_archives (date, total_workblocks, total_minutes, snapshot, archived_at)
		 VALUES (?, ?, ?, ?, ?)`,
		date, totalWorkblocks, totalMinutes, snapshot, now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("insert archive for %s: %w", date, err)
	}
	id, _ := res.LastInsertId()

	if _, err := tx.Exec(
		`UPDATE workblocks SET archived = 1 WHERE date = ?`, date,
	); err != nil {
		return nil, fmt.Errorf("flag workblocks archived for %s: %w", date, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit archive for %s: %w", date, err)
	}
	return s.GetArchive(id)
}

func (s *Store) GetArchive(id int64) (*DailyArchive, error) {
	row := s.db.QueryRow(
		`SELECT `+archiveCols+` FROM daily_archives WHERE id = ?`, id,
	)
	a, err := scanArchive(row)
	if err != nil {
		return nil, fmt.Errorf("get archive %d: %w", id, err)
	}
	return a, nil
}

// ArchiveByDate returns the archive for a date, or nil if the date was
// never archived.
func (s *Store) ArchiveByDate(date string) (*DailyArchive, error) {
	row := s.db.QueryRow(
		`SELECT `+archiveCols+` FROM daily_archives WHERE date = ?`, date,
	)
	a, err := scanArchive(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive by date %s: %w", date, err)
	}
	return a, nil
}

// ListArchives returns all archives, newest date first.
func (s *Store) ListArchives() ([]DailyArchive, error) {
	rows, err := s.db.Query(
		`SELECT ` + archiveCols + ` FROM daily_archives ORDER BY date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var archives []DailyArchive
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, err
		}
		archives = append(archives, *a)
	}
	return archives, rows.Err()
}

func scanArchive(row rowScanner) (*DailyArchive, error) {
	a := &DailyArchive{}
	var archivedAt string
	err := row.Scan(&a.ID, &a.Date, &a.TotalWorkblocks, &a.TotalMinutes,
		&a.Snapshot, &archivedAt)
	if err != nil {
		return nil, err
	}
	a.ArchivedAt, _ = time.Parse(time.RFC3339, archivedAt)
	return a, nil
}
