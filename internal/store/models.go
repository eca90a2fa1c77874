package store

import "time"

// WorkblockStatus is the lifecycle state of a workblock. Both terminal
// states are final; a workblock is never deleted, only transitioned.
type WorkblockStatus string

const (
	WorkblockActive    WorkblockStatus = "active"
	WorkblockCompleted WorkblockStatus = "completed"
	WorkblockCancelled WorkblockStatus = "cancelled"
)

// IntervalStatus is the lifecycle state of an interval. An interval moves
// from pending to exactly one of the terminal states, exactly once.
type IntervalStatus string

const (
	IntervalPending  IntervalStatus = "pending"
	IntervalRecorded IntervalStatus = "recorded"
	IntervalAutoAway IntervalStatus = "auto_away"
)

type Workblock struct {
	ID              int64
	Date            string // YYYY-MM-DD, the day the workblock started
	StartTime       time.Time
	EndTime         *time.Time
	DurationMinutes int
	Status          WorkblockStatus
	Archived        bool
	CreatedAt       time.Time
}

type Interval struct {
	ID          int64
	WorkblockID int64
	Number      int // 1-based position within the workblock
	StartTime   time.Time
	EndTime     *time.Time
	// LengthMinutes is the planned length: 15, or the remainder absorbed
	// by the final interval of a workblock.
	LengthMinutes int
	Label         *string
	Status        IntervalStatus
	RecordedAt    *time.Time
}

type DailyArchive struct {
	ID              int64
	Date            string
	TotalWorkblocks int
	TotalMinutes    int
	Snapshot        string // serialized day snapshot, see internal/aggregate
	ArchivedAt      time.Time
}

type Setting struct {
	Key   string
	Value string
}
