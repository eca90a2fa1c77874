package aggregate

import (
	"encoding/json"
	"sort"

	"github.com/sadopc/log15/internal/store"
)

// Daily is the running aggregate for one calendar day. It is designed as a
// left-fold: Add merges one workblock at a time, so the scheduler can update
// it on each completion without re-scanning history. The same fold, run over
// all of a date's rows, is the batch path used by archival.
type Daily struct {
	TotalWorkblocks int             `json:"total_workblocks"`
	TotalMinutes    int             `json:"total_minutes"`
	Timeline        []TimelineEntry `json:"timeline"`
	Activities      []Activity      `json:"activities"`
	Phrases         []PhraseCount   `json:"phrase_frequency"`

	minutesByLabel map[string]int
	countByLabel   map[string]int
}

// Block pairs a workblock with its intervals for the batch fold.
type Block struct {
	Workblock store.Workblock
	Intervals []store.Interval
}

func NewDaily() *Daily {
	return &Daily{
		minutesByLabel: make(map[string]int),
		countByLabel:   make(map[string]int),
	}
}

// Add folds one workblock into the aggregate. Only completed workblocks
// count: cancelled ones contribute nothing, and active ones are not final.
func (d *Daily) Add(wb store.Workblock, intervals []store.Interval) {
	if wb.Status != store.WorkblockCompleted {
		return
	}

	d.TotalWorkblocks++
	d.TotalMinutes += wb.DurationMinutes

	for _, iv := range intervals {
		d.Timeline = append(d.Timeline, timelineEntry(wb.ID, iv))
		if key := labelKey(iv); key != "" {
			d.minutesByLabel[key] += iv.LengthMinutes
			d.countByLabel[key]++
		}
	}

	// Chronological merge: stable sort by start time, workblock id breaks
	// ties between blocks that started in the same second.
	sort.SliceStable(d.Timeline, func(i, j int) bool {
		if d.Timeline[i].StartTime != d.Timeline[j].StartTime {
			return d.Timeline[i].StartTime < d.Timeline[j].StartTime
		}
		return d.Timeline[i].WorkblockID < d.Timeline[j].WorkblockID
	})

	d.Activities = activities(d.minutesByLabel)
	d.Phrases = phrases(d.countByLabel)
}

// GenerateDaily folds a date's workblocks through the same merge step as the
// incremental path. Archival uses this to rebuild the aggregate fresh from
// raw rows, so it stays correct even after a crash wiped the in-memory one.
func GenerateDaily(blocks []Block) *Daily {
	d := NewDaily()
	for _, b := range blocks {
		d.Add(b.Workblock, b.Intervals)
	}
	return d
}

// Clone returns an independent snapshot safe to hand to readers while the
// scheduler keeps folding into the original.
func (d *Daily) Clone() *Daily {
	out := NewDaily()
	out.TotalWorkblocks = d.TotalWorkblocks
	out.TotalMinutes = d.TotalMinutes
	out.Timeline = append([]TimelineEntry(nil), d.Timeline...)
	out.Activities = append([]Activity(nil), d.Activities...)
	out.Phrases = append([]PhraseCount(nil), d.Phrases...)
	for k, v := range d.minutesByLabel {
		out.minutesByLabel[k] = v
	}
	for k, v := range d.countByLabel {
		out.countByLabel[k] = v
	}
	return out
}

// DaySnapshot is the serialized payload stored in a daily archive:
// per-workblock visualizations plus the merged daily aggregate.
type DaySnapshot struct {
	Workblocks []Visualization `json:"workblocks"`
	Daily      *Daily          `json:"daily_aggregate"`
}

// BuildDaySnapshot assembles the archive payload for one date's blocks.
func BuildDaySnapshot(blocks []Block) DaySnapshot {
	snap := DaySnapshot{Daily: GenerateDaily(blocks)}
	for _, b := range blocks {
		snap.Workblocks = append(snap.Workblocks, BuildVisualization(b.Workblock, b.Intervals))
	}
	return snap
}

// EncodeSnapshot serializes a snapshot for storage.
func EncodeSnapshot(snap DaySnapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeSnapshot restores a stored snapshot. Archive browsing reads this
// back instead of recomputing from rows.
func DecodeSnapshot(raw string) (DaySnapshot, error) {
	var snap DaySnapshot
	err := json.Unmarshal([]byte(raw), &snap)
	return snap, err
}
