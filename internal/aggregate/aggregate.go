// Package aggregate builds timeline, activity and phrase-frequency
// summaries from raw workblock and interval rows. Everything here is pure
// computation: callers pass rows in and get data back.
package aggregate

import (
	"sort"
	"strings"

	"github.com/sadopc/log15/internal/store"
)

// PendingLabel is rendered for intervals that never received a label.
const PendingLabel = "Pending"

// TimelineEntry is one interval on a timeline, in either a per-workblock
// visualization or the merged daily view.
type TimelineEntry struct {
	WorkblockID int64   `json:"workblock_id"`
	Number      int     `json:"interval_number"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time,omitempty"`
	Label       string  `json:"label"`
	Minutes     int     `json:"duration_minutes"`
	Cancelled   bool    `json:"cancelled,omitempty"`
	Status      string  `json:"status"`
}

// Activity is the time spent under one normalized label.
type Activity struct {
	Label      string  `json:"label"`
	Minutes    int     `json:"total_minutes"`
	Percentage float64 `json:"percentage"`
}

// PhraseCount counts how often a normalized label was recorded,
// independent of interval length.
type PhraseCount struct {
	Phrase string `json:"phrase"`
	Count  int    `json:"count"`
}

// Visualization summarizes a single workblock.
type Visualization struct {
	WorkblockID int64           `json:"workblock_id"`
	Timeline    []TimelineEntry `json:"timeline"`
	Activities  []Activity      `json:"activities"`
	Phrases     []PhraseCount   `json:"phrase_frequency"`
}

// Normalize maps a raw label to its aggregation key: trimmed and
// case-folded. An empty result means the label contributes nothing.
func Normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// BuildVisualization summarizes one workblock from its intervals. For a
// cancelled workblock, intervals starting after the cancellation time are
// dropped and the last surviving interval is tagged cancelled.
func BuildVisualization(wb store.Workblock, intervals []store.Interval) Visualization {
	cancelled := wb.Status == store.WorkblockCancelled
	if cancelled && wb.EndTime != nil {
		kept := intervals[:0:0]
		for _, iv := range intervals {
			if !iv.StartTime.After(*wb.EndTime) {
				kept = append(kept, iv)
			}
		}
		intervals = kept
	}

	lastNumber := 0
	if cancelled {
		for _, iv := range intervals {
			if iv.Number > lastNumber {
				lastNumber = iv.Number
			}
		}
	}

	v := Visualization{WorkblockID: wb.ID}
	minutesByLabel := make(map[string]int)
	countByLabel := make(map[string]int)

	for _, iv := range intervals {
		entry := timelineEntry(wb.ID, iv)
		entry.Cancelled = cancelled && iv.Number == lastNumber
		v.Timeline = append(v.Timeline, entry)

		if key := labelKey(iv); key != "" {
			minutesByLabel[key] += iv.LengthMinutes
			countByLabel[key]++
		}
	}

	v.Activities = activities(minutesByLabel)
	v.Phrases = phrases(countByLabel)
	return v
}

func timelineEntry(workblockID int64, iv store.Interval) TimelineEntry {
	entry := TimelineEntry{
		WorkblockID: workblockID,
		Number:      iv.Number,
		StartTime:   iv.StartTime.Format("2006-01-02T15:04:05Z07:00"),
		Label:       PendingLabel,
		Minutes:     iv.LengthMinutes,
		Status:      string(iv.Status),
	}
	if iv.EndTime != nil {
		entry.EndTime = iv.EndTime.Format("2006-01-02T15:04:05Z07:00")
	}
	if iv.Label != nil && strings.TrimSpace(*iv.Label) != "" {
		entry.Label = strings.TrimSpace(*iv.Label)
	}
	return entry
}

func labelKey(iv store.Interval) string {
	if iv.Status == store.IntervalPending || iv.Label == nil {
		return ""
	}
	return Normalize(*iv.Label)
}

// activities converts a minutes-per-label map into a sorted slice with
// percentages over the labeled total.
func activities(minutesByLabel map[string]int) []Activity {
	total := 0
	for _, m := range minutesByLabel {
		total += m
	}

	out := make([]Activity, 0, len(minutesByLabel))
	for label, minutes := range minutesByLabel {
		pct := 0.0
		if total > 0 {
			pct = float64(minutes) / float64(total) * 100.0
		}
		out = append(out, Activity{Label: label, Minutes: minutes, Percentage: pct})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Minutes != out[j].Minutes {
			return out[i].Minutes > out[j].Minutes
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func phrases(countByLabel map[string]int) []PhraseCount {
	out := make([]PhraseCount, 0, len(countByLabel))
	for phrase, count := range countByLabel {
		out = append(out, PhraseCount{Phrase: phrase, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Phrase < out[j].Phrase
	})
	return out
}
