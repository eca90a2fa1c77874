package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/log15/internal/aggregate"
	"github.com/sadopc/log15/internal/store"
)

type jsonExport struct {
	ExportedAt string    `json:"exported_at"`
	Count      int       `json:"count"`
	Days       []jsonDay `json:"days"`
}

type jsonDay struct {
	Date            string                 `json:"date"`
	TotalWorkblocks int                    `json:"total_workblocks"`
	TotalMinutes    int                    `json:"total_minutes"`
	ArchivedAt      string                 `json:"archived_at"`
	Snapshot        *aggregate.DaySnapshot `json:"snapshot,omitempty"`
}

// ToJSON writes archived days with their decoded snapshots to path.
func ToJSON(archives []store.DailyArchive, path string) error {
	out := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(archives),
	}

	for _, a := range archives {
		day := jsonDay{
			Date:            a.Date,
			TotalWorkblocks: a.TotalWorkblocks,
			TotalMinutes:    a.TotalMinutes,
			ArchivedAt:      a.ArchivedAt.Format(time.RFC3339),
		}
		if a.Snapshot != "" {
			snap, err := aggregate.DecodeSnapshot(a.Snapshot)
			if err != nil {
				return fmt.Errorf("decode snapshot for %s: %w", a.Date, err)
			}
			day.Snapshot = &snap
		}
		out.Days = append(out.Days, day)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
