package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/log15/internal/store"
)

// ToCSV writes one row per interval, grouped under their workblocks, to path.
func ToCSV(blocks []store.Workblock, intervals map[int64][]store.Interval, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"Workblock", "Date", "Workblock Status", "Interval", "Start", "End", "Minutes", "Label", "Interval Status"}); err != nil {
		return err
	}

	for _, wb := range blocks {
		for _, iv := range intervals[wb.ID] {
			endStr := ""
			if iv.EndTime != nil {
				endStr = iv.EndTime.Local().Format(time.RFC3339)
			}
			label := ""
			if iv.Label != nil {
				label = *iv.Label
			}

			row := []string{
				fmt.Sprintf("%d", wb.ID),
				wb.Date,
				string(wb.Status),
				fmt.Sprintf("%d", iv.Number),
				iv.StartTime.Local().Format(time.RFC3339),
				endStr,
				fmt.Sprintf("%d", iv.LengthMinutes),
				label,
				string(iv.Status),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	return w.Error()
}
