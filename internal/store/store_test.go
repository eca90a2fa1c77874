package store

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newWorkblock is a test helper that creates a workblock starting at the
// given time.
func newWorkblock(t *testing.T, s *Store, minutes int, start time.Time) *Workblock {
	t.Helper()
	wb, err := s.CreateWorkblock(minutes, start)
	if err != nil {
		t.Fatalf("create workblock: %v", err)
	}
	return wb
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// Should have run migration v1
	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/log15.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen should succeed and not re-migrate
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s2.Close()
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

// ============================================================
// Workblocks
// ============================================================

func TestCreateWorkblock(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	wb := newWorkblock(t, s, 60, start)
	if wb.ID == 0 {
		t.Fatal("expected non-zero id")
	}
	if wb.Date != "2026-03-10" {
		t.Errorf("date = %q, want 2026-03-10", wb.Date)
	}
	if wb.DurationMinutes != 60 {
		t.Errorf("duration = %d, want 60", wb.DurationMinutes)
	}
	if wb.Status != WorkblockActive {
		t.Errorf("status = %q, want active", wb.Status)
	}
	if wb.EndTime != nil {
		t.Error("new workblock should have no end time")
	}
	if wb.Archived {
		t.Error("new workblock should not be archived")
	}
}

func TestActiveWorkblock(t *testing.T) {
	s := newTestStore(t)

	wb, err := s.ActiveWorkblock()
	if err != nil {
		t.Fatal(err)
	}
	if wb != nil {
		t.Fatal("expected no active workblock in empty store")
	}

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	created := newWorkblock(t, s, 30, start)

	wb, err = s.ActiveWorkblock()
	if err != nil {
		t.Fatal(err)
	}
	if wb == nil || wb.ID != created.ID {
		t.Fatalf("active workblock = %v, want id %d", wb, created.ID)
	}
}

func TestCompleteWorkblock(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	wb := newWorkblock(t, s, 45, start)

	end := start.Add(45 * time.Minute)
	if err := s.CompleteWorkblock(wb.ID, end); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetWorkblock(wb.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != WorkblockCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.EndTime == nil || !got.EndTime.Equal(end) {
		t.Errorf("end time = %v, want %v", got.EndTime, end)
	}
	// Declared duration is unchanged by completion
	if got.DurationMinutes != 45 {
		t.Errorf("duration = %d, want 45", got.DurationMinutes)
	}
}

func TestCancelWorkblock(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	wb := newWorkblock(t, s, 60, start)

	end := start.Add(20 * time.Minute)
	if err := s.CancelWorkblock(wb.ID, end); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetWorkblock(wb.ID)
	if got.Status != WorkblockCancelled {
		t.Errorf("status = %q, want cancelled", got.Status)
	}

	active, _ := s.ActiveWorkblock()
	if active != nil {
		t.Error("cancelled workblock still reported active")
	}
}

func TestWorkblocksByDate(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	second := newWorkblock(t, s, 30, day.Add(14*time.Hour))
	first := newWorkblock(t, s, 30, day.Add(9*time.Hour))
	newWorkblock(t, s, 30, day.AddDate(0, 0, 1).Add(9*time.Hour)) // next day

	blocks, err := s.WorkblocksByDate("2026-03-10")
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d workblocks, want 2", len(blocks))
	}
	if blocks[0].ID != first.ID || blocks[1].ID != second.ID {
		t.Errorf("order = [%d %d], want [%d %d]", blocks[0].ID, blocks[1].ID, first.ID, second.ID)
	}
}

func TestForceCompleteActiveBefore(t *testing.T) {
	s := newTestStore(t)
	yesterday := time.Date(2026, 3, 9, 22, 0, 0, 0, time.UTC)
	today := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	stale := newWorkblock(t, s, 120, yesterday)
	current := newWorkblock(t, s, 30, today)

	n, err := s.ForceCompleteActiveBefore("2026-03-10", today)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("closed %d workblocks, want 1", n)
	}

	got, _ := s.GetWorkblock(stale.ID)
	if got.Status != WorkblockCompleted {
		t.Errorf("stale status = %q, want completed", got.Status)
	}
	got, _ = s.GetWorkblock(current.ID)
	if got.Status != WorkblockActive {
		t.Errorf("today's workblock touched by rollover, status = %q", got.Status)
	}
}

func TestUnarchivedDatesBefore(t *testing.T) {
	s := newTestStore(t)
	newWorkblock(t, s, 30, time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC))
	newWorkblock(t, s, 30, time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC))
	newWorkblock(t, s, 30, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)) // today

	dates, err := s.UnarchivedDatesBefore("2026-03-10")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2026-03-07", "2026-03-09"}
	if len(dates) != len(want) {
		t.Fatalf("got %v, want %v", dates, want)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Fatalf("got %v, want %v", dates, want)
		}
	}
}

// ============================================================
// Intervals
// ============================================================

func TestCreateInterval(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	wb := newWorkblock(t, s, 50, start)

	iv, err := s.CreateInterval(wb.ID, 1, 15, start)
	if err != nil {
		t.Fatal(err)
	}
	if iv.Number != 1 || iv.LengthMinutes != 15 {
		t.Errorf("interval = #%d/%dm, want #1/15m", iv.Number, iv.LengthMinutes)
	}
	if iv.Status != IntervalPending {
		t.Errorf("status = %q, want pending", iv.Status)
	}
	if iv.Label != nil {
		t.Error("new interval should have no label")
	}
}

func TestIntervalNumberUnique(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	wb := newWorkblock(t, s, 30, start)

	if _, err := s.CreateInterval(wb.ID, 1, 15, start); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateInterval(wb.ID, 1, 15, start); err == nil {
		t.Fatal("duplicate interval number accepted")
	}
}

func TestPendingInterval(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	wb := newWorkblock(t, s, 30, start)

	iv, err := s.PendingInterval(wb.ID)
	if err != nil {
		t.Fatal(err)
	}
	if iv != nil {
		t.Fatal("expected no pending interval")
	}

	first, _ := s.CreateInterval(wb.ID, 1, 15, start)
	s.RecordInterval(first.ID, "reading", IntervalRecorded, start.Add(5*time.Minute))
	second, _ := s.CreateInterval(wb.ID, 2, 15, start.Add(15*time.Minute))

	iv, err = s.PendingInterval(wb.ID)
	if err != nil {
		t.Fatal(err)
	}
	if iv == nil || iv.ID != second.ID {
		t.Fatalf("pending interval = %v, want id %d", iv, second.ID)
	}
}

func TestRecordInterval(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	wb := newWorkblock(t, s, 30, start)
	iv, _ := s.CreateInterval(wb.ID, 1, 15, start)

	recorded := start.Add(3 * time.Minute)
	won, err := s.RecordInterval(iv.ID, "writing tests", IntervalRecorded, recorded)
	if err != nil {
		t.Fatal(err)
	}
	if !won {
		t.Fatal("first record should win")
	}

	got, _ := s.GetInterval(iv.ID)
	if got.Status != IntervalRecorded {
		t.Errorf("status = %q, want recorded", got.Status)
	}
	if got.Label == nil || *got.Label != "writing tests" {
		t.Errorf("label = %v, want writing tests", got.Label)
	}
	if got.RecordedAt == nil || !got.RecordedAt.Equal(recorded) {
		t.Errorf("recorded at = %v, want %v", got.RecordedAt, recorded)
	}
}

func TestRecordIntervalOnce(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	wb := newWorkblock(t, s, 30, start)
	iv, _ := s.CreateInterval(wb.ID, 1, 15, start)

	won, err := s.RecordInterval(iv.ID, "first", IntervalRecorded, start.Add(time.Minute))
	if err != nil || !won {
		t.Fatalf("first record: won=%v err=%v", won, err)
	}

	// The losing side of the race sees won=false and no error.
	won, err = s.RecordInterval(iv.ID, "Away from workspace", IntervalAutoAway, start.Add(10*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if won {
		t.Fatal("second record should lose the compare-and-set")
	}

	got, _ := s.GetInterval(iv.ID)
	if *got.Label != "first" || got.Status != IntervalRecorded {
		t.Errorf("interval overwritten: label=%q status=%q", *got.Label, got.Status)
	}
}

func TestClosePendingIntervals(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	wb := newWorkblock(t, s, 30, start)
	iv, _ := s.CreateInterval(wb.ID, 1, 15, start)

	end := start.Add(7 * time.Minute)
	if err := s.ClosePendingIntervals(wb.ID, end); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetInterval(iv.ID)
	if got.Status != IntervalPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
	if got.EndTime == nil || !got.EndTime.Equal(end) {
		t.Errorf("end time = %v, want %v", got.EndTime, end)
	}
	if got.Label != nil {
		t.Error("closing must not invent a label")
	}
}

func TestIntervalsByWorkblock(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	wb := newWorkblock(t, s, 45, start)

	s.CreateInterval(wb.ID, 2, 15, start.Add(15*time.Minute))
	s.CreateInterval(wb.ID, 1, 15, start)
	s.CreateInterval(wb.ID, 3, 15, start.Add(30*time.Minute))

	intervals, err := s.IntervalsByWorkblock(wb.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(intervals) != 3 {
		t.Fatalf("got %d intervals, want 3", len(intervals))
	}
	for i, iv := range intervals {
		if iv.Number != i+1 {
			t.Errorf("position %d has number %d", i, iv.Number)
		}
	}
}

// ============================================================
// Archives
// ============================================================

func TestCreateArchiveFlagsWorkblocks(t *testing.T) {
	s := newTestStore(t)
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	wb := newWorkblock(t, s, 30, start)
	s.CompleteWorkblock(wb.ID, start.Add(30*time.Minute))

	now := time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)
	arch, err := s.CreateArchive("2026-03-09", 1, 30, `{"daily_aggregate":null}`, now)
	if err != nil {
		t.Fatal(err)
	}
	if arch.TotalWorkblocks != 1 || arch.TotalMinutes != 30 {
		t.Errorf("archive totals = %d/%d, want 1/30", arch.TotalWorkblocks, arch.TotalMinutes)
	}

	got, _ := s.GetWorkblock(wb.ID)
	if !got.Archived {
		t.Error("workblock not flagged archived")
	}

	dates, _ := s.UnarchivedDatesBefore("2026-03-10")
	if len(dates) != 0 {
		t.Errorf("dates still unarchived: %v", dates)
	}
}

func TestCreateArchiveDuplicateDate(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)

	if _, err := s.CreateArchive("2026-03-09", 0, 0, "{}", now); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateArchive("2026-03-09", 0, 0, "{}", now); err == nil {
		t.Fatal("duplicate archive date accepted")
	}
}

func TestArchiveByDate(t *testing.T) {
	s := newTestStore(t)

	arch, err := s.ArchiveByDate("2026-03-09")
	if err != nil {
		t.Fatal(err)
	}
	if arch != nil {
		t.Fatal("expected nil for unarchived date")
	}

	now := time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)
	s.CreateArchive("2026-03-09", 2, 75, "{}", now)

	arch, err = s.ArchiveByDate("2026-03-09")
	if err != nil {
		t.Fatal(err)
	}
	if arch == nil || arch.TotalMinutes != 75 {
		t.Fatalf("archive = %v, want 75 minutes", arch)
	}
}

func TestListArchivesNewestFirst(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)
	s.CreateArchive("2026-03-07", 0, 0, "{}", now)
	s.CreateArchive("2026-03-09", 0, 0, "{}", now)
	s.CreateArchive("2026-03-08", 0, 0, "{}", now)

	archives, err := s.ListArchives()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2026-03-09", "2026-03-08", "2026-03-07"}
	for i, a := range archives {
		if a.Date != want[i] {
			t.Fatalf("order = %v, want %v", archives, want)
		}
	}
}

// ============================================================
// Settings
// ============================================================

func TestDefaultSettings(t *testing.T) {
	s := newTestStore(t)

	for key, want := range map[string]string{
		"interval_minutes":     "15",
		"away_timeout_minutes": "10",
		"label_max_chars":      "50",
	} {
		got, err := s.GetSetting(key)
		if err != nil {
			t.Fatalf("get %s: %v", key, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestSetSetting(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetSetting("interval_minutes", "20"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetSetting("interval_minutes")
	if got != "20" {
		t.Errorf("interval_minutes = %q, want 20", got)
	}

	settings, err := s.GetAllSettings()
	if err != nil {
		t.Fatal(err)
	}
	if len(settings) != 3 {
		t.Errorf("got %d settings, want 3", len(settings))
	}
}
