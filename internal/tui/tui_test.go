package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/log15/internal/aggregate"
	"github.com/sadopc/log15/internal/scheduler"
	"github.com/sadopc/log15/internal/status"
	"github.com/sadopc/log15/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestScheduler(t *testing.T, s *store.Store) *scheduler.Scheduler {
	t.Helper()
	sched := scheduler.New(s, nil, nil, nil, scheduler.DefaultConfig())
	t.Cleanup(sched.Shutdown)
	return sched
}

// runCmd executes a command and returns its message.
func runCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return cmd()
}

// ============================================================
// Event bridge
// ============================================================

func TestBridgeDeliversEvents(t *testing.T) {
	b := NewBridge()

	b.IntervalAdvanced(7, 2)
	msg := runCmd(t, b.Wait())
	adv, ok := msg.(intervalAdvancedMsg)
	if !ok || adv.intervalID != 7 || adv.number != 2 {
		t.Fatalf("msg = %#v, want intervalAdvancedMsg{7,2}", msg)
	}

	b.StatusChanged(status.Active)
	msg = runCmd(t, b.Wait())
	if st, ok := msg.(statusChangedMsg); !ok || st.state != status.Active {
		t.Fatalf("msg = %#v, want statusChangedMsg{Active}", msg)
	}

	b.HidePrompt()
	if _, ok := runCmd(t, b.Wait()).(hidePromptMsg); !ok {
		t.Fatal("expected hidePromptMsg")
	}

	b.Fault(errors.New("boom"))
	if f, ok := runCmd(t, b.Wait()).(faultMsg); !ok || f.err == nil {
		t.Fatal("expected faultMsg with error")
	}
}

func TestBridgeOverflowDropsQuietly(t *testing.T) {
	b := NewBridge()
	// Far past the buffer; sends must never block the scheduler.
	for i := 0; i < 500; i++ {
		b.SummaryReady(int64(i))
	}
	if _, ok := runCmd(t, b.Wait()).(summaryReadyMsg); !ok {
		t.Fatal("expected a buffered summaryReadyMsg")
	}
}

// ============================================================
// Dashboard
// ============================================================

func TestDashboardLoadDataIdle(t *testing.T) {
	s := newTestStore(t)
	sched := newTestScheduler(t, s)
	d := newDashboardModel(s, sched)

	msg := runCmd(t, d.loadData())
	data, ok := msg.(dashboardDataMsg)
	if !ok {
		t.Fatalf("msg = %#v, want dashboardDataMsg", msg)
	}
	if data.state != status.Idle {
		t.Errorf("state = %v, want Idle", data.state)
	}
	if data.summary != nil {
		t.Error("idle store produced a workblock summary")
	}

	d, _ = d.update(data)
	if d.inputActive() {
		t.Error("fresh dashboard captures input")
	}
}

func TestDashboardStartAndCancel(t *testing.T) {
	s := newTestStore(t)
	sched := newTestScheduler(t, s)
	d := newDashboardModel(s, sched)

	d, cmd := d.startWorkblock(30)
	if cmd == nil {
		t.Fatal("start returned no command")
	}
	wb := sched.Active()
	if wb == nil {
		t.Fatal("no active workblock after start")
	}

	// Second start conflicts and surfaces as an error status.
	_, cmd = d.startWorkblock(30)
	if msg, ok := runCmd(t, cmd).(statusMsg); !ok || !msg.isError {
		t.Fatalf("msg = %#v, want error statusMsg", msg)
	}

	d, cmd = d.cancelWorkblock()
	if cmd == nil {
		t.Fatal("cancel returned no command")
	}
	if sched.Active() != nil {
		t.Error("workblock still active after cancel")
	}

	// Cancel with nothing active is a quiet no-op.
	_, cmd = d.cancelWorkblock()
	if cmd != nil {
		t.Error("idle cancel produced a command")
	}
}

func TestDashboardSummaryAfterCompletion(t *testing.T) {
	s := newTestStore(t)
	sched := newTestScheduler(t, s)
	d := newDashboardModel(s, sched)

	now := time.Now()
	wb, _ := s.CreateWorkblock(30, now.Add(-30*time.Minute))
	iv, _ := s.CreateInterval(wb.ID, 1, 15, now.Add(-30*time.Minute))
	s.RecordInterval(iv.ID, "writing", store.IntervalRecorded, now.Add(-25*time.Minute))
	iv2, _ := s.CreateInterval(wb.ID, 2, 15, now.Add(-15*time.Minute))
	s.RecordInterval(iv2.ID, "writing", store.IntervalRecorded, now.Add(-10*time.Minute))
	s.CompleteWorkblock(wb.ID, now)

	msg := runCmd(t, d.loadData())
	data, ok := msg.(dashboardDataMsg)
	if !ok {
		t.Fatalf("msg = %#v, want dashboardDataMsg", msg)
	}
	if data.state != status.SummaryReady {
		t.Fatalf("state = %v, want SummaryReady", data.state)
	}
	if data.summary == nil || data.summary.WorkblockID != wb.ID {
		t.Fatalf("summary = %+v, want workblock %d", data.summary, wb.ID)
	}
	if len(data.summary.Timeline) != 2 {
		t.Errorf("summary timeline has %d entries, want 2", len(data.summary.Timeline))
	}
}

func TestPromptShowAndHide(t *testing.T) {
	s := newTestStore(t)
	sched := newTestScheduler(t, s)
	d := newDashboardModel(s, sched)

	wb, err := sched.Start(30)
	if err != nil {
		t.Fatal(err)
	}
	iv, _ := s.PendingInterval(wb.ID)

	d, cmd := d.update(showPromptMsg{intervalID: iv.ID})
	if cmd == nil {
		t.Fatal("prompt form not initialized")
	}
	if !d.inputActive() {
		t.Fatal("prompt not capturing input")
	}

	d, _ = d.update(hidePromptMsg{})
	if d.inputActive() {
		t.Error("prompt still active after hide")
	}
}

// ============================================================
// Archives
// ============================================================

func archiveFixture(t *testing.T) store.DailyArchive {
	t.Helper()
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	label := "email"
	snap := aggregate.BuildDaySnapshot([]aggregate.Block{{
		Workblock: store.Workblock{
			ID: 1, Date: "2026-03-09", StartTime: start, EndTime: &end,
			DurationMinutes: 30, Status: store.WorkblockCompleted,
		},
		Intervals: []store.Interval{
			{ID: 1, WorkblockID: 1, Number: 1, StartTime: start, LengthMinutes: 15,
				Label: &label, Status: store.IntervalRecorded},
			{ID: 2, WorkblockID: 1, Number: 2, StartTime: start.Add(15 * time.Minute),
				LengthMinutes: 15, Label: &label, Status: store.IntervalRecorded},
		},
	}})
	raw, err := aggregate.EncodeSnapshot(snap)
	if err != nil {
		t.Fatal(err)
	}
	return store.DailyArchive{ID: 1, Date: "2026-03-09", TotalWorkblocks: 1, TotalMinutes: 30, Snapshot: raw}
}

func TestArchivesRefresh(t *testing.T) {
	s := newTestStore(t)
	s.CreateArchive("2026-03-09", 1, 30, "{}", time.Now())

	a := newArchivesModel(s)
	msg := runCmd(t, a.refresh())
	data, ok := msg.(archivesDataMsg)
	if !ok || len(data.archives) != 1 {
		t.Fatalf("msg = %#v, want one archive", msg)
	}

	a, _ = a.update(data)
	if len(a.archives) != 1 || a.cursor != 0 {
		t.Errorf("model = %d archives cursor %d", len(a.archives), a.cursor)
	}
}

func TestArchivesOpenDetail(t *testing.T) {
	s := newTestStore(t)
	a := newArchivesModel(s)
	a.setSize(80, 24)

	a, cmd := a.openDetail(archiveFixture(t))
	if cmd != nil {
		t.Fatalf("openDetail produced %#v", runCmd(t, cmd))
	}
	if !a.viewingDetail || a.detail == nil {
		t.Fatal("detail view not opened")
	}
	if a.detail.Daily.TotalMinutes != 30 {
		t.Errorf("decoded minutes = %d, want 30", a.detail.Daily.TotalMinutes)
	}
	if a.view() == "" {
		t.Error("detail view rendered empty")
	}
}

func TestArchivesCorruptSnapshot(t *testing.T) {
	s := newTestStore(t)
	a := newArchivesModel(s)

	_, cmd := a.openDetail(store.DailyArchive{Date: "2026-03-09", Snapshot: "{broken"})
	msg, ok := runCmd(t, cmd).(statusMsg)
	if !ok || !msg.isError {
		t.Fatalf("msg = %#v, want error statusMsg", msg)
	}
}

// ============================================================
// Formatting helpers
// ============================================================

func TestFormatCountdown(t *testing.T) {
	cases := map[int64]string{
		0:    "00:00",
		59:   "00:59",
		60:   "01:00",
		899:  "14:59",
		1200: "20:00",
		-5:   "00:00",
	}
	for secs, want := range cases {
		if got := formatCountdown(secs); got != want {
			t.Errorf("formatCountdown(%d) = %q, want %q", secs, got, want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	cases := map[int]string{
		0:   "0m",
		45:  "45m",
		60:  "1h 00m",
		95:  "1h 35m",
		150: "2h 30m",
	}
	for minutes, want := range cases {
		if got := formatMinutes(minutes); got != want {
			t.Errorf("formatMinutes(%d) = %q, want %q", minutes, got, want)
		}
	}
}

func TestKeyMapHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Error("empty short help")
	}
	if len(keys.FullHelp()) == 0 {
		t.Error("empty full help")
	}
}
