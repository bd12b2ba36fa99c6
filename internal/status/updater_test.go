package status

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/trentd187/badminton-club/internal/metrics"
	"github.com/trentd187/badminton-club/internal/models"
	"github.com/trentd187/badminton-club/internal/testdb"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events [][]uuid.UUID
}

func (n *recordingNotifier) MatchesChanged(_ string, ids ...uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ids)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedMatch(t *testing.T, db *gorm.DB, date time.Time, timeRange string, status models.MatchStatus) models.Match {
	t.Helper()
	m := models.Match{
		Title:     "Session",
		Location:  "GOR Sudirman",
		Date:      models.DateOf(date),
		TimeRange: timeRange,
		Status:    status,
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("seed match: %v", err)
	}
	return m
}

func statusOf(t *testing.T, db *gorm.DB, id uuid.UUID) models.MatchStatus {
	t.Helper()
	var m models.Match
	if err := db.First(&m, "id = ?", id).Error; err != nil {
		t.Fatalf("load match: %v", err)
	}
	return m.Status
}

func TestUpdaterCompletesEndedMatches(t *testing.T) {
	db := testdb.Open(t)
	notifier := &recordingNotifier{}
	u := NewUpdater(db, time.UTC, quietLogger(), nil, notifier)

	ended := seedMatch(t, db, day(2024, 6, 1), "19:00-21:00", models.MatchStatusUpcoming)
	later := seedMatch(t, db, day(2024, 6, 10), "19:00-21:00", models.MatchStatusUpcoming)
	tonight := seedMatch(t, db, day(2024, 6, 5), "19:00-21:00", models.MatchStatusUpcoming)
	done := seedMatch(t, db, day(2024, 5, 1), "19:00-21:00", models.MatchStatusCompleted)

	now := time.Date(2024, 6, 5, 20, 0, 0, 0, time.UTC)
	n, err := u.Run(context.Background(), now, TriggerClient)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 completed, got %d", n)
	}

	want := map[uuid.UUID]models.MatchStatus{
		ended.ID:   models.MatchStatusCompleted,
		later.ID:   models.MatchStatusUpcoming,
		tonight.ID: models.MatchStatusUpcoming,
		done.ID:    models.MatchStatusCompleted,
	}
	for id, status := range want {
		if got := statusOf(t, db, id); got != status {
			t.Errorf("match %s: expected %s, got %s", id, status, got)
		}
	}

	if notifier.count() != 1 {
		t.Fatalf("expected one notification, got %d", notifier.count())
	}
	if ids := notifier.events[0]; len(ids) != 1 || ids[0] != ended.ID {
		t.Fatalf("unexpected notified ids %v", ids)
	}
}

func TestUpdaterIsIdempotent(t *testing.T) {
	db := testdb.Open(t)
	notifier := &recordingNotifier{}
	u := NewUpdater(db, time.UTC, quietLogger(), nil, notifier)

	seedMatch(t, db, day(2024, 6, 1), "08:00-10:00", models.MatchStatusUpcoming)
	seedMatch(t, db, day(2024, 6, 2), "08:00-10:00", models.MatchStatusUpcoming)

	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	first, err := u.Run(context.Background(), now, TriggerInterval)
	if err != nil || first != 2 {
		t.Fatalf("first run: n=%d err=%v", first, err)
	}
	second, err := u.Run(context.Background(), now, TriggerInterval)
	if err != nil || second != 0 {
		t.Fatalf("second run: n=%d err=%v", second, err)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected a notification only for the run that changed something, got %d", notifier.count())
	}
}

func TestUpdaterOvernightRange(t *testing.T) {
	db := testdb.Open(t)
	u := NewUpdater(db, time.UTC, quietLogger(), nil, nil)

	m := seedMatch(t, db, day(2024, 6, 1), "22:00-01:00", models.MatchStatusUpcoming)

	// Past the start and past midnight, but before the end on the next day.
	n, err := u.Run(context.Background(), time.Date(2024, 6, 2, 0, 30, 0, 0, time.UTC), TriggerInterval)
	if err != nil || n != 0 {
		t.Fatalf("before end: n=%d err=%v", n, err)
	}
	if got := statusOf(t, db, m.ID); got != models.MatchStatusUpcoming {
		t.Fatalf("expected still upcoming, got %s", got)
	}

	n, err = u.Run(context.Background(), time.Date(2024, 6, 2, 1, 30, 0, 0, time.UTC), TriggerInterval)
	if err != nil || n != 1 {
		t.Fatalf("after end: n=%d err=%v", n, err)
	}
}

func TestUpdaterSkipsMalformedRanges(t *testing.T) {
	db := testdb.Open(t)
	u := NewUpdater(db, time.UTC, quietLogger(), nil, nil)

	bad := seedMatch(t, db, day(2024, 6, 1), "evening", models.MatchStatusUpcoming)
	good := seedMatch(t, db, day(2024, 6, 1), "18:00-20:00", models.MatchStatusUpcoming)

	n, err := u.Run(context.Background(), time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC), TriggerClient)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 completed, got %d", n)
	}
	if got := statusOf(t, db, bad.ID); got != models.MatchStatusUpcoming {
		t.Fatalf("malformed match should stay upcoming, got %s", got)
	}
	if got := statusOf(t, db, good.ID); got != models.MatchStatusCompleted {
		t.Fatalf("valid match should complete, got %s", got)
	}
}

func TestUpdaterUsesClubTimezone(t *testing.T) {
	db := testdb.Open(t)
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	u := NewUpdater(db, jakarta, quietLogger(), nil, nil)

	m := seedMatch(t, db, day(2024, 6, 1), "19:00-21:00", models.MatchStatusUpcoming)

	// Jakarta is UTC+7: 13:30 UTC is 20:30 local, 14:30 UTC is 21:30 local.
	n, err := u.Run(context.Background(), time.Date(2024, 6, 1, 13, 30, 0, 0, time.UTC), TriggerInterval)
	if err != nil || n != 0 {
		t.Fatalf("during match: n=%d err=%v", n, err)
	}
	n, err = u.Run(context.Background(), time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC), TriggerInterval)
	if err != nil || n != 1 {
		t.Fatalf("after match: n=%d err=%v", n, err)
	}
	if got := statusOf(t, db, m.ID); got != models.MatchStatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
}

func TestUpdaterConcurrentRunsConverge(t *testing.T) {
	db := testdb.Open(t)
	u := NewUpdater(db, time.UTC, quietLogger(), nil, nil)

	const matches = 5
	for i := 0; i < matches; i++ {
		seedMatch(t, db, day(2024, 6, 1+i), "10:00-12:00", models.MatchStatusUpcoming)
	}

	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := u.Run(context.Background(), now, TriggerClient)
			if err != nil {
				t.Errorf("run: %v", err)
				return
			}
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total != matches {
		t.Fatalf("expected each match to be counted once (%d), got %d", matches, total)
	}
	var upcoming int64
	db.Model(&models.Match{}).Where("status = ?", models.MatchStatusUpcoming).Count(&upcoming)
	if upcoming != 0 {
		t.Fatalf("expected no upcoming matches left, got %d", upcoming)
	}
}

func TestUpdaterOmitsIDsWhenAnotherRunWonSomeMatches(t *testing.T) {
	db := testdb.Open(t)
	notifier := &recordingNotifier{}
	u := NewUpdater(db, time.UTC, quietLogger(), nil, notifier)

	first := seedMatch(t, db, day(2024, 6, 1), "10:00-12:00", models.MatchStatusUpcoming)
	seedMatch(t, db, day(2024, 6, 2), "10:00-12:00", models.MatchStatusUpcoming)

	// Complete one of the candidates after they were selected but before the guarded
	// update runs, the way an overlapping run would.
	var fired atomic.Bool
	err := db.Callback().Update().Before("gorm:update").Register("test:overlapping_run", func(tx *gorm.DB) {
		if !fired.CompareAndSwap(false, true) {
			return
		}
		err := tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE matches SET status = ? WHERE id = ?", models.MatchStatusCompleted, first.ID).Error
		if err != nil {
			t.Errorf("overlapping update: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	n, err := u.Run(context.Background(), time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), TriggerInterval)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected this run to complete 1 match, got %d", n)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected one notification, got %d", notifier.count())
	}
	if ids := notifier.events[0]; len(ids) != 0 {
		t.Fatalf("expected no ids when the count differs from the candidates, got %v", ids)
	}
}

func TestUpdaterRecordsMetrics(t *testing.T) {
	db := testdb.Open(t)
	recorder := metrics.New()
	u := NewUpdater(db, time.UTC, quietLogger(), recorder, nil)

	seedMatch(t, db, day(2024, 6, 1), "10:00-12:00", models.MatchStatusUpcoming)
	seedMatch(t, db, day(2024, 6, 1), "noon", models.MatchStatusUpcoming)

	if _, err := u.Run(context.Background(), time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), TriggerClient); err != nil {
		t.Fatalf("run: %v", err)
	}

	families, err := recorder.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	got := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if c := m.GetCounter(); c != nil {
				got[f.GetName()] += c.GetValue()
			}
		}
	}
	if got["club_matches_completed_total"] != 1 {
		t.Errorf("matches_completed_total = %v", got["club_matches_completed_total"])
	}
	if got["club_status_reconcile_malformed_total"] != 1 {
		t.Errorf("status_reconcile_malformed_total = %v", got["club_status_reconcile_malformed_total"])
	}
	if got["club_status_reconcile_runs_total"] != 1 {
		t.Errorf("status_reconcile_runs_total = %v", got["club_status_reconcile_runs_total"])
	}
}
