package db

import (
	"testing"
	"time"
)

func TestLogAndQueryEvents(t *testing.T) {
	db := setupTestDB(t)

	if err := db.LogEvent(testEvent("sess-1", 1, "entry", 1, 1, 0)); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}
	if err := db.LogEvent(testEvent("sess-1", 2, "entry", 2, 2, 0)); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}
	if err := db.LogEvent(testEvent("sess-1", 1, "exit", 1, 2, 1)); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	events, err := db.RecentEvents(10)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}

	// Newest first.
	if events[0].Direction != "exit" || events[0].TrackID != 1 {
		t.Errorf("Expected newest event to be the exit of track 1, got %+v", events[0])
	}
	if events[2].Direction != "entry" || events[2].TrackID != 1 {
		t.Errorf("Expected oldest event to be the entry of track 1, got %+v", events[2])
	}

	n, err := db.SessionEventCount("sess-1")
	if err != nil {
		t.Fatalf("SessionEventCount failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected session count 3, got %d", n)
	}
}

func TestRecentEventsLimit(t *testing.T) {
	db := setupTestDB(t)

	for i := int64(1); i <= 10; i++ {
		if err := db.LogEvent(testEvent("sess-1", i, "entry", int(i), int(i), 0)); err != nil {
			t.Fatalf("LogEvent failed: %v", err)
		}
	}

	events, err := db.RecentEvents(4)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if len(events) != 4 {
		t.Errorf("Expected 4 events, got %d", len(events))
	}
	if events[0].TrackID != 10 {
		t.Errorf("Expected newest track 10 first, got %d", events[0].TrackID)
	}
}

func TestLatestCounts(t *testing.T) {
	db := setupTestDB(t)

	// Empty database reads as all zeros, not an error.
	inside, entered, exited, err := db.LatestCounts()
	if err != nil {
		t.Fatalf("LatestCounts on empty DB failed: %v", err)
	}
	if inside != 0 || entered != 0 || exited != 0 {
		t.Errorf("Expected zeros on empty DB, got %d/%d/%d", inside, entered, exited)
	}

	if err := db.LogEvent(testEvent("sess-1", 1, "entry", 1, 1, 0)); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}
	if err := db.LogEvent(testEvent("sess-1", 2, "entry", 2, 2, 0)); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	inside, entered, exited, err = db.LatestCounts()
	if err != nil {
		t.Fatalf("LatestCounts failed: %v", err)
	}
	if inside != 2 || entered != 2 || exited != 0 {
		t.Errorf("Expected 2/2/0, got %d/%d/%d", inside, entered, exited)
	}
}

func TestResetCountsZeroesRestoredTotals(t *testing.T) {
	db := setupTestDB(t)

	if err := db.LogEvent(testEvent("sess-1", 1, "entry", 3, 5, 2)); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}
	if err := db.ResetCounts("sess-1", time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("ResetCounts failed: %v", err)
	}

	// The reset row is the newest event, so a restart restores zeros.
	inside, entered, exited, err := db.LatestCounts()
	if err != nil {
		t.Fatalf("LatestCounts failed: %v", err)
	}
	if inside != 0 || entered != 0 || exited != 0 {
		t.Errorf("Expected zeros after reset, got %d/%d/%d", inside, entered, exited)
	}

	events, err := db.RecentEvents(1)
	if err != nil {
		t.Fatalf("RecentEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].Direction != "reset" {
		t.Errorf("Expected newest event to be the reset audit row, got %+v", events)
	}
}

func TestRecordCrossingStats(t *testing.T) {
	db := setupTestDB(t)

	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := db.RecordCrossingStats("entry", i+1, at); err != nil {
			t.Fatalf("RecordCrossingStats failed: %v", err)
		}
	}
	if err := db.RecordCrossingStats("exit", 2, at.Add(time.Hour)); err != nil {
		t.Fatalf("RecordCrossingStats failed: %v", err)
	}

	stats, err := db.HourlyStats(at)
	if err != nil {
		t.Fatalf("HourlyStats failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("Expected 2 hourly rows, got %d", len(stats))
	}
	if stats[0].Hour != 9 || stats[0].Entered != 3 || stats[0].Exited != 0 {
		t.Errorf("Hour 9 = %+v, want 3 entries", stats[0])
	}
	if stats[1].Hour != 10 || stats[1].Exited != 1 {
		t.Errorf("Hour 10 = %+v, want 1 exit", stats[1])
	}

	summaries, err := db.DailySummaries(5)
	if err != nil {
		t.Fatalf("DailySummaries failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("Expected 1 daily summary, got %d", len(summaries))
	}
	if summaries[0].Entered != 3 || summaries[0].Exited != 1 {
		t.Errorf("Summary = %+v, want 3 entered 1 exited", summaries[0])
	}
	if summaries[0].PeakInside != 3 {
		t.Errorf("PeakInside = %d, want 3", summaries[0].PeakInside)
	}
}

func TestRecordCrossingStatsRejectsUnknownDirection(t *testing.T) {
	db := setupTestDB(t)
	if err := db.RecordCrossingStats("sideways", 1, time.Now()); err == nil {
		t.Error("Expected error for unknown direction")
	}
}

func TestLogAndQueryAlerts(t *testing.T) {
	db := setupTestDB(t)

	recs := []AlertRecord{
		{SessionID: "sess-1", Level: "warning", Message: "occupancy at 80% of limit", Inside: 40, Timestamp: time.Now()},
		{SessionID: "sess-1", Level: "critical", Message: "occupancy over limit", Inside: 51, Timestamp: time.Now()},
	}
	for _, rec := range recs {
		if err := db.LogAlert(rec); err != nil {
			t.Fatalf("LogAlert failed: %v", err)
		}
	}

	alerts, err := db.RecentAlerts(10)
	if err != nil {
		t.Fatalf("RecentAlerts failed: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("Expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].Level != "critical" {
		t.Errorf("Expected newest alert first, got %+v", alerts[0])
	}
}

func TestResolveAlert(t *testing.T) {
	db := setupTestDB(t)

	rec := AlertRecord{SessionID: "sess-1", Level: "warning", Message: "occupancy at 80% of limit", Inside: 40, Timestamp: time.Now()}
	if err := db.LogAlert(rec); err != nil {
		t.Fatalf("LogAlert failed: %v", err)
	}

	alerts, err := db.RecentAlerts(1)
	if err != nil {
		t.Fatalf("RecentAlerts failed: %v", err)
	}
	if alerts[0].Resolved {
		t.Error("New alert should start unresolved")
	}
	if alerts[0].ResolvedAt != nil {
		t.Errorf("New alert should have nil ResolvedAt, got %v", alerts[0].ResolvedAt)
	}

	resolvedAt := time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)
	if err := db.ResolveAlert(alerts[0].ID, resolvedAt); err != nil {
		t.Fatalf("ResolveAlert failed: %v", err)
	}

	alerts, err = db.RecentAlerts(1)
	if err != nil {
		t.Fatalf("RecentAlerts failed: %v", err)
	}
	if !alerts[0].Resolved {
		t.Error("Alert should be resolved")
	}
	if alerts[0].ResolvedAt == nil || !alerts[0].ResolvedAt.Equal(resolvedAt) {
		t.Errorf("Expected ResolvedAt %v, got %v", resolvedAt, alerts[0].ResolvedAt)
	}

	// Resolving twice, or resolving a missing id, is an error.
	if err := db.ResolveAlert(alerts[0].ID, resolvedAt); err == nil {
		t.Error("Expected error resolving an already-resolved alert")
	}
	if err := db.ResolveAlert(9999, resolvedAt); err == nil {
		t.Error("Expected error resolving a missing alert")
	}
}

func TestResolveSessionAlerts(t *testing.T) {
	db := setupTestDB(t)

	for _, rec := range []AlertRecord{
		{SessionID: "sess-1", Level: "warning", Message: "m", Inside: 40, Timestamp: time.Now()},
		{SessionID: "sess-1", Level: "critical", Message: "m", Inside: 51, Timestamp: time.Now()},
		{SessionID: "sess-2", Level: "warning", Message: "m", Inside: 40, Timestamp: time.Now()},
	} {
		if err := db.LogAlert(rec); err != nil {
			t.Fatalf("LogAlert failed: %v", err)
		}
	}

	n, err := db.ResolveSessionAlerts("sess-1", time.Now())
	if err != nil {
		t.Fatalf("ResolveSessionAlerts failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 alerts resolved, got %d", n)
	}

	alerts, err := db.RecentAlerts(10)
	if err != nil {
		t.Fatalf("RecentAlerts failed: %v", err)
	}
	for _, a := range alerts {
		want := a.SessionID == "sess-1"
		if a.Resolved != want {
			t.Errorf("Alert %d (session %s): resolved = %v, want %v", a.ID, a.SessionID, a.Resolved, want)
		}
	}

	// No open alerts left for the session.
	n, err = db.ResolveSessionAlerts("sess-1", time.Now())
	if err != nil {
		t.Fatalf("ResolveSessionAlerts failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 alerts resolved on second pass, got %d", n)
	}
}
