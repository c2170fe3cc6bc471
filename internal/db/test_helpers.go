package db

import (
	"testing"
	"time"
)

// setupTestDB opens a fresh in-memory database with the full schema.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// testEvent builds a plausible crossing record for insertion tests.
func testEvent(sessionID string, trackID int64, direction string, inside, entered, exited int) EventRecord {
	return EventRecord{
		SessionID: sessionID,
		TrackID:   trackID,
		Direction: direction,
		X:         640,
		Y:         360,
		Inside:    inside,
		Entered:   entered,
		Exited:    exited,
		Timestamp: time.Now(),
	}
}
