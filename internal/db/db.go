// Package db owns SQLite persistence for crossing events, rollup
// statistics, and alert history. The schema is managed exclusively by
// the embedded migrations; see migrate.go.
package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if necessary) the SQLite database at path and
// brings the schema up to the latest migration. Use ":memory:" for
// throwaway databases in tests.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// modernc sqlite serializes internally but a single connection
	// avoids table-lock errors under concurrent API reads.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// EventRecord is one persisted crossing, including the counts as they
// stood immediately after the crossing was applied.
type EventRecord struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	TrackID   int64     `json:"track_id"`
	Direction string    `json:"direction"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Inside    int       `json:"count_inside"`
	Entered   int       `json:"total_entered"`
	Exited    int       `json:"total_exited"`
	Timestamp time.Time `json:"timestamp"`
}

// LogEvent appends one immutable crossing record.
func (db *DB) LogEvent(rec EventRecord) error {
	_, err := db.Exec(
		`INSERT INTO events (session_id, track_id, direction, x, y, count_inside, total_entered, total_exited, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.TrackID, rec.Direction, rec.X, rec.Y,
		rec.Inside, rec.Entered, rec.Exited, rec.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit crossings, newest first.
func (db *DB) RecentEvents(limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		`SELECT id, session_id, track_id, direction, x, y, count_inside, total_entered, total_exited, timestamp
		 FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var rec EventRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.TrackID, &rec.Direction,
			&rec.X, &rec.Y, &rec.Inside, &rec.Entered, &rec.Exited, &rec.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// SessionEventCount reports how many crossings a session has logged.
func (db *DB) SessionEventCount(sessionID string) (int, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM events WHERE session_id = ?", sessionID).Scan(&n)
	return n, err
}

// ResetCounts appends a zero-count audit row to the event log. The
// totals restored at startup come from the latest row, so a reset
// survives a process restart instead of resurrecting the old counts.
func (db *DB) ResetCounts(sessionID string, at time.Time) error {
	_, err := db.Exec(
		`INSERT INTO events (session_id, track_id, direction, x, y, count_inside, total_entered, total_exited, timestamp)
		 VALUES (?, 0, 'reset', 0, 0, 0, 0, 0, ?)`,
		sessionID, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert reset row: %w", err)
	}
	return nil
}

// LatestCounts returns the counts from the most recent event row, or
// zeros when no events exist. This is the recovery path after restart;
// the live counts are owned by the counter.
func (db *DB) LatestCounts() (inside, entered, exited int, err error) {
	err = db.QueryRow(
		`SELECT count_inside, total_entered, total_exited FROM events ORDER BY id DESC LIMIT 1`,
	).Scan(&inside, &entered, &exited)
	if err == sql.ErrNoRows {
		return 0, 0, 0, nil
	}
	return inside, entered, exited, err
}
