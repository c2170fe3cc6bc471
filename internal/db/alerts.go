package db

import (
	"database/sql"
	"fmt"
	"time"
)

// AlertRecord is one persisted occupancy alert.
type AlertRecord struct {
	ID         int64      `json:"id"`
	SessionID  string     `json:"session_id"`
	Level      string     `json:"level"`
	Message    string     `json:"message"`
	Inside     int        `json:"count_inside"`
	Timestamp  time.Time  `json:"timestamp"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// LogAlert appends one alert record.
func (db *DB) LogAlert(rec AlertRecord) error {
	_, err := db.Exec(
		`INSERT INTO alerts (session_id, level, message, count_inside, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Level, rec.Message, rec.Inside, rec.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// ResolveAlert marks one alert as resolved. Resolving an alert that
// does not exist or is already resolved is an error.
func (db *DB) ResolveAlert(id int64, at time.Time) error {
	res, err := db.Exec(
		`UPDATE alerts SET resolved = 1, resolved_at = ? WHERE id = ? AND resolved = 0`,
		at.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to resolve alert %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("alert %d not found or already resolved", id)
	}
	return nil
}

// ResolveSessionAlerts marks every unresolved alert from a session as
// resolved and returns how many were affected. A session with no open
// alerts resolves zero rows without error.
func (db *DB) ResolveSessionAlerts(sessionID string, at time.Time) (int64, error) {
	res, err := db.Exec(
		`UPDATE alerts SET resolved = 1, resolved_at = ? WHERE session_id = ? AND resolved = 0`,
		at.UTC(), sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve alerts for session %s: %w", sessionID, err)
	}
	return res.RowsAffected()
}

// RecentAlerts returns up to limit alerts, newest first.
func (db *DB) RecentAlerts(limit int) ([]AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(
		`SELECT id, session_id, level, message, count_inside, timestamp, resolved, resolved_at
		 FROM alerts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []AlertRecord
	for rows.Next() {
		var (
			rec        AlertRecord
			resolved   int
			resolvedAt sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Level, &rec.Message, &rec.Inside, &rec.Timestamp, &resolved, &resolvedAt); err != nil {
			return nil, err
		}
		rec.Resolved = resolved != 0
		if resolvedAt.Valid {
			t := resolvedAt.Time
			rec.ResolvedAt = &t
		}
		alerts = append(alerts, rec)
	}
	return alerts, rows.Err()
}
