package db

import (
	"fmt"
	"time"
)

// dateKey is the canonical day format for rollup tables.
const dateKey = "2006-01-02"

// HourlyStat is one hour's worth of crossings for a day.
type HourlyStat struct {
	Date    string `json:"date"`
	Hour    int    `json:"hour"`
	Entered int    `json:"entered"`
	Exited  int    `json:"exited"`
}

// DailySummary is the rollup row for one day.
type DailySummary struct {
	Date       string    `json:"date"`
	Entered    int       `json:"total_entered"`
	Exited     int       `json:"total_exited"`
	PeakInside int       `json:"peak_inside"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RecordCrossingStats folds one crossing into the hourly and daily
// rollups. Called by the pipeline alongside LogEvent so the rollups
// stay consistent with the event log without a batch job.
func (db *DB) RecordCrossingStats(direction string, inside int, at time.Time) error {
	at = at.UTC()
	day := at.Format(dateKey)
	hour := at.Hour()

	entered, exited := 0, 0
	switch direction {
	case "entry":
		entered = 1
	case "exit":
		exited = 1
	default:
		return fmt.Errorf("unknown direction %q", direction)
	}

	_, err := db.Exec(`
		INSERT INTO hourly_stats (date, hour, entered, exited) VALUES (?, ?, ?, ?)
		ON CONFLICT(date, hour) DO UPDATE SET
			entered = entered + excluded.entered,
			exited = exited + excluded.exited`,
		day, hour, entered, exited)
	if err != nil {
		return fmt.Errorf("failed to update hourly_stats: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO daily_summary (date, total_entered, total_exited, peak_inside, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_entered = total_entered + excluded.total_entered,
			total_exited = total_exited + excluded.total_exited,
			peak_inside = MAX(peak_inside, excluded.peak_inside),
			updated_at = excluded.updated_at`,
		day, entered, exited, inside, at)
	if err != nil {
		return fmt.Errorf("failed to update daily_summary: %w", err)
	}

	return nil
}

// HourlyStats returns the per-hour crossings for one day, ascending by
// hour. Hours with no crossings are absent.
func (db *DB) HourlyStats(day time.Time) ([]HourlyStat, error) {
	rows, err := db.Query(
		`SELECT date, hour, entered, exited FROM hourly_stats WHERE date = ? ORDER BY hour`,
		day.UTC().Format(dateKey))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []HourlyStat
	for rows.Next() {
		var s HourlyStat
		if err := rows.Scan(&s.Date, &s.Hour, &s.Entered, &s.Exited); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// DailySummaries returns rollups for the most recent days, newest
// first.
func (db *DB) DailySummaries(limit int) ([]DailySummary, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := db.Query(
		`SELECT date, total_entered, total_exited, peak_inside, updated_at
		 FROM daily_summary ORDER BY date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []DailySummary
	for rows.Next() {
		var s DailySummary
		if err := rows.Scan(&s.Date, &s.Entered, &s.Exited, &s.PeakInside, &s.UpdatedAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
