package report

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/footfall.report/internal/db"
)

func newTestGenerator(t *testing.T) (*Generator, *db.DB) {
	t.Helper()
	database, err := db.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewGenerator(database), database
}

// seedHour records n entries and m exits in the given hour of day.
func seedHour(t *testing.T, database *db.DB, day time.Time, hour, entries, exits int) {
	t.Helper()
	at := time.Date(day.Year(), day.Month(), day.Day(), hour, 30, 0, 0, time.UTC)
	for i := 0; i < entries; i++ {
		require.NoError(t, database.RecordCrossingStats("entry", i+1, at))
	}
	for i := 0; i < exits; i++ {
		require.NoError(t, database.RecordCrossingStats("exit", 0, at))
	}
}

func TestDailyStats(t *testing.T) {
	gen, database := newTestGenerator(t)
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	seedHour(t, database, day, 9, 4, 1)
	seedHour(t, database, day, 12, 10, 2)
	seedHour(t, database, day, 17, 2, 8)

	stats, err := gen.Daily(day)
	require.NoError(t, err)

	assert.Equal(t, "2026-03-14", stats.Date)
	assert.Equal(t, 16, stats.TotalEntered)
	assert.Equal(t, 11, stats.TotalExited)
	assert.Equal(t, 12, stats.BusiestHour)

	// Hour totals are 5, 12, and 10 crossings.
	assert.InDelta(t, 9.0, stats.MeanPerHour, 1e-9)
	assert.Equal(t, 10.0, stats.MedianHour)
	assert.Equal(t, 12.0, stats.P90Hour)
}

func TestDailyStatsEmptyDay(t *testing.T) {
	gen, _ := newTestGenerator(t)

	stats, err := gen.Daily(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 0, stats.TotalEntered)
	assert.Equal(t, 0, stats.TotalExited)
	assert.Zero(t, stats.MeanPerHour)
}

func TestHourlyChartHTML(t *testing.T) {
	gen, database := newTestGenerator(t)
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	seedHour(t, database, day, 14, 3, 1)

	var buf bytes.Buffer
	require.NoError(t, gen.HourlyChartHTML(&buf, day))

	html := buf.String()
	assert.Contains(t, html, "entries")
	assert.Contains(t, html, "exits")
	assert.Contains(t, html, "Crossings by Hour")
	assert.Contains(t, html, "14:00")
}

func TestHandleHourlyChart(t *testing.T) {
	gen, database := newTestGenerator(t)
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	seedHour(t, database, day, 8, 1, 0)

	req := httptest.NewRequest(http.MethodGet, "/report/hourly?date=2026-03-14", nil)
	rec := httptest.NewRecorder()
	gen.HandleHourlyChart(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Crossings by Hour")
}

func TestHandleHourlyChartBadDate(t *testing.T) {
	gen, _ := newTestGenerator(t)

	req := httptest.NewRequest(http.MethodGet, "/report/hourly?date=yesterday", nil)
	rec := httptest.NewRecorder()
	gen.HandleHourlyChart(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDailyChart(t *testing.T) {
	gen, database := newTestGenerator(t)
	seedHour(t, database, time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC), 10, 5, 3)
	seedHour(t, database, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), 11, 7, 6)

	req := httptest.NewRequest(http.MethodGet, "/report/daily", nil)
	rec := httptest.NewRecorder()
	gen.HandleDailyChart(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "2026-03-13")
	assert.Contains(t, body, "2026-03-14")
	assert.Contains(t, body, "Daily Crossings")
}

func TestHandleOccupancyChart(t *testing.T) {
	gen, database := newTestGenerator(t)

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	for i, inside := range []int{1, 2, 1} {
		require.NoError(t, database.LogEvent(db.EventRecord{
			SessionID: "chart-session",
			TrackID:   int64(i + 1),
			Direction: "entry",
			Inside:    inside,
			Entered:   i + 1,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	req := httptest.NewRequest(http.MethodGet, "/report/occupancy", nil)
	rec := httptest.NewRecorder()
	gen.HandleOccupancyChart(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "Occupancy Over Time")
	assert.Contains(t, body, "12:01:00")
}

func TestOccupancyPlotPNG(t *testing.T) {
	gen, database := newTestGenerator(t)

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	for i, inside := range []int{1, 2, 3, 2, 1} {
		direction := "entry"
		if i >= 3 {
			direction = "exit"
		}
		require.NoError(t, database.LogEvent(db.EventRecord{
			SessionID: "plot-session",
			TrackID:   int64(i + 1),
			Direction: direction,
			X:         640,
			Y:         360,
			Inside:    inside,
			Entered:   3,
			Exited:    2,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	path := filepath.Join(t.TempDir(), "occupancy.png")
	require.NoError(t, gen.OccupancyPlotPNG(path, 100))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	assert.True(t, strings.HasSuffix(path, ".png"))
}

func TestOccupancyPlotPNGNoEvents(t *testing.T) {
	gen, _ := newTestGenerator(t)

	err := gen.OccupancyPlotPNG(filepath.Join(t.TempDir(), "empty.png"), 10)
	assert.Error(t, err)
}
