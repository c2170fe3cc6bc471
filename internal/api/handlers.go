package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/footfall.report/internal/httputil"
)

// showStatus reports the live session snapshot.
func (s *Server) showStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.p.Status())
}

// showCounts returns just the running totals, the cheapest poll target
// for overlays.
func (s *Server) showCounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.p.Counts())
}

// listEvents returns recent crossing events, newest first. Accepts
// ?limit=N up to 1000.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit, err := parseLimit(r, 100)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	events, err := s.db.RecentEvents(limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to query events")
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"events": events})
}

// listAlerts returns recent occupancy alerts, newest first.
func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit, err := parseLimit(r, 50)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	alerts, err := s.db.RecentAlerts(limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to query alerts")
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"alerts": alerts})
}

// resolveAlert marks one alert as resolved. POST only; takes ?id=N.
func (s *Server) resolveAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.BadRequest(w, "id must be a positive integer")
		return
	}

	if err := s.db.ResolveAlert(id, time.Now()); err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status": "resolved",
		"id":     id,
	})
}

// resetCounts zeroes the counts and clears tracking state. POST only;
// identities are never reused afterward.
func (s *Server) resetCounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	s.p.Reset()
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status": "reset",
		"counts": s.p.Counts(),
	})
}

// showConfig returns the tuning parameters the pipeline is running
// with.
func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, s.p.Config())
}

// showHourlyStats returns per-hour crossings for a day. Accepts
// ?date=YYYY-MM-DD, defaulting to today.
func (s *Server) showHourlyStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httputil.BadRequest(w, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	stats, err := s.db.HourlyStats(day)
	if err != nil {
		httputil.InternalServerError(w, "failed to query hourly stats")
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"date":  day.Format("2006-01-02"),
		"hours": stats,
	})
}

// showDailyStats returns daily rollups, newest first.
func (s *Server) showDailyStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit, err := parseLimit(r, 30)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	summaries, err := s.db.DailySummaries(limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to query daily summaries")
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"days": summaries})
}

// showDailyReport returns the computed summary statistics for one day.
// Accepts ?date=YYYY-MM-DD, defaulting to today.
func (s *Server) showDailyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httputil.BadRequest(w, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	stats, err := s.reports.Daily(day)
	if err != nil {
		httputil.InternalServerError(w, "failed to build daily report")
		return
	}
	httputil.WriteJSONOK(w, stats)
}

func parseLimit(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > 1000 {
		return 0, fmt.Errorf("limit must be an integer between 1 and 1000")
	}
	return limit, nil
}
