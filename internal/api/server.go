// Package api serves the counting dashboard's JSON endpoints.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/footfall.report/internal/db"
	"github.com/banshee-data/footfall.report/internal/pipeline"
	"github.com/banshee-data/footfall.report/internal/report"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	p       *pipeline.Pipeline
	db      *db.DB
	reports *report.Generator
}

func NewServer(p *pipeline.Pipeline, db *db.DB) *Server {
	return &Server{
		p:       p,
		db:      db,
		reports: report.NewGenerator(db),
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400 && statusCode < 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 500:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.showStatus)
	mux.HandleFunc("/api/counts", s.showCounts)
	mux.HandleFunc("/api/events", s.listEvents)
	mux.HandleFunc("/api/alerts", s.listAlerts)
	mux.HandleFunc("/api/alerts/resolve", s.resolveAlert)
	mux.HandleFunc("/api/reset", s.resetCounts)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/stats/hourly", s.showHourlyStats)
	mux.HandleFunc("/api/stats/daily", s.showDailyStats)
	mux.HandleFunc("/api/report/daily", s.showDailyReport)
	mux.HandleFunc("/report/hourly", s.reports.HandleHourlyChart)
	mux.HandleFunc("/report/daily", s.reports.HandleDailyChart)
	mux.HandleFunc("/report/occupancy", s.reports.HandleOccupancyChart)
	return mux
}
