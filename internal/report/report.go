// Package report turns persisted crossing data into daily statistics,
// browser charts, and plot images.
package report

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/footfall.report/internal/db"
	"github.com/banshee-data/footfall.report/internal/httputil"
)

// Generator builds reports from the event store.
type Generator struct {
	db *db.DB
}

func NewGenerator(database *db.DB) *Generator {
	return &Generator{db: database}
}

// DailyStats summarizes one day of crossings.
type DailyStats struct {
	Date         string  `json:"date"`
	TotalEntered int     `json:"total_entered"`
	TotalExited  int     `json:"total_exited"`
	BusiestHour  int     `json:"busiest_hour"`
	MeanPerHour  float64 `json:"mean_per_hour"`
	StdDevHour   float64 `json:"stddev_per_hour"`
	MedianHour   float64 `json:"median_per_hour"`
	P90Hour      float64 `json:"p90_per_hour"`
}

// Daily computes summary statistics over the hours of one day that saw
// traffic. Returns stats with zero totals when the day is empty.
func (g *Generator) Daily(day time.Time) (*DailyStats, error) {
	hours, err := g.db.HourlyStats(day)
	if err != nil {
		return nil, fmt.Errorf("failed to load hourly stats: %w", err)
	}

	stats := &DailyStats{Date: day.UTC().Format("2006-01-02")}
	if len(hours) == 0 {
		return stats, nil
	}

	perHour := make([]float64, 0, len(hours))
	busiest, busiestTotal := 0, -1
	for _, h := range hours {
		stats.TotalEntered += h.Entered
		stats.TotalExited += h.Exited
		total := h.Entered + h.Exited
		perHour = append(perHour, float64(total))
		if total > busiestTotal {
			busiest, busiestTotal = h.Hour, total
		}
	}
	stats.BusiestHour = busiest

	sort.Float64s(perHour)
	stats.MeanPerHour = stat.Mean(perHour, nil)
	stats.StdDevHour = stat.StdDev(perHour, nil)
	stats.MedianHour = stat.Quantile(0.5, stat.Empirical, perHour, nil)
	stats.P90Hour = stat.Quantile(0.9, stat.Empirical, perHour, nil)

	return stats, nil
}

// HourlyChartHTML renders a bar chart of entries and exits per hour as
// a standalone HTML page.
func (g *Generator) HourlyChartHTML(w io.Writer, day time.Time) error {
	hours, err := g.db.HourlyStats(day)
	if err != nil {
		return fmt.Errorf("failed to load hourly stats: %w", err)
	}

	byHour := make(map[int]db.HourlyStat, len(hours))
	for _, h := range hours {
		byHour[h.Hour] = h
	}

	labels := make([]string, 0, 24)
	entries := make([]opts.BarData, 0, 24)
	exits := make([]opts.BarData, 0, 24)
	for hour := 0; hour < 24; hour++ {
		labels = append(labels, fmt.Sprintf("%02d:00", hour))
		entries = append(entries, opts.BarData{Value: byHour[hour].Entered})
		exits = append(exits, opts.BarData{Value: byHour[hour].Exited})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Footfall by Hour", Width: "1100px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Crossings by Hour",
			Subtitle: day.UTC().Format("2006-01-02"),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).
		AddSeries("entries", entries).
		AddSeries("exits", exits)

	return bar.Render(w)
}

// HandleOccupancyChart serves a line chart of count_inside over the
// most recent events.
// Query params:
//   - limit (optional; default 500, max 5000)
func (g *Generator) HandleOccupancyChart(w http.ResponseWriter, r *http.Request) {
	limit := 500
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 5000 {
			limit = v
		}
	}

	events, err := g.db.RecentEvents(limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to load events")
		return
	}

	// RecentEvents is newest first; chart reads left to right.
	labels := make([]string, 0, len(events))
	inside := make([]opts.LineData, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		labels = append(labels, ev.Timestamp.UTC().Format("15:04:05"))
		inside = append(inside, opts.LineData{Value: ev.Inside})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Occupancy", Width: "1100px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Occupancy Over Time"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(labels).
		AddSeries("inside", inside)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, "failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// OccupancyPlotPNG draws count_inside over the most recent events and
// writes it as a PNG image. Events are plotted oldest to newest.
func (g *Generator) OccupancyPlotPNG(path string, limit int) error {
	events, err := g.db.RecentEvents(limit)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}
	if len(events) == 0 {
		return fmt.Errorf("no events to plot")
	}

	// RecentEvents is newest first; plot in time order.
	pts := make(plotter.XYs, len(events))
	for i, ev := range events {
		idx := len(events) - 1 - i
		pts[idx] = plotter.XY{
			X: float64(ev.Timestamp.Unix()),
			Y: float64(ev.Inside),
		}
	}

	p := plot.New()
	p.Title.Text = "Occupancy Over Time"
	p.X.Label.Text = "time"
	p.Y.Label.Text = "people inside"
	p.X.Tick.Marker = plot.TimeTicks{Format: "15:04"}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("failed to build line plot: %w", err)
	}
	p.Add(line, plotter.NewGrid())

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}

// HandleHourlyChart serves the hourly bar chart as an HTML page.
// Query params:
//   - date (optional; YYYY-MM-DD, defaults to today UTC)
func (g *Generator) HandleHourlyChart(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			httputil.BadRequest(w, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	var buf bytes.Buffer
	if err := g.HourlyChartHTML(&buf, day); err != nil {
		httputil.InternalServerError(w, "failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// HandleDailyChart serves a line chart of entries and exits across the
// most recent daily summaries.
func (g *Generator) HandleDailyChart(w http.ResponseWriter, r *http.Request) {
	days, err := g.db.DailySummaries(30)
	if err != nil {
		httputil.InternalServerError(w, "failed to load daily summaries")
		return
	}

	// DailySummaries is newest first; chart reads left to right.
	labels := make([]string, 0, len(days))
	entries := make([]opts.LineData, 0, len(days))
	exits := make([]opts.LineData, 0, len(days))
	for i := len(days) - 1; i >= 0; i-- {
		d := days[i]
		labels = append(labels, d.Date)
		entries = append(entries, opts.LineData{Value: d.Entered})
		exits = append(exits, opts.LineData{Value: d.Exited})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Daily Footfall", Width: "1100px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Daily Crossings"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(labels).
		AddSeries("entries", entries).
		AddSeries("exits", exits)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, "failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
