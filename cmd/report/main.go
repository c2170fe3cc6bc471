// Command report prints the daily crossing summary from a footfall
// database, and can render an occupancy plot to PNG.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/banshee-data/footfall.report/internal/db"
	"github.com/banshee-data/footfall.report/internal/report"
)

func main() {
	dbFile := flag.String("db", "footfall.db", "SQLite database file")
	date := flag.String("date", "", "day to report on (YYYY-MM-DD, default today)")
	plotPath := flag.String("plot", "", "also write an occupancy PNG to this path")
	plotEvents := flag.Int("plot-events", 500, "number of recent events to plot")
	asJSON := flag.Bool("json", false, "emit the summary as JSON")
	flag.Parse()

	day := time.Now().UTC()
	if *date != "" {
		parsed, err := time.Parse("2006-01-02", *date)
		if err != nil {
			log.Fatalf("invalid -date %q: want YYYY-MM-DD", *date)
		}
		day = parsed
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	gen := report.NewGenerator(database)
	stats, err := gen.Daily(day)
	if err != nil {
		log.Fatalf("failed to build report: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			log.Fatalf("failed to encode report: %v", err)
		}
	} else {
		fmt.Printf("Footfall report for %s\n", stats.Date)
		fmt.Printf("  entered:       %d\n", stats.TotalEntered)
		fmt.Printf("  exited:        %d\n", stats.TotalExited)
		fmt.Printf("  busiest hour:  %02d:00\n", stats.BusiestHour)
		fmt.Printf("  mean per hour: %.1f\n", stats.MeanPerHour)
		fmt.Printf("  median:        %.1f  p90: %.1f\n", stats.MedianHour, stats.P90Hour)
	}

	if *plotPath != "" {
		if err := gen.OccupancyPlotPNG(*plotPath, *plotEvents); err != nil {
			log.Fatalf("failed to render plot: %v", err)
		}
		log.Printf("✓ Created: %s", *plotPath)
	}
}
