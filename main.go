package main

import (
	"context"
	"embed"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/banshee-data/footfall.report/internal/api"
	"github.com/banshee-data/footfall.report/internal/config"
	"github.com/banshee-data/footfall.report/internal/db"
	"github.com/banshee-data/footfall.report/internal/ingest"
	"github.com/banshee-data/footfall.report/internal/pipeline"
	"github.com/banshee-data/footfall.report/internal/timeutil"
	"github.com/banshee-data/footfall.report/internal/version"
)

var (
	//go:embed static/*
	staticFiles embed.FS
	devMode     = flag.Bool("dev", false, "Run in dev mode with a synthetic detection feed")
	listen      = flag.String("listen", ":8080", "Listen address")
	udpAddr     = flag.String("udp", ":9600", "UDP address for detection frames")
	dbFile      = flag.String("db", "footfall.db", "SQLite database file")
	configFile  = flag.String("config", "", "Tuning config file (JSON)")
	fixtures    = flag.String("fixtures", "", "Replay detection frames from a JSONL file instead of listening")
)

// devFrameInterval paces the synthetic feed at roughly camera rate.
const devFrameInterval = 50 * time.Millisecond

func main() {
	flag.Parse()

	log.Printf("footfall.report %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, using system environment")
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	var cfg *config.TuningConfig
	if *configFile != "" {
		var err error
		cfg, err = config.LoadTuningConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	} else {
		cfg = config.MustLoadDefaultConfig()
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	clock := timeutil.RealClock{}
	p, err := pipeline.New(cfg, database, clock)
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}
	log.Printf("session %s started", p.SessionID())

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ingest routine: synthetic walkers in dev mode, JSONL replay when
	// -fixtures is set, UDP frames otherwise
	wg.Add(1)
	go func() {
		defer wg.Done()
		switch {
		case *devMode:
			runSyntheticFeed(ctx, cfg, p, clock)
		case *fixtures != "":
			runFixtureReplay(ctx, *fixtures, p, clock)
		default:
			listener := ingest.NewUDPListener(ingest.UDPListenerConfig{
				Address: *udpAddr,
				Sink:    p,
			})
			if err := listener.Start(ctx); err != nil && err != context.Canceled {
				log.Printf("UDP listener failed: %v", err)
			}
		}
		log.Print("ingest routine terminated")
	}()

	// periodic occupancy summary
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cfg.GetSummaryInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				status := p.Status()
				log.Printf("summary: inside=%d entered=%d exited=%d tracks=%d frames=%d",
					status.Counts.Inside, status.Counts.Entered, status.Counts.Exited,
					status.ActiveTracks, status.FramesProcessed)
			case <-ctx.Done():
				return
			}
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(p, database).ServeMux()

		// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
		database.AttachAdminRoutes(mux)

		// read static files from the embedded filesystem in production or from
		// the local ./static in dev for easier iteration without restarting the
		// server
		var staticHandler http.Handler
		if *devMode {
			staticHandler = http.FileServer(http.Dir("./static"))
		} else {
			staticHandler = http.FileServer(http.FS(staticFiles))
		}
		mux.Handle("/", staticHandler)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

func runSyntheticFeed(ctx context.Context, cfg *config.TuningConfig, p *pipeline.Pipeline, clock timeutil.Clock) {
	gen := ingest.NewGenerator(ingest.GeneratorConfig{
		Width:  cfg.GetFrameWidth(),
		Height: cfg.GetFrameHeight(),
	})
	ticker := time.NewTicker(devFrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			frame := gen.Next(clock.Now())
			if _, err := p.Process(frame); err != nil {
				log.Printf("failed to process synthetic frame: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func runFixtureReplay(ctx context.Context, path string, p *pipeline.Pipeline, clock timeutil.Clock) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open fixtures file: %v", err)
	}
	defer f.Close()

	n, err := ingest.Replay(ctx, f, p, ingest.ReplayOptions{Realtime: true, Clock: clock})
	if err != nil && err != context.Canceled {
		log.Printf("replay stopped after %d frames: %v", n, err)
		return
	}
	log.Printf("replayed %d frames", n)
}
