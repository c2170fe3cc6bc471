// Command gen-frames generates sample JSONL detection frames for
// testing replay.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/banshee-data/footfall.report/internal/ingest"
)

func main() {
	output := flag.String("o", "sample.jsonl", "output path")
	frames := flag.Int("n", 600, "number of frames")
	width := flag.Int("w", 1280, "frame width in pixels")
	height := flag.Int("h", 720, "frame height in pixels")
	seed := flag.Int64("seed", 0, "random seed (0 uses the default)")
	interval := flag.Duration("interval", 50*time.Millisecond, "timestamp gap between frames")
	flag.Parse()

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("failed to create output: %v", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	defer w.Flush()
	enc := json.NewEncoder(w)

	gen := ingest.NewGenerator(ingest.GeneratorConfig{
		Width:  *width,
		Height: *height,
		Seed:   *seed,
	})

	now := time.Now().UTC()
	for i := 0; i < *frames; i++ {
		frame := gen.Next(now.Add(time.Duration(i) * *interval))
		if err := enc.Encode(frame); err != nil {
			log.Fatalf("failed to write frame %d: %v", i, err)
		}
		if (i+1)%100 == 0 {
			log.Printf("%d/%d frames, %d walkers", i+1, *frames, gen.ActiveWalkers())
		}
	}
	log.Printf("✓ Created: %s", *output)
}
