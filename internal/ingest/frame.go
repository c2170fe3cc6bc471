// Package ingest feeds detector frames into the pipeline from the
// outside world: a UDP socket for live detectors, JSONL files for
// replay, and a synthetic walker generator for development.
package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/footfall.report/internal/count"
	"github.com/banshee-data/footfall.report/internal/pipeline"
)

// maxFrameBytes bounds a single wire frame. A frame with hundreds of
// detections is still well under this.
const maxFrameBytes = 64 * 1024

// ParseFrame decodes one JSON frame from the wire. Detection geometry
// is validated here so malformed input is rejected before it reaches
// the tracker.
func ParseFrame(data []byte) (pipeline.Frame, error) {
	var frame pipeline.Frame
	if len(data) > maxFrameBytes {
		return frame, fmt.Errorf("frame of %d bytes exceeds limit %d", len(data), maxFrameBytes)
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return frame, fmt.Errorf("failed to parse frame JSON: %w", err)
	}
	for i, d := range frame.Detections {
		if err := d.Validate(); err != nil {
			return pipeline.Frame{}, fmt.Errorf("detection %d: %w", i, err)
		}
	}
	return frame, nil
}

// FrameSink consumes parsed frames. *pipeline.Pipeline implements it.
type FrameSink interface {
	Process(frame pipeline.Frame) ([]count.CrossingEvent, error)
}
