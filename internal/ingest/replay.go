package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/banshee-data/footfall.report/internal/timeutil"
)

// ReplayOptions controls playback of a recorded frame stream.
type ReplayOptions struct {
	// Realtime sleeps between frames to reproduce the original
	// timing. Frames without timestamps play back-to-back.
	Realtime bool
	// Clock used for realtime pacing; nil means the real clock.
	Clock timeutil.Clock
}

// Replay reads newline-delimited JSON frames and feeds them to the
// sink in order. Blank lines and comment lines starting with '#' are
// skipped. The first malformed frame aborts the replay, since a
// recording with garbage in it is a recording problem, not detector
// noise.
func Replay(ctx context.Context, r io.Reader, sink FrameSink, opts ReplayOptions) (int, error) {
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, maxFrameBytes), maxFrameBytes)

	processed := 0
	var lastTimestamp int64

	for lineNo := 1; scanner.Scan(); lineNo++ {
		if err := ctx.Err(); err != nil {
			return processed, err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		frame, err := ParseFrame([]byte(line))
		if err != nil {
			return processed, fmt.Errorf("line %d: %w", lineNo, err)
		}

		if opts.Realtime && !frame.Timestamp.IsZero() {
			if lastTimestamp != 0 {
				if gap := frame.Timestamp.UnixNano() - lastTimestamp; gap > 0 {
					clock.Sleep(time.Duration(gap))
				}
			}
			lastTimestamp = frame.Timestamp.UnixNano()
		}

		if _, err := sink.Process(frame); err != nil {
			return processed, fmt.Errorf("line %d: %w", lineNo, err)
		}
		processed++
	}
	if err := scanner.Err(); err != nil {
		return processed, fmt.Errorf("failed to read frame stream: %w", err)
	}

	return processed, nil
}
