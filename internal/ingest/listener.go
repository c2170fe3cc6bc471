package ingest

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/banshee-data/footfall.report/internal/monitoring"
)

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Sink        FrameSink
}

// UDPListener receives one JSON frame per datagram and feeds it to the
// sink. Detectors are expected to send complete frames; parse failures
// drop the datagram and are surfaced through the periodic stats line,
// never by stalling the socket.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	sink        FrameSink

	frames     atomic.Int64
	detections atomic.Int64
	dropped    atomic.Int64
}

// NewUDPListener creates a new UDP listener with the provided configuration.
func NewUDPListener(config UDPListenerConfig) *UDPListener {
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	rcvBuf := config.RcvBuf
	if rcvBuf == 0 {
		rcvBuf = 1 << 20
	}
	return &UDPListener{
		address:     config.Address,
		rcvBuf:      rcvBuf,
		logInterval: logInterval,
		sink:        config.Sink,
	}
}

// Start begins listening for frames and blocks until ctx is cancelled.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	defer conn.Close()

	if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
		monitoring.Logf("Warning: Failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
	}

	monitoring.Logf("frame listener started on %s with receive buffer %d bytes", conn.LocalAddr(), l.rcvBuf)

	go l.startStatsLogging(ctx)

	buffer := make([]byte, maxFrameBytes)

	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("frame listener stopping due to context cancellation")
			return ctx.Err()
		default:
			// Set read deadline to allow checking context cancellation
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))

			n, srcAddr, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue // Continue on timeout to check context
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				monitoring.Logf("UDP read error: %v", err)
				continue
			}

			if err := l.handleDatagram(buffer[:n]); err != nil {
				l.dropped.Add(1)
				monitoring.Logf("dropped frame from %v: %v", srcAddr, err)
			}
		}
	}
}

func (l *UDPListener) handleDatagram(data []byte) error {
	frame, err := ParseFrame(data)
	if err != nil {
		return err
	}

	if _, err := l.sink.Process(frame); err != nil {
		return err
	}

	l.frames.Add(1)
	l.detections.Add(int64(len(frame.Detections)))
	return nil
}

// startStatsLogging periodically logs ingest statistics.
func (l *UDPListener) startStatsLogging(ctx context.Context) {
	// Report once shortly after startup so a silent detector is
	// noticed, then settle into the configured interval.
	select {
	case <-ctx.Done():
		return
	case <-time.After(2 * time.Second):
		l.logStats()
	}

	ticker := time.NewTicker(l.logInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.logStats()
		}
	}
}

func (l *UDPListener) logStats() {
	monitoring.Logf("ingest stats: %d frames, %d detections, %d dropped",
		l.frames.Load(), l.detections.Load(), l.dropped.Load())
}

// Stats returns cumulative counters for the API status endpoint.
func (l *UDPListener) Stats() (frames, detections, dropped int64) {
	return l.frames.Load(), l.detections.Load(), l.dropped.Load()
}
