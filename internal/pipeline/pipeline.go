// Package pipeline wires the tracker, counter, persistence, and
// alerting into the per-frame processing loop. One Pipeline instance
// corresponds to one counting session.
package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/footfall.report/internal/alerts"
	"github.com/banshee-data/footfall.report/internal/config"
	"github.com/banshee-data/footfall.report/internal/count"
	"github.com/banshee-data/footfall.report/internal/db"
	"github.com/banshee-data/footfall.report/internal/monitoring"
	"github.com/banshee-data/footfall.report/internal/timeutil"
	"github.com/banshee-data/footfall.report/internal/track"
)

// Frame is one detector output: the detections plus the dimensions
// they were measured in. A zero Timestamp means "now".
type Frame struct {
	Detections []track.Detection `json:"detections"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Timestamp  time.Time         `json:"timestamp,omitempty"`
}

// Status is an atomic snapshot of the live session for the API. It is
// copied out under the pipeline lock, never aliased to hot-path state.
type Status struct {
	SessionID       string       `json:"session_id"`
	Counts          count.Counts `json:"counts"`
	ActiveTracks    int          `json:"active_tracks"`
	TrackedObjects  int          `json:"tracked_objects"`
	FramesProcessed int64        `json:"frames_processed"`
	StartedAt       time.Time    `json:"started_at"`
	LastFrameAt     time.Time    `json:"last_frame_at,omitempty"`
}

// Pipeline runs detections through tracking and counting, then fans
// the results out to persistence and alerting. Process is synchronous
// and meant to be called from a single frame loop; the query methods
// take the same lock so the API can read while the loop runs.
type Pipeline struct {
	mu        sync.Mutex
	sessionID string
	cfg       *config.TuningConfig
	tracker   *track.Tracker
	counter   *count.Counter
	alerter   *alerts.Alerter
	store     *db.DB
	clock     timeutil.Clock

	framesProcessed int64
	startedAt       time.Time
	lastFrameAt     time.Time
	alertOpen       bool
}

// New assembles a Pipeline from tuning config. store may be nil for
// tools that only need in-memory counting; clock nil means real time.
func New(cfg *config.TuningConfig, store *db.DB, clock timeutil.Clock) (*Pipeline, error) {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	assignment := track.AssignGreedy
	if cfg.GetAssignment() == "hungarian" {
		assignment = track.AssignHungarian
	}
	tracker := track.NewTracker(track.Config{
		MaxDisappeared:   cfg.GetMaxDisappeared(),
		MaxDistance:      cfg.GetMaxDistance(),
		TrajectoryLength: cfg.GetTrajectoryLength(),
		Assignment:       assignment,
	})

	counter, err := buildCounter(cfg)
	if err != nil {
		return nil, err
	}

	// resume totals from the last persisted event so a restart does
	// not zero the day's counts
	if store != nil {
		inside, entered, exited, err := store.LatestCounts()
		if err != nil {
			monitoring.Logf("failed to restore counts: %v", err)
		} else if entered > 0 || exited > 0 {
			counter.Restore(count.Counts{Inside: inside, Entered: entered, Exited: exited})
		}
	}

	alerter := alerts.New(alerts.Config{
		CrowdLimit:      cfg.GetCrowdLimit(),
		WarningFraction: cfg.GetWarningFraction(),
		Cooldown:        cfg.GetAlertCooldown(),
		WebhookURL:      cfg.GetWebhookURL(),
	}, clock, nil)

	return &Pipeline{
		sessionID: uuid.New().String(),
		cfg:       cfg,
		tracker:   tracker,
		counter:   counter,
		alerter:   alerter,
		store:     store,
		clock:     clock,
		startedAt: clock.Now(),
	}, nil
}

func buildCounter(cfg *config.TuningConfig) (*count.Counter, error) {
	orientation := count.RightToLeftEntry
	if cfg.GetOrientation() == "left_to_right_entry" {
		orientation = count.LeftToRightEntry
	}

	switch cfg.GetCountPolicy() {
	case "zone":
		return count.NewZoneCounter(count.ZoneConfig{
			Boundary: count.ZoneBoundary{
				Center: cfg.GetZoneCenter(),
				Width:  cfg.GetZoneWidth(),
			},
			Orientation: orientation,
			Window:      cfg.GetZoneWindow(),
			MinMovePx:   cfg.GetZoneMinMove(),
		})
	default:
		x1, y1, x2, y2 := cfg.GetLine()
		return count.NewLineCounter(count.LineConfig{
			Boundary:    count.LineBoundary{X1: x1, Y1: y1, X2: x2, Y2: y2},
			Orientation: orientation,
		})
	}
}

// Process runs one frame through the tracker and counter, then logs
// crossings and evaluates alerts. Persistence and alert failures are
// logged and swallowed so a dead disk or webhook never stalls
// counting. Malformed detections reject the whole frame.
func (p *Pipeline) Process(frame Frame) ([]count.CrossingEvent, error) {
	detections := make([]track.Detection, 0, len(frame.Detections))
	minConfidence := p.cfg.GetMinConfidence()
	for i, d := range frame.Detections {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("detection %d: %w", i, err)
		}
		if d.Confidence < minConfidence {
			continue
		}
		detections = append(detections, d)
	}

	width := frame.Width
	if width <= 0 {
		width = p.cfg.GetFrameWidth()
	}
	height := frame.Height
	if height <= 0 {
		height = p.cfg.GetFrameHeight()
	}
	now := frame.Timestamp
	if now.IsZero() {
		now = p.clock.Now()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	objects := p.tracker.Update(detections, now)
	events := p.counter.Update(objects, width, height, now)
	counts := p.counter.Counts()

	p.framesProcessed++
	p.lastFrameAt = now

	for _, ev := range events {
		p.persistEvent(ev, counts)
	}

	if alert := p.alerter.Evaluate(counts.Inside); alert != nil {
		p.alertOpen = true
		p.handleAlert(*alert)
	} else if p.alertOpen && p.alerter.Cleared(counts.Inside) {
		p.alertOpen = false
		p.resolveAlerts(now)
	}

	return events, nil
}

func (p *Pipeline) persistEvent(ev count.CrossingEvent, counts count.Counts) {
	if p.store == nil {
		return
	}

	rec := db.EventRecord{
		SessionID: p.sessionID,
		TrackID:   ev.TrackID,
		Direction: string(ev.Direction),
		Inside:    counts.Inside,
		Entered:   counts.Entered,
		Exited:    counts.Exited,
		Timestamp: ev.At,
	}
	switch {
	case ev.Location != nil:
		rec.X, rec.Y = ev.Location.X, ev.Location.Y
	case ev.End != nil:
		rec.X, rec.Y = ev.End.X, ev.End.Y
	}

	if err := p.store.LogEvent(rec); err != nil {
		monitoring.Logf("failed to log crossing event for track %d: %v", ev.TrackID, err)
	}
	if err := p.store.RecordCrossingStats(string(ev.Direction), counts.Inside, ev.At); err != nil {
		monitoring.Logf("failed to update crossing stats: %v", err)
	}
}

func (p *Pipeline) handleAlert(alert alerts.Alert) {
	monitoring.Logf("occupancy alert [%s]: %s", alert.Level, alert.Message)

	if p.store != nil {
		rec := db.AlertRecord{
			SessionID: p.sessionID,
			Level:     alert.Level,
			Message:   alert.Message,
			Inside:    alert.Inside,
			Timestamp: alert.At,
		}
		if err := p.store.LogAlert(rec); err != nil {
			monitoring.Logf("failed to log alert: %v", err)
		}
	}

	if err := p.alerter.Notify(alert); err != nil {
		monitoring.Logf("failed to notify alert: %v", err)
	}
}

// resolveAlerts closes out the session's open alerts once the
// occupancy is back under the limits. Called with the lock held.
func (p *Pipeline) resolveAlerts(at time.Time) {
	if p.store == nil {
		return
	}
	n, err := p.store.ResolveSessionAlerts(p.sessionID, at)
	if err != nil {
		monitoring.Logf("failed to resolve alerts: %v", err)
		return
	}
	if n > 0 {
		monitoring.Logf("session %s: occupancy back under limits, resolved %d alert(s)", p.sessionID, n)
	}
}

// SessionID returns the identifier stamped on every persisted record
// from this pipeline instance.
func (p *Pipeline) SessionID() string {
	return p.sessionID
}

// Counts returns the current totals.
func (p *Pipeline) Counts() count.Counts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counter.Counts()
}

// Status returns a copy of the live session state.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		SessionID:       p.sessionID,
		Counts:          p.counter.Counts(),
		ActiveTracks:    p.tracker.ActiveCount(),
		TrackedObjects:  p.tracker.TrackCount(),
		FramesProcessed: p.framesProcessed,
		StartedAt:       p.startedAt,
		LastFrameAt:     p.lastFrameAt,
	}
}

// Config exposes the tuning config the pipeline was built from.
func (p *Pipeline) Config() *config.TuningConfig {
	return p.cfg
}

// Reset zeroes the counts and clears all tracking state. Track
// identities are never reused: the tracker's ID counter survives the
// reset. The zeroed counts are persisted as an audit row so a restart
// does not restore the pre-reset totals.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counter.Reset()
	p.tracker.Reset()
	if p.store != nil {
		if err := p.store.ResetCounts(p.sessionID, p.clock.Now()); err != nil {
			monitoring.Logf("failed to persist reset: %v", err)
		}
	}
	// Zero occupancy clears any open alert condition.
	if p.alertOpen {
		p.alertOpen = false
		p.resolveAlerts(p.clock.Now())
	}
	monitoring.Logf("session %s: counts and tracking state reset", p.sessionID)
}
