// Package alerts watches the live occupancy count and raises warnings
// when a room approaches or exceeds its configured limit.
package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/banshee-data/footfall.report/internal/httputil"
	"github.com/banshee-data/footfall.report/internal/monitoring"
	"github.com/banshee-data/footfall.report/internal/timeutil"
)

// Alert levels, ordered by severity.
const (
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Alert is one raised occupancy condition.
type Alert struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Inside  int       `json:"count_inside"`
	At      time.Time `json:"at"`
}

// Config controls thresholds and delivery.
type Config struct {
	// CrowdLimit is the occupancy at which a critical alert fires.
	CrowdLimit int
	// WarningFraction of CrowdLimit at which a warning fires.
	WarningFraction float64
	// Cooldown suppresses repeat alerts of the same level.
	Cooldown time.Duration
	// WebhookURL receives alert JSON via POST when non-empty.
	WebhookURL string
}

// Alerter evaluates occupancy against the configured limits. It is
// called from the frame loop after the counter has been updated, so
// Evaluate must stay cheap; webhook delivery happens in Notify and is
// expected to be called off the hot path.
type Alerter struct {
	cfg       Config
	clock     timeutil.Clock
	client    httputil.HTTPClient
	lastFired map[string]time.Time
}

// New builds an Alerter. A nil clock means the real clock; a nil
// client means http.DefaultClient.
func New(cfg Config, clock timeutil.Clock, client httputil.HTTPClient) *Alerter {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if client == nil {
		client = httputil.NewStandardClient(http.DefaultClient)
	}
	if cfg.CrowdLimit <= 0 {
		cfg.CrowdLimit = 50
	}
	if cfg.WarningFraction <= 0 || cfg.WarningFraction > 1 {
		cfg.WarningFraction = 0.8
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	return &Alerter{
		cfg:       cfg,
		clock:     clock,
		client:    client,
		lastFired: make(map[string]time.Time),
	}
}

// Evaluate checks the current occupancy and returns an alert when a
// threshold is newly breached and the level's cooldown has elapsed.
// Returns nil when nothing should fire.
func (a *Alerter) Evaluate(inside int) *Alert {
	level, message := a.classify(inside)
	if level == "" {
		return nil
	}

	now := a.clock.Now()
	if last, ok := a.lastFired[level]; ok && now.Sub(last) < a.cfg.Cooldown {
		return nil
	}
	a.lastFired[level] = now

	return &Alert{Level: level, Message: message, Inside: inside, At: now}
}

// Cleared reports whether the occupancy is back below every alert
// threshold, so an open alert condition can be resolved.
func (a *Alerter) Cleared(inside int) bool {
	level, _ := a.classify(inside)
	return level == ""
}

func (a *Alerter) classify(inside int) (level, message string) {
	warnAt := int(float64(a.cfg.CrowdLimit) * a.cfg.WarningFraction)
	switch {
	case inside > a.cfg.CrowdLimit:
		return LevelCritical, fmt.Sprintf("occupancy %d exceeds limit %d", inside, a.cfg.CrowdLimit)
	case inside >= warnAt:
		return LevelWarning, fmt.Sprintf("occupancy %d at %d%% of limit %d",
			inside, inside*100/a.cfg.CrowdLimit, a.cfg.CrowdLimit)
	default:
		return "", ""
	}
}

// webhookAttempts bounds retries on transport errors. HTTP error
// statuses are not retried; the webhook saw the request.
const webhookAttempts = 2

// Notify delivers the alert to the configured webhook. A missing
// webhook is not an error; delivery failures are returned so the
// caller can log them, but they never affect counting.
func (a *Alerter) Notify(alert Alert) error {
	if a.cfg.WebhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	var resp *http.Response
	for attempt := 1; ; attempt++ {
		resp, err = a.client.Post(a.cfg.WebhookURL, "application/json", bytes.NewReader(payload))
		if err == nil {
			break
		}
		if attempt >= webhookAttempts {
			return fmt.Errorf("webhook delivery failed after %d attempts: %w", attempt, err)
		}
		monitoring.Logf("webhook delivery attempt %d failed, retrying: %v", attempt, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	monitoring.Logf("delivered %s alert to webhook (occupancy %d)", alert.Level, alert.Inside)
	return nil
}
