package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
// The schema matches the /api/config endpoint so the same JSON can be
// used for both startup configuration and runtime updates.
type TuningConfig struct {
	// Tracker params
	MaxDisappeared   *int     `json:"max_disappeared,omitempty"`
	MaxDistance      *float64 `json:"max_distance,omitempty"`
	TrajectoryLength *int     `json:"trajectory_length,omitempty"`
	Assignment       *string  `json:"assignment,omitempty"` // "greedy" or "hungarian"

	// Counter params
	CountPolicy *string  `json:"count_policy,omitempty"` // "line" or "zone"
	Orientation *string  `json:"orientation,omitempty"`  // "right_to_left_entry" or "left_to_right_entry"
	LineX1      *float64 `json:"line_x1,omitempty"`
	LineY1      *float64 `json:"line_y1,omitempty"`
	LineX2      *float64 `json:"line_x2,omitempty"`
	LineY2      *float64 `json:"line_y2,omitempty"`
	ZoneCenter  *float64 `json:"zone_center,omitempty"`
	ZoneWidth   *float64 `json:"zone_width,omitempty"`
	ZoneWindow  *int     `json:"zone_window,omitempty"`
	ZoneMinMove *float64 `json:"zone_min_move_px,omitempty"`

	// Frame params
	FrameWidth    *int     `json:"frame_width,omitempty"`
	FrameHeight   *int     `json:"frame_height,omitempty"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`

	// Alert params
	CrowdLimit      *int     `json:"crowd_limit,omitempty"`
	WarningFraction *float64 `json:"warning_fraction,omitempty"`
	AlertCooldown   *string  `json:"alert_cooldown,omitempty"` // duration string like "60s"
	WebhookURL      *string  `json:"webhook_url,omitempty"`

	// Persistence params
	SummaryInterval *string `json:"summary_interval,omitempty"` // duration string like "1h"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // deeper packages
		"../../../../" + DefaultConfigPath, // even deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MaxDisappeared != nil && *c.MaxDisappeared < 1 {
		return fmt.Errorf("max_disappeared must be positive, got %d", *c.MaxDisappeared)
	}
	if c.MaxDistance != nil && *c.MaxDistance <= 0 {
		return fmt.Errorf("max_distance must be positive, got %f", *c.MaxDistance)
	}
	if c.TrajectoryLength != nil && *c.TrajectoryLength < 2 {
		return fmt.Errorf("trajectory_length must be at least 2, got %d", *c.TrajectoryLength)
	}
	if c.Assignment != nil {
		if *c.Assignment != "greedy" && *c.Assignment != "hungarian" {
			return fmt.Errorf("assignment must be \"greedy\" or \"hungarian\", got %q", *c.Assignment)
		}
	}

	if c.CountPolicy != nil {
		if *c.CountPolicy != "line" && *c.CountPolicy != "zone" {
			return fmt.Errorf("count_policy must be \"line\" or \"zone\", got %q", *c.CountPolicy)
		}
	}
	if c.Orientation != nil {
		if *c.Orientation != "right_to_left_entry" && *c.Orientation != "left_to_right_entry" {
			return fmt.Errorf("orientation must be \"right_to_left_entry\" or \"left_to_right_entry\", got %q", *c.Orientation)
		}
	}
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"line_x1", c.LineX1}, {"line_y1", c.LineY1},
		{"line_x2", c.LineX2}, {"line_y2", c.LineY2},
		{"zone_center", c.ZoneCenter},
	} {
		if f.v != nil && (*f.v < 0 || *f.v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", f.name, *f.v)
		}
	}
	if c.ZoneWidth != nil && (*c.ZoneWidth <= 0 || *c.ZoneWidth > 1) {
		return fmt.Errorf("zone_width must be in (0,1], got %f", *c.ZoneWidth)
	}

	if c.FrameWidth != nil && *c.FrameWidth < 1 {
		return fmt.Errorf("frame_width must be positive, got %d", *c.FrameWidth)
	}
	if c.FrameHeight != nil && *c.FrameHeight < 1 {
		return fmt.Errorf("frame_height must be positive, got %d", *c.FrameHeight)
	}
	if c.MinConfidence != nil && (*c.MinConfidence < 0 || *c.MinConfidence > 1) {
		return fmt.Errorf("min_confidence must be between 0 and 1, got %f", *c.MinConfidence)
	}

	if c.CrowdLimit != nil && *c.CrowdLimit < 1 {
		return fmt.Errorf("crowd_limit must be positive, got %d", *c.CrowdLimit)
	}
	if c.WarningFraction != nil && (*c.WarningFraction <= 0 || *c.WarningFraction > 1) {
		return fmt.Errorf("warning_fraction must be in (0,1], got %f", *c.WarningFraction)
	}
	if c.AlertCooldown != nil && *c.AlertCooldown != "" {
		if _, err := time.ParseDuration(*c.AlertCooldown); err != nil {
			return fmt.Errorf("invalid alert_cooldown '%s': %w", *c.AlertCooldown, err)
		}
	}
	if c.SummaryInterval != nil && *c.SummaryInterval != "" {
		if _, err := time.ParseDuration(*c.SummaryInterval); err != nil {
			return fmt.Errorf("invalid summary_interval '%s': %w", *c.SummaryInterval, err)
		}
	}

	return nil
}

// GetMaxDisappeared returns the max_disappeared value or the default.
func (c *TuningConfig) GetMaxDisappeared() int {
	if c.MaxDisappeared == nil {
		return 30 // roughly one second at 30fps
	}
	return *c.MaxDisappeared
}

// GetMaxDistance returns the max_distance value or the default.
func (c *TuningConfig) GetMaxDistance() float64 {
	if c.MaxDistance == nil {
		return 100.0
	}
	return *c.MaxDistance
}

// GetTrajectoryLength returns the trajectory_length value or the default.
func (c *TuningConfig) GetTrajectoryLength() int {
	if c.TrajectoryLength == nil {
		return 64
	}
	return *c.TrajectoryLength
}

// GetAssignment returns the assignment value or the default.
func (c *TuningConfig) GetAssignment() string {
	if c.Assignment == nil {
		return "greedy"
	}
	return *c.Assignment
}

// GetCountPolicy returns the count_policy value or the default.
func (c *TuningConfig) GetCountPolicy() string {
	if c.CountPolicy == nil {
		return "line"
	}
	return *c.CountPolicy
}

// GetOrientation returns the orientation value or the default.
func (c *TuningConfig) GetOrientation() string {
	if c.Orientation == nil {
		return "right_to_left_entry"
	}
	return *c.Orientation
}

// GetLine returns the counting line endpoints as frame fractions.
func (c *TuningConfig) GetLine() (x1, y1, x2, y2 float64) {
	x1, y1, x2, y2 = 0.5, 0.0, 0.5, 1.0
	if c.LineX1 != nil {
		x1 = *c.LineX1
	}
	if c.LineY1 != nil {
		y1 = *c.LineY1
	}
	if c.LineX2 != nil {
		x2 = *c.LineX2
	}
	if c.LineY2 != nil {
		y2 = *c.LineY2
	}
	return x1, y1, x2, y2
}

// GetZoneCenter returns the zone_center value or the default.
func (c *TuningConfig) GetZoneCenter() float64 {
	if c.ZoneCenter == nil {
		return 0.5
	}
	return *c.ZoneCenter
}

// GetZoneWidth returns the zone_width value or the default.
func (c *TuningConfig) GetZoneWidth() float64 {
	if c.ZoneWidth == nil {
		return 0.1
	}
	return *c.ZoneWidth
}

// GetZoneWindow returns the zone_window value or the default.
func (c *TuningConfig) GetZoneWindow() int {
	if c.ZoneWindow == nil {
		return 8
	}
	return *c.ZoneWindow
}

// GetZoneMinMove returns the zone_min_move_px value or the default.
func (c *TuningConfig) GetZoneMinMove() float64 {
	if c.ZoneMinMove == nil {
		return 80.0
	}
	return *c.ZoneMinMove
}

// GetFrameWidth returns the frame_width value or the default.
func (c *TuningConfig) GetFrameWidth() int {
	if c.FrameWidth == nil {
		return 1280
	}
	return *c.FrameWidth
}

// GetFrameHeight returns the frame_height value or the default.
func (c *TuningConfig) GetFrameHeight() int {
	if c.FrameHeight == nil {
		return 720
	}
	return *c.FrameHeight
}

// GetMinConfidence returns the min_confidence value or the default.
func (c *TuningConfig) GetMinConfidence() float64 {
	if c.MinConfidence == nil {
		return 0.5
	}
	return *c.MinConfidence
}

// GetCrowdLimit returns the crowd_limit value or the default.
func (c *TuningConfig) GetCrowdLimit() int {
	if c.CrowdLimit == nil {
		return 50
	}
	return *c.CrowdLimit
}

// GetWarningFraction returns the warning_fraction value or the default.
func (c *TuningConfig) GetWarningFraction() float64 {
	if c.WarningFraction == nil {
		return 0.8
	}
	return *c.WarningFraction
}

// GetAlertCooldown parses and returns the AlertCooldown as a time.Duration.
func (c *TuningConfig) GetAlertCooldown() time.Duration {
	if c.AlertCooldown == nil || *c.AlertCooldown == "" {
		return 60 * time.Second // default
	}
	d, err := time.ParseDuration(*c.AlertCooldown)
	if err != nil {
		return 60 * time.Second // default on parse error
	}
	return d
}

// GetWebhookURL returns the webhook_url value or empty when unset.
func (c *TuningConfig) GetWebhookURL() string {
	if c.WebhookURL == nil {
		return ""
	}
	return *c.WebhookURL
}

// GetSummaryInterval parses and returns the SummaryInterval as a time.Duration.
func (c *TuningConfig) GetSummaryInterval() time.Duration {
	if c.SummaryInterval == nil || *c.SummaryInterval == "" {
		return time.Hour // default
	}
	d, err := time.ParseDuration(*c.SummaryInterval)
	if err != nil {
		return time.Hour // default on parse error
	}
	return d
}
