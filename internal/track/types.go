package track

import (
	"fmt"
	"math"
	"time"
)

// Point is a pixel-space position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance to q.
func (p Point) Dist(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// BBox is an axis-aligned bounding box in pixel coordinates,
// (X1,Y1) top-left, (X2,Y2) bottom-right.
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Center returns the centroid of the box.
func (b BBox) Center() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Detection is a single detector output for one frame. Detections are
// produced by the external detector collaborator and are immutable
// once received.
type Detection struct {
	BBox       BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

// Center returns the detection centroid.
func (d Detection) Center() Point { return d.BBox.Center() }

// Validate rejects detections that violate the caller contract before
// they reach the tracker: a box must have a resolvable centre.
func (d Detection) Validate() error {
	for _, v := range []float64{d.BBox.X1, d.BBox.Y1, d.BBox.X2, d.BBox.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("detection bbox contains non-finite coordinate")
		}
	}
	if d.BBox.X2 < d.BBox.X1 || d.BBox.Y2 < d.BBox.Y1 {
		return fmt.Errorf("detection bbox is inverted: (%v,%v)-(%v,%v)",
			d.BBox.X1, d.BBox.Y1, d.BBox.X2, d.BBox.Y2)
	}
	return nil
}

// TrackInfo is the per-identity snapshot returned by Tracker.Update.
// Trajectory is a copy and safe to retain across frames.
type TrackInfo struct {
	ID          int64     `json:"id"`
	Centroid    Point     `json:"centroid"`
	BBox        BBox      `json:"bbox"`
	Confidence  float64   `json:"confidence"`
	Disappeared int       `json:"disappeared"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Trajectory  []Point   `json:"trajectory,omitempty"`
}
