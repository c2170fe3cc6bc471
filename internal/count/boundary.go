package count

import (
	"fmt"
	"math"

	"github.com/banshee-data/footfall.report/internal/track"
)

// LineBoundary is a directed line segment expressed as fractions of the
// frame so it survives resolution changes. Direction matters: the
// "right" side of the segment, looking from (X1,Y1) toward (X2,Y2), is
// the negative side used for crossing classification.
type LineBoundary struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Validate rejects boundaries the counter cannot resolve.
func (b LineBoundary) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{{"x1", b.X1}, {"y1", b.Y1}, {"x2", b.X2}, {"y2", b.Y2}} {
		if math.IsNaN(f.v) || f.v < 0 || f.v > 1 {
			return fmt.Errorf("line boundary %s=%v outside [0,1]", f.name, f.v)
		}
	}
	if b.X1 == b.X2 && b.Y1 == b.Y2 {
		return fmt.Errorf("line boundary has zero length at (%v,%v)", b.X1, b.Y1)
	}
	return nil
}

// resolve scales the fractional endpoints to pixel coordinates.
func (b LineBoundary) resolve(w, h float64) (p1, p2 track.Point) {
	return track.Point{X: b.X1 * w, Y: b.Y1 * h}, track.Point{X: b.X2 * w, Y: b.Y2 * h}
}

// ZoneBoundary is a vertical band centered at a fraction of the frame
// width and spanning Width of it. Identities are counted when their
// trajectory carries them from one edge of the band past the other
// with enough net horizontal movement. A wider band demands a longer
// committed walk before a crossing registers.
type ZoneBoundary struct {
	Center float64 `json:"center"`
	Width  float64 `json:"width"`
}

// Validate rejects zones the counter cannot resolve.
func (b ZoneBoundary) Validate() error {
	if math.IsNaN(b.Center) || b.Center < 0 || b.Center > 1 {
		return fmt.Errorf("zone boundary center=%v outside [0,1]", b.Center)
	}
	if math.IsNaN(b.Width) || b.Width <= 0 || b.Width > 1 {
		return fmt.Errorf("zone boundary width=%v outside (0,1]", b.Width)
	}
	return nil
}
