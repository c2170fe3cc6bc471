package count

import (
	"math"

	"github.com/banshee-data/footfall.report/internal/track"
)

// Segments closer to parallel than this are treated as non-intersecting.
const parallelEps = 1e-6

// defaultLineBuffer is how many recent centroids the line policy keeps
// per identity. Only the last two matter for the intersection test; the
// rest absorb a few frames of detector jitter before an identity is
// first observed on a side.
const defaultLineBuffer = 5

// LineConfig configures the segment-intersection crossing policy.
type LineConfig struct {
	Boundary    LineBoundary
	Orientation Orientation
	// BufferLen bounds the per-identity position history. Zero means
	// defaultLineBuffer.
	BufferLen int
}

// linePolicy confirms a crossing when the segment between an identity's
// previous and current centroid geometrically intersects the boundary
// segment, and classifies direction from which side of the directed
// boundary the identity came from.
type linePolicy struct {
	cfg     LineConfig
	history map[int64]*posRing
}

func newLinePolicy(cfg LineConfig) (*linePolicy, error) {
	if err := cfg.Boundary.Validate(); err != nil {
		return nil, err
	}
	if cfg.Orientation == "" {
		cfg.Orientation = RightToLeftEntry
	}
	if cfg.BufferLen <= 0 {
		cfg.BufferLen = defaultLineBuffer
	}
	return &linePolicy{cfg: cfg, history: make(map[int64]*posRing)}, nil
}

func (p *linePolicy) observe(id int64, c track.Point, w, h float64) (crossing, bool) {
	ring, ok := p.history[id]
	if !ok {
		ring = newPosRing(p.cfg.BufferLen)
		p.history[id] = ring
	}
	ring.push(c)
	if ring.len() < 2 {
		return crossing{}, false
	}

	b1, b2 := p.cfg.Boundary.resolve(w, h)
	prev := ring.at(ring.len() - 2)
	curr := ring.at(ring.len() - 1)

	hit, ok := segmentIntersection(prev, curr, b1, b2)
	if !ok {
		return crossing{}, false
	}

	prevLeft := onLeftSide(b1, b2, prev)
	currLeft := onLeftSide(b1, b2, curr)
	if prevLeft == currLeft {
		return crossing{}, false
	}

	// The right side of the directed boundary is the negative cross
	// product side, so a right-to-left flip starts from !prevLeft.
	rightToLeft := !prevLeft
	dir := DirExit
	switch p.cfg.Orientation {
	case RightToLeftEntry:
		if rightToLeft {
			dir = DirEntry
		}
	case LeftToRightEntry:
		if !rightToLeft {
			dir = DirEntry
		}
	}
	return crossing{direction: dir, location: &hit}, true
}

func (p *linePolicy) prune(live map[int64]track.TrackInfo) {
	for id := range p.history {
		if _, ok := live[id]; !ok {
			delete(p.history, id)
		}
	}
}

func (p *linePolicy) reset() {
	p.history = make(map[int64]*posRing)
}

// segmentIntersection solves the parametric equations of segments a1-a2
// and b1-b2. It reports the intersection point when both interpolation
// parameters land in [0,1]; near-parallel segments never intersect.
func segmentIntersection(a1, a2, b1, b2 track.Point) (track.Point, bool) {
	denom := (a2.X-a1.X)*(b2.Y-b1.Y) - (a2.Y-a1.Y)*(b2.X-b1.X)
	if math.Abs(denom) < parallelEps {
		return track.Point{}, false
	}
	t := ((b1.X-a1.X)*(b2.Y-b1.Y) - (b1.Y-a1.Y)*(b2.X-b1.X)) / denom
	u := ((b1.X-a1.X)*(a2.Y-a1.Y) - (b1.Y-a1.Y)*(a2.X-a1.X)) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return track.Point{}, false
	}
	return track.Point{X: a1.X + t*(a2.X-a1.X), Y: a1.Y + t*(a2.Y-a1.Y)}, true
}

// onLeftSide reports whether p lies on the positive cross product side
// of the directed boundary b1->b2. A point exactly on the line counts
// as the right side, so a step that lands on the boundary still reads
// as a side change and the crossing is not lost between frames.
func onLeftSide(b1, b2, p track.Point) bool {
	return (b2.X-b1.X)*(p.Y-b1.Y)-(b2.Y-b1.Y)*(p.X-b1.X) > 0
}
