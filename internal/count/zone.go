package count

import (
	"math"

	"github.com/banshee-data/footfall.report/internal/track"
)

// Zone policy defaults, sized for a head-height camera at 1280px wide.
const (
	defaultZoneWindow      = 8
	defaultZoneMinPoints   = 3
	defaultZoneMinMovePx   = 80
	defaultZoneMinMoveFrac = 0.15
)

// ZoneConfig configures the displacement-based crossing policy.
type ZoneConfig struct {
	Boundary    ZoneBoundary
	Orientation Orientation
	// Window bounds the per-identity trajectory. Zero means
	// defaultZoneWindow.
	Window int
	// MinPoints is how many samples an identity needs before a
	// crossing can be considered. Zero means defaultZoneMinPoints.
	MinPoints int
	// MinMovePx is the minimum net horizontal displacement in pixels.
	// The effective threshold is the larger of this and MinMoveFrac of
	// the frame width. Zero means defaultZoneMinMovePx.
	MinMovePx float64
	// MinMoveFrac scales the displacement threshold with frame width.
	// Zero means defaultZoneMinMoveFrac.
	MinMoveFrac float64
}

// zonePolicy confirms a crossing from net horizontal displacement: an
// identity whose trajectory starts on one side of the zone band and
// ends past the other edge, having moved far enough, has crossed. It
// trades the line policy's geometric precision for robustness against
// jitter right at the boundary.
type zonePolicy struct {
	cfg     ZoneConfig
	history map[int64]*posRing
}

func newZonePolicy(cfg ZoneConfig) (*zonePolicy, error) {
	if err := cfg.Boundary.Validate(); err != nil {
		return nil, err
	}
	if cfg.Orientation == "" {
		cfg.Orientation = RightToLeftEntry
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultZoneWindow
	}
	if cfg.MinPoints <= 0 {
		cfg.MinPoints = defaultZoneMinPoints
	}
	if cfg.MinPoints > cfg.Window {
		cfg.MinPoints = cfg.Window
	}
	if cfg.MinMovePx <= 0 {
		cfg.MinMovePx = defaultZoneMinMovePx
	}
	if cfg.MinMoveFrac <= 0 {
		cfg.MinMoveFrac = defaultZoneMinMoveFrac
	}
	return &zonePolicy{cfg: cfg, history: make(map[int64]*posRing)}, nil
}

func (p *zonePolicy) observe(id int64, c track.Point, w, h float64) (crossing, bool) {
	ring, ok := p.history[id]
	if !ok {
		ring = newPosRing(p.cfg.Window)
		p.history[id] = ring
	}
	ring.push(c)
	if ring.len() < p.cfg.MinPoints {
		return crossing{}, false
	}

	first := ring.first()
	last := ring.last()
	dx := last.X - first.X
	threshold := math.Max(p.cfg.MinMovePx, p.cfg.MinMoveFrac*w)
	if math.Abs(dx) < threshold {
		return crossing{}, false
	}

	// The trajectory must span the whole zone band, not just travel
	// far on one side of it or dip into the band and back out.
	cx := p.cfg.Boundary.Center * w
	half := p.cfg.Boundary.Width * w / 2
	lo := math.Min(first.X, last.X)
	hi := math.Max(first.X, last.X)
	if lo > cx-half || hi < cx+half {
		return crossing{}, false
	}

	leftToRight := dx > 0
	dir := DirExit
	switch p.cfg.Orientation {
	case RightToLeftEntry:
		if !leftToRight {
			dir = DirEntry
		}
	case LeftToRightEntry:
		if leftToRight {
			dir = DirEntry
		}
	}
	start, end := first, last
	return crossing{direction: dir, start: &start, end: &end}, true
}

func (p *zonePolicy) prune(live map[int64]track.TrackInfo) {
	for id := range p.history {
		if _, ok := live[id]; !ok {
			delete(p.history, id)
		}
	}
}

func (p *zonePolicy) reset() {
	p.history = make(map[int64]*posRing)
}
