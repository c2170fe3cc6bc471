package track

import (
	"sort"
	"sync"
	"time"
)

// AssignmentMode selects the association strategy.
type AssignmentMode string

const (
	// AssignGreedy walks all (track, detection) pairs in ascending
	// distance order, accepting a pair when neither side has been
	// consumed this frame. Not globally optimal, but bounded cost and
	// stable for well-separated people.
	AssignGreedy AssignmentMode = "greedy"
	// AssignHungarian solves the globally optimal assignment. Same
	// observable contract, higher per-frame cost.
	AssignHungarian AssignmentMode = "hungarian"
)

// Config holds tracker parameters.
type Config struct {
	MaxDisappeared   int            // Consecutive unmatched frames before an identity is forgotten
	MaxDistance      float64        // Maximum association distance (pixels)
	TrajectoryLength int            // Ring capacity for per-identity centroid history
	Assignment       AssignmentMode // Association strategy; defaults to greedy
}

// DefaultConfig returns tracker parameters matching a shoulder-height
// indoor camera at 720p.
func DefaultConfig() Config {
	return Config{
		MaxDisappeared:   30,
		MaxDistance:      100,
		TrajectoryLength: 64,
		Assignment:       AssignGreedy,
	}
}

// trackState is the tracker-owned record for one identity.
type trackState struct {
	id          int64
	centroid    Point
	bbox        BBox
	confidence  float64
	disappeared int
	firstSeen   time.Time
	lastSeen    time.Time
	trajectory  *pointRing
}

// Tracker maintains stable identities across frames of detections.
// Identity IDs are monotonically increasing and never reused for the
// lifetime of the process, across Reset calls included.
type Tracker struct {
	mu     sync.RWMutex
	cfg    Config
	nextID int64
	tracks map[int64]*trackState
}

// NewTracker creates a tracker with the given configuration. Zero
// values fall back to DefaultConfig equivalents.
func NewTracker(cfg Config) *Tracker {
	def := DefaultConfig()
	if cfg.MaxDisappeared <= 0 {
		cfg.MaxDisappeared = def.MaxDisappeared
	}
	if cfg.MaxDistance <= 0 {
		cfg.MaxDistance = def.MaxDistance
	}
	if cfg.TrajectoryLength <= 0 {
		cfg.TrajectoryLength = def.TrajectoryLength
	}
	if cfg.Assignment == "" {
		cfg.Assignment = AssignGreedy
	}
	return &Tracker{
		cfg:    cfg,
		nextID: 1,
		tracks: make(map[int64]*trackState),
	}
}

// Update consumes one frame of detections and returns the current
// identity map. An empty detection slice ages every track; tracks past
// MaxDisappeared are forgotten and absent from the returned map.
func (t *Tracker) Update(detections []Detection, now time.Time) map[int64]TrackInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(detections) == 0 {
		for id, tr := range t.tracks {
			tr.disappeared++
			if tr.disappeared > t.cfg.MaxDisappeared {
				delete(t.tracks, id)
			}
		}
		return t.snapshotLocked()
	}

	if len(t.tracks) == 0 {
		for _, d := range detections {
			t.registerLocked(d, now)
		}
		return t.snapshotLocked()
	}

	// Stable ordering of existing tracks for the distance matrix.
	ids := make([]int64, 0, len(t.tracks))
	for id := range t.tracks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	assign := t.associate(ids, detections)

	matchedTracks := make(map[int64]bool, len(ids))
	matchedDets := make(map[int]bool, len(detections))
	for di, ti := range assign {
		if ti < 0 {
			continue
		}
		tr := t.tracks[ids[ti]]
		d := detections[di]
		tr.centroid = d.Center()
		tr.bbox = d.BBox
		tr.confidence = d.Confidence
		tr.disappeared = 0
		tr.lastSeen = now
		tr.trajectory.Push(tr.centroid)
		matchedTracks[tr.id] = true
		matchedDets[di] = true
	}

	for _, id := range ids {
		if matchedTracks[id] {
			continue
		}
		tr := t.tracks[id]
		tr.disappeared++
		if tr.disappeared > t.cfg.MaxDisappeared {
			delete(t.tracks, id)
		}
	}

	for di, d := range detections {
		if !matchedDets[di] {
			t.registerLocked(d, now)
		}
	}

	return t.snapshotLocked()
}

// associate maps detection index → index into ids, or -1.
func (t *Tracker) associate(ids []int64, detections []Detection) []int {
	if t.cfg.Assignment == AssignHungarian {
		cost := make([][]float64, len(detections))
		for di, d := range detections {
			cost[di] = make([]float64, len(ids))
			c := d.Center()
			for ti, id := range ids {
				dist := t.tracks[id].centroid.Dist(c)
				if dist > t.cfg.MaxDistance {
					cost[di][ti] = hungarianInf
				} else {
					cost[di][ti] = dist
				}
			}
		}
		return HungarianAssign(cost)
	}
	return t.greedyAssign(ids, detections)
}

// greedyAssign sorts all (track, detection) pairs by ascending
// distance and accepts each pair whose track and detection are both
// still unconsumed and whose distance is within the gate.
func (t *Tracker) greedyAssign(ids []int64, detections []Detection) []int {
	type pair struct {
		ti, di int
		dist   float64
	}
	pairs := make([]pair, 0, len(ids)*len(detections))
	for ti, id := range ids {
		tc := t.tracks[id].centroid
		for di, d := range detections {
			pairs = append(pairs, pair{ti: ti, di: di, dist: tc.Dist(d.Center())})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].dist != pairs[j].dist {
			return pairs[i].dist < pairs[j].dist
		}
		// Deterministic tie-break keeps tests stable.
		if pairs[i].ti != pairs[j].ti {
			return pairs[i].ti < pairs[j].ti
		}
		return pairs[i].di < pairs[j].di
	})

	assign := make([]int, len(detections))
	for i := range assign {
		assign[i] = -1
	}
	usedTrack := make([]bool, len(ids))
	usedDet := make([]bool, len(detections))
	for _, p := range pairs {
		if usedTrack[p.ti] || usedDet[p.di] {
			continue
		}
		if p.dist > t.cfg.MaxDistance {
			// Pairs are sorted ascending: everything after is too far.
			break
		}
		assign[p.di] = p.ti
		usedTrack[p.ti] = true
		usedDet[p.di] = true
	}
	return assign
}

func (t *Tracker) registerLocked(d Detection, now time.Time) *trackState {
	tr := &trackState{
		id:         t.nextID,
		centroid:   d.Center(),
		bbox:       d.BBox,
		confidence: d.Confidence,
		firstSeen:  now,
		lastSeen:   now,
		trajectory: newPointRing(t.cfg.TrajectoryLength),
	}
	tr.trajectory.Push(tr.centroid)
	t.nextID++
	t.tracks[tr.id] = tr
	return tr
}

func (t *Tracker) snapshotLocked() map[int64]TrackInfo {
	out := make(map[int64]TrackInfo, len(t.tracks))
	for id, tr := range t.tracks {
		out[id] = TrackInfo{
			ID:          id,
			Centroid:    tr.centroid,
			BBox:        tr.bbox,
			Confidence:  tr.confidence,
			Disappeared: tr.disappeared,
			FirstSeen:   tr.firstSeen,
			LastSeen:    tr.lastSeen,
			Trajectory:  tr.trajectory.Points(),
		}
	}
	return out
}

// Snapshot returns the current identity map without advancing state.
// Safe for concurrent readers such as status handlers.
func (t *Tracker) Snapshot() map[int64]TrackInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

// ActiveCount returns the number of identities seen in the most
// recent frame (disappearance counter zero).
func (t *Tracker) ActiveCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, tr := range t.tracks {
		if tr.disappeared == 0 {
			n++
		}
	}
	return n
}

// TrackCount returns the number of identities currently tracked,
// including ones coasting through a disappearance window.
func (t *Tracker) TrackCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tracks)
}

// NextID returns the next identity number that will be assigned.
func (t *Tracker) NextID() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nextID
}

// Reset forgets every tracked identity. The ID counter is deliberately
// not reset: identities from before a reset must never be confused
// with identities after it.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracks = make(map[int64]*trackState)
}
