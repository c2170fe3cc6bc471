package count

import (
	"sort"
	"sync"
	"time"

	"github.com/banshee-data/footfall.report/internal/track"
)

// Direction classifies a confirmed crossing.
type Direction string

const (
	DirEntry Direction = "entry"
	DirExit  Direction = "exit"
)

// Orientation fixes which side-to-side movement counts as an entry.
// "Right" and "left" are relative to the boundary's direction of
// travel for the line policy, and to increasing x for the zone policy.
type Orientation string

const (
	RightToLeftEntry Orientation = "right_to_left_entry"
	LeftToRightEntry Orientation = "left_to_right_entry"
)

// CrossingEvent records one identity crossing the boundary. It is
// emitted at most once per identity and never mutated afterward.
// Location is set by the line policy; Start and End by the zone policy.
type CrossingEvent struct {
	TrackID   int64        `json:"track_id"`
	Direction Direction    `json:"direction"`
	At        time.Time    `json:"at"`
	Location  *track.Point `json:"location,omitempty"`
	Start     *track.Point `json:"start,omitempty"`
	End       *track.Point `json:"end,omitempty"`
}

// Counts is the running occupancy state. Inside never goes below zero;
// Entered and Exited only grow until an explicit reset.
type Counts struct {
	Inside  int `json:"count_inside"`
	Entered int `json:"total_entered"`
	Exited  int `json:"total_exited"`
}

// crossing is a policy's verdict for one identity in one frame.
type crossing struct {
	direction Direction
	location  *track.Point
	start     *track.Point
	end       *track.Point
}

// policy decides whether one identity crossed the boundary this frame.
// Implementations keep their own per-identity position history, which
// prune trims to the identities still alive in the tracker.
type policy interface {
	observe(id int64, c track.Point, w, h float64) (crossing, bool)
	prune(live map[int64]track.TrackInfo)
	reset()
}

// Counter applies one crossing policy to tracker output and maintains
// the running counts. Update is meant to be called once per frame from
// the processing loop; Counts and Reset take the same lock so a status
// endpoint can read totals while the loop runs.
type Counter struct {
	mu      sync.Mutex
	pol     policy
	counts  Counts
	crossed map[int64]struct{}
}

// NewLineCounter builds a counter around the parametric
// segment-intersection policy.
func NewLineCounter(cfg LineConfig) (*Counter, error) {
	pol, err := newLinePolicy(cfg)
	if err != nil {
		return nil, err
	}
	return &Counter{pol: pol, crossed: make(map[int64]struct{})}, nil
}

// NewZoneCounter builds a counter around the displacement-based zone
// policy.
func NewZoneCounter(cfg ZoneConfig) (*Counter, error) {
	pol, err := newZonePolicy(cfg)
	if err != nil {
		return nil, err
	}
	return &Counter{pol: pol, crossed: make(map[int64]struct{})}, nil
}

// Update feeds one frame of tracker output through the policy. The
// boundary is re-resolved against frameW and frameH on every call.
// Identities the tracker has dropped since the previous call are
// purged, which also clears their crossed-set membership so memory
// stays bounded.
func (c *Counter) Update(objects map[int64]track.TrackInfo, frameW, frameH int, now time.Time) []CrossingEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id := range c.crossed {
		if _, ok := objects[id]; !ok {
			delete(c.crossed, id)
		}
	}
	c.pol.prune(objects)

	ids := make([]int64, 0, len(objects))
	for id := range objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var events []CrossingEvent
	w, h := float64(frameW), float64(frameH)
	for _, id := range ids {
		if _, done := c.crossed[id]; done {
			continue
		}
		cr, ok := c.pol.observe(id, objects[id].Centroid, w, h)
		if !ok {
			continue
		}
		c.crossed[id] = struct{}{}
		switch cr.direction {
		case DirEntry:
			c.counts.Inside++
			c.counts.Entered++
		case DirExit:
			if c.counts.Inside > 0 {
				c.counts.Inside--
			}
			c.counts.Exited++
		}
		events = append(events, CrossingEvent{
			TrackID:   id,
			Direction: cr.direction,
			At:        now,
			Location:  cr.location,
			Start:     cr.start,
			End:       cr.end,
		})
	}
	return events
}

// Restore seeds the running totals, typically with the last persisted
// counts when a session resumes over an existing database. Inside is
// clamped at zero.
func (c *Counter) Restore(counts Counts) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if counts.Inside < 0 {
		counts.Inside = 0
	}
	c.counts = counts
}

// Counts returns a copy of the running totals.
func (c *Counter) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}

// Reset zeroes all counts, the crossed set, and every per-identity
// buffer. Identities still being tracked may cross and be counted
// again afterward.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = Counts{}
	c.crossed = make(map[int64]struct{})
	c.pol.reset()
}
