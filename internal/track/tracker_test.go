package track

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detAt(x, y float64) Detection {
	return Detection{
		BBox:       BBox{X1: x - 20, Y1: y - 40, X2: x + 20, Y2: y + 40},
		Confidence: 0.9,
	}
}

func TestTrackerRegistersAllOnFirstFrame(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	now := time.Now()

	objects := tr.Update([]Detection{detAt(100, 100), detAt(600, 100)}, now)
	require.Len(t, objects, 2)

	assert.Contains(t, objects, int64(1))
	assert.Contains(t, objects, int64(2))
	assert.Equal(t, Point{X: 100, Y: 100}, objects[1].Centroid)
	assert.Equal(t, Point{X: 600, Y: 100}, objects[2].Centroid)
	assert.Equal(t, now, objects[1].FirstSeen)
}

func TestTrackerFollowsMovingDetection(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	now := time.Now()

	tr.Update([]Detection{detAt(100, 100)}, now)
	for i := 1; i <= 5; i++ {
		objects := tr.Update([]Detection{detAt(100+float64(i)*30, 100)}, now.Add(time.Duration(i)*33*time.Millisecond))
		require.Len(t, objects, 1)
		assert.Contains(t, objects, int64(1), "identity must stay stable while within the gate")
	}

	objects := tr.Snapshot()
	require.Len(t, objects[1].Trajectory, 6)
	assert.Equal(t, Point{X: 250, Y: 100}, objects[1].Trajectory[5])
}

func TestTrackerNoCrossAssignmentBeyondGate(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.MaxDistance = 100
	tr := NewTracker(cfg)
	now := time.Now()

	// Two people 500px apart: each must keep its own identity, and a
	// frame where both shift slightly must not swap them.
	tr.Update([]Detection{detAt(100, 200), detAt(600, 200)}, now)
	objects := tr.Update([]Detection{detAt(610, 205), detAt(110, 195)}, now.Add(33*time.Millisecond))

	require.Len(t, objects, 2)
	assert.Equal(t, Point{X: 110, Y: 195}, objects[1].Centroid)
	assert.Equal(t, Point{X: 610, Y: 205}, objects[2].Centroid)
}

func TestTrackerDistantDetectionSpawnsNewIdentity(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.MaxDistance = 50
	tr := NewTracker(cfg)
	now := time.Now()

	tr.Update([]Detection{detAt(100, 100)}, now)
	objects := tr.Update([]Detection{detAt(400, 100)}, now.Add(33*time.Millisecond))

	// The old track coasts, the far detection registers fresh.
	require.Len(t, objects, 2)
	assert.Equal(t, 1, objects[1].Disappeared)
	assert.Equal(t, 0, objects[2].Disappeared)
}

func TestTrackerForgetsAfterMaxDisappeared(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.MaxDisappeared = 3
	tr := NewTracker(cfg)
	now := time.Now()

	tr.Update([]Detection{detAt(100, 100)}, now)
	for i := 0; i < 3; i++ {
		objects := tr.Update(nil, now)
		assert.Len(t, objects, 1, "track coasts while within the disappearance budget")
	}
	objects := tr.Update(nil, now)
	assert.Empty(t, objects)

	// A detection near the old location is a brand-new, higher ID.
	objects = tr.Update([]Detection{detAt(102, 101)}, now)
	require.Len(t, objects, 1)
	assert.Contains(t, objects, int64(2))
}

func TestTrackerEmptyFramesNeverRegister(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	for i := 0; i < 5; i++ {
		assert.Empty(t, tr.Update(nil, time.Now()))
	}
	assert.Equal(t, int64(1), tr.NextID())
}

func TestTrackerResetKeepsIDCounter(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	now := time.Now()

	tr.Update([]Detection{detAt(100, 100), detAt(600, 100)}, now)
	require.Equal(t, 2, tr.TrackCount())

	tr.Reset()
	assert.Equal(t, 0, tr.TrackCount())

	objects := tr.Update([]Detection{detAt(100, 100)}, now)
	require.Len(t, objects, 1)
	assert.Contains(t, objects, int64(3), "IDs must not be reused across reset")
}

func TestTrackerTrajectoryIsBounded(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.TrajectoryLength = 8
	cfg.MaxDistance = 1e6
	tr := NewTracker(cfg)
	now := time.Now()

	for i := 0; i < 50; i++ {
		tr.Update([]Detection{detAt(float64(100+i), 100)}, now)
	}
	objects := tr.Snapshot()
	require.Len(t, objects, 1)
	assert.Len(t, objects[1].Trajectory, 8)
	assert.Equal(t, Point{X: 149, Y: 100}, objects[1].Trajectory[7])
	assert.Equal(t, Point{X: 142, Y: 100}, objects[1].Trajectory[0])
}

func TestTrackerHungarianModeMatchesContract(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Assignment = AssignHungarian
	tr := NewTracker(cfg)
	now := time.Now()

	tr.Update([]Detection{detAt(100, 100), detAt(200, 100)}, now)

	// Greedy would pair track 2 with the detection at 190 (distance
	// 10) and strand track 1 at distance 110 > gate had the gate been
	// tight; the optimal solver must still produce a one-to-one
	// mapping under the same gate.
	objects := tr.Update([]Detection{detAt(130, 100), detAt(190, 100)}, now.Add(33*time.Millisecond))
	require.Len(t, objects, 2)
	assert.Equal(t, Point{X: 130, Y: 100}, objects[1].Centroid)
	assert.Equal(t, Point{X: 190, Y: 100}, objects[2].Centroid)
}

func TestTrackerActiveCount(t *testing.T) {
	t.Parallel()
	tr := NewTracker(DefaultConfig())
	now := time.Now()

	tr.Update([]Detection{detAt(100, 100), detAt(600, 100)}, now)
	assert.Equal(t, 2, tr.ActiveCount())

	tr.Update([]Detection{detAt(100, 100)}, now)
	assert.Equal(t, 1, tr.ActiveCount())
	assert.Equal(t, 2, tr.TrackCount())
}

func TestDetectionValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		det     Detection
		wantErr bool
	}{
		{"valid", detAt(100, 100), false},
		{"inverted box", Detection{BBox: BBox{X1: 10, Y1: 10, X2: 5, Y2: 20}}, true},
		{"nan coordinate", Detection{BBox: BBox{X1: math.NaN(), Y1: 0, X2: 1, Y2: 1}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.det.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
