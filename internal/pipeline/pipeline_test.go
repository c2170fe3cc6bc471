package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/footfall.report/internal/config"
	"github.com/banshee-data/footfall.report/internal/count"
	"github.com/banshee-data/footfall.report/internal/db"
	"github.com/banshee-data/footfall.report/internal/timeutil"
	"github.com/banshee-data/footfall.report/internal/track"
)

func ptrInt(v int) *int             { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

func newTestPipeline(t *testing.T, cfg *config.TuningConfig) (*Pipeline, *db.DB, *timeutil.MockClock) {
	t.Helper()
	database, err := db.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	clock := timeutil.NewMockClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	p, err := New(cfg, database, clock)
	require.NoError(t, err)
	return p, database, clock
}

func frameWithPerson(x, y float64) Frame {
	return Frame{
		Detections: []track.Detection{{
			BBox:       track.BBox{X1: x - 30, Y1: y - 60, X2: x + 30, Y2: y + 60},
			Confidence: 0.9,
		}},
		Width:  1280,
		Height: 720,
	}
}

func TestProcessCountsCrossingAndPersists(t *testing.T) {
	p, database, clock := newTestPipeline(t, nil)

	// One person walking right to left across the default center line.
	var events []count.CrossingEvent
	for _, x := range []float64{740, 700, 650, 590, 550} {
		evs, err := p.Process(frameWithPerson(x, 360))
		require.NoError(t, err)
		events = append(events, evs...)
		clock.Advance(33 * time.Millisecond)
	}

	require.Len(t, events, 1)
	assert.Equal(t, count.DirEntry, events[0].Direction)

	counts := p.Counts()
	assert.Equal(t, count.Counts{Inside: 1, Entered: 1, Exited: 0}, counts)

	records, err := database.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, p.SessionID(), records[0].SessionID)
	assert.Equal(t, "entry", records[0].Direction)
	assert.Equal(t, 1, records[0].Inside)

	stats, err := database.HourlyStats(clock.Now())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].Entered)
}

func TestProcessRejectsMalformedDetections(t *testing.T) {
	p, _, _ := newTestPipeline(t, nil)

	bad := Frame{
		Detections: []track.Detection{{
			BBox:       track.BBox{X1: 100, Y1: 100, X2: 50, Y2: 200},
			Confidence: 0.9,
		}},
		Width:  1280,
		Height: 720,
	}
	_, err := p.Process(bad)
	require.Error(t, err)
	assert.Equal(t, int64(0), p.Status().FramesProcessed, "rejected frames are not counted")
}

func TestProcessFiltersLowConfidence(t *testing.T) {
	cfg := &config.TuningConfig{MinConfidence: ptrFloat64(0.5)}
	p, _, _ := newTestPipeline(t, cfg)

	frame := frameWithPerson(600, 360)
	frame.Detections[0].Confidence = 0.2
	_, err := p.Process(frame)
	require.NoError(t, err)

	assert.Equal(t, 0, p.Status().TrackedObjects, "low-confidence detections never reach the tracker")
}

func TestProcessEmptyFramesAgeTracks(t *testing.T) {
	cfg := &config.TuningConfig{MaxDisappeared: ptrInt(2)}
	p, _, _ := newTestPipeline(t, cfg)

	_, err := p.Process(frameWithPerson(600, 360))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Status().TrackedObjects)

	for i := 0; i < 3; i++ {
		_, err = p.Process(Frame{Width: 1280, Height: 720})
		require.NoError(t, err)
	}
	assert.Equal(t, 0, p.Status().TrackedObjects)
}

func TestResetClearsCountsButNotIdentitySequence(t *testing.T) {
	p, _, clock := newTestPipeline(t, nil)

	for _, x := range []float64{700, 650, 590} {
		_, err := p.Process(frameWithPerson(x, 360))
		require.NoError(t, err)
		clock.Advance(33 * time.Millisecond)
	}
	require.Equal(t, 1, p.Counts().Entered)

	p.Reset()
	assert.Equal(t, count.Counts{}, p.Counts())
	assert.Equal(t, 0, p.Status().TrackedObjects)

	// A fresh appearance after reset gets a new, higher identity and
	// may be counted again.
	events := make([]count.CrossingEvent, 0)
	for _, x := range []float64{700, 650, 590} {
		evs, err := p.Process(frameWithPerson(x, 360))
		require.NoError(t, err)
		events = append(events, evs...)
		clock.Advance(33 * time.Millisecond)
	}
	require.Len(t, events, 1)
	assert.Greater(t, events[0].TrackID, int64(1))
	assert.Equal(t, 1, p.Counts().Entered)
}

func TestAlertPersistedWhenLimitExceeded(t *testing.T) {
	cfg := &config.TuningConfig{
		CrowdLimit:      ptrInt(2),
		WarningFraction: ptrFloat64(0.5),
	}
	p, database, clock := newTestPipeline(t, cfg)

	// One entry puts occupancy at 1, which is 50% of a limit of 2.
	for _, x := range []float64{700, 650, 590} {
		_, err := p.Process(frameWithPerson(x, 360))
		require.NoError(t, err)
		clock.Advance(33 * time.Millisecond)
	}

	alerts, err := database.RecentAlerts(10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "warning", alerts[0].Level)
	assert.Equal(t, p.SessionID(), alerts[0].SessionID)
}

func TestAlertResolvedWhenOccupancyDrops(t *testing.T) {
	cfg := &config.TuningConfig{
		CrowdLimit:      ptrInt(2),
		WarningFraction: ptrFloat64(0.5),
		MaxDisappeared:  ptrInt(2),
	}
	p, database, clock := newTestPipeline(t, cfg)

	// First person enters: occupancy 1 trips the warning.
	for _, x := range []float64{700, 650, 590} {
		_, err := p.Process(frameWithPerson(x, 360))
		require.NoError(t, err)
		clock.Advance(33 * time.Millisecond)
	}
	alerts, err := database.RecentAlerts(10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.False(t, alerts[0].Resolved)

	// Empty frames until the tracker forgets the first person.
	for i := 0; i < 3; i++ {
		_, err := p.Process(Frame{Width: 1280, Height: 720})
		require.NoError(t, err)
		clock.Advance(33 * time.Millisecond)
	}

	// A second person exits: occupancy drops to 0 and the open
	// warning is resolved.
	for _, x := range []float64{590, 650, 700} {
		_, err := p.Process(frameWithPerson(x, 360))
		require.NoError(t, err)
		clock.Advance(33 * time.Millisecond)
	}
	require.Equal(t, 0, p.Counts().Inside)

	alerts, err = database.RecentAlerts(10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.True(t, alerts[0].Resolved)
	require.NotNil(t, alerts[0].ResolvedAt)
	assert.False(t, alerts[0].ResolvedAt.Before(alerts[0].Timestamp))
}

func TestStatusSnapshot(t *testing.T) {
	p, _, clock := newTestPipeline(t, nil)

	start := clock.Now()
	_, err := p.Process(frameWithPerson(600, 360))
	require.NoError(t, err)

	st := p.Status()
	assert.NotEmpty(t, st.SessionID)
	assert.Equal(t, int64(1), st.FramesProcessed)
	assert.Equal(t, 1, st.ActiveTracks)
	assert.Equal(t, start, st.StartedAt)
	assert.Equal(t, start, st.LastFrameAt)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(&config.TuningConfig{Assignment: ptrString("magic")}, nil, nil)
	assert.Error(t, err)
}

func TestResetSurvivesRestart(t *testing.T) {
	database, err := db.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	clock := timeutil.NewMockClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	p1, err := New(nil, database, clock)
	require.NoError(t, err)

	for _, x := range []float64{700, 650, 590} {
		_, err := p1.Process(frameWithPerson(x, 360))
		require.NoError(t, err)
		clock.Advance(33 * time.Millisecond)
	}
	require.Equal(t, count.Counts{Inside: 1, Entered: 1, Exited: 0}, p1.Counts())

	p1.Reset()
	assert.Equal(t, count.Counts{}, p1.Counts())

	// A new pipeline over the same store must not resurrect the
	// pre-reset totals.
	p2, err := New(nil, database, clock)
	require.NoError(t, err)
	assert.Equal(t, count.Counts{}, p2.Counts())
}

func TestNewRestoresCountsFromStore(t *testing.T) {
	database, err := db.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	// Counts left behind by an earlier session.
	require.NoError(t, database.LogEvent(db.EventRecord{
		SessionID: "previous-session",
		TrackID:   7,
		Direction: "entry",
		X:         640,
		Y:         360,
		Inside:    4,
		Entered:   9,
		Exited:    5,
		Timestamp: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}))

	clock := timeutil.NewMockClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	p, err := New(nil, database, clock)
	require.NoError(t, err)

	assert.Equal(t, count.Counts{Inside: 4, Entered: 9, Exited: 5}, p.Counts())
}

func TestPipelineWithoutStore(t *testing.T) {
	clock := timeutil.NewMockClock(time.Now())
	p, err := New(nil, nil, clock)
	require.NoError(t, err)

	for _, x := range []float64{700, 650, 590} {
		_, err := p.Process(frameWithPerson(x, 360))
		require.NoError(t, err)
		clock.Advance(33 * time.Millisecond)
	}
	assert.Equal(t, 1, p.Counts().Entered)
}
