package kinematics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/collision.report/internal/geometry"
	"github.com/banshee-data/collision.report/internal/track"
)

func testConfig() EstimatorConfig {
	return EstimatorConfig{
		FPS:                 30,
		PixelsPerMeter:      50,
		MinHistory:          2,
		StationaryThreshold: 2.0,
		MotionHistoryLength: 20,
		AccelerationWindow:  5,
		SmoothWindow:        3,
	}
}

// vehicleWithPath builds a vehicle whose centroid visits each point on
// consecutive frames starting at frame 1.
func vehicleWithPath(id int, points ...geometry.Point) *track.Vehicle {
	v := &track.Vehicle{ID: id, Class: "car"}
	for i, p := range points {
		v.History = append(v.History, track.HistoryPoint{Centroid: p, FrameIndex: i + 1})
	}
	if n := len(points); n > 0 {
		v.Centroid = points[n-1]
		v.FirstSeenFrame = 1
		v.LastSeenFrame = n
	}
	return v
}

func TestEstimateRequiresHistory(t *testing.T) {
	t.Parallel()
	e := NewEstimator(testConfig())

	_, ok := e.Estimate(nil)
	assert.False(t, ok)

	_, ok = e.Estimate(vehicleWithPath(1, geometry.Point{X: 0, Y: 0}))
	assert.False(t, ok, "single observation is not enough")

	_, ok = e.Estimate(vehicleWithPath(1, geometry.Point{X: 0, Y: 0}, geometry.Point{X: 5, Y: 0}))
	assert.True(t, ok)
}

func TestEstimateSpeeds(t *testing.T) {
	t.Parallel()
	e := NewEstimator(testConfig())

	t.Run("constant velocity", func(t *testing.T) {
		s, ok := e.Estimate(vehicleWithPath(1,
			geometry.Point{X: 0, Y: 0},
			geometry.Point{X: 10, Y: 0},
			geometry.Point{X: 20, Y: 0},
		))
		require.True(t, ok)
		assert.InDelta(t, 10.0, s.CurrentSpeed, 1e-9)
		assert.InDelta(t, 10.0, s.AverageSpeed, 1e-9)
		// 10 px/frame at 30 fps, 50 px/m: 6 m/s = 21.6 km/h.
		assert.InDelta(t, 21.6, s.SpeedKMH, 1e-9)
		assert.True(t, s.IsMoving)
	})

	t.Run("occlusion gap divides by frame delta", func(t *testing.T) {
		v := &track.Vehicle{ID: 2, History: []track.HistoryPoint{
			{Centroid: geometry.Point{X: 0, Y: 0}, FrameIndex: 1},
			{Centroid: geometry.Point{X: 30, Y: 0}, FrameIndex: 4},
		}}
		s, ok := e.Estimate(v)
		require.True(t, ok)
		assert.InDelta(t, 10.0, s.CurrentSpeed, 1e-9, "30 px over 3 frames")
	})

	t.Run("duplicate frame index clamps the divisor", func(t *testing.T) {
		v := &track.Vehicle{ID: 3, History: []track.HistoryPoint{
			{Centroid: geometry.Point{X: 0, Y: 0}, FrameIndex: 5},
			{Centroid: geometry.Point{X: 8, Y: 0}, FrameIndex: 5},
		}}
		s, ok := e.Estimate(v)
		require.True(t, ok)
		assert.InDelta(t, 8.0, s.CurrentSpeed, 1e-9)
	})
}

func TestHeadingFrozenWhileStationary(t *testing.T) {
	t.Parallel()
	e := NewEstimator(testConfig())

	// Moving east at 10 px/frame: heading 0.
	s, ok := e.Estimate(vehicleWithPath(1,
		geometry.Point{X: 0, Y: 0},
		geometry.Point{X: 10, Y: 0},
	))
	require.True(t, ok)
	assert.InDelta(t, 0.0, s.CurrentHeading, 1e-9)

	// Now creeping below the stationary threshold, drifting in +y. A raw
	// atan2 would say 90 degrees; the heading must stay frozen at 0.
	s, ok = e.Estimate(vehicleWithPath(1,
		geometry.Point{X: 0, Y: 0},
		geometry.Point{X: 10, Y: 0},
		geometry.Point{X: 10, Y: 0.5},
	))
	require.True(t, ok)
	assert.False(t, s.IsMoving)
	assert.InDelta(t, 0.0, s.CurrentHeading, 1e-9)
	assert.InDelta(t, 0.0, s.HeadingChange, 1e-9)

	// Moving again, northbound: heading thaws.
	s, ok = e.Estimate(vehicleWithPath(1,
		geometry.Point{X: 10, Y: 0},
		geometry.Point{X: 10, Y: 0.5},
		geometry.Point{X: 10, Y: 10.5},
	))
	require.True(t, ok)
	assert.True(t, s.IsMoving)
	assert.InDelta(t, 90.0, s.CurrentHeading, 1e-9)
	assert.InDelta(t, 90.0, s.HeadingChange, 1e-9)
}

func TestHeadingChangeWraparound(t *testing.T) {
	t.Parallel()
	e := NewEstimator(testConfig())

	// Heading 170.
	_, ok := e.Estimate(vehicleWithPath(1,
		geometry.Point{X: 0, Y: 0},
		geometry.Point{X: -10, Y: 1.763},
	))
	require.True(t, ok)

	// Heading -170: the signed delta across the boundary is +20, not -340.
	s, ok := e.Estimate(vehicleWithPath(1,
		geometry.Point{X: 0, Y: 0},
		geometry.Point{X: -10, Y: 1.763},
		geometry.Point{X: -20, Y: 0},
	))
	require.True(t, ok)
	assert.InDelta(t, 20.0, s.HeadingChange, 0.1)
}

func TestAcceleration(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.AccelerationWindow = 3
	e := NewEstimator(cfg)

	path := []geometry.Point{{X: 0, Y: 0}}
	speeds := []float64{10, 10, 4, 4}
	x := 0.0
	for i, sp := range speeds {
		x += sp
		path = append(path, geometry.Point{X: x, Y: 0})

		s, ok := e.Estimate(vehicleWithPath(1, path...))
		require.True(t, ok)
		switch i {
		case 0, 1:
			// Buffer shorter than the window: acceleration reports zero.
			assert.Zero(t, s.Acceleration, "sample %d", i)
		case 2:
			// Window spans speeds [10, 10, 4]: (4 - 10) / 3.
			assert.InDelta(t, -2.0, s.Acceleration, 1e-9)
		case 3:
			// Window spans [10, 4, 4]: (4 - 10) / 3.
			assert.InDelta(t, -2.0, s.Acceleration, 1e-9)
		}
	}
}

func TestSmoothedSpeed(t *testing.T) {
	t.Parallel()
	e := NewEstimator(testConfig())

	path := []geometry.Point{{X: 0, Y: 0}}
	x := 0.0
	var last State
	for _, sp := range []float64{6, 9, 12} {
		x += sp
		path = append(path, geometry.Point{X: x, Y: 0})
		s, ok := e.Estimate(vehicleWithPath(1, path...))
		require.True(t, ok)
		last = s
	}
	assert.InDelta(t, 9.0, last.SmoothedSpeed, 1e-9, "mean of 6, 9, 12")
}

func TestTotalHeadingChange(t *testing.T) {
	t.Parallel()
	e := NewEstimator(testConfig())

	// A steady right turn: east, then southeast, then south.
	paths := [][]geometry.Point{
		{{X: 0, Y: 0}, {X: 10, Y: 0}},
		{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 17.07, Y: -7.07}},
		{{X: 10, Y: 0}, {X: 17.07, Y: -7.07}, {X: 17.07, Y: -17.07}},
	}
	for _, p := range paths {
		_, ok := e.Estimate(vehicleWithPath(1, p...))
		require.True(t, ok)
	}
	assert.InDelta(t, -90.0, e.TotalHeadingChange(1, 10), 0.1)
	assert.Zero(t, e.TotalHeadingChange(99, 10), "unknown identity")
}

func TestCleanupAndReset(t *testing.T) {
	t.Parallel()
	e := NewEstimator(testConfig())

	for _, id := range []int{1, 2} {
		_, ok := e.Estimate(vehicleWithPath(id,
			geometry.Point{X: 0, Y: 0},
			geometry.Point{X: 10, Y: 0},
		))
		require.True(t, ok)
	}
	require.Len(t, e.speedHistories, 2)

	e.Cleanup(map[int]struct{}{2: {}})
	assert.Len(t, e.speedHistories, 1)
	assert.NotContains(t, e.speedHistories, 1)
	assert.Contains(t, e.speedHistories, 2)

	e.Reset()
	assert.Empty(t, e.speedHistories)
	assert.Empty(t, e.prevHeadings)
}

func TestMotionHistoryBound(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.MotionHistoryLength = 8
	e := NewEstimator(cfg)

	path := []geometry.Point{{X: 0, Y: 0}}
	for i := 1; i <= 50; i++ {
		path = append(path, geometry.Point{X: float64(i * 10), Y: 0})
		if len(path) > 30 {
			path = path[len(path)-30:]
		}
		v := &track.Vehicle{ID: 1}
		base := i - len(path) + 1
		for j, p := range path {
			v.History = append(v.History, track.HistoryPoint{Centroid: p, FrameIndex: base + j})
		}
		_, ok := e.Estimate(v)
		require.True(t, ok)
		assert.LessOrEqual(t, len(e.speedHistories[1]), 8)
		assert.LessOrEqual(t, len(e.headingHistories[1]), 8)
	}
}

func TestEstimateAll(t *testing.T) {
	t.Parallel()
	e := NewEstimator(testConfig())

	states := e.EstimateAll([]*track.Vehicle{
		vehicleWithPath(1, geometry.Point{X: 0, Y: 0}, geometry.Point{X: 10, Y: 0}),
		vehicleWithPath(2, geometry.Point{X: 0, Y: 0}), // too short
	})
	assert.Len(t, states, 1)
	assert.Contains(t, states, 1)
}

func TestSetFPS(t *testing.T) {
	t.Parallel()
	e := NewEstimator(testConfig())

	v := vehicleWithPath(1, geometry.Point{X: 0, Y: 0}, geometry.Point{X: 10, Y: 0})
	s, ok := e.Estimate(v)
	require.True(t, ok)
	assert.InDelta(t, 21.6, s.SpeedKMH, 1e-9)

	e.SetFPS(60)
	s, ok = e.Estimate(v)
	require.True(t, ok)
	assert.InDelta(t, 43.2, s.SpeedKMH, 1e-9)

	e.SetFPS(0) // ignored
	s, ok = e.Estimate(v)
	require.True(t, ok)
	assert.InDelta(t, 43.2, s.SpeedKMH, 1e-9)
}
