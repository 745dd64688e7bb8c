// Package kinematics derives per-identity motion signals (speed, heading,
// acceleration) from tracked position history.
//
// The estimator is stateful per identity: it keeps its own bounded speed and
// heading buffers independent of the track store, so the frame-loop owner
// must call Cleanup once per frame to bound memory.
package kinematics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/geometry"
	"github.com/banshee-data/collision.report/internal/track"
	"github.com/banshee-data/collision.report/internal/units"
)

// EstimatorConfig holds configuration parameters for the estimator.
type EstimatorConfig struct {
	FPS                 float64 // Video frame rate, for km/h conversion
	PixelsPerMeter      float64 // Linear calibration factor (no perspective correction)
	MinHistory          int     // Minimum history points before any estimate (>= 2)
	StationaryThreshold float64 // Speed (px/frame) below which the object is stationary
	MotionHistoryLength int     // Retained speed/heading samples per identity
	AccelerationWindow  int     // Trailing frames for acceleration
	SmoothWindow        int     // Trailing frames for moving-average smoothing
}

// EstimatorConfigFromTuning builds an EstimatorConfig from a loaded TuningConfig.
func EstimatorConfigFromTuning(cfg *config.TuningConfig) EstimatorConfig {
	return EstimatorConfig{
		FPS:                 cfg.GetFPS(),
		PixelsPerMeter:      cfg.GetPixelsPerMeter(),
		MinHistory:          cfg.GetMinHistory(),
		StationaryThreshold: cfg.GetStationaryThreshold(),
		MotionHistoryLength: cfg.GetMotionHistoryLength(),
		AccelerationWindow:  cfg.GetAccelerationWindow(),
		SmoothWindow:        cfg.GetSmoothWindow(),
	}
}

// State is the per-identity kinematic estimate for one frame. Speeds are in
// pixels per frame; headings in degrees using the atan2 convention
// (0 = +x, 90 = +y).
type State struct {
	ID           int
	CurrentSpeed float64 // Last-step speed, jitter-sensitive by design
	AverageSpeed float64 // Path length over full retained history
	SpeedKMH     float64 // Approximate, via fps and pixels-per-meter
	IsMoving     bool
	SpeedChange  float64 // Delta from the previous frame's speed

	CurrentHeading float64 // Frozen at the last valid value while stationary
	HeadingChange  float64 // Signed delta since last frame, in (-180, 180]

	Acceleration    float64 // Speed delta over the acceleration window
	SmoothedSpeed   float64 // Moving average over the smooth window
	SmoothedHeading float64
}

// Estimator computes kinematic state from track history.
type Estimator struct {
	config EstimatorConfig

	prevSpeeds       map[int]float64
	prevHeadings     map[int]float64
	speedHistories   map[int][]float64
	headingHistories map[int][]float64
}

// NewEstimator creates an estimator with the given configuration.
func NewEstimator(cfg EstimatorConfig) *Estimator {
	if cfg.MinHistory < 2 {
		cfg.MinHistory = 2
	}
	if cfg.AccelerationWindow < 1 {
		cfg.AccelerationWindow = 1
	}
	if cfg.SmoothWindow < 1 {
		cfg.SmoothWindow = 1
	}
	if cfg.MotionHistoryLength < cfg.AccelerationWindow {
		cfg.MotionHistoryLength = cfg.AccelerationWindow
	}
	return &Estimator{
		config:           cfg,
		prevSpeeds:       make(map[int]float64),
		prevHeadings:     make(map[int]float64),
		speedHistories:   make(map[int][]float64),
		headingHistories: make(map[int][]float64),
	}
}

// SetFPS updates the frame rate used for km/h conversion. Safe to call
// mid-stream when the source video's rate is detected late.
func (e *Estimator) SetFPS(fps float64) {
	if fps > 0 {
		e.config.FPS = fps
	}
}

// Estimate derives the kinematic state for one vehicle. Returns ok=false
// when the vehicle has less than MinHistory points; callers must treat that
// as "insufficient data", not an error.
func (e *Estimator) Estimate(v *track.Vehicle) (State, bool) {
	if v == nil || len(v.History) < e.config.MinHistory {
		return State{}, false
	}

	history := v.History
	last := history[len(history)-1]
	prev := history[len(history)-2]

	frameDelta := last.FrameIndex - prev.FrameIndex
	if frameDelta < 1 {
		frameDelta = 1
	}
	currentSpeed := geometry.Distance(prev.Centroid, last.Centroid) / float64(frameDelta)

	// Average speed over the whole retained path, not just the last step,
	// which smooths single-frame tracker jitter.
	totalDistance := 0.0
	for i := 1; i < len(history); i++ {
		totalDistance += geometry.Distance(history[i-1].Centroid, history[i].Centroid)
	}
	totalFrames := last.FrameIndex - history[0].FrameIndex
	if totalFrames < 1 {
		totalFrames = 1
	}
	averageSpeed := totalDistance / float64(totalFrames)

	speedKMH := units.PixelSpeedToKMH(averageSpeed, e.config.FPS, e.config.PixelsPerMeter)
	isMoving := currentSpeed >= e.config.StationaryThreshold

	prevSpeed, seen := e.prevSpeeds[v.ID]
	if !seen {
		prevSpeed = currentSpeed
	}
	speedChange := currentSpeed - prevSpeed
	e.prevSpeeds[v.ID] = currentSpeed

	speedHist := appendBounded(e.speedHistories[v.ID], currentSpeed, e.config.MotionHistoryLength)
	e.speedHistories[v.ID] = speedHist

	acceleration := 0.0
	if len(speedHist) >= e.config.AccelerationWindow {
		old := speedHist[len(speedHist)-e.config.AccelerationWindow]
		acceleration = (currentSpeed - old) / float64(e.config.AccelerationWindow)
	}

	// Heading is only recomputed while moving; near-zero displacement makes
	// atan2 pure noise, so a stationary vehicle keeps its last valid heading.
	var currentHeading float64
	if isMoving {
		currentHeading = geometry.Heading(prev.Centroid, last.Centroid)
	} else {
		currentHeading = e.prevHeadings[v.ID]
	}

	prevHeading, seen := e.prevHeadings[v.ID]
	if !seen {
		prevHeading = currentHeading
	}
	headingChange := geometry.AngleDifference(currentHeading, prevHeading)
	e.prevHeadings[v.ID] = currentHeading

	headingHist := appendBounded(e.headingHistories[v.ID], currentHeading, e.config.MotionHistoryLength)
	e.headingHistories[v.ID] = headingHist

	return State{
		ID:              v.ID,
		CurrentSpeed:    currentSpeed,
		AverageSpeed:    averageSpeed,
		SpeedKMH:        speedKMH,
		IsMoving:        isMoving,
		SpeedChange:     speedChange,
		CurrentHeading:  currentHeading,
		HeadingChange:   headingChange,
		Acceleration:    acceleration,
		SmoothedSpeed:   trailingMean(speedHist, e.config.SmoothWindow),
		SmoothedHeading: trailingMean(headingHist, e.config.SmoothWindow),
	}, true
}

// EstimateAll estimates every vehicle in the slice, skipping those with
// insufficient history.
func (e *Estimator) EstimateAll(vehicles []*track.Vehicle) map[int]State {
	states := make(map[int]State, len(vehicles))
	for _, v := range vehicles {
		if s, ok := e.Estimate(v); ok {
			states[v.ID] = s
		}
	}
	return states
}

// TotalHeadingChange returns the accumulated signed heading change over the
// trailing window for an identity, with wraparound corrected at every step.
func (e *Estimator) TotalHeadingChange(id, window int) float64 {
	hist := e.headingHistories[id]
	if len(hist) < 2 {
		return 0
	}
	if window < 2 {
		window = 2
	}
	if len(hist) > window {
		hist = hist[len(hist)-window:]
	}
	total := 0.0
	for i := 1; i < len(hist); i++ {
		total += geometry.AngleDifference(hist[i], hist[i-1])
	}
	return total
}

// Cleanup drops all per-identity state for ids no longer tracked. Must be
// called once per frame by the owner.
func (e *Estimator) Cleanup(activeIDs map[int]struct{}) {
	for id := range e.prevSpeeds {
		if _, ok := activeIDs[id]; !ok {
			delete(e.prevSpeeds, id)
			delete(e.prevHeadings, id)
			delete(e.speedHistories, id)
			delete(e.headingHistories, id)
		}
	}
}

// Reset clears all per-identity state.
func (e *Estimator) Reset() {
	e.prevSpeeds = make(map[int]float64)
	e.prevHeadings = make(map[int]float64)
	e.speedHistories = make(map[int][]float64)
	e.headingHistories = make(map[int][]float64)
}

func appendBounded(buf []float64, v float64, capacity int) []float64 {
	buf = append(buf, v)
	if len(buf) > capacity {
		buf = buf[len(buf)-capacity:]
	}
	return buf
}

func trailingMean(values []float64, window int) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) > window {
		values = values[len(values)-window:]
	}
	return stat.Mean(values, nil)
}
