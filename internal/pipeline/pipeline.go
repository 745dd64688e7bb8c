// Package pipeline wires the track store, kinematics estimator and accident
// detector into a single per-frame driver.
//
// Frames must be presented in strictly increasing frame-index order. Gaps
// are fine (the estimator divides by frame deltas), but out-of-order frames
// would corrupt heading and velocity deltas, so they are rejected outright.
package pipeline

import (
	"fmt"
	"sync"

	"github.com/banshee-data/collision.report/internal/accident"
	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/kinematics"
	"github.com/banshee-data/collision.report/internal/monitoring"
	"github.com/banshee-data/collision.report/internal/track"
)

// EventSink receives confirmed accident events as they are emitted. A sink
// failure is logged and skipped; it never stalls frame processing.
type EventSink interface {
	RecordEvent(ev accident.Event) error
}

// Config aggregates the per-component configurations.
type Config struct {
	Store     track.StoreConfig
	Estimator kinematics.EstimatorConfig
	Detector  accident.DetectorConfig
}

// ConfigFromTuning builds the full pipeline configuration from a loaded
// TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Store:     track.StoreConfigFromTuning(cfg),
		Estimator: kinematics.EstimatorConfigFromTuning(cfg),
		Detector:  accident.DetectorConfigFromTuning(cfg),
	}
}

// FrameResult is the outcome of processing one frame.
type FrameResult struct {
	FrameIndex int
	Vehicles   []*track.Vehicle
	States     map[int]kinematics.State
	Events     []accident.Event
	Evicted    int
}

// Stats is a point-in-time snapshot of pipeline counters and component
// state sizes.
type Stats struct {
	FramesProcessed int            `json:"frames_processed"`
	EventsEmitted   int            `json:"events_emitted"`
	TrackedVehicles int            `json:"tracked_vehicles"`
	LastFrameIndex  int            `json:"last_frame_index"`
	Detector        accident.Stats `json:"detector"`
}

// Pipeline drives one video session's detection state frame by frame.
// Methods are serialized with an internal mutex so the HTTP surface can read
// stats and push tuning updates while a replay feeds frames, but frame
// processing itself is strictly sequential.
type Pipeline struct {
	mu sync.Mutex

	store     *track.Store
	estimator *kinematics.Estimator
	detector  *accident.Detector
	sink      EventSink

	framesProcessed int
	eventsEmitted   int
	lastFrameIndex  int
}

// New creates a pipeline. sink may be nil when events only need to be
// returned to the caller.
func New(cfg Config, sink EventSink) *Pipeline {
	return &Pipeline{
		store:     track.NewStore(cfg.Store),
		estimator: kinematics.NewEstimator(cfg.Estimator),
		detector:  accident.NewDetector(cfg.Detector),
		sink:      sink,
	}
}

// ProcessFrame ingests one frame of tracker detections and returns the frame
// result, including any accidents newly confirmed this frame.
func (p *Pipeline) ProcessFrame(detections []track.Detection, frameIndex int) (*FrameResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.framesProcessed > 0 && frameIndex <= p.lastFrameIndex {
		return nil, fmt.Errorf("frame index %d not after previous frame %d", frameIndex, p.lastFrameIndex)
	}

	vehicles := p.store.Update(detections, frameIndex)
	evicted := p.store.EvictStale(frameIndex)

	states := p.estimator.EstimateAll(vehicles)
	events := p.detector.Detect(vehicles, states, frameIndex)

	// Estimator buffers follow the store's retention exactly.
	p.estimator.Cleanup(p.store.ActiveIDs())

	if p.sink != nil {
		for _, ev := range events {
			if err := p.sink.RecordEvent(ev); err != nil {
				monitoring.Logf("failed to record event %s: %v", ev.ID, err)
			}
		}
	}

	p.framesProcessed++
	p.eventsEmitted += len(events)
	p.lastFrameIndex = frameIndex

	return &FrameResult{
		FrameIndex: frameIndex,
		Vehicles:   vehicles,
		States:     states,
		Events:     events,
		Evicted:    evicted,
	}, nil
}

// SetFPS updates the frame rate on the estimator and detector mid-stream.
func (p *Pipeline) SetFPS(fps float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.estimator.SetFPS(fps)
	p.detector.SetFPS(fps)
}

// Reset clears all session state to start a fresh video without
// reconstructing the pipeline.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store.Reset()
	p.estimator.Reset()
	p.detector.Reset()
	p.framesProcessed = 0
	p.eventsEmitted = 0
	p.lastFrameIndex = 0
	monitoring.Logf("pipeline reset")
}

// Stats returns a snapshot of pipeline counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		FramesProcessed: p.framesProcessed,
		EventsEmitted:   p.eventsEmitted,
		TrackedVehicles: p.store.Len(),
		LastFrameIndex:  p.lastFrameIndex,
		Detector:        p.detector.Stats(),
	}
}
