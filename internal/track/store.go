// Package track owns per-identity position history for tracked vehicles.
//
// The upstream detector/tracker assigns stable integer identities; this
// package only manages the lifecycle of what we remember about each one.
// Eviction of stale identities is an explicit, per-frame operation rather
// than implicit garbage collection, so staleness is testable.
package track

import (
	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/geometry"
)

// Detection is one tracker output record for a single frame. Identity IDs
// must be stable across frames for the same physical object; re-identification
// is entirely the upstream tracker's responsibility.
type Detection struct {
	ID         int           `json:"id"`
	BBox       geometry.Rect `json:"bbox"`
	Class      string        `json:"class"`
	Confidence float64       `json:"confidence"`
}

// HistoryPoint is one retained (centroid, frame) observation.
type HistoryPoint struct {
	Centroid   geometry.Point
	FrameIndex int
}

// Vehicle is the per-identity record the store maintains across frames.
type Vehicle struct {
	ID         int
	Class      string
	BBox       geometry.Rect
	Centroid   geometry.Point
	Confidence float64

	// History of retained observations, oldest first, bounded by the
	// store's HistoryLength (front-trimmed on append).
	History []HistoryPoint

	FirstSeenFrame int
	LastSeenFrame  int
}

// StoreConfig holds configuration parameters for the track store.
type StoreConfig struct {
	HistoryLength  int // Maximum retained (centroid, frame) observations per identity
	EvictionFrames int // Frames unseen before an identity is evicted
}

// StoreConfigFromTuning builds a StoreConfig from a loaded TuningConfig.
func StoreConfigFromTuning(cfg *config.TuningConfig) StoreConfig {
	return StoreConfig{
		HistoryLength:  cfg.GetTrackHistoryLength(),
		EvictionFrames: cfg.GetTrackEvictionFrames(),
	}
}

// Store manages the set of currently known vehicle identities. It is the
// single writer of Vehicle history; callers must drive it frame-sequentially.
type Store struct {
	vehicles map[int]*Vehicle
	config   StoreConfig
}

// NewStore creates a track store with the given configuration.
func NewStore(cfg StoreConfig) *Store {
	if cfg.HistoryLength < 2 {
		cfg.HistoryLength = 2
	}
	if cfg.EvictionFrames < 1 {
		cfg.EvictionFrames = 1
	}
	return &Store{
		vehicles: make(map[int]*Vehicle),
		config:   cfg,
	}
}

// Update ingests one frame of detections, creating or refreshing the
// corresponding vehicles, and returns the vehicles visible this frame.
// Empty input is a no-op returning an empty slice.
func (s *Store) Update(detections []Detection, frameIndex int) []*Vehicle {
	visible := make([]*Vehicle, 0, len(detections))

	for _, d := range detections {
		centroid := d.BBox.Centroid()

		v, ok := s.vehicles[d.ID]
		if !ok {
			v = &Vehicle{
				ID:             d.ID,
				Class:          d.Class,
				BBox:           d.BBox,
				Centroid:       centroid,
				Confidence:     d.Confidence,
				History:        []HistoryPoint{{Centroid: centroid, FrameIndex: frameIndex}},
				FirstSeenFrame: frameIndex,
				LastSeenFrame:  frameIndex,
			}
			s.vehicles[d.ID] = v
		} else {
			v.Class = d.Class
			v.BBox = d.BBox
			v.Centroid = centroid
			v.Confidence = d.Confidence
			v.LastSeenFrame = frameIndex
			v.History = append(v.History, HistoryPoint{Centroid: centroid, FrameIndex: frameIndex})
			if len(v.History) > s.config.HistoryLength {
				v.History = v.History[len(v.History)-s.config.HistoryLength:]
			}
		}
		visible = append(visible, v)
	}

	return visible
}

// EvictStale removes identities unseen for more than the configured buffer.
// Identities updated this frame are never evicted. Must run after every frame.
func (s *Store) EvictStale(frameIndex int) int {
	evicted := 0
	for id, v := range s.vehicles {
		if v.LastSeenFrame == frameIndex {
			continue
		}
		if frameIndex-v.LastSeenFrame > s.config.EvictionFrames {
			delete(s.vehicles, id)
			evicted++
		}
	}
	return evicted
}

// Get returns the vehicle for an identity, or nil if unknown.
func (s *Store) Get(id int) *Vehicle {
	return s.vehicles[id]
}

// ActiveIDs returns the set of identities currently retained (including
// recently occluded ones not yet evicted).
func (s *Store) ActiveIDs() map[int]struct{} {
	ids := make(map[int]struct{}, len(s.vehicles))
	for id := range s.vehicles {
		ids[id] = struct{}{}
	}
	return ids
}

// Len returns the number of retained identities.
func (s *Store) Len() int {
	return len(s.vehicles)
}

// Reset drops all retained identities.
func (s *Store) Reset() {
	s.vehicles = make(map[int]*Vehicle)
}
