package accident

import (
	"math"

	"github.com/banshee-data/collision.report/internal/geometry"
)

// vehicleState is the detector's own longitudinal view of one identity. It
// outlives the track store's history buffer on purpose: post-collision
// behavior must still be assessable after a brief occlusion, so the detector
// remembers a vehicle longer than the raw tracker does.
type vehicleState struct {
	id int

	speedHistory    []float64
	headingHistory  []float64
	positionHistory []geometry.Point
	historyCap      int

	wasMoving        bool
	maxSpeedSeen     float64
	lastKnownSpeed   float64
	lastKnownHeading float64
	lastPosition     geometry.Point
	lastSeenFrame    int
}

func newVehicleState(id, historyCap int) *vehicleState {
	if historyCap < 2 {
		historyCap = 2
	}
	return &vehicleState{id: id, historyCap: historyCap}
}

// update records one frame of kinematics. movingThreshold latches wasMoving,
// which stage 2 uses to tell "was in motion before contact" from "parked".
func (s *vehicleState) update(speed, heading float64, position geometry.Point, frameIndex int, movingThreshold float64) {
	s.speedHistory = appendBoundedF(s.speedHistory, speed, s.historyCap)
	s.headingHistory = appendBoundedF(s.headingHistory, heading, s.historyCap)
	s.positionHistory = append(s.positionHistory, position)
	if len(s.positionHistory) > s.historyCap {
		s.positionHistory = s.positionHistory[len(s.positionHistory)-s.historyCap:]
	}

	s.lastKnownSpeed = speed
	s.lastKnownHeading = heading
	s.lastPosition = position
	s.lastSeenFrame = frameIndex

	if speed > s.maxSpeedSeen {
		s.maxSpeedSeen = speed
	}
	if speed > movingThreshold {
		s.wasMoving = true
	}
}

// averageSpeed returns the mean speed over the trailing window.
func (s *vehicleState) averageSpeed(window int) float64 {
	if len(s.speedHistory) == 0 {
		return 0
	}
	recent := s.speedHistory
	if len(recent) > window {
		recent = recent[len(recent)-window:]
	}
	sum := 0.0
	for _, v := range recent {
		sum += v
	}
	return sum / float64(len(recent))
}

// speedChange returns the speed delta across the trailing window
// (negative means deceleration). Zero until the buffer covers the window.
func (s *vehicleState) speedChange(window int) float64 {
	if len(s.speedHistory) < window+1 {
		return 0
	}
	return s.speedHistory[len(s.speedHistory)-1] - s.speedHistory[len(s.speedHistory)-1-window]
}

// headingChange returns the total unsigned heading change accumulated over
// the trailing window, with wraparound handled per step. Zero until the
// buffer covers the window.
func (s *vehicleState) headingChange(window int) float64 {
	if len(s.headingHistory) < window+1 {
		return 0
	}
	recent := s.headingHistory[len(s.headingHistory)-1-window:]
	total := 0.0
	for i := 1; i < len(recent); i++ {
		total += math.Abs(geometry.AngleDifference(recent[i], recent[i-1]))
	}
	return total
}

func appendBoundedF(buf []float64, v float64, capacity int) []float64 {
	buf = append(buf, v)
	if len(buf) > capacity {
		buf = buf[len(buf)-capacity:]
	}
	return buf
}
