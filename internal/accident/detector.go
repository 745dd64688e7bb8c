// Package accident implements the 4-stage pairwise collision detector and
// the single-vehicle sideswipe path.
//
// The pipeline is tuned for fixed traffic cameras and favors precision over
// recall: a pair must survive proximity, candidate promotion, a post-contact
// observation window and a multi-indicator vote before an event is emitted.
package accident

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/geometry"
	"github.com/banshee-data/collision.report/internal/kinematics"
	"github.com/banshee-data/collision.report/internal/monitoring"
	"github.com/banshee-data/collision.report/internal/track"
)

const (
	// Candidate promotion needs this many of the four stage-2 signals.
	defaultCandidateMinSignals = 2

	// Stage-2 accumulated heading change is measured over this trailing window.
	candidateHeadingWindow = 5

	// Sideswipe noise band: per-frame heading deltas below the floor are
	// jitter; deltas above the ceiling are almost always tracker
	// re-identification glitches, not real turns.
	sideswipeHeadingFloor   = 15.0
	sideswipeHeadingCeiling = 150.0

	// Sideswipe contact requirements: some box overlap or near-touching
	// centroids.
	sideswipeContactIoU      = 0.05
	sideswipeContactDistance = 80.0

	// Fixed score for sideswipe events; the voting machinery does not apply
	// to the single-vehicle path.
	sideswipeScore = 0.7

	// Baseline headings within this tolerance classify a confirmed impact
	// as rear-end rather than a general collision.
	rearEndHeadingTolerance = 30.0
)

// DetectorConfig holds every tunable of the 4-stage detector. All speeds are
// pixels per frame and all distances pixels.
type DetectorConfig struct {
	// Stage 1: proximity
	ProximityIoUThreshold      float64
	ProximityDistanceThreshold float64
	ProximityMinFrames         int

	// Stage 2: candidate promotion
	CollisionIoUThreshold   float64
	MinSpeedForCollision    float64
	VelocityChangeThreshold float64 // Fractional speed drop since baseline
	HeadingChangeThreshold  float64
	CandidateMinSignals     int

	// Stage 3: post-collision analysis
	PostCollisionWindow int
	StopSpeedThreshold  float64
	SlowSpeedThreshold  float64
	MinStopDuration     int
	DivergenceThreshold float64

	// Stage 4: confirmation
	MinIndicatorsForAccident int
	HighConfidenceIndicators int

	// Sideswipe path
	EnableTrajectoryDetection  bool
	TrajectoryHeadingThreshold float64
	TrajectoryMinSpeed         float64
	TrajectoryProximity        float64
	SyncHeadingTolerance       float64

	// Parallel-movement false positive filter
	FilterParallelMovement   bool
	ParallelHeadingTolerance float64
	ParallelSpeedTolerance   float64

	// Vehicle-state retention. Longer than the track store's eviction window
	// so post-collision behavior survives brief occlusion.
	VehicleStateEvictionFrames int
	VehicleStateHistoryLength  int

	FPS float64
}

// DetectorConfigFromTuning builds a DetectorConfig from a loaded TuningConfig.
func DetectorConfigFromTuning(cfg *config.TuningConfig) DetectorConfig {
	return DetectorConfig{
		ProximityIoUThreshold:      cfg.GetProximityIoUThreshold(),
		ProximityDistanceThreshold: cfg.GetProximityDistanceThreshold(),
		ProximityMinFrames:         cfg.GetProximityMinFrames(),

		CollisionIoUThreshold:   cfg.GetCollisionIoUThreshold(),
		MinSpeedForCollision:    cfg.GetMinSpeedForCollision(),
		VelocityChangeThreshold: cfg.GetVelocityChangeThreshold(),
		HeadingChangeThreshold:  cfg.GetHeadingChangeThreshold(),
		CandidateMinSignals:     defaultCandidateMinSignals,

		PostCollisionWindow: cfg.GetPostCollisionWindow(),
		StopSpeedThreshold:  cfg.GetStopSpeedThreshold(),
		SlowSpeedThreshold:  cfg.GetSlowSpeedThreshold(),
		MinStopDuration:     cfg.GetMinStopDuration(),
		DivergenceThreshold: cfg.GetDivergenceThreshold(),

		MinIndicatorsForAccident: cfg.GetMinIndicatorsForAccident(),
		HighConfidenceIndicators: cfg.GetHighConfidenceIndicators(),

		EnableTrajectoryDetection:  cfg.GetEnableTrajectoryDetection(),
		TrajectoryHeadingThreshold: cfg.GetTrajectoryHeadingThreshold(),
		TrajectoryMinSpeed:         cfg.GetTrajectoryMinSpeed(),
		TrajectoryProximity:        cfg.GetTrajectoryProximity(),
		SyncHeadingTolerance:       cfg.GetSyncHeadingTolerance(),

		FilterParallelMovement:   cfg.GetFilterParallelMovement(),
		ParallelHeadingTolerance: cfg.GetParallelHeadingTolerance(),
		ParallelSpeedTolerance:   cfg.GetParallelSpeedTolerance(),

		VehicleStateEvictionFrames: cfg.GetVehicleStateEvictionFrames(),
		VehicleStateHistoryLength:  cfg.GetVehicleStateHistoryLength(),

		FPS: cfg.GetFPS(),
	}
}

// pairKey is an order-independent identity pair.
type pairKey struct {
	a, b int // a < b always
}

func makePairKey(id1, id2 int) pairKey {
	if id1 > id2 {
		id1, id2 = id2, id1
	}
	return pairKey{a: id1, b: id2}
}

// proximityEvent tracks a pair currently in proximity. Torn down the moment
// the pair separates; brief proximity followed by separation never becomes
// a candidate.
type proximityEvent struct {
	id1, id2        int
	startFrame      int
	maxIoU          float64
	framesInContact int

	// Baseline kinematics captured when proximity began.
	speed1Before, speed2Before     float64
	heading1Before, heading2Before float64
}

// collisionCandidate is a potential collision under post-contact observation.
type collisionCandidate struct {
	id1, id2   int
	startFrame int
	location   geometry.Point
	bboxes     []geometry.Rect

	maxIoU                           float64
	velocityChange1, velocityChange2 float64
	headingChange1, headingChange2   float64
	speed1Before, speed2Before       float64
	heading1Before, heading2Before   float64

	postCollisionFrames              int
	vehicle1Stopped, vehicle2Stopped bool
	vehicle1Slowed, vehicle2Slowed   bool
	vehiclesDiverged                 bool
}

// indicators reports the five confirmation indicators against the configured
// thresholds.
func (c *collisionCandidate) indicators(cfg DetectorConfig) map[string]bool {
	return map[string]bool{
		"iou_contact": c.maxIoU >= cfg.CollisionIoUThreshold,
		"velocity_change": math.Abs(c.velocityChange1) > cfg.VelocityChangeThreshold ||
			math.Abs(c.velocityChange2) > cfg.VelocityChangeThreshold,
		"heading_change": c.headingChange1 > cfg.HeadingChangeThreshold ||
			c.headingChange2 > cfg.HeadingChangeThreshold,
		"post_stop_or_slow":   c.vehicle1Stopped || c.vehicle2Stopped || c.vehicle1Slowed || c.vehicle2Slowed,
		"trajectory_diverged": c.vehiclesDiverged,
	}
}

func (c *collisionCandidate) indicatorCount(cfg DetectorConfig) int {
	count := 0
	for _, on := range c.indicators(cfg) {
		if on {
			count++
		}
	}
	return count
}

// Stats is a point-in-time snapshot of detector state sizes.
type Stats struct {
	ActiveVehicleStates   int `json:"active_vehicle_states"`
	ActiveProximityEvents int `json:"active_proximity_events"`
	PendingCandidates     int `json:"pending_candidates"`
	ConfirmedAccidents    int `json:"confirmed_accidents"`
}

// Detector runs the 4-stage collision state machine plus the sideswipe path.
// Not safe for concurrent use; drive it frame-sequentially from one goroutine.
type Detector struct {
	config DetectorConfig

	vehicleStates       map[int]*vehicleState
	proximityEvents     map[pairKey]*proximityEvent
	collisionCandidates map[pairKey]*collisionCandidate
	confirmed           map[string]struct{}
}

// NewDetector creates a detector with the given configuration.
func NewDetector(cfg DetectorConfig) *Detector {
	if cfg.CandidateMinSignals < 1 {
		cfg.CandidateMinSignals = defaultCandidateMinSignals
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	return &Detector{
		config:              cfg,
		vehicleStates:       make(map[int]*vehicleState),
		proximityEvents:     make(map[pairKey]*proximityEvent),
		collisionCandidates: make(map[pairKey]*collisionCandidate),
		confirmed:           make(map[string]struct{}),
	}
}

// SetFPS updates the frame rate used for event timestamps.
func (d *Detector) SetFPS(fps float64) {
	if fps > 0 {
		d.config.FPS = fps
	}
}

// Detect ingests one frame and returns the events newly confirmed on this
// frame only; confirmed events are never re-emitted. Vehicles without a
// kinematic state (insufficient history) still participate in proximity
// geometry but contribute zeroed motion evidence.
func (d *Detector) Detect(vehicles []*track.Vehicle, states map[int]kinematics.State, frameIndex int) []Event {
	for _, v := range vehicles {
		ks, ok := states[v.ID]
		if !ok {
			continue
		}
		vs := d.vehicleState(v.ID)
		vs.update(ks.CurrentSpeed, ks.CurrentHeading, v.Centroid, frameIndex, d.config.MinSpeedForCollision)
	}

	d.detectProximity(vehicles, states, frameIndex)
	d.detectCollisionCandidates(vehicles, states)
	d.analyzePostCollision(vehicles, states, frameIndex)

	events := d.confirmAccidents(frameIndex)
	events = append(events, d.detectTrajectoryAnomalies(vehicles, states, frameIndex)...)

	d.evictVehicleStates(vehicles, frameIndex)

	return events
}

func (d *Detector) vehicleState(id int) *vehicleState {
	vs, ok := d.vehicleStates[id]
	if !ok {
		vs = newVehicleState(id, d.config.VehicleStateHistoryLength)
		d.vehicleStates[id] = vs
	}
	return vs
}

// isParallelMovement reports whether two vehicles are co-traveling: similar
// headings and similar speeds. Such pairs are ordinary adjacent traffic and
// never become candidates.
func (d *Detector) isParallelMovement(s1, s2 kinematics.State) bool {
	if !d.config.FilterParallelMovement {
		return false
	}
	headingDiff := math.Abs(geometry.AngleDifference(s1.CurrentHeading, s2.CurrentHeading))
	if headingDiff > d.config.ParallelHeadingTolerance {
		return false
	}
	maxSpeed := math.Max(s1.CurrentSpeed, s2.CurrentSpeed)
	if maxSpeed > 0 {
		ratio := math.Abs(s1.CurrentSpeed-s2.CurrentSpeed) / maxSpeed
		if ratio > d.config.ParallelSpeedTolerance {
			return false
		}
	}
	return true
}

// detectProximity is stage 1: find pairs in contact or near-contact, open a
// proximity event with baseline kinematics, and tear down pairs that
// separated this frame.
func (d *Detector) detectProximity(vehicles []*track.Vehicle, states map[int]kinematics.State, frameIndex int) {
	activePairs := make(map[pairKey]struct{})

	for i := 0; i < len(vehicles); i++ {
		for j := i + 1; j < len(vehicles); j++ {
			v1, v2 := vehicles[i], vehicles[j]
			key := makePairKey(v1.ID, v2.ID)

			iou := geometry.IoU(v1.BBox, v2.BBox)
			dist := geometry.Distance(v1.Centroid, v2.Centroid)

			if iou < d.config.ProximityIoUThreshold && dist > d.config.ProximityDistanceThreshold {
				continue
			}
			activePairs[key] = struct{}{}

			if ev, ok := d.proximityEvents[key]; ok {
				ev.framesInContact++
				if iou > ev.maxIoU {
					ev.maxIoU = iou
				}
				continue
			}

			ks1 := states[v1.ID]
			ks2 := states[v2.ID]
			d.proximityEvents[key] = &proximityEvent{
				id1:             v1.ID,
				id2:             v2.ID,
				startFrame:      frameIndex,
				maxIoU:          iou,
				framesInContact: 1,
				speed1Before:    ks1.CurrentSpeed,
				speed2Before:    ks2.CurrentSpeed,
				heading1Before:  ks1.CurrentHeading,
				heading2Before:  ks2.CurrentHeading,
			}
		}
	}

	// Separation tears the event down immediately; there is no debounce.
	for key := range d.proximityEvents {
		if _, ok := activePairs[key]; !ok {
			delete(d.proximityEvents, key)
		}
	}
}

// detectCollisionCandidates is stage 2: promote proximity events showing
// enough impact signals into candidates.
func (d *Detector) detectCollisionCandidates(vehicles []*track.Vehicle, states map[int]kinematics.State) {
	byID := make(map[int]*track.Vehicle, len(vehicles))
	for _, v := range vehicles {
		byID[v.ID] = v
	}

	for key, prox := range d.proximityEvents {
		if prox.framesInContact < d.config.ProximityMinFrames {
			continue
		}
		if _, ok := d.collisionCandidates[key]; ok {
			continue
		}

		v1, ok1 := byID[prox.id1]
		v2, ok2 := byID[prox.id2]
		if !ok1 || !ok2 {
			continue
		}

		ks1, hasKS1 := states[prox.id1]
		ks2, hasKS2 := states[prox.id2]
		if hasKS1 && hasKS2 && d.isParallelMovement(ks1, ks2) {
			continue
		}

		st1 := d.vehicleState(prox.id1)
		st2 := d.vehicleState(prox.id2)

		bothMoving := st1.wasMoving && st2.wasMoving &&
			prox.speed1Before >= d.config.MinSpeedForCollision &&
			prox.speed2Before >= d.config.MinSpeedForCollision

		// Fractional speed drop relative to the pre-contact baseline.
		velChange1, velChange2 := 0.0, 0.0
		if prox.speed1Before > 0 {
			velChange1 = (prox.speed1Before - ks1.CurrentSpeed) / prox.speed1Before
		}
		if prox.speed2Before > 0 {
			velChange2 = (prox.speed2Before - ks2.CurrentSpeed) / prox.speed2Before
		}

		headingChange1 := st1.headingChange(candidateHeadingWindow)
		headingChange2 := st2.headingChange(candidateHeadingWindow)

		signals := 0
		if prox.maxIoU >= d.config.CollisionIoUThreshold {
			signals++
		}
		if velChange1 > d.config.VelocityChangeThreshold || velChange2 > d.config.VelocityChangeThreshold {
			signals++
		}
		if headingChange1 > d.config.HeadingChangeThreshold || headingChange2 > d.config.HeadingChangeThreshold {
			signals++
		}
		if bothMoving {
			signals++
		}
		if signals < d.config.CandidateMinSignals {
			continue
		}

		d.collisionCandidates[key] = &collisionCandidate{
			id1:        prox.id1,
			id2:        prox.id2,
			startFrame: prox.startFrame,
			location: geometry.Point{
				X: (v1.Centroid.X + v2.Centroid.X) / 2,
				Y: (v1.Centroid.Y + v2.Centroid.Y) / 2,
			},
			bboxes:          []geometry.Rect{v1.BBox, v2.BBox},
			maxIoU:          prox.maxIoU,
			velocityChange1: velChange1,
			velocityChange2: velChange2,
			headingChange1:  headingChange1,
			headingChange2:  headingChange2,
			speed1Before:    prox.speed1Before,
			speed2Before:    prox.speed2Before,
			heading1Before:  prox.heading1Before,
			heading2Before:  prox.heading2Before,
		}
		monitoring.Logf("collision candidate %d/%d with %d signals", prox.id1, prox.id2, signals)
	}
}

// analyzePostCollision is stage 3: watch every open candidate's aftermath
// within the post-collision window, latching stop/slow/divergence flags.
func (d *Detector) analyzePostCollision(vehicles []*track.Vehicle, states map[int]kinematics.State, frameIndex int) {
	byID := make(map[int]*track.Vehicle, len(vehicles))
	for _, v := range vehicles {
		byID[v.ID] = v
	}

	for _, cand := range d.collisionCandidates {
		framesSince := frameIndex - cand.startFrame
		if framesSince > d.config.PostCollisionWindow {
			continue
		}
		cand.postCollisionFrames = framesSince

		v1, ok1 := byID[cand.id1]
		v2, ok2 := byID[cand.id2]

		// Evidence keeps accumulating after promotion: the impact often
		// lands a few frames into the candidate's life, so velocity and
		// heading change are re-measured against the pre-contact baseline
		// every frame and only ever ratchet upward.
		if ok1 {
			if ks, ok := states[cand.id1]; ok {
				if ks.CurrentSpeed <= d.config.StopSpeedThreshold {
					cand.vehicle1Stopped = true
				} else if ks.CurrentSpeed <= d.config.SlowSpeedThreshold {
					cand.vehicle1Slowed = true
				}
				if cand.speed1Before > 0 {
					drop := (cand.speed1Before - ks.CurrentSpeed) / cand.speed1Before
					cand.velocityChange1 = math.Max(cand.velocityChange1, drop)
				}
			}
			cand.headingChange1 = math.Max(cand.headingChange1, d.vehicleState(cand.id1).headingChange(candidateHeadingWindow))
		}
		if ok2 {
			if ks, ok := states[cand.id2]; ok {
				if ks.CurrentSpeed <= d.config.StopSpeedThreshold {
					cand.vehicle2Stopped = true
				} else if ks.CurrentSpeed <= d.config.SlowSpeedThreshold {
					cand.vehicle2Slowed = true
				}
				if cand.speed2Before > 0 {
					drop := (cand.speed2Before - ks.CurrentSpeed) / cand.speed2Before
					cand.velocityChange2 = math.Max(cand.velocityChange2, drop)
				}
			}
			cand.headingChange2 = math.Max(cand.headingChange2, d.vehicleState(cand.id2).headingChange(candidateHeadingWindow))
		}
		if ok1 && ok2 {
			if iou := geometry.IoU(v1.BBox, v2.BBox); iou > cand.maxIoU {
				cand.maxIoU = iou
			}
			if geometry.Distance(v1.Centroid, v2.Centroid) > d.config.DivergenceThreshold {
				cand.vehiclesDiverged = true
			}
		}
	}
}

// confirmAccidents is stage 4: once a candidate has been observed long
// enough, vote over the five indicators and emit or discard.
func (d *Detector) confirmAccidents(frameIndex int) []Event {
	var events []Event

	for key, cand := range d.collisionCandidates {
		if cand.postCollisionFrames < d.config.MinStopDuration {
			continue
		}

		count := cand.indicatorCount(d.config)
		if count < d.config.MinIndicatorsForAccident {
			// Evidence timed out without reaching the bar.
			if cand.postCollisionFrames >= d.config.PostCollisionWindow {
				delete(d.collisionCandidates, key)
			}
			continue
		}

		eventType := TypeCollision
		if math.Abs(geometry.AngleDifference(cand.heading1Before, cand.heading2Before)) <= rearEndHeadingTolerance {
			eventType = TypeRearEnd
		}

		dedupKey := fmt.Sprintf("%s_%d_%d", eventType, key.a, key.b)
		if _, seen := d.confirmed[dedupKey]; seen {
			delete(d.collisionCandidates, key)
			continue
		}

		event := Event{
			ID:              uuid.NewString(),
			Type:            eventType,
			Confidence:      confidenceForCount(count, d.config.HighConfidenceIndicators, d.config.MinIndicatorsForAccident),
			InvolvedIDs:     []int{cand.id1, cand.id2},
			Location:        cand.location,
			FrameIndex:      cand.startFrame,
			Timestamp:       float64(cand.startFrame) / d.config.FPS,
			ConfidenceScore: float64(count) / 5.0,
			Description: fmt.Sprintf("%s between ID:%d and ID:%d, %d/5 indicators, IoU=%.2f",
				eventType, cand.id1, cand.id2, count, cand.maxIoU),
			BBoxes:     cand.bboxes,
			Indicators: cand.indicators(d.config),
		}
		events = append(events, event)
		d.confirmed[dedupKey] = struct{}{}
		delete(d.collisionCandidates, key)

		monitoring.Logf("accident confirmed: %s", event)
	}

	sort.Slice(events, func(i, j int) bool { return events[i].InvolvedIDs[0] < events[j].InvolvedIDs[0] })
	return events
}

// detectTrajectoryAnomalies is the sideswipe path: a single fast vehicle
// whose heading deflects sharply while touching or nearly touching another
// vehicle, with synchronized turning (both following the same curve)
// suppressed.
func (d *Detector) detectTrajectoryAnomalies(vehicles []*track.Vehicle, states map[int]kinematics.State, frameIndex int) []Event {
	if !d.config.EnableTrajectoryDetection {
		return nil
	}

	var events []Event

	for _, v := range vehicles {
		ks, ok := states[v.ID]
		if !ok {
			continue
		}
		if ks.CurrentSpeed < d.config.TrajectoryMinSpeed {
			continue
		}

		headingChange := math.Abs(ks.HeadingChange)
		if headingChange < sideswipeHeadingFloor || headingChange > sideswipeHeadingCeiling {
			continue
		}
		if headingChange < d.config.TrajectoryHeadingThreshold {
			continue
		}

		// Nearest other vehicle within the proximity radius.
		var closest *track.Vehicle
		closestDist := math.Inf(1)
		for _, other := range vehicles {
			if other.ID == v.ID {
				continue
			}
			dist := geometry.Distance(v.Centroid, other.Centroid)
			if dist <= d.config.TrajectoryProximity && dist < closestDist {
				closest = other
				closestDist = dist
			}
		}
		if closest == nil {
			continue
		}

		// Both vehicles deflecting by similar amounts in the same direction
		// means they are following a curve, not colliding.
		if otherKS, ok := states[closest.ID]; ok {
			otherChange := math.Abs(otherKS.HeadingChange)
			sameDirection := ks.HeadingChange*otherKS.HeadingChange > 0
			similarMagnitude := math.Abs(headingChange-otherChange) < d.config.SyncHeadingTolerance
			if sameDirection && similarMagnitude {
				continue
			}
		}

		iou := geometry.IoU(v.BBox, closest.BBox)
		if iou < sideswipeContactIoU && closestDist > sideswipeContactDistance {
			continue
		}

		key := makePairKey(v.ID, closest.ID)
		dedupKey := fmt.Sprintf("%s_%d_%d", TypeSideswipe, key.a, key.b)
		if _, seen := d.confirmed[dedupKey]; seen {
			continue
		}

		event := Event{
			ID:          uuid.NewString(),
			Type:        TypeSideswipe,
			Confidence:  ConfidenceMedium,
			InvolvedIDs: []int{v.ID, closest.ID},
			Location: geometry.Point{
				X: (v.Centroid.X + closest.Centroid.X) / 2,
				Y: (v.Centroid.Y + closest.Centroid.Y) / 2,
			},
			FrameIndex:      frameIndex,
			Timestamp:       float64(frameIndex) / d.config.FPS,
			ConfidenceScore: sideswipeScore,
			Description: fmt.Sprintf("Sideswipe: ID:%d deflected %.1f deg near ID:%d",
				v.ID, headingChange, closest.ID),
			BBoxes: []geometry.Rect{v.BBox, closest.BBox},
			Indicators: map[string]bool{
				"heading_change": true,
				"proximity":      true,
				"iou_contact":    iou > 0,
			},
		}
		events = append(events, event)
		d.confirmed[dedupKey] = struct{}{}

		monitoring.Logf("sideswipe detected: %s", event)
	}

	return events
}

// evictVehicleStates drops detector state for identities unseen for longer
// than the retention window.
func (d *Detector) evictVehicleStates(vehicles []*track.Vehicle, frameIndex int) {
	active := make(map[int]struct{}, len(vehicles))
	for _, v := range vehicles {
		active[v.ID] = struct{}{}
	}
	for id, vs := range d.vehicleStates {
		if _, ok := active[id]; ok {
			continue
		}
		if frameIndex-vs.lastSeenFrame > d.config.VehicleStateEvictionFrames {
			delete(d.vehicleStates, id)
		}
	}
}

// PendingCandidates returns the number of candidates under analysis.
func (d *Detector) PendingCandidates() int {
	return len(d.collisionCandidates)
}

// Stats returns a snapshot of detector state sizes.
func (d *Detector) Stats() Stats {
	return Stats{
		ActiveVehicleStates:   len(d.vehicleStates),
		ActiveProximityEvents: len(d.proximityEvents),
		PendingCandidates:     len(d.collisionCandidates),
		ConfirmedAccidents:    len(d.confirmed),
	}
}

// Reset clears all detector state including the confirmed-event dedup set.
func (d *Detector) Reset() {
	d.vehicleStates = make(map[int]*vehicleState)
	d.proximityEvents = make(map[pairKey]*proximityEvent)
	d.collisionCandidates = make(map[pairKey]*collisionCandidate)
	d.confirmed = make(map[string]struct{})
	monitoring.Logf("accident detector reset")
}
