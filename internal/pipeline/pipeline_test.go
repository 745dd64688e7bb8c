package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/collision.report/internal/accident"
	"github.com/banshee-data/collision.report/internal/config"
	"github.com/banshee-data/collision.report/internal/geometry"
	"github.com/banshee-data/collision.report/internal/track"
)

type captureSink struct {
	events []accident.Event
	err    error
}

func (s *captureSink) RecordEvent(ev accident.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func detectionAt(id int, x, y float64) track.Detection {
	const w, h = 60.0, 30.0
	return track.Detection{
		ID:         id,
		BBox:       geometry.Rect{X1: x - w/2, Y1: y - h/2, X2: x + w/2, Y2: y + h/2},
		Class:      "car",
		Confidence: 0.9,
	}
}

func newTestPipeline(sink EventSink) *Pipeline {
	return New(ConfigFromTuning(config.MustLoadDefaultConfig()), sink)
}

// headOnFrame positions two vehicles closing head-on at 10 px/frame until
// they stop 20px apart around frame 49.
func headOnFrame(f int) []track.Detection {
	x1 := 10 * float64(f)
	if x1 > 490 {
		x1 = 490
	}
	x2 := 1000 - 10*float64(f)
	if x2 < 510 {
		x2 = 510
	}
	return []track.Detection{detectionAt(1, x1, 100), detectionAt(2, x2, 100)}
}

func TestPipelineConfirmsHeadOnCollision(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	p := newTestPipeline(sink)

	var events []accident.Event
	for f := 1; f <= 95; f++ {
		res, err := p.ProcessFrame(headOnFrame(f), f)
		require.NoError(t, err)
		events = append(events, res.Events...)
	}

	require.Len(t, events, 1)
	assert.Equal(t, accident.TypeCollision, events[0].Type)
	assert.ElementsMatch(t, []int{1, 2}, events[0].InvolvedIDs)
	assert.Equal(t, events, sink.events, "sink sees exactly the emitted events")

	stats := p.Stats()
	assert.Equal(t, 95, stats.FramesProcessed)
	assert.Equal(t, 1, stats.EventsEmitted)
	assert.Equal(t, 2, stats.TrackedVehicles)
	assert.Equal(t, 95, stats.LastFrameIndex)
	assert.Equal(t, 1, stats.Detector.ConfirmedAccidents)
}

func TestPipelineRejectsOutOfOrderFrames(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(nil)

	_, err := p.ProcessFrame(headOnFrame(1), 10)
	require.NoError(t, err)

	_, err = p.ProcessFrame(headOnFrame(2), 10)
	assert.Error(t, err, "same frame index")
	_, err = p.ProcessFrame(headOnFrame(2), 9)
	assert.Error(t, err, "backwards frame index")

	// Gaps are fine.
	_, err = p.ProcessFrame(headOnFrame(2), 25)
	assert.NoError(t, err)
}

func TestPipelineSinkFailureDoesNotStall(t *testing.T) {
	t.Parallel()

	sink := &captureSink{err: errors.New("disk full")}
	p := newTestPipeline(sink)

	var events []accident.Event
	for f := 1; f <= 95; f++ {
		res, err := p.ProcessFrame(headOnFrame(f), f)
		require.NoError(t, err)
		events = append(events, res.Events...)
	}
	assert.Len(t, events, 1, "events still returned to the caller")
	assert.Empty(t, sink.events)
}

func TestPipelineReset(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(nil)

	var first []accident.Event
	for f := 1; f <= 95; f++ {
		res, err := p.ProcessFrame(headOnFrame(f), f)
		require.NoError(t, err)
		first = append(first, res.Events...)
	}
	require.Len(t, first, 1)

	p.Reset()
	stats := p.Stats()
	assert.Zero(t, stats.FramesProcessed)
	assert.Zero(t, stats.EventsEmitted)
	assert.Zero(t, stats.TrackedVehicles)

	// Frame numbering restarts and the same collision confirms again: reset
	// cleared the dedup set.
	var second []accident.Event
	for f := 1; f <= 95; f++ {
		res, err := p.ProcessFrame(headOnFrame(f), f)
		require.NoError(t, err)
		second = append(second, res.Events...)
	}
	assert.Len(t, second, 1)
}

func TestPipelineEvictsAfterDeparture(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(nil)

	for f := 1; f <= 10; f++ {
		_, err := p.ProcessFrame([]track.Detection{detectionAt(1, 10*float64(f), 100)}, f)
		require.NoError(t, err)
	}
	require.Equal(t, 1, p.Stats().TrackedVehicles)

	// Vehicle leaves the scene; empty frames keep the clock ticking.
	for f := 11; f <= 45; f++ {
		_, err := p.ProcessFrame(nil, f)
		require.NoError(t, err)
	}
	assert.Zero(t, p.Stats().TrackedVehicles)

	// Detector state lingers longer by design, then goes too.
	for f := 46; f <= 75; f++ {
		_, err := p.ProcessFrame(nil, f)
		require.NoError(t, err)
	}
	assert.Zero(t, p.Stats().Detector.ActiveVehicleStates)
}

func TestPipelineEmptyFrames(t *testing.T) {
	t.Parallel()
	p := newTestPipeline(nil)

	res, err := p.ProcessFrame(nil, 1)
	require.NoError(t, err)
	assert.Empty(t, res.Vehicles)
	assert.Empty(t, res.States)
	assert.Empty(t, res.Events)
}
