package replay

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/collision.report/internal/geometry"
	"github.com/banshee-data/collision.report/internal/track"
)

// Synthetic scenarios exercise the detector end to end without real video.
// Each returns a detection log; the expected outcome against the default
// tuning is noted per generator.

const (
	vehicleWidth  = 60.0
	vehicleHeight = 30.0
)

func detection(id int, x, y float64) track.Detection {
	return track.Detection{
		ID: id,
		BBox: geometry.Rect{
			X1: x - vehicleWidth/2, Y1: y - vehicleHeight/2,
			X2: x + vehicleWidth/2, Y2: y + vehicleHeight/2,
		},
		Class:      "car",
		Confidence: 0.9,
	}
}

// HeadOnCollision closes two vehicles at 10 px/frame until they stop
// overlapping around frame 49. Expected: one confirmed collision.
func HeadOnCollision() []FrameRecord {
	records := make([]FrameRecord, 0, 95)
	for f := 1; f <= 95; f++ {
		x1 := math.Min(10*float64(f), 490)
		x2 := math.Max(1000-10*float64(f), 510)
		records = append(records, FrameRecord{
			FrameIndex: f,
			Detections: []track.Detection{detection(1, x1, 100), detection(2, x2, 100)},
		})
	}
	return records
}

// NearMiss passes two vehicles 50px apart laterally with no interaction.
// Expected: no events.
func NearMiss() []FrameRecord {
	records := make([]FrameRecord, 0, 100)
	for f := 1; f <= 100; f++ {
		records = append(records, FrameRecord{
			FrameIndex: f,
			Detections: []track.Detection{
				detection(1, 10*float64(f), 100),
				detection(2, 1000-10*float64(f), 150),
			},
		})
	}
	return records
}

// ParallelConvoy drives two vehicles side by side at identical speed.
// Expected: no events (parallel-movement filter).
func ParallelConvoy() []FrameRecord {
	records := make([]FrameRecord, 0, 60)
	for f := 1; f <= 60; f++ {
		records = append(records, FrameRecord{
			FrameIndex: f,
			Detections: []track.Detection{
				detection(1, 10*float64(f), 100),
				detection(2, 10*float64(f), 140),
			},
		})
	}
	return records
}

// Curve turns two co-traveling vehicles 40 degrees on the same frame.
// Expected: no events (synchronized-turn suppression).
func Curve() []FrameRecord {
	const turnFrame = 20
	records := make([]FrameRecord, 0, 40)
	x1, x2 := 0.0, 0.0
	y1, y2 := 100.0, 160.0
	for f := 1; f <= 40; f++ {
		if f <= turnFrame {
			x1 += 12
			x2 += 12
		} else {
			dx := 12 * math.Cos(40*math.Pi/180)
			dy := 12 * math.Sin(40*math.Pi/180)
			x1 += dx
			y1 += dy
			x2 += dx
			y2 += dy
		}
		records = append(records, FrameRecord{
			FrameIndex: f,
			Detections: []track.Detection{detection(1, x1, y1), detection(2, x2, y2)},
		})
	}
	return records
}

// Sideswipe deflects one of two co-traveling vehicles 40 degrees while the
// other holds course 60px away. Expected: one sideswipe event.
func Sideswipe() []FrameRecord {
	const turnFrame = 25
	records := make([]FrameRecord, 0, 60)
	x1, y1 := 0.0, 100.0
	x2, y2 := 0.0, 160.0
	for f := 1; f <= 60; f++ {
		if f <= turnFrame {
			x1 += 12
		} else {
			x1 += 12 * math.Cos(40*math.Pi/180)
			y1 += 12 * math.Sin(40*math.Pi/180)
		}
		x2 += 12
		records = append(records, FrameRecord{
			FrameIndex: f,
			Detections: []track.Detection{detection(1, x1, y1), detection(2, x2, y2)},
		})
	}
	return records
}

// scenarios maps CLI names to generators.
var scenarios = map[string]func() []FrameRecord{
	"head-on":   HeadOnCollision,
	"near-miss": NearMiss,
	"parallel":  ParallelConvoy,
	"curve":     Curve,
	"sideswipe": Sideswipe,
}

// Scenario generates a named synthetic scenario.
func Scenario(name string) ([]FrameRecord, error) {
	gen, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (valid: %s)", name, ScenarioNames())
	}
	return gen(), nil
}

// ScenarioNames lists the available scenario names, sorted.
func ScenarioNames() string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("%v", names)
}
