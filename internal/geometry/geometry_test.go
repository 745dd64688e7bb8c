package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAngle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero", 0, 0},
		{"identity positive", 90, 90},
		{"identity negative", -90, -90},
		{"upper bound inclusive", 180, 180},
		{"lower bound wraps", -180, 180},
		{"wrap above", 270, -90},
		{"wrap below", -270, 90},
		{"full turn", 360, 0},
		{"multiple turns", 3*360 + 45, 45},
		{"negative turns", -3*360 - 45, -45},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.want, NormalizeAngle(tc.in), 1e-9)
		})
	}
}

func TestNormalizeAngleRange(t *testing.T) {
	t.Parallel()

	for deg := -720.0; deg <= 720.0; deg += 7.3 {
		got := NormalizeAngle(deg)
		assert.Greater(t, got, -180.0, "NormalizeAngle(%v)", deg)
		assert.LessOrEqual(t, got, 180.0, "NormalizeAngle(%v)", deg)
	}
}

func TestAngleDifference(t *testing.T) {
	t.Parallel()

	t.Run("crosses the wraparound", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 20, AngleDifference(170, 150), 1e-9)
		assert.InDelta(t, -20, AngleDifference(-170, -150), 1e-9)
		// 170° to -170° is a 20° step through the boundary, not 340°.
		assert.InDelta(t, -20, AngleDifference(170, -170), 1e-9)
		assert.InDelta(t, 20, AngleDifference(-170, 170), 1e-9)
	})

	t.Run("antisymmetric away from the boundary", func(t *testing.T) {
		t.Parallel()
		for a := -179.0; a < 180; a += 11.7 {
			for b := -179.0; b < 180; b += 13.1 {
				d := AngleDifference(a, b)
				if math.Abs(d) == 180 {
					continue // both orders map to +180 by convention
				}
				assert.InDelta(t, -d, AngleDifference(b, a), 1e-9, "a=%v b=%v", a, b)
			}
		}
	})

	t.Run("result stays in (-180, 180]", func(t *testing.T) {
		t.Parallel()
		for a := -360.0; a <= 360; a += 23.9 {
			for b := -360.0; b <= 360; b += 17.3 {
				d := AngleDifference(a, b)
				assert.Greater(t, d, -180.0)
				assert.LessOrEqual(t, d, 180.0)
			}
		}
	})
}

func TestIoU(t *testing.T) {
	t.Parallel()

	t.Run("identical boxes", func(t *testing.T) {
		t.Parallel()
		r := Rect{X1: 10, Y1: 10, X2: 50, Y2: 50}
		assert.InDelta(t, 1.0, IoU(r, r), 1e-9)
	})

	t.Run("disjoint boxes", func(t *testing.T) {
		t.Parallel()
		a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
		b := Rect{X1: 20, Y1: 20, X2: 30, Y2: 30}
		assert.Zero(t, IoU(a, b))
	})

	t.Run("half overlap", func(t *testing.T) {
		t.Parallel()
		a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
		b := Rect{X1: 5, Y1: 0, X2: 15, Y2: 10}
		// intersection 50, union 150
		assert.InDelta(t, 1.0/3.0, IoU(a, b), 1e-9)
	})

	t.Run("zero-area box never divides by zero", func(t *testing.T) {
		t.Parallel()
		degenerate := Rect{X1: 5, Y1: 5, X2: 5, Y2: 5}
		assert.Zero(t, IoU(degenerate, degenerate))
		assert.Zero(t, IoU(degenerate, Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}))
	})
}

func TestRect(t *testing.T) {
	t.Parallel()

	r := Rect{X1: 0, Y1: 0, X2: 4, Y2: 6}
	assert.Equal(t, Point{X: 2, Y: 3}, r.Centroid())
	assert.Equal(t, 24.0, r.Area())

	inverted := Rect{X1: 4, Y1: 6, X2: 0, Y2: 0}
	assert.Zero(t, inverted.Area())
}

func TestHeading(t *testing.T) {
	t.Parallel()

	origin := Point{}
	assert.InDelta(t, 0, Heading(origin, Point{X: 10, Y: 0}), 1e-9)
	assert.InDelta(t, 90, Heading(origin, Point{X: 0, Y: 10}), 1e-9)
	assert.InDelta(t, 180, Heading(origin, Point{X: -10, Y: 0}), 1e-9)
	assert.InDelta(t, -90, Heading(origin, Point{X: 0, Y: -10}), 1e-9)
	assert.InDelta(t, 45, Heading(origin, Point{X: 5, Y: 5}), 1e-9)
}

func TestDistance(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 5, Distance(Point{X: 0, Y: 0}, Point{X: 3, Y: 4}), 1e-9)
	assert.Zero(t, Distance(Point{X: 1, Y: 1}, Point{X: 1, Y: 1}))
}
