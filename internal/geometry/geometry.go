// Package geometry provides the pixel-space primitives shared by the
// tracking and detection packages: bounding boxes, centroids, IoU and
// degree-based angle arithmetic.
//
// All angle helpers route through NormalizeAngle so wraparound is handled
// in exactly one place.
package geometry

import "math"

// Point is a position in pixel coordinates.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned bounding box in pixel coordinates, with
// (X1, Y1) the top-left corner and (X2, Y2) the bottom-right corner.
type Rect struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// Area returns the box area. Degenerate (inverted) boxes have zero area.
func (r Rect) Area() float64 {
	return math.Max(0, r.X2-r.X1) * math.Max(0, r.Y2-r.Y1)
}

// Centroid returns the geometric centre of the box.
func (r Rect) Centroid() Point {
	return Point{X: (r.X1 + r.X2) / 2, Y: (r.Y1 + r.Y2) / 2}
}

// IoU returns the intersection-over-union of two boxes in [0, 1].
// Zero-area boxes yield 0 rather than dividing by zero.
func IoU(a, b Rect) float64 {
	interW := math.Min(a.X2, b.X2) - math.Max(a.X1, b.X1)
	interH := math.Min(a.Y2, b.Y2) - math.Max(a.Y1, b.Y1)
	if interW <= 0 || interH <= 0 {
		return 0
	}
	inter := interW * interH

	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// Overlaps reports whether two boxes share any area.
func Overlaps(a, b Rect) bool {
	if a.X2 < b.X1 || b.X2 < a.X1 {
		return false
	}
	if a.Y2 < b.Y1 || b.Y2 < a.Y1 {
		return false
	}
	return true
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Heading returns the direction of travel from to toward, in degrees using
// the atan2 convention: 0 = +x (right), 90 = +y (down in image coordinates).
func Heading(from, to Point) float64 {
	return math.Atan2(to.Y-from.Y, to.X-from.X) * 180 / math.Pi
}

// NormalizeAngle maps an angle in degrees into (-180, 180].
func NormalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

// AngleDifference returns the signed smallest difference a-b in degrees,
// normalized into (-180, 180]. AngleDifference(a, b) == -AngleDifference(b, a)
// except at the ±180 boundary, where both return +180.
func AngleDifference(a, b float64) float64 {
	return NormalizeAngle(a - b)
}
