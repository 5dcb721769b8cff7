package geom

import "math"

// Point is a position in scene coordinates. Y grows downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Angle returns the angle in radians of the vector from center to p,
// measured clockwise from the +X axis in screen coordinates.
func Angle(center, p Point) float64 {
	return math.Atan2(p.Y-center.Y, p.X-center.X)
}
