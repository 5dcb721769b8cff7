package geom

import (
	"math"

	"github.com/rfaga/storyteller/internal/document"
)

// Rect represents an axis-aligned box. X and Y are the top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}

// Center returns the center point of the rect.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// SpanRect returns the rect spanned by two corner points. The result is the
// same whichever point is given first.
func SpanRect(a, b Point) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// Bounds returns the unrotated bounding box of an object.
func Bounds(o document.Object) Rect {
	return Rect{
		X:      o.X - o.Width/2,
		Y:      o.Y - o.Height/2,
		Width:  o.Width,
		Height: o.Height,
	}
}

// OrientedBounds returns the axis-aligned box around the object as drawn,
// rotation included.
func OrientedBounds(o document.Object) Rect {
	local := Rect{X: -o.Width / 2, Y: -o.Height / 2, Width: o.Width, Height: o.Height}
	return FromCenter(Point{X: o.X, Y: o.Y}, o.Rotation).TransformRect(local)
}

// SceneBounds returns the box enclosing every object with a size.
func SceneBounds(objects []document.Object) Rect {
	var r Rect
	for _, o := range objects {
		r = r.Union(OrientedBounds(o))
	}
	return r
}

// Preview is the ephemeral overlay shown while a draw gesture is in flight.
type Preview struct {
	Shape document.Shape `json:"shape"`
	Rect  Rect           `json:"rect"`
}
