package geom

import (
	"math"

	"github.com/rfaga/storyteller/internal/document"
)

// Handle identifies one of the four resize handles.
type Handle int

const (
	HandleTopLeft Handle = iota
	HandleTopRight
	HandleBottomRight
	HandleBottomLeft
)

var handleNames = [...]string{"topLeft", "topRight", "bottomRight", "bottomLeft"}

func (h Handle) String() string {
	if h < 0 || int(h) >= len(handleNames) {
		return "unknown"
	}
	return handleNames[h]
}

// Opposite returns the diagonally opposite handle.
func (h Handle) Opposite() Handle {
	return (h + 2) % 4
}

// direction returns the sign of the axis pointing from the opposite corner
// toward this handle.
func (h Handle) direction() (dx, dy float64) {
	switch h {
	case HandleTopLeft:
		return -1, -1
	case HandleTopRight:
		return 1, -1
	case HandleBottomRight:
		return 1, 1
	default:
		return -1, 1
	}
}

// ResizeHandles returns the corners of the object's unrotated bounding box,
// indexed by Handle. Rotation is ignored.
func ResizeHandles(o document.Object) [4]Point {
	b := Bounds(o)
	return [4]Point{
		HandleTopLeft:     {X: b.X, Y: b.Y},
		HandleTopRight:    {X: b.X + b.Width, Y: b.Y},
		HandleBottomRight: {X: b.X + b.Width, Y: b.Y + b.Height},
		HandleBottomLeft:  {X: b.X, Y: b.Y + b.Height},
	}
}

// RotationHandle returns the rotation handle position: offset above the
// top-center of the unrotated bounding box.
func RotationHandle(o document.Object, offset float64) Point {
	return Point{X: o.X, Y: o.Y - o.Height/2 - offset}
}

// HandleAt returns the resize handle closest to p within radius.
func HandleAt(o document.Object, p Point, radius float64) (Handle, bool) {
	best := Handle(-1)
	bestDist := math.Inf(1)
	for i, c := range ResizeHandles(o) {
		if d := c.Dist(p); d <= radius && d < bestDist {
			best = Handle(i)
			bestDist = d
		}
	}
	return best, best >= 0
}

// Resize computes the new center and size when handle h is dragged to
// pointer. The opposite corner stays fixed and each dimension is floored at
// minSize, so the box never inverts.
func Resize(o document.Object, h Handle, pointer Point, minSize float64) (center Point, width, height float64) {
	anchor := ResizeHandles(o)[h.Opposite()]
	dx, dy := h.direction()

	width = math.Max(minSize, dx*(pointer.X-anchor.X))
	height = math.Max(minSize, dy*(pointer.Y-anchor.Y))
	center = Point{
		X: anchor.X + dx*width/2,
		Y: anchor.Y + dy*height/2,
	}
	return center, width, height
}
