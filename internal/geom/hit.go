package geom

import (
	"math"

	"github.com/rfaga/storyteller/internal/document"
)

// ToLocal maps a scene point into the object's local frame, where the
// object's center is the origin and its axes are unrotated.
func ToLocal(o document.Object, p Point) Point {
	return FromCenter(Point{X: o.X, Y: o.Y}, o.Rotation).Invert().TransformPoint(p)
}

// Contains reports whether p lies inside the object's oriented bounding box.
// Edges count as inside.
func Contains(o document.Object, p Point) bool {
	local := ToLocal(o, p)
	return math.Abs(local.X) <= o.Width/2 && math.Abs(local.Y) <= o.Height/2
}

// HitTest returns the id of the topmost object containing p. Later objects
// sit on top, so the sequence is walked back to front.
func HitTest(objects []document.Object, p Point) (string, bool) {
	for i := len(objects) - 1; i >= 0; i-- {
		if Contains(objects[i], p) {
			return objects[i].ID, true
		}
	}
	return "", false
}
