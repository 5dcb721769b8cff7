// Package render maps scene objects onto a drawing surface.
package render

import (
	"fmt"

	"github.com/rfaga/storyteller/internal/document"
	"github.com/rfaga/storyteller/internal/geom"
)

// VisualKind is how a scene object is drawn.
type VisualKind string

const (
	// VisualShape is a tinted vector rectangle or ellipse.
	VisualShape VisualKind = "shape"
	// VisualSprite is a registered bitmap scaled to the object's size.
	VisualSprite VisualKind = "sprite"
	// VisualFallback is a tinted rectangle standing in for a missing texture.
	VisualFallback VisualKind = "fallback"
)

// VisualID identifies a visual on one surface.
type VisualID int

// Visual is the drawable form of a scene object.
type Visual struct {
	ObjectID   string         `json:"objectId"`
	Kind       VisualKind     `json:"kind"`
	Shape      document.Shape `json:"shape,omitempty"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Width      float64        `json:"width"`
	Height     float64        `json:"height"`
	Rotation   float64        `json:"rotation"`
	Tint       uint32         `json:"tint"`
	TextureRef string         `json:"textureRef,omitempty"`
}

// Transform returns the visual's local-to-world matrix. Local coordinates
// are centered on the object.
func (v Visual) Transform() geom.Matrix2D {
	return geom.FromCenter(geom.Pt(v.X, v.Y), v.Rotation)
}

// Color returns the tint as a #rrggbb string.
func (v Visual) Color() string {
	return fmt.Sprintf("#%06x", v.Tint&0xffffff)
}

// Surface is a retained-mode drawing target. A Surface does not need to be
// safe for concurrent use.
type Surface interface {
	CreateVisual(v Visual) (VisualID, error)
	UpdateVisual(id VisualID, v Visual) error
	DestroyVisual(id VisualID) error
	DrawOverlay(p geom.Preview)
	ClearOverlay()
}

// Resolve picks the visual for obj. Props with a shape draw as vectors,
// anything else draws its texture when registered and a tinted rectangle
// when it is not.
func Resolve(obj document.Object, textures TextureRegistry) Visual {
	v := Visual{
		ObjectID: obj.ID,
		X:        obj.X,
		Y:        obj.Y,
		Width:    obj.Width,
		Height:   obj.Height,
		Rotation: obj.Rotation,
		Tint:     obj.Kind.Tint(),
	}

	switch {
	case obj.Kind == document.KindProp && obj.Shape != document.ShapeNone:
		v.Kind = VisualShape
		v.Shape = obj.Shape
	case textures != nil && obj.HasTexture() && textures.Exists(obj.TextureRef):
		v.Kind = VisualSprite
		v.TextureRef = obj.TextureRef
	default:
		v.Kind = VisualFallback
	}
	return v
}

// visualSet keeps visuals in creation order for painter-ordered drawing.
type visualSet struct {
	next    VisualID
	order   []VisualID
	visuals map[VisualID]Visual
}

func newVisualSet() visualSet {
	return visualSet{next: 1, visuals: make(map[VisualID]Visual)}
}

func (s *visualSet) create(v Visual) VisualID {
	id := s.next
	s.next++
	s.order = append(s.order, id)
	s.visuals[id] = v
	return id
}

func (s *visualSet) update(id VisualID, v Visual) error {
	if _, ok := s.visuals[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVisual, id)
	}
	s.visuals[id] = v
	return nil
}

func (s *visualSet) destroy(id VisualID) error {
	if _, ok := s.visuals[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVisual, id)
	}
	delete(s.visuals, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// each yields visuals back to front.
func (s *visualSet) each(fn func(VisualID, Visual)) {
	for _, id := range s.order {
		fn(id, s.visuals[id])
	}
}
