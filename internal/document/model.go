package document

import (
	"fmt"
	"math"
)

// PlaceholderTexture is the texture ref used when no real asset is bound.
const PlaceholderTexture = "placeholder"

type Kind string

const (
	KindCharacter  Kind = "character"
	KindProp       Kind = "prop"
	KindBackground Kind = "background"
)

// Legacy kinds written by the first version of the editor.
const (
	legacyKindPlayer   = "player"
	legacyKindObstacle = "obstacle"
)

func (k Kind) Valid() bool {
	switch k {
	case KindCharacter, KindProp, KindBackground:
		return true
	}
	return false
}

// Movable reports whether objects of this kind are driven by the control script.
func (k Kind) Movable() bool {
	return k == KindCharacter
}

// Tint returns the 0xRRGGBB color used for this kind when no texture is drawn.
func (k Kind) Tint() uint32 {
	switch k {
	case KindCharacter:
		return 0x3b82f6
	case KindProp:
		return 0xef4444
	default:
		return 0x64748b
	}
}

// UnmarshalText accepts the current kind names and the legacy player/obstacle names.
func (k *Kind) UnmarshalText(text []byte) error {
	switch s := string(text); s {
	case legacyKindPlayer:
		*k = KindCharacter
	case legacyKindObstacle:
		*k = KindProp
	default:
		if !Kind(s).Valid() {
			return fmt.Errorf("unknown object kind %q", s)
		}
		*k = Kind(s)
	}
	return nil
}

type Shape string

const (
	ShapeNone      Shape = ""
	ShapeRectangle Shape = "rectangle"
	ShapeCircle    Shape = "circle"
)

// Object is a placed scene object. X and Y are the center point.
type Object struct {
	ID          string  `json:"id" yaml:"id,omitempty"`
	Kind        Kind    `json:"kind" yaml:"kind"`
	X           float64 `json:"x" yaml:"x"`
	Y           float64 `json:"y" yaml:"y"`
	Width       float64 `json:"width" yaml:"width"`
	Height      float64 `json:"height" yaml:"height"`
	Rotation    float64 `json:"rotation" yaml:"rotation,omitempty"`
	TextureRef  string  `json:"textureRef" yaml:"textureRef,omitempty"`
	Shape       Shape   `json:"shape,omitempty" yaml:"shape,omitempty"`
	Name        string  `json:"name,omitempty" yaml:"name,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

// Normalize clamps the size to be non-negative, fills in the placeholder
// texture and drops a shape on kinds that do not use one.
func (o Object) Normalize() Object {
	o.Width = math.Max(0, o.Width)
	o.Height = math.Max(0, o.Height)
	if math.IsNaN(o.Width) {
		o.Width = 0
	}
	if math.IsNaN(o.Height) {
		o.Height = 0
	}
	if o.TextureRef == "" {
		o.TextureRef = PlaceholderTexture
	}
	if o.Kind != KindProp {
		o.Shape = ShapeNone
	}
	return o
}

// HasTexture reports whether the object references a real asset.
func (o Object) HasTexture() bool {
	return o.TextureRef != "" && o.TextureRef != PlaceholderTexture
}

// NormalizedRotation returns the rotation mapped into (-π, π].
func (o Object) NormalizedRotation() float64 {
	r := math.Mod(o.Rotation, 2*math.Pi)
	if r > math.Pi {
		r -= 2 * math.Pi
	} else if r <= -math.Pi {
		r += 2 * math.Pi
	}
	return r
}

// Patch holds the fields to change on an object. Nil fields are left alone.
type Patch struct {
	X           *float64 `json:"x,omitempty"`
	Y           *float64 `json:"y,omitempty"`
	Width       *float64 `json:"width,omitempty"`
	Height      *float64 `json:"height,omitempty"`
	Rotation    *float64 `json:"rotation,omitempty"`
	TextureRef  *string  `json:"textureRef,omitempty"`
	Shape       *Shape   `json:"shape,omitempty"`
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
}

// Apply returns o with the patch applied. The id is never changed.
func (p Patch) Apply(o Object) Object {
	if p.X != nil {
		o.X = *p.X
	}
	if p.Y != nil {
		o.Y = *p.Y
	}
	if p.Width != nil {
		o.Width = *p.Width
	}
	if p.Height != nil {
		o.Height = *p.Height
	}
	if p.Rotation != nil {
		o.Rotation = *p.Rotation
	}
	if p.TextureRef != nil {
		o.TextureRef = *p.TextureRef
	}
	if p.Shape != nil {
		o.Shape = *p.Shape
	}
	if p.Name != nil {
		o.Name = *p.Name
	}
	if p.Description != nil {
		o.Description = *p.Description
	}
	return o.Normalize()
}

// Move returns a patch setting the center position.
func Move(x, y float64) Patch {
	return Patch{X: &x, Y: &y}
}

// Reshape returns a patch setting center and size together.
func Reshape(x, y, width, height float64) Patch {
	return Patch{X: &x, Y: &y, Width: &width, Height: &height}
}

// Rotate returns a patch setting the rotation in radians.
func Rotate(radians float64) Patch {
	return Patch{Rotation: &radians}
}
