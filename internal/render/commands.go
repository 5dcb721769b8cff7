package render

import (
	"encoding/json"

	"github.com/rfaga/storyteller/internal/document"
	"github.com/rfaga/storyteller/internal/geom"
)

// DrawCommand is a single drawing operation for a browser canvas. Geometry is
// in local coordinates; Transform maps it to the world.
type DrawCommand struct {
	Op         string    `json:"op"`                  // "rect", "ellipse", "image", "overlay"
	ObjectID   string    `json:"objectId,omitempty"`  // For hit correlation
	Transform  []float64 `json:"transform,omitempty"` // [a, b, c, d, e, f]
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	Fill       string    `json:"fill,omitempty"`
	Stroke     string    `json:"stroke,omitempty"`
	Shape      string    `json:"shape,omitempty"`      // Overlay shape
	TextureRef string    `json:"textureRef,omitempty"` // Texture lookup for "image"
}

const overlayStroke = "#94a3b8"

// CommandSurface retains visuals and compiles them into painter-ordered draw
// commands.
type CommandSurface struct {
	set     visualSet
	overlay *geom.Preview
}

func NewCommandSurface() *CommandSurface {
	return &CommandSurface{set: newVisualSet()}
}

func (s *CommandSurface) CreateVisual(v Visual) (VisualID, error) {
	return s.set.create(v), nil
}

func (s *CommandSurface) UpdateVisual(id VisualID, v Visual) error {
	return s.set.update(id, v)
}

func (s *CommandSurface) DestroyVisual(id VisualID) error {
	return s.set.destroy(id)
}

func (s *CommandSurface) DrawOverlay(p geom.Preview) { s.overlay = &p }

func (s *CommandSurface) ClearOverlay() { s.overlay = nil }

// Commands returns the draw list back to front with the overlay last.
func (s *CommandSurface) Commands() []DrawCommand {
	var commands []DrawCommand
	s.set.each(func(_ VisualID, v Visual) {
		commands = append(commands, compileVisual(v))
	})
	if s.overlay != nil {
		r := s.overlay.Rect
		commands = append(commands, DrawCommand{
			Op:     "overlay",
			X:      r.X,
			Y:      r.Y,
			Width:  r.Width,
			Height: r.Height,
			Stroke: overlayStroke,
			Shape:  string(s.overlay.Shape),
		})
	}
	return commands
}

func compileVisual(v Visual) DrawCommand {
	cmd := DrawCommand{
		ObjectID:  v.ObjectID,
		Transform: v.Transform().ToSlice(),
		X:         -v.Width / 2,
		Y:         -v.Height / 2,
		Width:     v.Width,
		Height:    v.Height,
		Fill:      v.Color(),
	}

	switch {
	case v.Kind == VisualSprite:
		cmd.Op = "image"
		cmd.TextureRef = v.TextureRef
	case v.Kind == VisualShape && v.Shape == document.ShapeCircle:
		cmd.Op = "ellipse"
	default:
		cmd.Op = "rect"
	}
	return cmd
}

// CommandsToJSON serializes draw commands to JSON.
func CommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		commands = []DrawCommand{}
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}
