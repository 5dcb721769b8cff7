// Package tool implements the editor's pointer-driven tool state machine.
package tool

import (
	"fmt"

	"github.com/rfaga/storyteller/internal/document"
	"github.com/rfaga/storyteller/internal/geom"
)

// Tool is the active editing tool.
type Tool string

const (
	Select        Tool = "select"
	DrawRectangle Tool = "drawRectangle"
	DrawCircle    Tool = "drawCircle"
	Resize        Tool = "resize"
	Rotate        Tool = "rotate"
	ImportImage   Tool = "importImage"
)

// Parse validates a tool name.
func Parse(name string) (Tool, error) {
	switch t := Tool(name); t {
	case Select, DrawRectangle, DrawCircle, Resize, Rotate, ImportImage:
		return t, nil
	}
	return "", fmt.Errorf("unknown tool %q", name)
}

// drawShape returns the shape a draw tool produces.
func (t Tool) drawShape() (document.Shape, bool) {
	switch t {
	case DrawRectangle:
		return document.ShapeRectangle, true
	case DrawCircle:
		return document.ShapeCircle, true
	}
	return document.ShapeNone, false
}

// Gesture is the transient state of an in-flight pointer interaction. Each
// variant carries only the fields its tool needs.
type Gesture interface {
	Kind() string
}

// DragGesture moves an object. Last is the pointer position the next delta
// is measured from.
type DragGesture struct {
	ObjectID string     `json:"objectId"`
	Last     geom.Point `json:"last"`
}

// DrawGesture previews a new shape spanning Origin to Current.
type DrawGesture struct {
	Shape   document.Shape `json:"shape"`
	Origin  geom.Point     `json:"origin"`
	Current geom.Point     `json:"current"`
}

// ResizeGesture resizes an object from one of its corner handles.
type ResizeGesture struct {
	ObjectID string      `json:"objectId"`
	Handle   geom.Handle `json:"handle"`
	Origin   geom.Point  `json:"origin"`
}

// RotateGesture rotates an object from its rotation handle.
type RotateGesture struct {
	ObjectID string     `json:"objectId"`
	Origin   geom.Point `json:"origin"`
}

func (DragGesture) Kind() string   { return "drag" }
func (DrawGesture) Kind() string   { return "draw" }
func (ResizeGesture) Kind() string { return "resizeHandle" }
func (RotateGesture) Kind() string { return "rotateHandle" }

// Overlay receives the ephemeral draw preview. It is never a store mutation.
type Overlay interface {
	DrawOverlay(p geom.Preview)
	ClearOverlay()
}

// Config holds the interaction tuning values.
type Config struct {
	HandleRadius       float64
	RotateHandleOffset float64
	MinSize            float64
	Epsilon            float64
	ImportPoint        geom.Point
}

func DefaultConfig() Config {
	return Config{
		HandleRadius:       8,
		RotateHandleOffset: 30,
		MinSize:            10,
		Epsilon:            1e-6,
		ImportPoint:        geom.Pt(400, 300),
	}
}
