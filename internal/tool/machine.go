package tool

import (
	"github.com/rfaga/storyteller/internal/document"
	"github.com/rfaga/storyteller/internal/geom"
	"github.com/rfaga/storyteller/internal/store"
)

// Machine tracks the active tool and the in-flight gesture. It holds no
// reference to the store; every event receives it explicitly.
type Machine struct {
	cfg     Config
	tool    Tool
	gesture Gesture
	overlay Overlay
}

// NewMachine creates a machine with the select tool active. overlay may be nil.
func NewMachine(cfg Config, overlay Overlay) *Machine {
	return &Machine{cfg: cfg, tool: Select, overlay: overlay}
}

func (m *Machine) Tool() Tool { return m.tool }

// Gesture returns the in-flight gesture, or nil.
func (m *Machine) Gesture() Gesture { return m.gesture }

func (m *Machine) Config() Config { return m.cfg }

func (m *Machine) SetOverlay(o Overlay) { m.overlay = o }

// SetTool switches tools and abandons any in-flight gesture.
func (m *Machine) SetTool(t Tool) {
	m.tool = t
	m.Cancel()
}

// Cancel drops the in-flight gesture and its preview. Changes already made to
// the store stay. Safe to call when nothing is in flight.
func (m *Machine) Cancel() {
	m.gesture = nil
	m.clearOverlay()
}

// PointerDown starts a gesture according to the active tool.
func (m *Machine) PointerDown(st *store.Store, p geom.Point) {
	m.Cancel()

	switch m.tool {
	case Select:
		m.beginDrag(st, p)

	case DrawRectangle, DrawCircle:
		shape, _ := m.tool.drawShape()
		m.gesture = DrawGesture{Shape: shape, Origin: p, Current: p}

	case Resize:
		if obj, ok := st.SelectedObject(); ok {
			if h, near := geom.HandleAt(obj, p, m.cfg.HandleRadius); near {
				m.gesture = ResizeGesture{ObjectID: obj.ID, Handle: h, Origin: p}
				return
			}
		}
		m.pick(st, p)

	case Rotate:
		if obj, ok := st.SelectedObject(); ok {
			handle := geom.RotationHandle(obj, m.cfg.RotateHandleOffset)
			if handle.Dist(p) <= m.cfg.HandleRadius {
				m.gesture = RotateGesture{ObjectID: obj.ID, Origin: p}
				return
			}
		}
		m.pick(st, p)
	}
}

// PointerMove advances the in-flight gesture.
func (m *Machine) PointerMove(st *store.Store, p geom.Point) {
	switch g := m.gesture.(type) {
	case DragGesture:
		obj, ok := st.Get(g.ObjectID)
		if !ok {
			m.gesture = nil
			return
		}
		d := p.Sub(g.Last)
		st.Update(obj.ID, document.Move(obj.X+d.X, obj.Y+d.Y))
		g.Last = p
		m.gesture = g

	case DrawGesture:
		g.Current = p
		m.gesture = g
		if m.overlay != nil {
			m.overlay.DrawOverlay(geom.Preview{Shape: g.Shape, Rect: geom.SpanRect(g.Origin, p)})
		}

	case ResizeGesture:
		obj, ok := st.Get(g.ObjectID)
		if !ok {
			m.gesture = nil
			return
		}
		center, w, h := geom.Resize(obj, g.Handle, p, m.cfg.MinSize)
		st.Update(obj.ID, document.Reshape(center.X, center.Y, w, h))

	case RotateGesture:
		obj, ok := st.Get(g.ObjectID)
		if !ok {
			m.gesture = nil
			return
		}
		st.Update(obj.ID, document.Rotate(geom.Angle(geom.Pt(obj.X, obj.Y), p)))
	}
}

// PointerUp ends the in-flight gesture. Only a draw gesture mutates the store
// here, by appending the drawn prop.
func (m *Machine) PointerUp(st *store.Store, p geom.Point) {
	g, ok := m.gesture.(DrawGesture)
	m.Cancel()
	if !ok {
		return
	}

	r := geom.SpanRect(g.Origin, p)
	if r.Width < m.cfg.Epsilon && r.Height < m.cfg.Epsilon {
		return
	}

	c := r.Center()
	obj := st.Add(document.Object{
		Kind:       document.KindProp,
		X:          c.X,
		Y:          c.Y,
		Width:      r.Width,
		Height:     r.Height,
		Shape:      g.Shape,
		TextureRef: document.PlaceholderTexture,
	})
	st.Select(obj.ID)
	m.tool = Select
}

// CompleteImport appends a character for a decoded image at the configured
// import point and reverts to the select tool.
func (m *Machine) CompleteImport(st *store.Store, textureRef string, width, height int) document.Object {
	m.Cancel()
	obj := st.Add(document.Object{
		Kind:       document.KindCharacter,
		X:          m.cfg.ImportPoint.X,
		Y:          m.cfg.ImportPoint.Y,
		Width:      float64(width),
		Height:     float64(height),
		TextureRef: textureRef,
	})
	st.Select(obj.ID)
	m.tool = Select
	return obj
}

func (m *Machine) beginDrag(st *store.Store, p geom.Point) {
	id, hit := geom.HitTest(st.All(), p)
	if !hit {
		st.ClearSelection()
		return
	}
	st.Select(id)
	m.gesture = DragGesture{ObjectID: id, Last: p}
}

// pick selects the object under p without starting a gesture.
func (m *Machine) pick(st *store.Store, p geom.Point) {
	if id, hit := geom.HitTest(st.All(), p); hit {
		st.Select(id)
		return
	}
	st.ClearSelection()
}

func (m *Machine) clearOverlay() {
	if m.overlay != nil {
		m.overlay.ClearOverlay()
	}
}
