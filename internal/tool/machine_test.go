package tool

import (
	"math"
	"testing"

	"github.com/rfaga/storyteller/internal/document"
	"github.com/rfaga/storyteller/internal/geom"
	"github.com/rfaga/storyteller/internal/store"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

type recordingOverlay struct {
	previews []geom.Preview
	cleared  int
}

func (r *recordingOverlay) DrawOverlay(p geom.Preview) { r.previews = append(r.previews, p) }
func (r *recordingOverlay) ClearOverlay()              { r.cleared++ }

func newStoreWith(objs ...document.Object) *store.Store {
	st := store.New()
	for _, o := range objs {
		st.Add(o)
	}
	return st
}

func box(id string, x, y, w, h float64) document.Object {
	return document.Object{ID: id, Kind: document.KindProp, X: x, Y: y, Width: w, Height: h}
}

func TestParse(t *testing.T) {
	for _, name := range []string{"select", "drawRectangle", "drawCircle", "resize", "rotate", "importImage"} {
		if got, err := Parse(name); err != nil || string(got) != name {
			t.Errorf("Parse(%q) = %q, %v", name, got, err)
		}
	}
	if _, err := Parse("lasso"); err == nil {
		t.Error("Parse(lasso) should fail")
	}
}

func TestDrawCreatesProp(t *testing.T) {
	tests := []struct {
		name     string
		tool     Tool
		from, to geom.Point
		shape    document.Shape
	}{
		{"rectangle forward", DrawRectangle, geom.Pt(100, 100), geom.Pt(200, 150), document.ShapeRectangle},
		{"rectangle reversed", DrawRectangle, geom.Pt(200, 150), geom.Pt(100, 100), document.ShapeRectangle},
		{"circle mixed", DrawCircle, geom.Pt(200, 100), geom.Pt(100, 150), document.ShapeCircle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.New()
			ov := &recordingOverlay{}
			m := NewMachine(DefaultConfig(), ov)
			m.SetTool(tt.tool)

			m.PointerDown(st, tt.from)
			m.PointerMove(st, tt.to)
			if st.Len() != 0 {
				t.Fatal("draw preview must not touch the store")
			}
			if len(ov.previews) != 1 || ov.previews[0].Shape != tt.shape {
				t.Fatalf("previews = %+v", ov.previews)
			}
			m.PointerUp(st, tt.to)

			objs := st.All()
			if len(objs) != 1 {
				t.Fatalf("got %d objects", len(objs))
			}
			o := objs[0]
			if !near(o.X, 150) || !near(o.Y, 125) || !near(o.Width, 100) || !near(o.Height, 50) {
				t.Errorf("object = %+v", o)
			}
			if o.Kind != document.KindProp || o.Shape != tt.shape || o.TextureRef != document.PlaceholderTexture {
				t.Errorf("object = %+v", o)
			}
			if sel, _ := st.Selected(); sel != o.ID {
				t.Errorf("selected = %q, want %q", sel, o.ID)
			}
			if m.Tool() != Select {
				t.Errorf("tool = %q, want select", m.Tool())
			}
			if m.Gesture() != nil {
				t.Errorf("gesture left behind: %#v", m.Gesture())
			}
		})
	}
}

func TestDrawDegenerateIsDiscarded(t *testing.T) {
	st := store.New()
	m := NewMachine(DefaultConfig(), nil)
	m.SetTool(DrawRectangle)

	m.PointerDown(st, geom.Pt(50, 50))
	m.PointerUp(st, geom.Pt(50, 50))

	if st.Len() != 0 {
		t.Errorf("zero-size draw created %d objects", st.Len())
	}
	if m.Tool() != DrawRectangle {
		t.Errorf("tool = %q", m.Tool())
	}
}

func TestSelectDrag(t *testing.T) {
	st := newStoreWith(box("a", 100, 100, 50, 50))
	m := NewMachine(DefaultConfig(), nil)

	m.PointerDown(st, geom.Pt(100, 100))
	if sel, _ := st.Selected(); sel != "a" {
		t.Fatalf("selected = %q", sel)
	}
	if _, ok := m.Gesture().(DragGesture); !ok {
		t.Fatalf("gesture = %#v", m.Gesture())
	}

	m.PointerMove(st, geom.Pt(110, 120))
	m.PointerMove(st, geom.Pt(115, 120))
	o, _ := st.Get("a")
	if !near(o.X, 115) || !near(o.Y, 120) {
		t.Errorf("position = (%v, %v), want (115, 120)", o.X, o.Y)
	}

	m.PointerUp(st, geom.Pt(500, 500))
	o, _ = st.Get("a")
	if !near(o.X, 115) || !near(o.Y, 120) {
		t.Errorf("pointer up moved object to (%v, %v)", o.X, o.Y)
	}
	if m.Gesture() != nil {
		t.Error("gesture not cleared on pointer up")
	}
}

func TestSelectEmptyClearsSelection(t *testing.T) {
	st := newStoreWith(box("a", 100, 100, 50, 50))
	st.Select("a")
	m := NewMachine(DefaultConfig(), nil)

	m.PointerDown(st, geom.Pt(400, 400))
	if _, ok := st.Selected(); ok {
		t.Error("selection should be cleared")
	}
	if m.Gesture() != nil {
		t.Error("no gesture expected on empty space")
	}
}

func TestResizeFromHandle(t *testing.T) {
	tests := []struct {
		name         string
		pointer      geom.Point
		cx, cy, w, h float64
	}{
		{"grow", geom.Pt(170, 180), 110, 115, 120, 130},
		{"floor at min size", geom.Pt(40, 40), 55, 55, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newStoreWith(box("a", 100, 100, 100, 100))
			st.Select("a")
			m := NewMachine(DefaultConfig(), nil)
			m.SetTool(Resize)

			m.PointerDown(st, geom.Pt(150, 150))
			g, ok := m.Gesture().(ResizeGesture)
			if !ok || g.Handle != geom.HandleBottomRight {
				t.Fatalf("gesture = %#v", m.Gesture())
			}
			m.PointerMove(st, tt.pointer)

			o, _ := st.Get("a")
			if !near(o.X, tt.cx) || !near(o.Y, tt.cy) || !near(o.Width, tt.w) || !near(o.Height, tt.h) {
				t.Errorf("object = %+v", o)
			}
		})
	}
}

func TestResizeAwayFromHandleSelects(t *testing.T) {
	st := newStoreWith(box("a", 100, 100, 100, 100), box("b", 300, 300, 20, 20))
	st.Select("a")
	m := NewMachine(DefaultConfig(), nil)
	m.SetTool(Resize)

	m.PointerDown(st, geom.Pt(300, 300))
	if sel, _ := st.Selected(); sel != "b" {
		t.Errorf("selected = %q, want b", sel)
	}
	if m.Gesture() != nil {
		t.Errorf("gesture = %#v", m.Gesture())
	}
}

func TestRotateFromHandle(t *testing.T) {
	st := newStoreWith(box("a", 100, 100, 40, 40))
	st.Select("a")
	m := NewMachine(DefaultConfig(), nil)
	m.SetTool(Rotate)

	m.PointerDown(st, geom.Pt(100, 50))
	if _, ok := m.Gesture().(RotateGesture); !ok {
		t.Fatalf("gesture = %#v", m.Gesture())
	}

	m.PointerMove(st, geom.Pt(150, 100))
	if o, _ := st.Get("a"); !near(o.Rotation, 0) {
		t.Errorf("rotation = %v, want 0", o.Rotation)
	}
	m.PointerMove(st, geom.Pt(100, 150))
	if o, _ := st.Get("a"); !near(o.Rotation, math.Pi/2) {
		t.Errorf("rotation = %v, want pi/2", o.Rotation)
	}
}

func TestSetToolCancelsGesture(t *testing.T) {
	st := newStoreWith(box("a", 100, 100, 50, 50))
	ov := &recordingOverlay{}
	m := NewMachine(DefaultConfig(), ov)

	m.PointerDown(st, geom.Pt(100, 100))
	m.PointerMove(st, geom.Pt(120, 100))
	m.SetTool(DrawCircle)

	if m.Gesture() != nil {
		t.Error("gesture survived tool change")
	}
	if o, _ := st.Get("a"); !near(o.X, 120) {
		t.Errorf("completed moves must stay, x = %v", o.X)
	}
	m.PointerMove(st, geom.Pt(200, 200))
	if o, _ := st.Get("a"); !near(o.X, 120) {
		t.Errorf("move after cancel changed object, x = %v", o.X)
	}
	if ov.cleared == 0 {
		t.Error("overlay not cleared")
	}
}

func TestDragOfRemovedObjectIsDropped(t *testing.T) {
	st := newStoreWith(box("a", 100, 100, 50, 50))
	m := NewMachine(DefaultConfig(), nil)

	m.PointerDown(st, geom.Pt(100, 100))
	st.Remove("a")
	m.PointerMove(st, geom.Pt(150, 150))

	if m.Gesture() != nil {
		t.Error("gesture should be dropped when its object disappears")
	}
	if st.Len() != 0 {
		t.Error("object resurrected")
	}
}

func TestCompleteImport(t *testing.T) {
	st := store.New()
	m := NewMachine(DefaultConfig(), nil)
	m.SetTool(ImportImage)

	m.PointerDown(st, geom.Pt(10, 10))
	m.PointerUp(st, geom.Pt(10, 10))
	if st.Len() != 0 {
		t.Fatal("import tool must ignore pointer events")
	}

	o := m.CompleteImport(st, "tex_abc", 64, 32)
	if o.Kind != document.KindCharacter || o.TextureRef != "tex_abc" {
		t.Errorf("object = %+v", o)
	}
	if !near(o.X, 400) || !near(o.Y, 300) || !near(o.Width, 64) || !near(o.Height, 32) {
		t.Errorf("placement = %+v", o)
	}
	if sel, _ := st.Selected(); sel != o.ID {
		t.Errorf("selected = %q", sel)
	}
	if m.Tool() != Select {
		t.Errorf("tool = %q", m.Tool())
	}
}
