package document

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestKindUnmarshalAcceptsLegacyNames(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{`"character"`, KindCharacter},
		{`"prop"`, KindProp},
		{`"background"`, KindBackground},
		{`"player"`, KindCharacter},
		{`"obstacle"`, KindProp},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var k Kind
			if err := json.Unmarshal([]byte(tt.in), &k); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.in, err)
			}
			if k != tt.want {
				t.Errorf("got %q, want %q", k, tt.want)
			}
		})
	}

	var k Kind
	if err := json.Unmarshal([]byte(`"spaceship"`), &k); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestPatchApply(t *testing.T) {
	obj := Object{ID: "obj_1", Kind: KindProp, X: 10, Y: 20, Width: 30, Height: 40, Shape: ShapeRectangle}

	got := Move(5, 6).Apply(obj)
	if got.X != 5 || got.Y != 6 || got.Width != 30 || got.ID != "obj_1" {
		t.Errorf("Move applied wrong: %+v", got)
	}

	got = Reshape(0, 0, -5, 12).Apply(obj)
	if got.Width != 0 {
		t.Errorf("negative width not clamped: %v", got.Width)
	}
	if got.Height != 12 {
		t.Errorf("height = %v, want 12", got.Height)
	}

	got = Rotate(math.Pi).Apply(obj)
	if got.Rotation != math.Pi {
		t.Errorf("rotation = %v, want π", got.Rotation)
	}
}

func TestNormalize(t *testing.T) {
	o := Object{Kind: KindCharacter, Width: -1, Height: math.NaN(), Shape: ShapeCircle}.Normalize()
	if o.Width != 0 || o.Height != 0 {
		t.Errorf("size not clamped: %v x %v", o.Width, o.Height)
	}
	if o.TextureRef != PlaceholderTexture {
		t.Errorf("texture = %q, want placeholder", o.TextureRef)
	}
	if o.Shape != ShapeNone {
		t.Errorf("shape on character kept: %q", o.Shape)
	}
	if o.HasTexture() {
		t.Error("placeholder should not count as a texture")
	}
}

func TestNormalizedRotation(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{math.Pi / 2, math.Pi / 2},
		{3 * math.Pi, math.Pi},
		{-math.Pi, math.Pi},
		{5 * math.Pi / 2, math.Pi / 2},
		{-5 * math.Pi / 2, -math.Pi / 2},
	}
	for _, tt := range tests {
		got := Object{Rotation: tt.in}.NormalizedRotation()
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizedRotation(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSceneFileRoundTrip(t *testing.T) {
	src := `objects:
  - kind: player
    x: 50
    y: 60
    width: 32
    height: 32
    name: Hero
  - kind: prop
    shape: circle
    x: 100
    y: 100
    width: 20
    height: 20
`
	objs, err := DecodeScene(strings.NewReader(src))
	if err != nil {
		t.Fatalf("DecodeScene: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("got %d objects, want 2", len(objs))
	}
	if objs[0].Kind != KindCharacter || objs[0].Name != "Hero" {
		t.Errorf("first object decoded wrong: %+v", objs[0])
	}
	if objs[1].Shape != ShapeCircle || objs[1].TextureRef != PlaceholderTexture {
		t.Errorf("second object decoded wrong: %+v", objs[1])
	}

	var buf bytes.Buffer
	if err := EncodeScene(&buf, objs); err != nil {
		t.Fatalf("EncodeScene: %v", err)
	}
	again, err := DecodeScene(&buf)
	if err != nil {
		t.Fatalf("DecodeScene after encode: %v", err)
	}
	if len(again) != 2 || again[0] != objs[0] || again[1] != objs[1] {
		t.Errorf("scene changed across encode/decode:\n%+v\n%+v", objs, again)
	}
}

func TestDecodeSceneRejectsMissingKind(t *testing.T) {
	_, err := DecodeScene(strings.NewReader("objects:\n  - x: 1\n"))
	if err == nil {
		t.Fatal("expected error for object without kind")
	}
}

func TestDecodeSceneEmpty(t *testing.T) {
	objs, err := DecodeScene(strings.NewReader(""))
	if err != nil {
		t.Fatalf("DecodeScene: %v", err)
	}
	if len(objs) != 0 {
		t.Errorf("got %d objects from empty file", len(objs))
	}
}

func TestSampleSceneHasOneMovable(t *testing.T) {
	movable := 0
	ids := make(map[string]bool)
	for _, o := range NewSampleScene() {
		if o.Kind.Movable() {
			movable++
		}
		if ids[o.ID] {
			t.Errorf("duplicate id %q", o.ID)
		}
		ids[o.ID] = true
	}
	if movable != 1 {
		t.Errorf("sample scene has %d movable objects, want 1", movable)
	}
}
