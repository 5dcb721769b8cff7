// Package play simulates a scene the way the generated game script does:
// props are static boxes, characters are upright dynamic boxes held inside
// the canvas, and the first character answers to the arrow keys.
package play

import (
	"github.com/jakecoffman/cp"

	"github.com/rfaga/storyteller/internal/codegen"
	"github.com/rfaga/storyteller/internal/document"
)

const (
	characterMass = 1
	boundsRadius  = 8
	// Contacts whose normal is steeper than this count as standing on something.
	groundNormal = 0.5
)

// Input is the controller state for one step.
type Input struct {
	Left  bool
	Right bool
	Jump  bool
}

type World struct {
	opts    codegen.Options
	space   *cp.Space
	objects []document.Object
	bodies  map[int]*cp.Body // index in objects -> dynamic body
	player  int              // index of the controlled character, -1 if none
}

// New builds a world from objects. The objects are copied; positions of
// characters are read back from the simulation by Objects.
func New(objects []document.Object, opts codegen.Options) *World {
	space := cp.NewSpace()
	space.Iterations = 20
	space.SetGravity(cp.Vector{X: 0, Y: opts.Gravity})

	w := &World{
		opts:    opts,
		space:   space,
		objects: make([]document.Object, len(objects)),
		bodies:  make(map[int]*cp.Body),
		player:  -1,
	}
	copy(w.objects, objects)

	w.addBounds()
	for i, obj := range w.objects {
		if obj.Width <= 0 || obj.Height <= 0 {
			continue
		}
		switch obj.Kind {
		case document.KindProp:
			bb := cp.BB{L: obj.X - obj.Width/2, B: obj.Y - obj.Height/2, R: obj.X + obj.Width/2, T: obj.Y + obj.Height/2}
			shape := cp.NewBox2(space.StaticBody, bb, 0)
			shape.SetFriction(0)
			space.AddShape(shape)
		case document.KindCharacter:
			body := cp.NewBody(characterMass, cp.INFINITY)
			body.SetPosition(cp.Vector{X: obj.X, Y: obj.Y})
			shape := cp.NewBox(body, obj.Width, obj.Height, 0)
			shape.SetFriction(0)
			space.AddBody(body)
			space.AddShape(shape)
			w.bodies[i] = body
			if w.player < 0 {
				w.player = i
			}
		}
	}
	return w
}

// addBounds walls the canvas in, matching setCollideWorldBounds.
func (w *World) addBounds() {
	width, height := float64(w.opts.Width), float64(w.opts.Height)
	r := float64(boundsRadius)
	walls := [][2]cp.Vector{
		{{X: -r, Y: -r}, {X: width + r, Y: -r}},
		{{X: width + r, Y: -r}, {X: width + r, Y: height + r}},
		{{X: width + r, Y: height + r}, {X: -r, Y: height + r}},
		{{X: -r, Y: height + r}, {X: -r, Y: -r}},
	}
	for _, wall := range walls {
		shape := cp.NewSegment(w.space.StaticBody, wall[0], wall[1], r)
		shape.SetFriction(0)
		w.space.AddShape(shape)
	}
}

// Step applies the input to the player and advances the simulation by dt
// seconds.
func (w *World) Step(dt float64, in Input) {
	if body, ok := w.bodies[w.player]; ok {
		v := body.Velocity()
		switch {
		case in.Left:
			v.X = -w.opts.MoveSpeed
		case in.Right:
			v.X = w.opts.MoveSpeed
		default:
			v.X = 0
		}
		if in.Jump && grounded(body) {
			v.Y = w.opts.JumpVelocity
		}
		body.SetVelocityVector(v)
	}
	w.space.Step(dt)
}

// Grounded reports whether the player is standing on a prop or the floor.
func (w *World) Grounded() bool {
	body, ok := w.bodies[w.player]
	return ok && grounded(body)
}

func grounded(body *cp.Body) bool {
	onGround := false
	body.EachArbiter(func(arb *cp.Arbiter) {
		// The normal points away from body; downward means support below.
		if arb.Normal().Y > groundNormal {
			onGround = true
		}
	})
	return onGround
}

// Player returns the controlled character at its simulated position.
func (w *World) Player() (document.Object, bool) {
	if w.player < 0 {
		return document.Object{}, false
	}
	return w.Objects()[w.player], true
}

// Objects returns the scene with character positions taken from the
// simulation, in scene order.
func (w *World) Objects() []document.Object {
	out := make([]document.Object, len(w.objects))
	copy(out, w.objects)
	for i, body := range w.bodies {
		p := body.Position()
		out[i].X = p.X
		out[i].Y = p.Y
	}
	return out
}
