// Package editor wires the object store, tool machine, renderer and code
// generator into one editing session.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rfaga/storyteller/internal/asset"
	"github.com/rfaga/storyteller/internal/codegen"
	"github.com/rfaga/storyteller/internal/document"
	"github.com/rfaga/storyteller/internal/game"
	"github.com/rfaga/storyteller/internal/geom"
	"github.com/rfaga/storyteller/internal/store"
	"github.com/rfaga/storyteller/internal/tool"
)

var ErrNoImporter = errors.New("session has no image importer")

// Change is delivered to observers after every object-list mutation.
// Objects is shared between observers and must not be modified.
type Change struct {
	Objects       []document.Object `json:"objects"`
	GeneratedCode string            `json:"generatedCode"`
}

type Observer func(Change)

// Renderer mirrors the object list visually. *render.Adapter implements it.
type Renderer interface {
	Sync(objects []document.Object) error
	DrawOverlay(p geom.Preview)
	ClearOverlay()
}

// Importer decodes image bytes into a texture. *asset.Pipeline implements it.
type Importer interface {
	Import(data []byte) (asset.Descriptor, error)
}

// State is the interaction state exposed to clients.
type State struct {
	Tool     tool.Tool `json:"tool"`
	Selected string    `json:"selected,omitempty"`
	Gesture  string    `json:"gesture,omitempty"`
	// Bounds encloses the whole scene, for fitting the view.
	Bounds   geom.Rect `json:"bounds"`
}

// Session is a single-threaded editing context. All methods must be called
// from one goroutine at a time.
type Session struct {
	id        string
	store     *store.Store
	machine   *tool.Machine
	renderer  Renderer
	importer  Importer
	generator *codegen.Generator
	code      string
	observers []Observer
	logger    *slog.Logger
}

type Option func(*sessionConfig)

type sessionConfig struct {
	renderer  Renderer
	importer  Importer
	generator *codegen.Generator
	tools     tool.Config
	storeOpts []store.Option
	logger    *slog.Logger
}

// WithRenderer attaches a renderer. Sessions work without one.
func WithRenderer(r Renderer) Option {
	return func(c *sessionConfig) { c.renderer = r }
}

func WithImporter(i Importer) Option {
	return func(c *sessionConfig) { c.importer = i }
}

func WithGenerator(g *codegen.Generator) Option {
	return func(c *sessionConfig) { c.generator = g }
}

func WithToolConfig(cfg tool.Config) Option {
	return func(c *sessionConfig) { c.tools = cfg }
}

func WithStoreOptions(opts ...store.Option) Option {
	return func(c *sessionConfig) { c.storeOpts = append(c.storeOpts, opts...) }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *sessionConfig) { c.logger = l }
}

func New(id string, opts ...Option) *Session {
	cfg := sessionConfig{
		generator: codegen.New(codegen.DefaultOptions()),
		tools:     tool.DefaultConfig(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		id:        id,
		store:     store.New(cfg.storeOpts...),
		renderer:  cfg.renderer,
		importer:  cfg.importer,
		generator: cfg.generator,
		logger:    cfg.logger.With("session", id),
	}

	var overlay tool.Overlay
	if s.renderer != nil {
		overlay = s.renderer
	}
	s.machine = tool.NewMachine(cfg.tools, overlay)
	s.store.Subscribe(s.onChange)

	s.code = s.generator.Generate(nil)
	s.sync(nil)
	return s
}

func (s *Session) ID() string { return s.id }

// Subscribe registers an observer for object-list changes.
func (s *Session) Subscribe(fn Observer) {
	s.observers = append(s.observers, fn)
}

func (s *Session) onChange(objects []document.Object) {
	s.sync(objects)
	s.code = s.generator.Generate(objects)

	change := Change{Objects: objects, GeneratedCode: s.code}
	for _, fn := range s.observers {
		fn(change)
	}
}

// sync redraws the scene. Renderer failures are logged, never returned, so
// code generation and export keep working without a display.
func (s *Session) sync(objects []document.Object) {
	if s.renderer == nil {
		return
	}
	if err := s.renderer.Sync(objects); err != nil {
		s.logger.Warn("render sync failed", "error", err, "objects", len(objects))
	}
}

func (s *Session) SetTool(t tool.Tool) { s.machine.SetTool(t) }

func (s *Session) PointerDown(p geom.Point) { s.machine.PointerDown(s.store, p) }

func (s *Session) PointerMove(p geom.Point) { s.machine.PointerMove(s.store, p) }

func (s *Session) PointerUp(p geom.Point) { s.machine.PointerUp(s.store, p) }

// PointerLeave abandons the in-flight gesture when the pointer exits the
// canvas. Changes already applied stay.
func (s *Session) PointerLeave() { s.machine.Cancel() }

func (s *Session) Select(id string) bool { return s.store.Select(id) }

func (s *Session) ClearSelection() { s.store.ClearSelection() }

// Delete removes an object. An empty id deletes the selection.
func (s *Session) Delete(id string) bool {
	if id == "" {
		sel, ok := s.store.Selected()
		if !ok {
			return false
		}
		id = sel
	}
	return s.store.Remove(id)
}

func (s *Session) Update(id string, patch document.Patch) bool {
	return s.store.Update(id, patch)
}

// ReplaceAll swaps in a whole scene and abandons any in-flight gesture.
func (s *Session) ReplaceAll(objects []document.Object) {
	s.machine.Cancel()
	s.store.ReplaceAll(objects)
}

// ImportImage decodes data and places it as a new character. On failure the
// store and the active tool are left untouched.
func (s *Session) ImportImage(data []byte) (document.Object, error) {
	if s.importer == nil {
		return document.Object{}, ErrNoImporter
	}
	desc, err := s.importer.Import(data)
	if err != nil {
		return document.Object{}, fmt.Errorf("import image: %w", err)
	}
	return s.CompleteImport(desc), nil
}

// CompleteImport places an already decoded image.
func (s *Session) CompleteImport(desc asset.Descriptor) document.Object {
	obj := s.machine.CompleteImport(s.store, desc.TextureRef, desc.Width, desc.Height)
	s.logger.Info("image placed", "object", obj.ID, "texture", desc.TextureRef)
	return obj
}

func (s *Session) Objects() []document.Object { return s.store.All() }

// Code returns the script generated from the current objects.
func (s *Session) Code() string { return s.code }

func (s *Session) Tool() tool.Tool { return s.machine.Tool() }

func (s *Session) Gesture() tool.Gesture { return s.machine.Gesture() }

func (s *Session) Selected() (document.Object, bool) { return s.store.SelectedObject() }

func (s *Session) State() State {
	st := State{Tool: s.machine.Tool(), Bounds: geom.SceneBounds(s.store.All())}
	if id, ok := s.store.Selected(); ok {
		st.Selected = id
	}
	if g := s.machine.Gesture(); g != nil {
		st.Gesture = g.Kind()
	}
	return st
}

// Export captures the scene as a persistable record.
func (s *Session) Export(name string) game.Record {
	return game.Record{
		Name:          name,
		Objects:       s.store.All(),
		GeneratedCode: s.code,
		SavedAt:       time.Now().UTC(),
	}
}
