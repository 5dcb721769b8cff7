package render

import (
	"errors"
	"fmt"

	"github.com/rfaga/storyteller/internal/document"
	"github.com/rfaga/storyteller/internal/geom"
)

// Adapter mirrors the object list onto a Surface. Every Sync tears down all
// visuals and rebuilds them in list order, so no diffing state is kept.
type Adapter struct {
	surface  Surface
	textures TextureRegistry
	live     []VisualID
}

func NewAdapter(surface Surface, textures TextureRegistry) *Adapter {
	return &Adapter{surface: surface, textures: textures}
}

func (a *Adapter) Surface() Surface { return a.surface }

// Sync redraws objects. Failures to create or destroy single visuals are
// collected and returned together; the remaining visuals are still drawn.
func (a *Adapter) Sync(objects []document.Object) error {
	var errs []error

	for _, id := range a.live {
		if err := a.surface.DestroyVisual(id); err != nil {
			errs = append(errs, fmt.Errorf("destroy visual %d: %w", id, err))
		}
	}
	a.live = a.live[:0]

	for _, obj := range objects {
		id, err := a.surface.CreateVisual(Resolve(obj, a.textures))
		if err != nil {
			errs = append(errs, fmt.Errorf("create visual for %s: %w", obj.ID, err))
			continue
		}
		a.live = append(a.live, id)
	}

	return errors.Join(errs...)
}

// Len returns the number of live visuals.
func (a *Adapter) Len() int { return len(a.live) }

func (a *Adapter) DrawOverlay(p geom.Preview) { a.surface.DrawOverlay(p) }

func (a *Adapter) ClearOverlay() { a.surface.ClearOverlay() }
