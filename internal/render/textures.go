package render

import (
	"errors"
	"fmt"
	"image"
	"sync"
)

var (
	ErrUnknownVisual = errors.New("unknown visual")
	ErrEmptyTexture  = errors.New("empty texture")
)

// TextureRegistry resolves texture references to bitmaps.
type TextureRegistry interface {
	Exists(ref string) bool
	Register(ref string, img image.Image) error
}

// MemoryTextures is an in-process TextureRegistry. It is shared between the
// HTTP import path and the session loop, so it is safe for concurrent use.
type MemoryTextures struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

func NewMemoryTextures() *MemoryTextures {
	return &MemoryTextures{images: make(map[string]image.Image)}
}

func (m *MemoryTextures) Exists(ref string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.images[ref]
	return ok
}

func (m *MemoryTextures) Register(ref string, img image.Image) error {
	if ref == "" {
		return fmt.Errorf("register texture: empty reference")
	}
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("register texture %s: %w", ref, ErrEmptyTexture)
	}
	m.mu.Lock()
	m.images[ref] = img
	m.mu.Unlock()
	return nil
}

// Get returns the bitmap registered under ref.
func (m *MemoryTextures) Get(ref string) (image.Image, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[ref]
	return img, ok
}
