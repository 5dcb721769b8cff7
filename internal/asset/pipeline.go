package asset

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/rfaga/storyteller/internal/render"
	"github.com/rfaga/storyteller/internal/typeid"
)

var ErrDecode = errors.New("decode image")

// Descriptor is the result of a successful import.
type Descriptor struct {
	TextureRef string `json:"textureRef"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// Pipeline decodes image bytes and registers them as textures.
type Pipeline struct {
	textures render.TextureRegistry
	dir      string // optional; decoded images are persisted here as PNG
}

// NewPipeline creates a pipeline. An empty dir keeps textures in memory only.
func NewPipeline(textures render.TextureRegistry, dir string) *Pipeline {
	return &Pipeline{textures: textures, dir: dir}
}

// Import decodes data and registers it under a fresh texture reference.
// Decoding failures wrap ErrDecode.
func (p *Pipeline) Import(data []byte) (Descriptor, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	b := img.Bounds()
	if b.Empty() {
		return Descriptor{}, fmt.Errorf("%w: image has no pixels", ErrDecode)
	}

	ref := typeid.NewTextureID()
	if p.dir != "" {
		if err := p.persist(ref, img); err != nil {
			return Descriptor{}, err
		}
	}
	if err := p.textures.Register(ref, img); err != nil {
		if rmErr := p.Remove(ref); rmErr != nil {
			slog.Warn("remove unregistered asset", "texture", ref, "error", rmErr)
		}
		return Descriptor{}, fmt.Errorf("register texture: %w", err)
	}

	slog.Debug("image imported", "texture", ref, "format", format, "width", b.Dx(), "height", b.Dy())
	return Descriptor{TextureRef: ref, Width: b.Dx(), Height: b.Dy()}, nil
}

func (p *Pipeline) persist(ref string, img image.Image) error {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return fmt.Errorf("create asset dir: %w", err)
	}
	path := filepath.Join(p.dir, ref+".png")
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create asset file: %w", err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(path)
		return fmt.Errorf("encode png: %w", err)
	}
	return out.Close()
}

// Remove deletes a persisted texture file.
func (p *Pipeline) Remove(ref string) error {
	if p.dir == "" {
		return nil
	}
	if err := os.Remove(filepath.Join(p.dir, ref+".png")); err != nil {
		return fmt.Errorf("remove asset %s: %w", ref, err)
	}
	return nil
}

// Preload registers every texture previously persisted in the asset
// directory. Unreadable files are skipped.
func (p *Pipeline) Preload() (int, error) {
	if p.dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(p.dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read asset dir: %w", err)
	}

	loaded := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".png") {
			continue
		}
		ref := strings.TrimSuffix(name, ".png")
		if typeid.Validate(ref, typeid.PrefixTexture) != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(p.dir, name))
		if err != nil {
			slog.Warn("skip asset", "file", name, "error", err)
			continue
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			slog.Warn("skip asset", "file", name, "error", err)
			continue
		}
		if err := p.textures.Register(ref, img); err != nil {
			slog.Warn("skip asset", "file", name, "error", err)
			continue
		}
		loaded++
	}
	return loaded, nil
}
