package render

import (
	"fmt"
	"io"

	"github.com/gogpu/gg"

	"github.com/rfaga/storyteller/internal/document"
	"github.com/rfaga/storyteller/internal/geom"
)

// RasterSurface draws visuals into an offscreen bitmap.
type RasterSurface struct {
	width, height int
	background    string
	textures      *MemoryTextures
	set           visualSet
	overlay       *geom.Preview
}

// NewRasterSurface creates a surface of the given canvas size. textures may
// be nil, in which case sprites draw as their tint.
func NewRasterSurface(width, height int, textures *MemoryTextures) *RasterSurface {
	return &RasterSurface{
		width:      width,
		height:     height,
		background: "#0f172a",
		textures:   textures,
		set:        newVisualSet(),
	}
}

func (s *RasterSurface) CreateVisual(v Visual) (VisualID, error) {
	if v.Width < 0 || v.Height < 0 {
		return 0, fmt.Errorf("visual %s has negative size", v.ObjectID)
	}
	return s.set.create(v), nil
}

func (s *RasterSurface) UpdateVisual(id VisualID, v Visual) error {
	return s.set.update(id, v)
}

func (s *RasterSurface) DestroyVisual(id VisualID) error {
	return s.set.destroy(id)
}

func (s *RasterSurface) DrawOverlay(p geom.Preview) { s.overlay = &p }

func (s *RasterSurface) ClearOverlay() { s.overlay = nil }

// EncodePNG rasterizes the current visuals and writes them as PNG.
func (s *RasterSurface) EncodePNG(w io.Writer) error {
	dc := gg.NewContext(s.width, s.height)
	defer dc.Close()

	dc.ClearWithColor(gg.Hex(s.background))

	var drawErr error
	s.set.each(func(_ VisualID, v Visual) {
		if err := s.drawVisual(dc, v); err != nil && drawErr == nil {
			drawErr = fmt.Errorf("draw %s: %w", v.ObjectID, err)
		}
	})
	if drawErr != nil {
		return drawErr
	}

	if s.overlay != nil {
		if err := drawOverlay(dc, *s.overlay); err != nil {
			return fmt.Errorf("draw overlay: %w", err)
		}
	}

	return dc.EncodePNG(w)
}

func (s *RasterSurface) drawVisual(dc *gg.Context, v Visual) error {
	dc.Push()
	defer dc.Pop()

	dc.Translate(v.X, v.Y)
	if v.Rotation != 0 {
		dc.Rotate(v.Rotation)
	}

	if v.Kind == VisualSprite && s.textures != nil {
		if img, ok := s.textures.Get(v.TextureRef); ok {
			dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
				X:         -v.Width / 2,
				Y:         -v.Height / 2,
				DstWidth:  v.Width,
				DstHeight: v.Height,
			})
			return nil
		}
	}

	dc.SetHexColor(v.Color())
	if v.Kind == VisualShape && v.Shape == document.ShapeCircle {
		dc.DrawEllipse(0, 0, v.Width/2, v.Height/2)
	} else {
		dc.DrawRectangle(-v.Width/2, -v.Height/2, v.Width, v.Height)
	}
	return dc.Fill()
}

func drawOverlay(dc *gg.Context, p geom.Preview) error {
	r := p.Rect
	dc.Push()
	defer dc.Pop()

	dc.SetHexColor(overlayStroke)
	dc.SetLineWidth(1)
	dc.SetDash(4, 4)
	if p.Shape == document.ShapeCircle {
		c := r.Center()
		dc.DrawEllipse(c.X, c.Y, r.Width/2, r.Height/2)
	} else {
		dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	}
	return dc.Stroke()
}
