package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.design/x/clipboard"

	"github.com/rfaga/storyteller/internal/codegen"
	"github.com/rfaga/storyteller/internal/config"
	"github.com/rfaga/storyteller/internal/document"
	"github.com/rfaga/storyteller/internal/game"
	"github.com/rfaga/storyteller/internal/play"
)

const circleSize = 64

var background = color.RGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff}

type preview struct {
	objects  []document.Object
	code     string
	opts     codegen.Options
	world    *play.World
	textures map[string]*ebiten.Image
	pixel    *ebiten.Image
	circle   *ebiten.Image
	copyOK   bool
}

func main() {
	scenePath := flag.String("scene", "", "YAML scene file to play")
	gameName := flag.String("game", "", "saved game to play")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	opts := cfg.Codegen()

	objects, code, err := load(*scenePath, *gameName, cfg.GamesDir)
	if err != nil {
		slog.Error("load scene", "error", err)
		os.Exit(1)
	}
	if code == "" {
		code = codegen.New(opts).Generate(objects)
	}

	p := &preview{
		objects:  objects,
		code:     code,
		opts:     opts,
		world:    play.New(objects, opts),
		textures: loadTextures(objects, cfg.AssetDir),
		pixel:    ebiten.NewImage(1, 1),
		circle:   ebiten.NewImage(circleSize, circleSize),
	}
	p.pixel.Fill(color.White)
	vector.FillCircle(p.circle, circleSize/2, circleSize/2, circleSize/2, color.White, true)

	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable", "error", err)
	} else {
		p.copyOK = true
	}

	ebiten.SetWindowSize(opts.Width, opts.Height)
	ebiten.SetWindowTitle("storyteller preview")
	if err := ebiten.RunGame(p); err != nil {
		slog.Error("run preview", "error", err)
		os.Exit(1)
	}
}

// load reads the scene from a YAML file, a saved game, or falls back to the
// sample scene.
func load(scenePath, gameName, gamesDir string) ([]document.Object, string, error) {
	switch {
	case scenePath != "":
		f, err := os.Open(scenePath)
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		objects, err := document.DecodeScene(f)
		return objects, "", err
	case gameName != "":
		rec, err := game.NewFileStore(gamesDir).Get(context.Background(), gameName)
		if err != nil {
			return nil, "", fmt.Errorf("load game %q: %w", gameName, err)
		}
		return rec.Objects, rec.GeneratedCode, nil
	default:
		return document.NewSampleScene(), "", nil
	}
}

func loadTextures(objects []document.Object, dir string) map[string]*ebiten.Image {
	textures := make(map[string]*ebiten.Image)
	for _, obj := range objects {
		if !obj.HasTexture() {
			continue
		}
		if _, ok := textures[obj.TextureRef]; ok {
			continue
		}
		img, err := decodeFile(filepath.Join(dir, obj.TextureRef+".png"))
		if err != nil {
			slog.Warn("texture missing, drawing fallback", "texture", obj.TextureRef, "error", err)
			continue
		}
		textures[obj.TextureRef] = ebiten.NewImageFromImage(img)
	}
	return textures
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func (p *preview) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyC) && p.copyOK {
		clipboard.Write(clipboard.FmtText, []byte(p.code))
		slog.Info("generated code copied to clipboard")
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		p.world = play.New(p.objects, p.opts)
	}

	p.world.Step(1/float64(ebiten.TPS()), play.Input{
		Left:  ebiten.IsKeyPressed(ebiten.KeyArrowLeft),
		Right: ebiten.IsKeyPressed(ebiten.KeyArrowRight),
		Jump:  ebiten.IsKeyPressed(ebiten.KeyArrowUp),
	})
	return nil
}

func (p *preview) Draw(screen *ebiten.Image) {
	screen.Fill(background)

	objects := p.world.Objects()
	// Backgrounds sit under everything else
	for _, obj := range objects {
		if obj.Kind == document.KindBackground {
			p.drawObject(screen, obj)
		}
	}
	for _, obj := range objects {
		if obj.Kind != document.KindBackground {
			p.drawObject(screen, obj)
		}
	}
}

func (p *preview) drawObject(screen *ebiten.Image, obj document.Object) {
	if obj.Width <= 0 || obj.Height <= 0 {
		return
	}

	img, tinted := p.textures[obj.TextureRef], false
	if img == nil {
		img, tinted = p.pixel, true
		if obj.Shape == document.ShapeCircle {
			img = p.circle
		}
	}

	b := img.Bounds()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(obj.Width/float64(b.Dx()), obj.Height/float64(b.Dy()))
	op.GeoM.Translate(-obj.Width/2, -obj.Height/2)
	op.GeoM.Rotate(obj.Rotation)
	op.GeoM.Translate(obj.X, obj.Y)
	if tinted {
		t := obj.Kind.Tint()
		op.ColorScale.ScaleWithColor(color.RGBA{R: uint8(t >> 16), G: uint8(t >> 8), B: uint8(t), A: 0xff})
	}
	screen.DrawImage(img, op)
}

func (p *preview) Layout(outsideWidth, outsideHeight int) (int, int) {
	return p.opts.Width, p.opts.Height
}
