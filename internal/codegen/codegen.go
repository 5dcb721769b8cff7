// Package codegen turns a scene into a runnable Phaser 3 scene script.
package codegen

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rfaga/storyteller/internal/document"
)

// Options tune the emitted game.
type Options struct {
	SceneName    string
	Width        int
	Height       int
	Gravity      float64
	MoveSpeed    float64
	JumpVelocity float64
	// AssetBase prefixes imported texture files, which are served as
	// <AssetBase><ref>.png.
	AssetBase string
}

func DefaultOptions() Options {
	return Options{
		SceneName:    "GameScene",
		Width:        800,
		Height:       600,
		Gravity:      300,
		MoveSpeed:    160,
		JumpVelocity: -330,
		AssetBase:    "assets/",
	}
}

// Generator emits scene scripts. The output depends only on the options and
// the object list, in order.
type Generator struct {
	Options Options
}

func New(opts Options) *Generator {
	return &Generator{Options: opts}
}

// Generate renders objects with the default options.
func Generate(objects []document.Object) string {
	return New(DefaultOptions()).Generate(objects)
}

func (g *Generator) Generate(objects []document.Object) string {
	var b strings.Builder
	o := g.Options

	b.WriteString("// Code generated by storyteller. DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "class %s extends Phaser.Scene {\n", o.SceneName)
	b.WriteString("  constructor() {\n")
	fmt.Fprintf(&b, "    super({ key: %q });\n", o.SceneName)
	b.WriteString("  }\n\n")

	g.writePreload(&b, objects)
	g.writeCreate(&b, objects)
	g.writeUpdate(&b, objects)

	b.WriteString("}\n\n")
	g.writeConfig(&b)
	return b.String()
}

func (g *Generator) writePreload(b *strings.Builder, objects []document.Object) {
	b.WriteString("  preload() {\n")
	b.WriteString("    const g = this.make.graphics({ x: 0, y: 0, add: false });\n")
	b.WriteString("    g.fillStyle(0xffffff, 1);\n")
	b.WriteString("    g.fillRect(0, 0, 32, 32);\n")
	fmt.Fprintf(b, "    g.generateTexture(%q, 32, 32);\n", document.PlaceholderTexture)
	b.WriteString("    g.destroy();\n")

	for _, ref := range textureRefs(objects) {
		fmt.Fprintf(b, "    this.load.image(%q, %q);\n", ref, g.Options.AssetBase+ref+".png")
	}
	b.WriteString("  }\n\n")
}

func (g *Generator) writeCreate(b *strings.Builder, objects []document.Object) {
	b.WriteString("  create() {\n")

	for _, obj := range objects {
		if obj.Kind != document.KindBackground {
			continue
		}
		writeName(b, obj)
		fmt.Fprintf(b, "    this.add.image(%s, %s, %q)%s.setDepth(-1);\n",
			num(obj.X), num(obj.Y), texture(obj), styling(obj))
	}

	b.WriteString("    const statics = this.physics.add.staticGroup();\n")
	for _, obj := range objects {
		if obj.Kind != document.KindProp {
			continue
		}
		writeName(b, obj)
		switch obj.Shape {
		case document.ShapeRectangle, document.ShapeCircle:
			ctor := "rectangle"
			if obj.Shape == document.ShapeCircle {
				ctor = "ellipse"
			}
			fmt.Fprintf(b, "    statics.add(this.physics.add.existing(this.add.%s(%s, %s, %s, %s, %s)%s, true));\n",
				ctor, num(obj.X), num(obj.Y), num(obj.Width), num(obj.Height), tint(obj), rotation(obj))
		default:
			fmt.Fprintf(b, "    statics.create(%s, %s, %q)%s.refreshBody();\n",
				num(obj.X), num(obj.Y), texture(obj), styling(obj))
		}
	}

	movers := 0
	for _, obj := range objects {
		if !obj.Kind.Movable() {
			continue
		}
		movers++
		name := "mover" + strconv.Itoa(movers)
		writeName(b, obj)
		fmt.Fprintf(b, "    const %s = this.physics.add.sprite(%s, %s, %q)%s;\n",
			name, num(obj.X), num(obj.Y), texture(obj), styling(obj))
		fmt.Fprintf(b, "    %s.setCollideWorldBounds(true);\n", name)
		fmt.Fprintf(b, "    this.physics.add.collider(%s, statics);\n", name)
		if movers == 1 {
			fmt.Fprintf(b, "    this.player = %s;\n", name)
		}
	}

	b.WriteString("    this.cursors = this.input.keyboard.createCursorKeys();\n")
	b.WriteString("  }\n\n")
}

func (g *Generator) writeUpdate(b *strings.Builder, objects []document.Object) {
	b.WriteString("  update() {\n")
	if !hasMovable(objects) {
		b.WriteString("  }\n")
		return
	}
	speed := num(g.Options.MoveSpeed)
	b.WriteString("    const player = this.player;\n")
	b.WriteString("    if (this.cursors.left.isDown) {\n")
	fmt.Fprintf(b, "      player.setVelocityX(-%s);\n", speed)
	b.WriteString("    } else if (this.cursors.right.isDown) {\n")
	fmt.Fprintf(b, "      player.setVelocityX(%s);\n", speed)
	b.WriteString("    } else {\n")
	b.WriteString("      player.setVelocityX(0);\n")
	b.WriteString("    }\n")
	b.WriteString("    if (this.cursors.up.isDown && player.body.touching.down) {\n")
	fmt.Fprintf(b, "      player.setVelocityY(%s);\n", num(g.Options.JumpVelocity))
	b.WriteString("    }\n")
	b.WriteString("  }\n")
}

func (g *Generator) writeConfig(b *strings.Builder) {
	o := g.Options
	b.WriteString("const config = {\n")
	b.WriteString("  type: Phaser.AUTO,\n")
	fmt.Fprintf(b, "  width: %d,\n", o.Width)
	fmt.Fprintf(b, "  height: %d,\n", o.Height)
	b.WriteString("  physics: {\n")
	b.WriteString("    default: \"arcade\",\n")
	fmt.Fprintf(b, "    arcade: { gravity: { x: 0, y: %s }, debug: false },\n", num(o.Gravity))
	b.WriteString("  },\n")
	fmt.Fprintf(b, "  scene: %s,\n", o.SceneName)
	b.WriteString("};\n\n")
	b.WriteString("new Phaser.Game(config);\n")
}

func hasMovable(objects []document.Object) bool {
	for _, obj := range objects {
		if obj.Kind.Movable() {
			return true
		}
	}
	return false
}

// textureRefs lists imported textures in first-use order.
func textureRefs(objects []document.Object) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, obj := range objects {
		ref := texture(obj)
		if ref == document.PlaceholderTexture || seen[ref] {
			continue
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs
}

func texture(obj document.Object) string {
	if obj.TextureRef == "" {
		return document.PlaceholderTexture
	}
	return obj.TextureRef
}

func styling(obj document.Object) string {
	s := fmt.Sprintf(".setDisplaySize(%s, %s).setTint(%s)", num(obj.Width), num(obj.Height), tint(obj))
	return s + rotation(obj)
}

func rotation(obj document.Object) string {
	if num(obj.Rotation) == "0" {
		return ""
	}
	return ".setRotation(" + num(obj.Rotation) + ")"
}

func tint(obj document.Object) string {
	return fmt.Sprintf("0x%06x", obj.Kind.Tint())
}

func writeName(b *strings.Builder, obj document.Object) {
	name := sanitize(obj.Name)
	if name == "" {
		return
	}
	fmt.Fprintf(b, "    // %s\n", name)
}

// sanitize keeps a name on a single comment line.
func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '\u2028' || r == '\u2029' {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// num formats v rounded to two decimals without trailing zeros.
func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	r := math.Round(v*100) / 100
	if r == 0 {
		return "0"
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
