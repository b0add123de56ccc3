//go:build ebiten

package ui

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"elemental-td/internal/core"
	"elemental-td/internal/element"
	"elemental-td/internal/pathing"
	"elemental-td/internal/render"
)

type afflictionFieldProvider interface {
	AfflictionField(e element.Element) []float32
}

type routeProvider interface {
	Route() pathing.Route
}

var elementTints = map[element.Element]color.RGBA{
	element.Fire:  {R: 255, G: 120, B: 40},
	element.Water: {R: 64, G: 164, B: 223},
	element.Earth: {R: 150, G: 120, B: 70},
	element.Air:   {R: 220, G: 230, B: 240},
}

// Overlay draws optional visuals on top of the map: per-element charge
// and the current wave route.
type Overlay struct {
	sim   core.Sim
	scale int

	shown     map[element.Element]bool
	showRoute bool

	masks map[element.Element]*render.MaskPainter
	pixel *ebiten.Image
}

// NewOverlay constructs a new overlay instance. The route is shown by
// default.
func NewOverlay(sim core.Sim, scale int) *Overlay {
	o := &Overlay{
		sim:       sim,
		scale:     max(scale, 1),
		shown:     make(map[element.Element]bool),
		showRoute: true,
		masks:     make(map[element.Element]*render.MaskPainter),
	}
	o.pixel = ebiten.NewImage(1, 1)
	o.pixel.Fill(color.White)
	return o
}

// Update toggles layers: F1 fire, F2 water, F3 earth, F4 air, F5 route.
func (o *Overlay) Update() {
	for key, e := range map[ebiten.Key]element.Element{
		ebiten.KeyF1: element.Fire,
		ebiten.KeyF2: element.Water,
		ebiten.KeyF3: element.Earth,
		ebiten.KeyF4: element.Air,
	} {
		if inpututil.IsKeyJustPressed(key) {
			o.shown[e] = !o.shown[e]
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		o.showRoute = !o.showRoute
	}
}

// Draw renders the enabled layers onto screen.
func (o *Overlay) Draw(screen *ebiten.Image) {
	size := o.sim.Size()
	if size.W <= 0 || size.H <= 0 {
		return
	}
	if provider, ok := o.sim.(afflictionFieldProvider); ok {
		for _, e := range element.All() {
			if !o.shown[e] {
				continue
			}
			mp := o.masks[e]
			if mp == nil {
				mp = &render.MaskPainter{}
				o.masks[e] = mp
			}
			mp.Blit(screen, size.W, size.H, provider.AfflictionField(e), elementTints[e], 150, o.scale)
		}
	}
	if o.showRoute {
		if provider, ok := o.sim.(routeProvider); ok {
			o.drawRoute(screen, provider.Route())
		}
	}
}

func (o *Overlay) drawRoute(screen *ebiten.Image, r pathing.Route) {
	if !r.Found || len(r.Steps) < 2 {
		return
	}
	s := float64(o.scale)
	thickness := math.Max(s*0.3, 1)
	col := color.RGBA{R: 250, G: 250, B: 250, A: 200}
	for i := 1; i < len(r.Steps); i++ {
		a, b := r.Steps[i-1], r.Steps[i]
		o.drawLine(screen,
			(float64(a.X)+0.5)*s, (float64(a.Y)+0.5)*s,
			(float64(b.X)+0.5)*s, (float64(b.Y)+0.5)*s,
			thickness, col)
	}
}

func (o *Overlay) drawLine(screen *ebiten.Image, x1, y1, x2, y2, thickness float64, col color.RGBA) {
	dx := x2 - x1
	dy := y2 - y1
	length := math.Hypot(dx, dy)
	if length <= 1e-4 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(length+thickness, thickness)
	op.GeoM.Translate(-thickness/2, -thickness/2)
	op.GeoM.Rotate(math.Atan2(dy, dx))
	op.GeoM.Translate(x1, y1)
	op.ColorScale.ScaleWithColor(col)
	screen.DrawImage(o.pixel, op)
}
