package sandbox

import (
	"image/color"

	"github.com/zyedidia/generic/mapset"

	"elemental-td/internal/element"
	"elemental-td/internal/tilemap"
)

const (
	displayTypeMask     = 0x07
	displayBarricadeBit = 0x08
	displayRouteBit     = 0x10
	displayChargedBit   = 0x20
	displayUnitBit      = 0x40

	paletteSize = 0x80
)

var sandboxPalette = buildSandboxPalette()

// Palette exposes the color palette used for rendering the sandbox.
func (w *World) Palette() []color.RGBA {
	return sandboxPalette
}

// DecodeCell splits a display byte into its parts.
func DecodeCell(v uint8) (t tilemap.TileType, barricade, route, charged, unit bool) {
	return tilemap.TileType(v & displayTypeMask),
		v&displayBarricadeBit != 0,
		v&displayRouteBit != 0,
		v&displayChargedBit != 0,
		v&displayUnitBit != 0
}

func encodeCell(t tilemap.TileType, s tilemap.Structure, route, charged, unit bool) uint8 {
	v := uint8(t) & displayTypeMask
	if s == tilemap.StructureBarricade {
		v |= displayBarricadeBit
	}
	if route {
		v |= displayRouteBit
	}
	if charged {
		v |= displayChargedBit
	}
	if unit {
		v |= displayUnitBit
	}
	return v
}

func buildSandboxPalette() []color.RGBA {
	palette := make([]color.RGBA, paletteSize)
	for i := range palette {
		t, barricade, route, charged, unit := DecodeCell(uint8(i))
		palette[i] = toRGBA(paletteColorFor(t, barricade, route, charged, unit))
	}
	return palette
}

func toRGBA(c color.NRGBA) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

func paletteColorFor(t tilemap.TileType, barricade, route, charged, unit bool) color.NRGBA {
	if unit {
		return color.NRGBA{R: 235, G: 60, B: 200, A: 255}
	}
	base := tileColor(t)
	if barricade {
		base = blendColors(base, color.NRGBA{R: 150, G: 105, B: 60, A: 255}, 0.7)
	}
	if charged && t != tilemap.TileFire {
		base = blendColors(base, color.NRGBA{R: 255, G: 200, B: 90, A: 255}, 0.3)
	}
	if route {
		base = blendColors(base, color.NRGBA{R: 240, G: 240, B: 240, A: 255}, 0.35)
	}
	return base
}

func tileColor(t tilemap.TileType) color.NRGBA {
	switch t {
	case tilemap.TileRock:
		return color.NRGBA{R: 130, G: 130, B: 130, A: 255}
	case tilemap.TileWater:
		return color.NRGBA{R: 50, G: 110, B: 200, A: 255}
	case tilemap.TileVoid:
		return color.NRGBA{R: 10, G: 10, B: 18, A: 255}
	case tilemap.TileFire:
		return color.NRGBA{R: 255, G: 110, B: 35, A: 255}
	default:
		return color.NRGBA{R: 92, G: 74, B: 48, A: 255}
	}
}

func blendColors(base, overlay color.NRGBA, overlayWeight float64) color.NRGBA {
	if overlayWeight <= 0 {
		return base
	}
	if overlayWeight >= 1 {
		return overlay
	}
	inv := 1 - overlayWeight
	mix := func(a, b uint8) uint8 {
		return uint8(float64(a)*inv + float64(b)*overlayWeight + 0.5)
	}
	return color.NRGBA{
		R: mix(base.R, overlay.R),
		G: mix(base.G, overlay.G),
		B: mix(base.B, overlay.B),
		A: mix(base.A, overlay.A),
	}
}

// rebuildDisplay repaints the display buffer: every tile after a resize,
// otherwise only the tiles that changed.
func (w *World) rebuildDisplay(resized bool, dirty, afflicted []int) {
	d := w.m.Dimensions()
	full := resized || len(w.display.Cells()) != d.Area()
	if full {
		w.display.Resize(d.W, d.H)
	} else {
		for _, idx := range dirty {
			w.repaint.Put(idx)
		}
		for _, idx := range afflicted {
			w.repaint.Put(idx)
		}
		if w.repaint.Size() == 0 {
			return
		}
	}

	overlay := w.collectMarkers()
	if full {
		for idx := range w.display.Cells() {
			w.paintCell(idx, overlay)
		}
	} else {
		w.repaint.Each(func(idx int) { w.paintCell(idx, overlay) })
	}
	w.repaint = mapset.New[int]()
}

type markers struct {
	route    map[int]bool
	occupied map[int]bool
}

func (w *World) collectMarkers() markers {
	mk := markers{route: make(map[int]bool), occupied: make(map[int]bool)}
	for _, c := range w.route.Steps {
		if idx, err := w.m.CoordToIdx(c); err == nil {
			mk.route[idx] = true
		}
	}
	for _, u := range w.roster.Units() {
		if idx, err := w.m.CoordToIdx(u.Pos); err == nil {
			mk.occupied[idx] = true
		}
	}
	return mk
}

func (w *World) paintCell(idx int, mk markers) {
	rec, err := w.m.Record(idx)
	if err != nil {
		return
	}
	charged := !rec.Affliction.IsZero()
	w.display.Set(idx, encodeCell(rec.Type, rec.Structure, mk.route[idx], charged, mk.occupied[idx]))
}

// fieldSaturation is the charge that renders at full overlay intensity.
const fieldSaturation = 100

// AfflictionField returns the charge of e on every tile scaled to [0, 1].
func (w *World) AfflictionField(e element.Element) []float32 {
	field := make([]float32, w.m.TileCount())
	for idx := range field {
		a, err := w.m.AfflictionAtIndex(idx)
		if err != nil {
			continue
		}
		field[idx] = min(float32(a.Amount(e))/fieldSaturation, 1)
	}
	return field
}
