//go:build ebiten

package render

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// GridPainter uploads palette-encoded cells into a single image.
type GridPainter struct {
	w, h int
	img  *ebiten.Image
	buf  []byte
}

// NewGridPainter allocates a painter for a grid of size w*h.
func NewGridPainter(w, h int) *GridPainter {
	gp := &GridPainter{}
	gp.resize(w, h)
	return gp
}

func (gp *GridPainter) resize(w, h int) {
	gp.w, gp.h = w, h
	gp.buf = make([]byte, 4*w*h)
	gp.img = nil
	if w > 0 && h > 0 {
		gp.img = ebiten.NewImage(w, h)
	}
}

// Blit draws cells through palette at the given scale. The painter follows
// the world when its dimensions change.
func (gp *GridPainter) Blit(dst *ebiten.Image, w, h int, cells []uint8, palette []color.RGBA, scale int) {
	if w != gp.w || h != gp.h {
		gp.resize(w, h)
	}
	if gp.img == nil || len(cells) != w*h {
		return
	}
	fillPaletteRGBA(gp.buf, cells, palette)
	gp.img.WritePixels(gp.buf)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(scale), float64(scale))
	dst.DrawImage(gp.img, op)
}

// MaskPainter draws a translucent per-cell tint, used for overlays.
type MaskPainter struct {
	w, h int
	img  *ebiten.Image
	buf  []byte
}

// Blit tints every cell with a positive intensity.
func (mp *MaskPainter) Blit(dst *ebiten.Image, w, h int, intensity []float32, tint color.RGBA, maxAlpha uint8, scale int) {
	if w <= 0 || h <= 0 || len(intensity) != w*h {
		return
	}
	if mp.img == nil || mp.w != w || mp.h != h {
		mp.w, mp.h = w, h
		mp.img = ebiten.NewImage(w, h)
		mp.buf = make([]byte, 4*w*h)
	}
	tintRGBA(mp.buf, intensity, tint, maxAlpha)
	mp.img.WritePixels(mp.buf)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(scale), float64(scale))
	dst.DrawImage(mp.img, op)
}

// Size returns the dimensions of the underlying image.
func (gp *GridPainter) Size() (int, int) { return gp.w, gp.h }
