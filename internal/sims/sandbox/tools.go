package sandbox

import (
	"fmt"
	"time"

	"github.com/zyedidia/generic/mapset"

	"elemental-td/internal/core"
	"elemental-td/internal/effect"
	"elemental-td/internal/element"
	"elemental-td/internal/pathing"
	"elemental-td/internal/tilemap"
)

// Reset generates a fresh level from seed. A zero seed uses the configured
// one. The same seed always produces the same level.
func (w *World) Reset(seed int64) {
	effective := seed
	if effective == 0 {
		effective = w.cfg.Seed
	}
	w.rng = core.NewRNG(effective)
	w.replaceMap(generate(w.cfg, w.rng))
	w.log.Info("level generated", "seed", effective, "w", w.cfg.Width, "h", w.cfg.Height)
}

func generate(cfg Config, rng *core.RNG) *tilemap.Map {
	m := tilemap.New(tilemap.Dimensions{W: cfg.Width, H: cfg.Height})
	if m.IsEmpty() {
		return m
	}
	d := m.Dimensions()
	p := cfg.Params

	for y := 0; y < d.H; y++ {
		for x := 0; x < d.W; x++ {
			if rng.Chance(p.RockChance) {
				_ = m.SetTile(tilemap.Coord(x, y), tilemap.PatchType(tilemap.TileRock))
			}
		}
	}

	for i := 0; i < p.WaterPools; i++ {
		cx, cy := rng.IntN(d.W), rng.IntN(d.H)
		r := p.WaterPoolRadius
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if dx*dx+dy*dy > r*r {
					continue
				}
				c := tilemap.Coord(cx+dx, cy+dy)
				if m.InBounds(c) {
					_ = m.SetTile(c, tilemap.PatchType(tilemap.TileWater))
				}
			}
		}
	}

	if p.SeamLength > 0 {
		sx := d.W / 2
		top := rng.IntN(max(d.H-p.SeamLength, 1))
		for y := top; y < top+p.SeamLength && y < d.H; y++ {
			c := tilemap.Coord(sx, y)
			_ = m.SetTile(c, tilemap.PatchType(tilemap.TileFire))
			idx, _ := m.CoordToIdx(c)
			_ = m.SetAffliction(idx, element.Single(element.Fire, uint32(p.SeamFuel)))
		}
	}

	entry := tilemap.Coord(0, d.H/2)
	exit := tilemap.Coord(d.W-1, d.H/2)
	for _, c := range []tilemap.Coordinate{entry, exit} {
		_ = m.SetTile(c, tilemap.Patch(tilemap.TileBarren, tilemap.StructureNone))
		idx, _ := m.CoordToIdx(c)
		_ = m.SetAffliction(idx, element.Empty())
	}
	_ = m.SetWaveEntry(entry)
	_ = m.SetWaveExit(exit)
	return m
}

// replaceMap swaps in m and drops every piece of state tied to the old one.
func (w *World) replaceMap(m *tilemap.Map) {
	if n := w.bus.Discard(); n > 0 {
		w.log.Debug("discarded pending effects", "count", n)
	}
	w.m = m
	w.roster.Clear()
	w.diffuser.Reset()
	w.planner.Invalidate()
	w.route = pathing.Route{}
	w.repaint = mapset.New[int]()
	w.tick = 0
	w.passes = 0
	w.last = Frame{}
}

// Paint applies a partial tile update, as the editor brush does.
func (w *World) Paint(c tilemap.Coordinate, patch tilemap.TilePatch) error {
	return w.m.SetTile(c, patch)
}

// ApplyElement emits a sender-less effect charging the tile at c. The charge
// lands on the next Step.
func (w *World) ApplyElement(c tilemap.Coordinate, a element.Affliction) error {
	idx, err := w.m.CoordToIdx(c)
	if err != nil {
		return err
	}
	w.bus.Emit(effect.New(effect.Tile(idx), effect.ApplyElement(a)))
	return nil
}

// RemoveElement emits a sender-less effect draining the tile at c.
func (w *World) RemoveElement(c tilemap.Coordinate, a element.Affliction) error {
	idx, err := w.m.CoordToIdx(c)
	if err != nil {
		return err
	}
	w.bus.Emit(effect.New(effect.Tile(idx), effect.RemoveElement(a)))
	return nil
}

// Resize changes the map dimensions. Pending effects may address tiles that
// no longer exist; the bus drops those silently.
func (w *World) Resize(dims tilemap.Dimensions) error {
	if err := w.m.Resize(dims); err != nil {
		return err
	}
	w.cfg.Width, w.cfg.Height = w.m.Dimensions().W, w.m.Dimensions().H
	for _, u := range w.roster.Units() {
		if !w.m.InBounds(u.Pos) {
			w.roster.Remove(u.ID)
		}
	}
	w.log.Info("map resized", "w", dims.W, "h", dims.H)
	return nil
}

// SetEntry moves the wave entry.
func (w *World) SetEntry(c tilemap.Coordinate) error { return w.m.SetWaveEntry(c) }

// SetExit moves the wave exit.
func (w *World) SetExit(c tilemap.Coordinate) error { return w.m.SetWaveExit(c) }

// Snapshot copies the current map under name.
func (w *World) Snapshot(name string) *tilemap.Snapshot { return w.m.Snapshot(name) }

// LoadSnapshot replaces the map with s.
func (w *World) LoadSnapshot(s *tilemap.Snapshot) error {
	m, err := tilemap.FromSnapshot(s)
	if err != nil {
		return fmt.Errorf("load level: %w", err)
	}
	w.cfg.Width, w.cfg.Height = s.Width, s.Height
	w.replaceMap(m)
	w.log.Info("level loaded", "name", s.Name, "w", s.Width, "h", s.Height)
	return nil
}

// SetDiffusionInterval changes the diffusion cadence.
func (w *World) SetDiffusionInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	w.cfg.Params.DiffusionMillis = int(d / time.Millisecond)
	w.diffuser.SetInterval(d)
}
