package sandbox

import (
	"log/slog"
	"sort"
	"time"

	"github.com/zyedidia/generic/mapset"

	"elemental-td/internal/chemistry"
	"elemental-td/internal/core"
	"elemental-td/internal/diffusion"
	"elemental-td/internal/effect"
	"elemental-td/internal/pathing"
	"elemental-td/internal/roster"
	"elemental-td/internal/tilemap"
)

// Frame summarises one Step for renderers and remote viewers.
type Frame struct {
	Tick uint64
	// Dirty lists tiles whose type or structure changed.
	Dirty []int
	// Afflicted lists tiles whose affliction changed.
	Afflicted []int
	Resized   bool

	Route        pathing.Route
	RouteChanged bool

	Diffused  bool
	Diffusion diffusion.Stats
	Bus       effect.Report
	Reactions []chemistry.Reaction
	Reaped    []int
	Leaked    []int

	Units []roster.Unit
	Gold  int
}

// Changed returns the union of Dirty and Afflicted, sorted.
func (f Frame) Changed() []int {
	seen := mapset.New[int]()
	for _, idx := range f.Dirty {
		seen.Put(idx)
	}
	for _, idx := range f.Afflicted {
		seen.Put(idx)
	}
	out := make([]int, 0, seen.Size())
	seen.Each(func(idx int) { out = append(out, idx) })
	sort.Ints(out)
	return out
}

// World owns one map together with the machinery that evolves it: the
// effect bus, reaction engine, diffusion cadence, route planner and unit
// roster. All methods must be called from the goroutine that calls Step.
type World struct {
	cfg Config
	log *slog.Logger

	m        *tilemap.Map
	bus      *effect.Bus
	engine   *chemistry.Engine
	diffuser *diffusion.Scheduler
	planner  *pathing.Planner
	roster   *roster.Roster

	route   pathing.Route
	display *core.ByteGrid
	repaint mapset.Set[int]

	tick   uint64
	passes int
	rng    *core.RNG

	listeners []func(Frame)
	last      Frame
}

// New returns a sandbox with the provided dimensions using defaults.
func New(w, h int) *World {
	cfg := DefaultConfig()
	cfg.Width = w
	cfg.Height = h
	return NewWithConfig(cfg)
}

// NewWithConfig returns a sandbox configured from the provided options. The
// map is empty until Reset or LoadSnapshot.
func NewWithConfig(cfg Config) *World {
	w := &World{
		cfg:      cfg,
		log:      slog.Default(),
		m:        tilemap.Empty(),
		bus:      effect.NewBus(),
		engine:   chemistry.NewEngine(),
		diffuser: diffusion.NewScheduler(time.Duration(cfg.Params.DiffusionMillis) * time.Millisecond),
		planner:  pathing.NewPlanner(pathing.DefaultCosts()),
		roster:   roster.New(cfg.Params.StartingGold),
		display:  core.NewByteGrid(0, 0),
		repaint:  mapset.New[int](),
		rng:      core.NewRNG(cfg.Seed),
	}
	w.bus.Route(effect.HandleTile, effect.ReceiverFunc(func(h effect.Handle, p effect.Payload) bool {
		return w.m.ReceiveEffect(h, p)
	}))
	w.bus.Route(effect.HandleUnit, w.roster)
	w.bus.Route(effect.HandleTreasury, w.roster)
	return w
}

// WithLogger replaces the structured logger and returns w.
func (w *World) WithLogger(l *slog.Logger) *World {
	if l != nil {
		w.log = l
	}
	return w
}

// Name returns the simulation identifier.
func (w *World) Name() string { return "sandbox" }

// Size reports the grid dimensions.
func (w *World) Size() core.Size {
	d := w.m.Dimensions()
	return core.Size{W: d.W, H: d.H}
}

// Cells exposes the palette-encoded display buffer.
func (w *World) Cells() []uint8 { return w.display.Cells() }

// Config returns the active configuration.
func (w *World) Config() Config { return w.cfg }

// Map exposes the tile map for read access.
func (w *World) Map() *tilemap.Map { return w.m }

// Roster exposes the unit roster for read access.
func (w *World) Roster() *roster.Roster { return w.roster }

// Bus exposes the effect bus so gameplay code can emit effects.
func (w *World) Bus() *effect.Bus { return w.bus }

// Route returns the wave route computed at the end of the last Step.
func (w *World) Route() pathing.Route { return w.route }

// LastFrame returns the frame published by the last Step.
func (w *World) LastFrame() Frame { return w.last }

// Tick returns the number of completed steps.
func (w *World) Tick() uint64 { return w.tick }

// OnFrame registers fn to receive every published frame. Listeners run on
// the simulation goroutine.
func (w *World) OnFrame(fn func(Frame)) {
	if fn != nil {
		w.listeners = append(w.listeners, fn)
	}
}

// Buildable reports whether a tower may be placed on c: only barren tiles
// without a structure qualify.
func (w *World) Buildable(c tilemap.Coordinate) bool {
	tt, err := w.m.TileTypeAt(c)
	if err != nil || tt != tilemap.TileBarren {
		return false
	}
	s, err := w.m.StructureAt(c)
	return err == nil && s == tilemap.StructureNone
}

// Step advances the world by one tick.
func (w *World) Step() {
	frame := Frame{}

	if !w.m.IsEmpty() {
		tps := w.cfg.Params.TPS
		if tps <= 0 {
			tps = 60
		}
		if w.diffuser.Advance(time.Second / time.Duration(tps)) {
			frame.Diffused = true
			frame.Diffusion = w.diffuser.Emit(w.m, w.bus)
			w.hazards()
			frame.Leaked = w.advanceUnits()
			w.passes++
			w.maybeSpawn()
		}
	}

	frame.Bus = w.bus.Resolve()

	frame.Afflicted = w.m.TakeAfflicted()
	frame.Reactions = w.engine.Run(w.m, frame.Afflicted)
	if len(frame.Reactions) > 0 {
		w.log.Debug("reactions fired", "tick", w.tick, "count", len(frame.Reactions))
	}

	frame.Reaped = w.reap()

	if w.planner.Stale(w.m) {
		next := w.planner.Plan(w.m)
		w.markRoute(w.route)
		w.markRoute(next)
		w.route = next
		frame.RouteChanged = true
		if !next.Found && !w.m.IsEmpty() {
			w.log.Info("route sealed", "entry", w.m.WaveEntry(), "exit", w.m.WaveExit())
		}
	}
	frame.Route = w.route

	frame.Resized = w.m.SizeDirty()
	frame.Dirty = w.m.DirtyTiles()
	w.rebuildDisplay(frame.Resized, frame.Dirty, frame.Afflicted)
	w.m.ClearDirty()
	w.m.ClearSizeDirty()

	w.tick++
	frame.Tick = w.tick
	frame.Units = w.roster.Units()
	frame.Gold = w.roster.Treasury().Gold()
	w.last = frame
	for _, fn := range w.listeners {
		fn(frame)
	}
}

// hazards harms every unit standing on a burning tile.
func (w *World) hazards() {
	dmg := w.cfg.Params.BurnDamage
	if dmg <= 0 {
		return
	}
	for _, u := range w.roster.Units() {
		tt, err := w.m.TileTypeAt(u.Pos)
		if err != nil {
			continue
		}
		if tt == tilemap.TileFire {
			w.bus.Emit(effect.New(effect.Unit(u.ID), effect.Harm(dmg)))
		}
	}
}

// advanceUnits moves each unit one step toward the exit. Units on the
// current route follow it; units the route no longer passes through follow a
// fresh search from where they stand. Units reaching the exit leave the map
// and cost gold. While entry and exit coincide units hold their ground.
func (w *World) advanceUnits() []int {
	if w.route.Found && len(w.route.Steps) < 2 {
		return nil
	}
	position := make(map[tilemap.Coordinate]int, len(w.route.Steps))
	if w.route.Found {
		for i, c := range w.route.Steps {
			position[c] = i
		}
	}
	var leaked []int
	for _, u := range w.roster.Units() {
		steps := w.route.Steps
		at, ok := position[u.Pos]
		if !ok {
			detour := pathing.Search(w.m, w.planner.Costs(), u.Pos, w.m.WaveExit())
			if !detour.Found {
				continue
			}
			steps, at = detour.Steps, 0
		}
		w.markCoord(u.Pos)
		if at+1 >= len(steps)-1 {
			w.roster.Remove(u.ID)
			leaked = append(leaked, u.ID)
			if w.cfg.Params.LeakPenalty > 0 {
				w.bus.Emit(effect.New(effect.Treasury(), effect.ChangeGold(-w.cfg.Params.LeakPenalty)))
			}
			continue
		}
		next := steps[at+1]
		if err := w.roster.Move(u.ID, next); err == nil {
			w.markCoord(next)
		}
	}
	return leaked
}

func (w *World) maybeSpawn() {
	every := w.cfg.Params.SpawnInterval
	if every <= 0 || w.passes%every != 0 || !w.route.Found {
		return
	}
	w.SpawnUnit()
}

// SpawnUnit places a fresh unit on the wave entry and returns its ID.
func (w *World) SpawnUnit() int {
	entry := w.m.WaveEntry()
	id := w.roster.Spawn(entry, w.cfg.Params.UnitHealth)
	w.markCoord(entry)
	return id
}

func (w *World) reap() []int {
	units := w.roster.Units()
	dead := w.roster.Reap()
	if len(dead) == 0 {
		return nil
	}
	gone := mapset.New[int]()
	for _, id := range dead {
		gone.Put(id)
	}
	for _, u := range units {
		if gone.Has(u.ID) {
			w.markCoord(u.Pos)
		}
	}
	if w.cfg.Params.Bounty > 0 {
		w.bus.Emit(effect.New(effect.Treasury(), effect.ChangeGold(w.cfg.Params.Bounty*len(dead))))
	}
	w.log.Debug("units reaped", "tick", w.tick, "ids", dead)
	return dead
}

func (w *World) markCoord(c tilemap.Coordinate) {
	if idx, err := w.m.CoordToIdx(c); err == nil {
		w.repaint.Put(idx)
	}
}

func (w *World) markRoute(r pathing.Route) {
	for _, c := range r.Steps {
		w.markCoord(c)
	}
}
