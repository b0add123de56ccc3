package sandbox

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elemental-td/internal/core"
	"elemental-td/internal/element"
	"elemental-td/internal/tilemap"
)

// blankConfig produces an all-barren level where every Step is a diffusion
// pass.
func blankConfig(w, h int) Config {
	cfg := DefaultConfig()
	cfg.Width = w
	cfg.Height = h
	cfg.Params.RockChance = 0
	cfg.Params.WaterPools = 0
	cfg.Params.SeamLength = 0
	cfg.Params.SpawnInterval = 0
	cfg.Params.TPS = 10
	cfg.Params.DiffusionMillis = 100
	return cfg
}

func newWorld(t *testing.T, cfg Config) *World {
	t.Helper()
	w := NewWithConfig(cfg).WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.Reset(0)
	return w
}

func tileAt(t *testing.T, w *World, c tilemap.Coordinate) tilemap.TileType {
	t.Helper()
	tt, err := w.Map().TileTypeAt(c)
	require.NoError(t, err)
	return tt
}

func TestResetIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	a := NewWithConfig(cfg)
	b := NewWithConfig(cfg)
	a.Reset(5)
	b.Reset(5)

	assert.Equal(t, a.Snapshot("x"), b.Snapshot("x"))
}

func TestResetLayout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Params.WaterPools = 0
	w := newWorld(t, cfg)
	m := w.Map()

	assert.Equal(t, tilemap.Coord(0, cfg.Height/2), m.WaveEntry())
	assert.Equal(t, tilemap.Coord(cfg.Width-1, cfg.Height/2), m.WaveExit())
	assert.Equal(t, tilemap.TileBarren, tileAt(t, w, m.WaveEntry()))
	assert.Equal(t, tilemap.TileBarren, tileAt(t, w, m.WaveExit()))

	fire := 0
	for idx := 0; idx < m.TileCount(); idx++ {
		tt, err := m.TileTypeAtIndex(idx)
		require.NoError(t, err)
		if tt != tilemap.TileFire {
			continue
		}
		fire++
		a, err := m.AfflictionAtIndex(idx)
		require.NoError(t, err)
		assert.Equal(t, uint32(cfg.Params.SeamFuel), a.Amount(element.Fire))
	}
	assert.Equal(t, cfg.Params.SeamLength, fire)
}

func TestStepPublishesFrames(t *testing.T) {
	w := newWorld(t, blankConfig(6, 4))
	var frames []Frame
	w.OnFrame(func(f Frame) { frames = append(frames, f) })

	w.Step()
	w.Step()

	require.Len(t, frames, 2)
	assert.True(t, frames[0].Resized)
	assert.True(t, frames[0].RouteChanged)
	assert.True(t, frames[0].Route.Found)
	assert.False(t, frames[1].Resized)
	assert.False(t, frames[1].RouteChanged)
	assert.Equal(t, uint64(2), frames[1].Tick)
	assert.Len(t, w.Cells(), 24)
	assert.Empty(t, w.Map().DirtyTiles(), "dirty tiles are cleared once per step")
	assert.False(t, w.Map().SizeDirty())
}

func TestAppliedElementLandsNextStep(t *testing.T) {
	cfg := blankConfig(5, 5)
	cfg.Params.DiffusionMillis = 100000
	w := newWorld(t, cfg)
	c := tilemap.Coord(2, 2)
	require.NoError(t, w.Paint(c, tilemap.PatchType(tilemap.TileRock)))
	w.Step()

	require.NoError(t, w.ApplyElement(c, element.Single(element.Fire, 60)))
	assert.Equal(t, tilemap.TileRock, tileAt(t, w, c), "effects wait for resolution")

	w.Step()

	assert.Equal(t, tilemap.TileFire, tileAt(t, w, c))
	frame := w.LastFrame()
	require.Len(t, frame.Reactions, 1)
	assert.Equal(t, "ignite", frame.Reactions[0].Rule)
	assert.Contains(t, frame.Changed(), 12)

	require.NoError(t, w.ApplyElement(c, element.Single(element.Water, 20)))
	w.Step()
	assert.Equal(t, tilemap.TileRock, tileAt(t, w, c), "quenched")

	assert.ErrorIs(t, w.ApplyElement(tilemap.Coord(9, 9), element.Single(element.Fire, 1)), tilemap.ErrOutOfBounds)
}

func TestPaintedFireWithoutFuelCools(t *testing.T) {
	w := newWorld(t, blankConfig(3, 3))
	c := tilemap.Coord(1, 1)
	require.NoError(t, w.Paint(c, tilemap.PatchType(tilemap.TileFire)))
	require.NoError(t, w.Map().SetAffliction(4, element.Single(element.Fire, 0)))

	w.Step()

	assert.Equal(t, tilemap.TileRock, tileAt(t, w, c))
}

func TestUnitsBurnAndAreReaped(t *testing.T) {
	cfg := blankConfig(8, 5)
	cfg.Params.UnitHealth = 5
	cfg.Params.BurnDamage = 2
	cfg.Params.Bounty = 7
	w := newWorld(t, cfg)

	c := tilemap.Coord(3, 2)
	require.NoError(t, w.Paint(c, tilemap.PatchType(tilemap.TileFire)))
	idx, err := w.Map().CoordToIdx(c)
	require.NoError(t, err)
	require.NoError(t, w.Map().SetAffliction(idx, element.Single(element.Fire, 1000)))
	require.NoError(t, w.SetEntry(c))
	require.NoError(t, w.SetExit(c))
	id := w.SpawnUnit()

	w.Step()
	u, ok := w.Roster().Unit(id)
	require.True(t, ok)
	assert.Equal(t, 3, u.Health.Current)

	w.Step()
	w.Step()
	assert.Equal(t, []int{id}, w.LastFrame().Reaped)
	assert.Zero(t, w.Roster().Len())

	w.Step()
	assert.Equal(t, cfg.Params.StartingGold+7, w.Roster().Treasury().Gold(), "bounty lands on the following step")
}

func TestUnitsWalkTheRouteAndLeak(t *testing.T) {
	w := newWorld(t, blankConfig(5, 1))
	w.Step()
	require.True(t, w.Route().Found)
	id := w.SpawnUnit()

	for want := 1; want <= 3; want++ {
		w.Step()
		u, ok := w.Roster().Unit(id)
		require.True(t, ok)
		assert.Equal(t, tilemap.Coord(want, 0), u.Pos)
	}

	w.Step()
	assert.Equal(t, []int{id}, w.LastFrame().Leaked)
	assert.Equal(t, 90, w.LastFrame().Gold)
}

func TestUnitsRejoinAfterTheRouteMoves(t *testing.T) {
	cfg := blankConfig(5, 3)
	cfg.Params.LeakPenalty = 10
	w := newWorld(t, cfg)
	w.Step()
	require.True(t, w.Route().Found)
	id := w.SpawnUnit()
	w.Step()

	void := tilemap.Coord(2, 1)
	require.NoError(t, w.Paint(void, tilemap.PatchType(tilemap.TileVoid)))
	w.Step()
	u, ok := w.Roster().Unit(id)
	require.True(t, ok)
	require.Equal(t, void, u.Pos, "the move precedes the re-plan")
	require.True(t, w.Route().Found)
	require.False(t, w.Route().Contains(void))

	w.Step()
	u, ok = w.Roster().Unit(id)
	require.True(t, ok)
	assert.Equal(t, tilemap.Coord(3, 1), u.Pos)

	w.Step()
	assert.Equal(t, []int{id}, w.LastFrame().Leaked)
	assert.Equal(t, cfg.Params.StartingGold-10, w.LastFrame().Gold)
}

func TestStrandedUnitsHold(t *testing.T) {
	w := newWorld(t, blankConfig(5, 3))
	w.Step()
	id := w.SpawnUnit()
	for y := 0; y < 3; y++ {
		require.NoError(t, w.Paint(tilemap.Coord(2, y), tilemap.PatchType(tilemap.TileVoid)))
	}
	for i := 0; i < 5; i++ {
		w.Step()
	}
	require.False(t, w.Route().Found)
	u, ok := w.Roster().Unit(id)
	require.True(t, ok)
	assert.Equal(t, tilemap.Coord(1, 1), u.Pos, "one step on the stale route, then nothing")
	assert.Empty(t, w.LastFrame().Leaked)
}

func TestSpawnInterval(t *testing.T) {
	cfg := blankConfig(10, 1)
	cfg.Params.SpawnInterval = 2
	w := newWorld(t, cfg)

	w.Step()
	assert.Zero(t, w.Roster().Len(), "first spawn comes on the second pass")
	w.Step()
	assert.Equal(t, 1, w.Roster().Len())
}

func TestDisplayEncodesRouteUnitsAndStructures(t *testing.T) {
	w := newWorld(t, blankConfig(4, 3))
	w.Step()

	entry := w.Map().WaveEntry()
	entryIdx, err := w.Map().CoordToIdx(entry)
	require.NoError(t, err)
	_, _, route, _, unit := DecodeCell(w.Cells()[entryIdx])
	assert.True(t, route)
	assert.False(t, unit)

	w.SpawnUnit()
	require.NoError(t, w.Paint(tilemap.Coord(1, 0), tilemap.PatchStructure(tilemap.StructureBarricade)))
	w.Step()

	tt, barricade, _, _, _ := DecodeCell(w.Cells()[1])
	assert.Equal(t, tilemap.TileBarren, tt)
	assert.True(t, barricade)

	units := w.Roster().Units()
	require.Len(t, units, 1)
	at, err := w.Map().CoordToIdx(units[0].Pos)
	require.NoError(t, err)
	_, _, _, _, unit = DecodeCell(w.Cells()[at])
	assert.True(t, unit)

	assert.Len(t, w.Palette(), paletteSize)
}

func TestResizeRebuildsDisplay(t *testing.T) {
	w := newWorld(t, blankConfig(4, 4))
	w.Step()

	require.NoError(t, w.Resize(tilemap.Dimensions{W: 6, H: 2}))
	w.Step()

	assert.True(t, w.LastFrame().Resized)
	assert.Equal(t, core.Size{W: 6, H: 2}, w.Size())
	assert.Len(t, w.Cells(), 12)
	assert.Error(t, w.Resize(tilemap.Dimensions{W: -1, H: 1}))
}

func TestSnapshotLoad(t *testing.T) {
	src := newWorld(t, DefaultConfig())
	snap := src.Snapshot("level")

	dst := newWorld(t, blankConfig(3, 3))
	dst.SpawnUnit()
	require.NoError(t, dst.LoadSnapshot(snap))

	assert.Equal(t, snap, dst.Snapshot("level"))
	assert.Zero(t, dst.Roster().Len())
	dst.Step()
	assert.True(t, dst.LastFrame().Resized)
	assert.Equal(t, uint64(1), dst.Tick())

	assert.Error(t, dst.LoadSnapshot(&tilemap.Snapshot{Width: 2, Height: 2}))
}

func TestBuildable(t *testing.T) {
	w := newWorld(t, blankConfig(3, 3))
	require.NoError(t, w.Paint(tilemap.Coord(1, 0), tilemap.PatchType(tilemap.TileRock)))
	require.NoError(t, w.Paint(tilemap.Coord(2, 0), tilemap.PatchStructure(tilemap.StructureBarricade)))

	assert.True(t, w.Buildable(tilemap.Coord(0, 0)))
	assert.False(t, w.Buildable(tilemap.Coord(1, 0)))
	assert.False(t, w.Buildable(tilemap.Coord(2, 0)))
	assert.False(t, w.Buildable(tilemap.Coord(5, 5)))
}

func TestParameterSetters(t *testing.T) {
	w := newWorld(t, blankConfig(3, 3))

	require.True(t, w.SetIntParameter("diffusion_ms", 50))
	p, ok := w.Parameters().Lookup("diffusion_ms")
	require.True(t, ok)
	assert.Equal(t, "50", p.Value)

	assert.False(t, w.SetIntParameter("diffusion_ms", 0))
	assert.False(t, w.SetIntParameter("nope", 1))
	assert.False(t, w.SetFloatParameter("rock_chance", 2))
	require.True(t, w.SetFloatParameter("rock_chance", 0.25))
	p, _ = w.Parameters().Lookup("rock_chance")
	assert.Equal(t, strconv.FormatFloat(0.25, 'f', -1, 64), p.Value)

	for _, ctrl := range w.ParameterControls() {
		_, ok := w.Parameters().Lookup(ctrl.Key)
		assert.True(t, ok, "control %s has a value", ctrl.Key)
	}
}

func TestFromMap(t *testing.T) {
	cfg := FromMap(map[string]string{"w": "12", "h": "-3", "seed": "9", "burn_damage": "4", "tps": "0", "rock_chance": "0.5"})
	assert.Equal(t, 12, cfg.Width)
	assert.Equal(t, DefaultConfig().Height, cfg.Height)
	assert.Equal(t, int64(9), cfg.Seed)
	assert.Equal(t, 4, cfg.Params.BurnDamage)
	assert.Equal(t, DefaultConfig().Params.TPS, cfg.Params.TPS)
	assert.Equal(t, 0.5, cfg.Params.RockChance)
}

func TestRegistered(t *testing.T) {
	f, ok := core.Lookup("sandbox")
	require.True(t, ok)
	sim := f(map[string]string{"w": "10", "h": "6"})
	sim.Reset(3)
	assert.Equal(t, core.Size{W: 10, H: 6}, sim.Size())
	sim.Step()
	assert.Len(t, sim.Cells(), 60)
}

func TestBurnProbeWithoutIgnition(t *testing.T) {
	cfg := blankConfig(9, 9)
	cfg.Params.SeamFuel = 100

	r := BurnProbe(cfg, 200)

	assert.Equal(t, 1, r.Ignited)
	assert.Zero(t, r.MaxDistance)
	assert.Equal(t, 12, r.LastBurningStep)
	assert.Equal(t, uint64(100), r.FuelRemaining, "diffusion conserves fire")
}

func TestBurnSweepFindsIgnition(t *testing.T) {
	cfg := blankConfig(9, 9)

	results, err := BurnSweep(context.Background(), cfg, []uint32{100, 800}, 120, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, uint32(100), results[0].Fuel)
	assert.Equal(t, 1, results[0].Ignited)
	assert.Greater(t, results[1].Ignited, 1)
	assert.GreaterOrEqual(t, results[1].MaxDistance, 1.0)
	assert.Equal(t, uint64(800), results[1].FuelRemaining)

	threshold, ok := IgnitionThreshold(results)
	require.True(t, ok)
	assert.Equal(t, uint32(800), threshold)
}

func TestBurnSweepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := BurnSweep(ctx, blankConfig(4, 4), []uint32{10, 20}, 10, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAfflictionField(t *testing.T) {
	w := newWorld(t, blankConfig(3, 1))
	require.NoError(t, w.Map().SetAffliction(0, element.Single(element.Water, 50)))
	require.NoError(t, w.Map().SetAffliction(2, element.Single(element.Water, 400)))

	field := w.AfflictionField(element.Water)
	assert.Equal(t, []float32{0.5, 0, 1}, field)
	assert.Equal(t, []float32{0, 0, 0}, w.AfflictionField(element.Fire))
}
