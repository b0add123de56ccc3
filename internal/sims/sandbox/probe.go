package sandbox

import (
	"context"
	"io"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"elemental-td/internal/element"
	"elemental-td/internal/tilemap"
)

// ProbeResult captures telemetry from a deterministic ignition run used for
// tuning fuel and cadence.
type ProbeResult struct {
	Fuel uint32
	// MaxDistance is the farthest Euclidean distance, in tiles, from the
	// origin of any tile that caught fire.
	MaxDistance float64
	// Ignited counts distinct tiles that burned, the origin included.
	Ignited         int
	PeakBurning     int
	LastBurningStep int
	StepsSimulated  int
	// FuelRemaining is the total fire charge left on the map.
	FuelRemaining uint64
}

// probeInactiveLimit stops a probe once no tile has burned for this many
// steps.
const probeInactiveLimit = 32

// BurnProbe fills a cfg-sized map with rock, lights the centre tile with
// cfg.Params.SeamFuel and runs the world for up to steps ticks.
func BurnProbe(cfg Config, steps int) ProbeResult {
	fuel := uint32(max(cfg.Params.SeamFuel, 0))
	result := ProbeResult{Fuel: fuel}
	if steps <= 0 || cfg.Width <= 0 || cfg.Height <= 0 {
		return result
	}

	cfg.Params.SpawnInterval = 0
	w := NewWithConfig(cfg).WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	m := tilemap.New(tilemap.Dimensions{W: cfg.Width, H: cfg.Height})
	m.Fill(tilemap.TileRock)
	origin := tilemap.Coord(cfg.Width/2, cfg.Height/2)
	_ = m.SetTile(origin, tilemap.PatchType(tilemap.TileFire))
	originIdx, _ := m.CoordToIdx(origin)
	_ = m.SetAffliction(originIdx, element.Single(element.Fire, fuel))
	w.replaceMap(m)

	ignited := make([]bool, m.TileCount())
	measure := func(step int) int {
		burning := 0
		for idx := 0; idx < w.m.TileCount(); idx++ {
			tt, _ := w.m.TileTypeAtIndex(idx)
			if tt != tilemap.TileFire {
				continue
			}
			burning++
			if ignited[idx] {
				continue
			}
			ignited[idx] = true
			result.Ignited++
			c, _ := w.m.IdxToCoord(idx)
			dist := math.Hypot(float64(c.X-origin.X), float64(c.Y-origin.Y))
			if dist > result.MaxDistance {
				result.MaxDistance = dist
			}
		}
		if burning > result.PeakBurning {
			result.PeakBurning = burning
		}
		if burning > 0 {
			result.LastBurningStep = step
		}
		return burning
	}

	inactive := 0
	measure(0)
	for step := 1; step <= steps; step++ {
		w.Step()
		result.StepsSimulated = step
		if measure(step) > 0 {
			inactive = 0
			continue
		}
		inactive++
		if inactive >= probeInactiveLimit {
			break
		}
	}

	for idx := 0; idx < w.m.TileCount(); idx++ {
		a, _ := w.m.AfflictionAtIndex(idx)
		result.FuelRemaining += uint64(a.Amount(element.Fire))
	}
	return result
}

// BurnSweep runs BurnProbe once per fuel level with at most workers probes in
// flight. Results keep the order of fuels.
func BurnSweep(ctx context.Context, cfg Config, fuels []uint32, steps, workers int) ([]ProbeResult, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]ProbeResult, len(fuels))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, fuel := range fuels {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			probe := cfg
			probe.Params.SeamFuel = int(fuel)
			results[i] = BurnProbe(probe, steps)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// IgnitionThreshold returns the smallest probed fuel that set at least one
// other tile alight, or false when none did.
func IgnitionThreshold(results []ProbeResult) (uint32, bool) {
	best := uint32(0)
	found := false
	for _, r := range results {
		if r.Ignited > 1 && (!found || r.Fuel < best) {
			best = r.Fuel
			found = true
		}
	}
	return best, found
}
