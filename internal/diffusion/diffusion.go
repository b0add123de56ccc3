package diffusion

import (
	"time"

	"elemental-td/internal/effect"
	"elemental-td/internal/element"
	"elemental-td/internal/tilemap"
)

// DefaultInterval is the simulated time between diffusion passes.
const DefaultInterval = 100 * time.Millisecond

// Stats summarises one diffusion pass.
type Stats struct {
	Sources int
	Effects int
	Spent   uint32
}

// Scheduler spreads fire from burning tiles to their surroundings on a fixed
// cadence of simulated time.
type Scheduler struct {
	interval time.Duration
	elapsed  time.Duration
}

// NewScheduler returns a scheduler firing every interval. Non-positive
// intervals fall back to DefaultInterval.
func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{interval: interval}
}

// Interval returns the cadence.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// SetInterval changes the cadence without resetting accumulated time.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Advance accumulates dt and reports whether a pass is due. At most one pass
// is reported per call; surplus time carries over.
func (s *Scheduler) Advance(dt time.Duration) bool {
	if dt > 0 {
		s.elapsed += dt
	}
	if s.elapsed < s.interval {
		return false
	}
	s.elapsed -= s.interval
	if s.elapsed > s.interval {
		// Cap the backlog at one pending pass.
		s.elapsed = s.interval
	}
	return true
}

// Reset clears accumulated time.
func (s *Scheduler) Reset() { s.elapsed = 0 }

// Emit queues the spread of every Fire tile into sink. A tile with fuel f
// sends one unit of fire to each of its first min(f, k) Moore neighbours and
// removes the same total from itself. The map is not mutated here; the
// effects land when the bus resolves.
func (s *Scheduler) Emit(m *tilemap.Map, sink effect.Sink) Stats {
	var stats Stats
	if m.IsEmpty() {
		return stats
	}
	one := element.Single(element.Fire, 1)
	for idx := 0; idx < m.TileCount(); idx++ {
		tt, err := m.TileTypeAtIndex(idx)
		if err != nil || tt != tilemap.TileFire {
			continue
		}
		stats.Sources++
		a, err := m.AfflictionAtIndex(idx)
		if err != nil {
			continue
		}
		fuel := a.Amount(element.Fire)
		if fuel == 0 {
			continue
		}
		c, err := m.IdxToCoord(idx)
		if err != nil {
			continue
		}
		neighbours, err := m.MooreNeighbors(c)
		if err != nil {
			continue
		}
		if uint32(len(neighbours)) > fuel {
			neighbours = neighbours[:fuel]
		}
		src := effect.Tile(idx)
		for _, n := range neighbours {
			sink.Emit(effect.From(src, effect.Tile(n), effect.ApplyElement(one)))
			stats.Effects++
		}
		spent := uint32(len(neighbours))
		if spent == 0 {
			continue
		}
		sink.Emit(effect.From(src, src, effect.RemoveElement(element.Single(element.Fire, spent))))
		stats.Effects++
		stats.Spent += spent
	}
	return stats
}
