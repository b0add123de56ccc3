package pathing

import (
	"github.com/zyedidia/generic/heap"

	"elemental-td/internal/tilemap"
)

// CostTable prices entering a tile. The cost of a step is the type cost plus
// the structure surcharge. A step whose cost reaches Impassable is never
// taken; a zero Impassable disables the cut-off.
type CostTable struct {
	Types      map[tilemap.TileType]int
	Structures map[tilemap.Structure]int
	Impassable int
	// Unknown is charged for tile types missing from Types.
	Unknown int
}

// DefaultCosts returns the stock cost table.
func DefaultCosts() CostTable {
	return CostTable{
		Types: map[tilemap.TileType]int{
			tilemap.TileBarren: 1,
			tilemap.TileRock:   5,
			tilemap.TileWater:  100,
			tilemap.TileFire:   100,
			tilemap.TileVoid:   9999,
		},
		Structures: map[tilemap.Structure]int{
			tilemap.StructureBarricade: 50,
		},
		Impassable: 9999,
		Unknown:    5,
	}
}

// StepCost returns the cost of entering a tile and whether it may be entered.
func (t CostTable) StepCost(tt tilemap.TileType, s tilemap.Structure) (int, bool) {
	cost, ok := t.Types[tt]
	if !ok {
		cost = t.Unknown
	}
	cost += t.Structures[s]
	if cost < 1 {
		cost = 1
	}
	if t.Impassable > 0 && cost >= t.Impassable {
		return cost, false
	}
	return cost, true
}

// Route is the result of one search. Steps runs from entry to exit
// inclusive. Found is false when the exit cannot be reached.
type Route struct {
	Steps []tilemap.Coordinate
	Cost  int
	Found bool
}

// Len returns the number of moves along the route.
func (r Route) Len() int {
	if len(r.Steps) == 0 {
		return 0
	}
	return len(r.Steps) - 1
}

// Contains reports whether c lies on the route.
func (r Route) Contains(c tilemap.Coordinate) bool {
	for _, s := range r.Steps {
		if s == c {
			return true
		}
	}
	return false
}

type node struct {
	idx int
	g   int
	h   int
	seq int
}

func (n node) f() int { return n.g + n.h }

func lessNode(a, b node) bool {
	if a.f() != b.f() {
		return a.f() < b.f()
	}
	if a.h != b.h {
		return a.h < b.h
	}
	return a.seq < b.seq
}

// Search runs A* from start to goal over cardinal moves. The heuristic is
// the Manhattan distance, admissible because every step costs at least one.
func Search(m *tilemap.Map, costs CostTable, start, goal tilemap.Coordinate) Route {
	if m.IsEmpty() {
		return Route{}
	}
	startIdx, err := m.CoordToIdx(start)
	if err != nil {
		return Route{}
	}
	goalIdx, err := m.CoordToIdx(goal)
	if err != nil {
		return Route{}
	}
	if startIdx == goalIdx {
		return Route{Steps: []tilemap.Coordinate{start}, Found: true}
	}

	total := m.TileCount()
	best := make([]int, total)
	parent := make([]int, total)
	closed := make([]bool, total)
	for i := range best {
		best[i] = -1
		parent[i] = -1
	}

	open := heap.New[node](lessNode)
	seq := 0
	best[startIdx] = 0
	open.Push(node{idx: startIdx, h: start.Manhattan(goal)})

	for open.Size() > 0 {
		cur, _ := open.Pop()
		if closed[cur.idx] || cur.g != best[cur.idx] {
			continue
		}
		if cur.idx == goalIdx {
			return Route{Steps: walkBack(m, parent, goalIdx), Cost: cur.g, Found: true}
		}
		closed[cur.idx] = true

		c, _ := m.IdxToCoord(cur.idx)
		neighbours, _ := m.CardinalNeighbors(c)
		for _, n := range neighbours {
			if closed[n] {
				continue
			}
			tt, _ := m.TileTypeAtIndex(n)
			s, _ := m.StructureAtIndex(n)
			step, ok := costs.StepCost(tt, s)
			if !ok {
				continue
			}
			g := cur.g + step
			if best[n] >= 0 && g >= best[n] {
				continue
			}
			best[n] = g
			parent[n] = cur.idx
			nc, _ := m.IdxToCoord(n)
			seq++
			open.Push(node{idx: n, g: g, h: nc.Manhattan(goal), seq: seq})
		}
	}
	return Route{}
}

func walkBack(m *tilemap.Map, parent []int, goal int) []tilemap.Coordinate {
	var rev []tilemap.Coordinate
	for idx := goal; idx >= 0; idx = parent[idx] {
		c, _ := m.IdxToCoord(idx)
		rev = append(rev, c)
	}
	steps := make([]tilemap.Coordinate, len(rev))
	for i, c := range rev {
		steps[len(rev)-1-i] = c
	}
	return steps
}

// Planner plans the wave route of a map and caches the result until the map
// revision changes.
type Planner struct {
	costs    CostTable
	last     *tilemap.Map
	route    Route
	revision uint64
	valid    bool
	searches int
}

// NewPlanner returns a planner using costs.
func NewPlanner(costs CostTable) *Planner {
	return &Planner{costs: costs}
}

// Costs returns the active cost table.
func (p *Planner) Costs() CostTable { return p.costs }

// SetCosts replaces the cost table and invalidates the cache.
func (p *Planner) SetCosts(costs CostTable) {
	p.costs = costs
	p.valid = false
}

// Invalidate forces the next Plan to search.
func (p *Planner) Invalidate() { p.valid = false }

// Plan returns the route from the map's wave entry to its wave exit.
func (p *Planner) Plan(m *tilemap.Map) Route {
	if !p.Stale(m) {
		return p.route
	}
	p.route = Search(m, p.costs, m.WaveEntry(), m.WaveExit())
	p.last = m
	p.revision = m.Revision()
	p.valid = true
	p.searches++
	return p.route
}

// Stale reports whether the next Plan call on m will search.
func (p *Planner) Stale(m *tilemap.Map) bool {
	return !p.valid || p.last != m || p.revision != m.Revision()
}

// Searches counts the searches run so far.
func (p *Planner) Searches() int { return p.searches }
