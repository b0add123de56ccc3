package chemistry

import (
	"elemental-td/internal/element"
	"elemental-td/internal/tilemap"
)

// MatchMode selects how a rule's prerequisite is compared to a tile's
// affliction.
type MatchMode uint8

const (
	// MatchContains fires when the tile holds at least the prerequisite.
	MatchContains MatchMode = iota
	// MatchExact fires when every prerequisite element equals the tile's
	// amount. Elements the prerequisite does not name are ignored.
	MatchExact
)

func (m MatchMode) String() string {
	if m == MatchExact {
		return "exact"
	}
	return "contains"
}

// Rule transforms a tile of one type once its affliction satisfies the
// prerequisite.
type Rule struct {
	Name         string
	TileType     tilemap.TileType
	Prerequisite element.Affliction
	Mode         MatchMode
	// Consume subtracts the prerequisite from the tile when the rule fires.
	Consume bool
	// Result is the new tile type; only applied when ChangesType is set.
	Result      tilemap.TileType
	ChangesType bool
}

// Matches reports whether the rule applies to a tile with the given state.
func (r Rule) Matches(t tilemap.TileType, a element.Affliction) bool {
	if t != r.TileType {
		return false
	}
	if r.Mode == MatchExact {
		return a.ContainsExactly(r.Prerequisite)
	}
	return a.Contains(r.Prerequisite)
}

// DefaultRules returns the stock rule table. Order matters: the first
// matching rule wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:         "quench",
			TileType:     tilemap.TileFire,
			Prerequisite: element.Single(element.Water, 20),
			Mode:         MatchContains,
			Consume:      true,
			Result:       tilemap.TileRock,
			ChangesType:  true,
		},
		{
			Name:         "ignite",
			TileType:     tilemap.TileRock,
			Prerequisite: element.Single(element.Fire, 50),
			Mode:         MatchContains,
			Result:       tilemap.TileFire,
			ChangesType:  true,
		},
		{
			Name:         "cool",
			TileType:     tilemap.TileFire,
			Prerequisite: element.Single(element.Fire, 0),
			Mode:         MatchExact,
			Result:       tilemap.TileRock,
			ChangesType:  true,
		},
	}
}

// Reaction records a rule that fired on a tile.
type Reaction struct {
	Index int
	Rule  string
	From  tilemap.TileType
	To    tilemap.TileType
}

// Engine evaluates an ordered rule table against tiles.
type Engine struct {
	rules []Rule
}

// NewEngine returns an engine over a copy of rules. With no rules the
// default table is used.
func NewEngine(rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	own := make([]Rule, len(rules))
	copy(own, rules)
	return &Engine{rules: own}
}

// Rules returns a copy of the rule table in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate applies the first matching rule to the tile at idx and reports
// it. Out-of-range indices are skipped.
func (e *Engine) Evaluate(m *tilemap.Map, idx int) (Reaction, bool) {
	tileType, err := m.TileTypeAtIndex(idx)
	if err != nil {
		return Reaction{}, false
	}
	affliction, err := m.AfflictionAtIndex(idx)
	if err != nil {
		return Reaction{}, false
	}
	for _, rule := range e.rules {
		if !rule.Matches(tileType, affliction) {
			continue
		}
		fired := Reaction{Index: idx, Rule: rule.Name, From: tileType, To: tileType}
		if rule.ChangesType {
			coord, err := m.IdxToCoord(idx)
			if err != nil {
				return Reaction{}, false
			}
			if err := m.SetTile(coord, tilemap.PatchType(rule.Result)); err != nil {
				return Reaction{}, false
			}
			fired.To = rule.Result
		}
		if rule.Consume {
			if err := m.SubtractAffliction(idx, rule.Prerequisite); err != nil {
				return Reaction{}, false
			}
		}
		return fired, true
	}
	return Reaction{}, false
}

// Run evaluates each index once, in the given order, and returns the
// reactions that fired. An empty map short-circuits.
func (e *Engine) Run(m *tilemap.Map, indices []int) []Reaction {
	if m.IsEmpty() || len(indices) == 0 {
		return nil
	}
	var fired []Reaction
	for _, idx := range indices {
		if r, ok := e.Evaluate(m, idx); ok {
			fired = append(fired, r)
		}
	}
	return fired
}
