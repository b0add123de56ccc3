package roster

import (
	"fmt"
	"sort"

	"elemental-td/internal/effect"
	"elemental-td/internal/tilemap"
)

// Health tracks a unit's hit points.
type Health struct {
	Current int
	Max     int
}

// Harm lowers Current, saturating at zero.
func (h *Health) Harm(n int) {
	if n <= 0 {
		return
	}
	h.Current -= n
	if h.Current < 0 {
		h.Current = 0
	}
}

// Heal raises Current, capped at Max.
func (h *Health) Heal(n int) {
	if n <= 0 {
		return
	}
	h.Current += n
	if h.Current > h.Max {
		h.Current = h.Max
	}
}

// Dead reports whether the unit has no health left.
func (h Health) Dead() bool { return h.Current <= 0 }

// Unit is a walker on the map.
type Unit struct {
	ID     int
	Pos    tilemap.Coordinate
	Health Health
}

// Treasury holds the player's gold. Gold never drops below zero.
type Treasury struct {
	gold  int
	start int
}

// Gold returns the current balance.
func (t Treasury) Gold() int { return t.gold }

// Start returns the balance ResetGold restores.
func (t Treasury) Start() int { return t.start }

// Change moves the balance by delta and clamps at zero.
func (t *Treasury) Change(delta int) {
	t.gold += delta
	if t.gold < 0 {
		t.gold = 0
	}
}

// Reset restores the starting balance.
func (t *Treasury) Reset() { t.gold = t.start }

// Roster owns the unit arena and the treasury. Units are addressed by ID,
// which is never reused.
type Roster struct {
	units    map[int]*Unit
	nextID   int
	treasury Treasury
}

// New returns an empty roster whose treasury starts with startingGold.
func New(startingGold int) *Roster {
	if startingGold < 0 {
		startingGold = 0
	}
	return &Roster{
		units:    make(map[int]*Unit),
		treasury: Treasury{gold: startingGold, start: startingGold},
	}
}

// Spawn adds a unit at pos with full health and returns its ID.
func (r *Roster) Spawn(pos tilemap.Coordinate, maxHealth int) int {
	if maxHealth < 1 {
		maxHealth = 1
	}
	id := r.nextID
	r.nextID++
	r.units[id] = &Unit{ID: id, Pos: pos, Health: Health{Current: maxHealth, Max: maxHealth}}
	return id
}

// Remove deletes the unit and reports whether it existed.
func (r *Roster) Remove(id int) bool {
	if _, ok := r.units[id]; !ok {
		return false
	}
	delete(r.units, id)
	return true
}

// Unit returns a copy of the unit with the given ID.
func (r *Roster) Unit(id int) (Unit, bool) {
	u, ok := r.units[id]
	if !ok {
		return Unit{}, false
	}
	return *u, true
}

// Move relocates a unit.
func (r *Roster) Move(id int, pos tilemap.Coordinate) error {
	u, ok := r.units[id]
	if !ok {
		return fmt.Errorf("move unit %d: no such unit", id)
	}
	u.Pos = pos
	return nil
}

// Units returns copies of every unit ordered by ID.
func (r *Roster) Units() []Unit {
	out := make([]Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of live and not yet reaped units.
func (r *Roster) Len() int { return len(r.units) }

// Reap removes dead units and returns their IDs in ascending order.
func (r *Roster) Reap() []int {
	var dead []int
	for id, u := range r.units {
		if u.Health.Dead() {
			dead = append(dead, id)
		}
	}
	sort.Ints(dead)
	for _, id := range dead {
		delete(r.units, id)
	}
	return dead
}

// Clear drops every unit and resets the treasury.
func (r *Roster) Clear() {
	r.units = make(map[int]*Unit)
	r.treasury.Reset()
}

// Treasury returns a copy of the treasury.
func (r *Roster) Treasury() Treasury { return r.treasury }

// ReceiveEffect applies Harm and Heal to units and gold payloads to the
// treasury.
func (r *Roster) ReceiveEffect(target effect.Handle, p effect.Payload) bool {
	switch target.Kind {
	case effect.HandleUnit:
		u, ok := r.units[target.ID]
		if !ok {
			return false
		}
		switch p.Kind {
		case effect.KindHarm:
			u.Health.Harm(p.Amount)
		case effect.KindHeal:
			u.Health.Heal(p.Amount)
		default:
			return false
		}
		return true
	case effect.HandleTreasury:
		switch p.Kind {
		case effect.KindChangeGold:
			r.treasury.Change(p.Amount)
		case effect.KindResetGold:
			r.treasury.Reset()
		default:
			return false
		}
		return true
	default:
		return false
	}
}
