// Package editor holds the level editing tools shared by the viewers: the
// tile brushes and the element applicator.
package editor

import (
	"fmt"

	"elemental-td/internal/element"
	"elemental-td/internal/sims/sandbox"
	"elemental-td/internal/tilemap"
)

// Brush is a named partial tile update.
type Brush struct {
	Name  string
	Patch tilemap.TilePatch
}

// Brushes lists the available brushes in hotkey order.
var Brushes = []Brush{
	{"barren", tilemap.PatchType(tilemap.TileBarren)},
	{"rock", tilemap.PatchType(tilemap.TileRock)},
	{"water", tilemap.PatchType(tilemap.TileWater)},
	{"void", tilemap.PatchType(tilemap.TileVoid)},
	{"fire", tilemap.PatchType(tilemap.TileFire)},
	{"barricade", tilemap.PatchStructure(tilemap.StructureBarricade)},
	{"clear", tilemap.PatchStructure(tilemap.StructureNone)},
}

const (
	DefaultAmount = 50
	AmountStep    = 10
)

// Editor applies brushes and elements to a world and remembers the outcome
// of the last action.
type Editor struct {
	world   *sandbox.World
	brush   int
	element element.Element
	amount  uint32
	status  string
}

// New returns an editor with the barren brush and a fire applicator.
func New(world *sandbox.World) *Editor {
	return &Editor{world: world, element: element.Fire, amount: DefaultAmount}
}

// Brush returns the selected brush.
func (e *Editor) Brush() Brush { return Brushes[e.brush] }

// SelectBrush picks the brush at index i.
func (e *Editor) SelectBrush(i int) bool {
	if i < 0 || i >= len(Brushes) {
		return false
	}
	e.brush = i
	e.status = "brush " + Brushes[i].Name
	return true
}

// Element returns the element the applicator charges.
func (e *Editor) Element() element.Element { return e.element }

// CycleElement advances the applicator to the next element.
func (e *Editor) CycleElement() {
	all := element.All()
	for i, el := range all {
		if el == e.element {
			e.element = all[(i+1)%len(all)]
			return
		}
	}
	e.element = all[0]
}

// Amount returns the applicator charge.
func (e *Editor) Amount() uint32 { return e.amount }

// AdjustAmount changes the applicator charge by steps of AmountStep, never
// going below one.
func (e *Editor) AdjustAmount(steps int) {
	next := int64(e.amount) + int64(steps)*AmountStep
	e.amount = uint32(max(next, 1))
}

// Paint applies the selected brush at c.
func (e *Editor) Paint(c tilemap.Coordinate) error {
	b := e.Brush()
	return e.report(e.world.Paint(c, b.Patch), "painted "+b.Name)
}

// Apply charges c with the applicator element.
func (e *Editor) Apply(c tilemap.Coordinate) error {
	err := e.world.ApplyElement(c, element.Single(e.element, e.amount))
	return e.report(err, fmt.Sprintf("applied %d %s", e.amount, e.element))
}

// Drain removes the applicator charge from c.
func (e *Editor) Drain(c tilemap.Coordinate) error {
	err := e.world.RemoveElement(c, element.Single(e.element, e.amount))
	return e.report(err, fmt.Sprintf("drained %d %s", e.amount, e.element))
}

// SetEntry moves the wave entry to c.
func (e *Editor) SetEntry(c tilemap.Coordinate) error {
	return e.report(e.world.SetEntry(c), "entry moved")
}

// SetExit moves the wave exit to c.
func (e *Editor) SetExit(c tilemap.Coordinate) error {
	return e.report(e.world.SetExit(c), "exit moved")
}

// Note records a free-form status message.
func (e *Editor) Note(msg string) { e.status = msg }

// Status describes the last action.
func (e *Editor) Status() string { return e.status }

// Tool summarises the current brush and applicator.
func (e *Editor) Tool() string {
	return fmt.Sprintf("%s %s:%d", e.Brush().Name, e.element, e.amount)
}

func (e *Editor) report(err error, ok string) error {
	if err != nil {
		e.status = err.Error()
		return err
	}
	e.status = ok
	return nil
}
