package element

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Element enumerates the elemental charges a tile or effect can carry.
type Element uint8

const (
	Fire Element = iota
	Water
	Earth
	Air
)

// All returns every element in declaration order.
func All() []Element {
	return []Element{Fire, Water, Earth, Air}
}

func (e Element) String() string {
	switch e {
	case Fire:
		return "Fire"
	case Water:
		return "Water"
	case Earth:
		return "Earth"
	case Air:
		return "Air"
	default:
		return fmt.Sprintf("Element(%d)", uint8(e))
	}
}

// Parse resolves an element from its case-insensitive name.
func Parse(name string) (Element, bool) {
	for _, e := range All() {
		if strings.EqualFold(e.String(), name) {
			return e, true
		}
	}
	return 0, false
}

// Affliction is a sparse multiset of elemental charge. The zero value is the
// empty affliction and is ready to use. An element may be present with an
// amount of zero; ContainsExactly treats that differently from absence.
type Affliction struct {
	amounts map[Element]uint32
}

// Empty returns an affliction without any elements.
func Empty() Affliction { return Affliction{} }

// Single returns an affliction holding exactly one element.
func Single(e Element, amount uint32) Affliction {
	a := Affliction{}
	a.AddElement(e, amount)
	return a
}

// Pair couples an element with an amount for Of.
type Pair struct {
	Element Element
	Amount  uint32
}

// Of builds an affliction from element/amount pairs, summing repeats.
func Of(pairs ...Pair) Affliction {
	a := Affliction{}
	for _, p := range pairs {
		a.AddElement(p.Element, p.Amount)
	}
	return a
}

// AddElement increases the amount of e, inserting it when absent. The sum
// saturates at math.MaxUint32.
func (a *Affliction) AddElement(e Element, amount uint32) {
	if a.amounts == nil {
		a.amounts = make(map[Element]uint32, 1)
	}
	current := a.amounts[e]
	if amount > math.MaxUint32-current {
		a.amounts[e] = math.MaxUint32
		return
	}
	a.amounts[e] = current + amount
}

// SubtractElement decreases the amount of e, saturating at zero. Subtracting
// an absent element is a no-op.
func (a *Affliction) SubtractElement(e Element, amount uint32) {
	current, ok := a.amounts[e]
	if !ok {
		return
	}
	if amount >= current {
		a.amounts[e] = 0
		return
	}
	a.amounts[e] = current - amount
}

// Amount reports the charge of e, zero when absent.
func (a Affliction) Amount(e Element) uint32 {
	return a.amounts[e]
}

// Has reports whether e is present, even with a zero amount.
func (a Affliction) Has(e Element) bool {
	_, ok := a.amounts[e]
	return ok
}

// Contains reports whether every element present in other is held by a in at
// least the same amount. Every affliction contains the empty affliction.
func (a Affliction) Contains(other Affliction) bool {
	for e, amount := range other.amounts {
		if a.Amount(e) < amount {
			return false
		}
	}
	return true
}

// ContainsExactly reports whether every element present in other is held by
// a in exactly the same amount. Elements of a that other does not mention are
// not inspected.
func (a Affliction) ContainsExactly(other Affliction) bool {
	for e, amount := range other.amounts {
		if a.Amount(e) != amount {
			return false
		}
	}
	return true
}

// Plus returns a new affliction holding the sum of a and other.
func (a Affliction) Plus(other Affliction) Affliction {
	result := a.Clone()
	for e, amount := range other.amounts {
		result.AddElement(e, amount)
	}
	return result
}

// Minus returns a new affliction with other subtracted from a.
func (a Affliction) Minus(other Affliction) Affliction {
	result := a.Clone()
	result.Subtract(other)
	return result
}

// Subtract removes other from a in place, saturating every element at zero.
func (a *Affliction) Subtract(other Affliction) {
	for e, amount := range other.amounts {
		a.SubtractElement(e, amount)
	}
}

// IsZero reports whether every present element has a zero amount.
func (a Affliction) IsZero() bool {
	for _, amount := range a.amounts {
		if amount != 0 {
			return false
		}
	}
	return true
}

// Len returns the number of present elements.
func (a Affliction) Len() int { return len(a.amounts) }

// Elements lists the present elements in declaration order.
func (a Affliction) Elements() []Element {
	out := make([]Element, 0, len(a.amounts))
	for e := range a.amounts {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy.
func (a Affliction) Clone() Affliction {
	if len(a.amounts) == 0 {
		return Affliction{}
	}
	c := Affliction{amounts: make(map[Element]uint32, len(a.amounts))}
	for e, amount := range a.amounts {
		c.amounts[e] = amount
	}
	return c
}

// Equal reports whether both afflictions hold the same elements with the
// same amounts.
func (a Affliction) Equal(other Affliction) bool {
	if len(a.amounts) != len(other.amounts) {
		return false
	}
	for e, amount := range a.amounts {
		v, ok := other.amounts[e]
		if !ok || v != amount {
			return false
		}
	}
	return true
}

func (a Affliction) String() string {
	if len(a.amounts) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(a.amounts))
	for _, e := range a.Elements() {
		parts = append(parts, fmt.Sprintf("%s: %d", e, a.amounts[e]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MarshalJSON encodes the affliction as an object keyed by lower-case
// element names.
func (a Affliction) MarshalJSON() ([]byte, error) {
	out := make(map[string]uint32, len(a.amounts))
	for e, amount := range a.amounts {
		out[strings.ToLower(e.String())] = amount
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the object form produced by MarshalJSON.
func (a *Affliction) UnmarshalJSON(data []byte) error {
	var raw map[string]uint32
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Affliction{}
	for name, amount := range raw {
		e, ok := Parse(name)
		if !ok {
			return fmt.Errorf("unknown element %q", name)
		}
		a.AddElement(e, amount)
	}
	return nil
}
