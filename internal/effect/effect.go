package effect

import (
	"fmt"

	"elemental-td/internal/element"
)

// HandleKind identifies which arena a Handle indexes into.
type HandleKind uint8

const (
	// HandleTile addresses a tile by its row-major index.
	HandleTile HandleKind = iota
	// HandleUnit addresses a roster unit by ID.
	HandleUnit
	// HandleTreasury addresses the shared gold treasury; ID is ignored.
	HandleTreasury
)

func (k HandleKind) String() string {
	switch k {
	case HandleTile:
		return "tile"
	case HandleUnit:
		return "unit"
	case HandleTreasury:
		return "treasury"
	default:
		return fmt.Sprintf("HandleKind(%d)", uint8(k))
	}
}

// Handle is an arena reference to an effect target or sender.
type Handle struct {
	Kind HandleKind
	ID   int
}

// Tile returns a handle to the tile at idx.
func Tile(idx int) Handle { return Handle{Kind: HandleTile, ID: idx} }

// Unit returns a handle to the roster unit id.
func Unit(id int) Handle { return Handle{Kind: HandleUnit, ID: id} }

// Treasury returns the handle of the gold treasury.
func Treasury() Handle { return Handle{Kind: HandleTreasury} }

func (h Handle) String() string { return fmt.Sprintf("%s#%d", h.Kind, h.ID) }

// Kind tags the payload variant.
type Kind uint8

const (
	KindApplyElement Kind = iota
	KindRemoveElement
	KindHarm
	KindHeal
	KindChangeGold
	KindResetGold
)

func (k Kind) String() string {
	switch k {
	case KindApplyElement:
		return "apply_element"
	case KindRemoveElement:
		return "remove_element"
	case KindHarm:
		return "harm"
	case KindHeal:
		return "heal"
	case KindChangeGold:
		return "change_gold"
	case KindResetGold:
		return "reset_gold"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Additive kinds may be summed per target before application without
// changing the outcome.
func (k Kind) Additive() bool {
	switch k {
	case KindApplyElement, KindRemoveElement, KindHarm, KindHeal:
		return true
	default:
		return false
	}
}

// Removal kinds are applied in the removal stage, ahead of everything else.
func (k Kind) Removal() bool {
	return k == KindRemoveElement || k == KindHarm
}

// Payload is the tagged variant carried by an Effect. Element is used by the
// element kinds, Amount by the others.
type Payload struct {
	Kind    Kind
	Element element.Affliction
	Amount  int
}

// ApplyElement builds a payload adding a to the target's affliction.
func ApplyElement(a element.Affliction) Payload {
	return Payload{Kind: KindApplyElement, Element: a}
}

// RemoveElement builds a payload subtracting a from the target's affliction.
func RemoveElement(a element.Affliction) Payload {
	return Payload{Kind: KindRemoveElement, Element: a}
}

// Harm builds a payload lowering a unit's health.
func Harm(n int) Payload { return Payload{Kind: KindHarm, Amount: n} }

// Heal builds a payload raising a unit's health.
func Heal(n int) Payload { return Payload{Kind: KindHeal, Amount: n} }

// ChangeGold builds a payload moving the treasury by delta.
func ChangeGold(delta int) Payload { return Payload{Kind: KindChangeGold, Amount: delta} }

// ResetGold builds a payload restoring the treasury to its starting amount.
func ResetGold() Payload { return Payload{Kind: KindResetGold} }

func (p Payload) merge(other Payload) Payload {
	switch p.Kind {
	case KindApplyElement, KindRemoveElement:
		p.Element = p.Element.Plus(other.Element)
	default:
		p.Amount += other.Amount
	}
	return p
}

// Effect is a deferred, target-addressed instruction.
type Effect struct {
	Sender    Handle
	HasSender bool
	Target    Handle
	Payload   Payload
	Handled   bool
}

// New returns an unhandled effect without a sender.
func New(target Handle, p Payload) Effect {
	return Effect{Target: target, Payload: p}
}

// From returns an unhandled effect sent by sender.
func From(sender, target Handle, p Payload) Effect {
	return Effect{Sender: sender, HasSender: true, Target: target, Payload: p}
}
