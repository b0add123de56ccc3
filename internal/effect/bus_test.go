package effect

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elemental-td/internal/element"
)

type recordedCall struct {
	target Handle
	p      Payload
}

type recorder struct {
	calls []recordedCall
	gone  map[int]bool
}

func (r *recorder) ReceiveEffect(target Handle, p Payload) bool {
	if r.gone[target.ID] {
		return false
	}
	r.calls = append(r.calls, recordedCall{target: target, p: p})
	return true
}

func TestConsolidatesSameTargetApplies(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	bus.Route(HandleTile, rec)

	for i := 0; i < 3; i++ {
		bus.Emit(New(Tile(5), ApplyElement(element.Single(element.Fire, 1))))
	}

	report := bus.Resolve()

	require.Len(t, rec.calls, 1, "three applies should arrive as one consolidated effect")
	assert.Equal(t, uint32(3), rec.calls[0].p.Element.Amount(element.Fire))
	assert.Equal(t, Report{Emitted: 3, Merged: 2, Applied: 1}, report)
	assert.Zero(t, bus.Len())
}

func TestRemovalStageRunsBeforeApply(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	bus.Route(HandleTile, rec)

	bus.Emit(New(Tile(1), ApplyElement(element.Single(element.Fire, 1))))
	bus.Emit(New(Tile(2), RemoveElement(element.Single(element.Fire, 4))))
	bus.Emit(New(Tile(1), RemoveElement(element.Single(element.Water, 2))))

	bus.Resolve()

	require.Len(t, rec.calls, 3)
	assert.Equal(t, KindRemoveElement, rec.calls[0].p.Kind)
	assert.Equal(t, 2, rec.calls[0].target.ID)
	assert.Equal(t, KindRemoveElement, rec.calls[1].p.Kind)
	assert.Equal(t, 1, rec.calls[1].target.ID)
	assert.Equal(t, KindApplyElement, rec.calls[2].p.Kind)
}

func TestDifferentKindsAreNotMerged(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	bus.Route(HandleTile, rec)

	bus.Emit(New(Tile(0), ApplyElement(element.Single(element.Fire, 2))))
	bus.Emit(New(Tile(0), RemoveElement(element.Single(element.Fire, 1))))
	bus.Emit(New(Tile(1), ApplyElement(element.Single(element.Fire, 2))))

	report := bus.Resolve()
	assert.Equal(t, 0, report.Merged)
	assert.Equal(t, 3, report.Applied)
}

func TestNonAdditiveKindsPassThroughInOrder(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	bus.Route(HandleTreasury, rec)

	bus.Emit(New(Treasury(), ChangeGold(-50)))
	bus.Emit(New(Treasury(), ChangeGold(30)))
	bus.Emit(New(Treasury(), ResetGold()))

	report := bus.Resolve()

	assert.Equal(t, 0, report.Merged)
	require.Len(t, rec.calls, 3)
	assert.Equal(t, -50, rec.calls[0].p.Amount)
	assert.Equal(t, 30, rec.calls[1].p.Amount)
	assert.Equal(t, KindResetGold, rec.calls[2].p.Kind)
}

func TestMissingTargetIsDroppedSilently(t *testing.T) {
	bus := NewBus()
	rec := &recorder{gone: map[int]bool{7: true}}
	bus.Route(HandleUnit, rec)

	bus.Emit(New(Unit(7), Harm(3)))
	bus.Emit(New(Tile(0), ApplyElement(element.Single(element.Air, 1))))

	report := bus.Resolve()

	assert.Equal(t, 2, report.Dropped)
	assert.Empty(t, rec.calls)
	assert.Zero(t, bus.Len(), "dropped effects are reaped like any other")
}

type reentrantReceiver struct {
	bus   *Bus
	calls int
}

func (r *reentrantReceiver) ReceiveEffect(target Handle, p Payload) bool {
	r.calls++
	r.bus.Emit(New(Tile(target.ID+1), p))
	return true
}

func TestEffectsEmittedDuringResolveWaitForNextCycle(t *testing.T) {
	bus := NewBus()
	rec := &reentrantReceiver{bus: bus}
	bus.Route(HandleTile, rec)

	bus.Emit(New(Tile(0), ApplyElement(element.Single(element.Fire, 1))))

	bus.Resolve()
	assert.Equal(t, 1, rec.calls)
	require.Equal(t, 1, bus.Len())
	assert.Equal(t, 1, bus.Pending()[0].Target.ID)

	bus.Resolve()
	assert.Equal(t, 2, rec.calls)
}

func TestEachEffectAppliedAtMostOnce(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	bus.Route(HandleTile, rec)

	bus.Emit(New(Tile(3), Heal(1)))
	bus.Resolve()
	bus.Resolve()

	assert.Len(t, rec.calls, 1)
}

func TestConsolidatedSenderClearedWhenSendersDiffer(t *testing.T) {
	batch := []Effect{
		From(Tile(1), Tile(9), ApplyElement(element.Single(element.Fire, 1))),
		From(Tile(1), Tile(9), ApplyElement(element.Single(element.Fire, 1))),
	}
	out, merged := consolidate(batch)
	require.Len(t, out, 1)
	assert.Equal(t, 1, merged)
	assert.True(t, out[0].HasSender)

	batch = append(batch, From(Tile(2), Tile(9), ApplyElement(element.Single(element.Fire, 1))))
	out, _ = consolidate(batch)
	require.Len(t, out, 1)
	assert.False(t, out[0].HasSender)
	assert.Equal(t, uint32(3), out[0].Payload.Element.Amount(element.Fire))
}

func TestConcurrentEmit(t *testing.T) {
	bus := NewBus()
	rec := &recorder{}
	bus.Route(HandleTile, rec)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				bus.Emit(New(Tile(0), ApplyElement(element.Single(element.Water, 1))))
			}
		}()
	}
	wg.Wait()

	report := bus.Resolve()
	assert.Equal(t, 400, report.Emitted)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, uint32(400), rec.calls[0].p.Element.Amount(element.Water))
}
