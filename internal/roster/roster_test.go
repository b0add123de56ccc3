package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elemental-td/internal/effect"
	"elemental-td/internal/tilemap"
)

func TestHealthSaturates(t *testing.T) {
	h := Health{Current: 10, Max: 10}
	h.Harm(4)
	assert.Equal(t, 6, h.Current)
	h.Heal(100)
	assert.Equal(t, 10, h.Current)
	h.Harm(25)
	assert.Equal(t, 0, h.Current)
	assert.True(t, h.Dead())
	h.Harm(-3)
	assert.Equal(t, 0, h.Current)
}

func TestSpawnAssignsFreshIDs(t *testing.T) {
	r := New(0)
	a := r.Spawn(tilemap.Coord(0, 0), 5)
	b := r.Spawn(tilemap.Coord(1, 0), 5)
	require.True(t, r.Remove(a))
	c := r.Spawn(tilemap.Coord(2, 0), 5)

	assert.NotEqual(t, a, c, "ids are never reused")
	assert.False(t, r.Remove(a))
	ids := []int{}
	for _, u := range r.Units() {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []int{b, c}, ids)
}

func TestReapRemovesDeadUnits(t *testing.T) {
	r := New(0)
	a := r.Spawn(tilemap.Coord(0, 0), 3)
	b := r.Spawn(tilemap.Coord(0, 0), 3)

	require.True(t, r.ReceiveEffect(effect.Unit(b), effect.Harm(3)))
	assert.Equal(t, []int{b}, r.Reap())
	assert.Empty(t, r.Reap())

	_, ok := r.Unit(b)
	assert.False(t, ok)
	u, ok := r.Unit(a)
	require.True(t, ok)
	assert.Equal(t, 3, u.Health.Current)
}

func TestGoldClampsPerEffect(t *testing.T) {
	r := New(10)
	bus := effect.NewBus()
	bus.Route(effect.HandleTreasury, r)

	bus.Emit(effect.New(effect.Treasury(), effect.ChangeGold(-15)))
	bus.Emit(effect.New(effect.Treasury(), effect.ChangeGold(7)))
	report := bus.Resolve()

	assert.Equal(t, 2, report.Applied)
	assert.Equal(t, 7, r.Treasury().Gold(), "the first effect floors at zero before the second lands")

	bus.Emit(effect.New(effect.Treasury(), effect.ResetGold()))
	bus.Resolve()
	assert.Equal(t, 10, r.Treasury().Gold())
}

func TestHarmResolvesBeforeHeal(t *testing.T) {
	r := New(0)
	id := r.Spawn(tilemap.Coord(0, 0), 10)
	require.True(t, r.ReceiveEffect(effect.Unit(id), effect.Harm(5)))

	bus := effect.NewBus()
	bus.Route(effect.HandleUnit, r)
	bus.Emit(effect.New(effect.Unit(id), effect.Heal(10)))
	bus.Emit(effect.New(effect.Unit(id), effect.Harm(2)))
	bus.Emit(effect.New(effect.Unit(id), effect.Harm(2)))
	report := bus.Resolve()

	u, ok := r.Unit(id)
	require.True(t, ok)
	assert.Equal(t, 10, u.Health.Current, "5 - 4 then healed back to max")
	assert.Equal(t, 1, report.Merged)
}

func TestReceiveEffectRejectsForeignTargets(t *testing.T) {
	r := New(0)
	assert.False(t, r.ReceiveEffect(effect.Unit(42), effect.Harm(1)))
	assert.False(t, r.ReceiveEffect(effect.Tile(0), effect.Harm(1)))
	assert.False(t, r.ReceiveEffect(effect.Treasury(), effect.Harm(1)))

	id := r.Spawn(tilemap.Coord(0, 0), 1)
	assert.False(t, r.ReceiveEffect(effect.Unit(id), effect.ChangeGold(1)))
}

func TestMoveAndClear(t *testing.T) {
	r := New(3)
	id := r.Spawn(tilemap.Coord(0, 0), 1)
	require.NoError(t, r.Move(id, tilemap.Coord(2, 2)))
	u, _ := r.Unit(id)
	assert.Equal(t, tilemap.Coord(2, 2), u.Pos)
	assert.Error(t, r.Move(99, tilemap.Coord(0, 0)))

	r.ReceiveEffect(effect.Treasury(), effect.ChangeGold(4))
	r.Clear()
	assert.Zero(t, r.Len())
	assert.Equal(t, 3, r.Treasury().Gold())
}
