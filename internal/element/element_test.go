package element

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAfflictionsTogether(t *testing.T) {
	first := Single(Air, 3)
	second := Single(Earth, 6)

	got := first.Plus(second)

	want := Of(Pair{Air, 3}, Pair{Earth, 6})
	require.True(t, got.Equal(want), "got %s, want %s", got, want)
	assert.Equal(t, uint32(3), first.Amount(Air), "Plus must not mutate the receiver")
	assert.False(t, first.Has(Earth))
}

func TestAddElementAccumulates(t *testing.T) {
	var a Affliction
	a.AddElement(Air, 3)
	assert.Equal(t, uint32(3), a.Amount(Air))

	a.AddElement(Air, 6)
	assert.Equal(t, uint32(9), a.Amount(Air))
	assert.Equal(t, uint32(0), a.Amount(Fire))
}

func TestAddSaturatesAtMax(t *testing.T) {
	a := Single(Water, math.MaxUint32-1)
	a.AddElement(Water, 5)
	assert.Equal(t, uint32(math.MaxUint32), a.Amount(Water))
}

func TestSubtractSaturatesAtZero(t *testing.T) {
	a := Single(Fire, 5)
	a.SubtractElement(Fire, 8)
	assert.Equal(t, uint32(0), a.Amount(Fire))
	assert.True(t, a.Has(Fire))

	a.SubtractElement(Water, 2)
	assert.False(t, a.Has(Water), "subtracting an absent element must not insert it")
}

func TestPlusMinusRoundTripWithoutSaturation(t *testing.T) {
	a := Of(Pair{Fire, 10}, Pair{Water, 4})
	b := Of(Pair{Fire, 3}, Pair{Water, 4})

	got := a.Plus(b).Minus(b)
	assert.True(t, got.Equal(a), "got %s", got)
}

func TestMinusClampsWhenSaturating(t *testing.T) {
	a := Single(Fire, 2)
	b := Single(Fire, 7)

	got := a.Minus(b)
	assert.Equal(t, uint32(0), got.Amount(Fire))

	// Once a subtraction saturates the lost charge does not come back.
	back := a.Minus(b).Plus(b)
	assert.Equal(t, uint32(7), back.Amount(Fire))
	assert.False(t, back.Equal(a))
}

func TestContains(t *testing.T) {
	var parent, child Affliction

	assert.True(t, parent.Contains(child), "empty contains empty")

	child.AddElement(Earth, 4)
	assert.False(t, parent.Contains(child))

	parent.AddElement(Earth, 4)
	assert.True(t, parent.Contains(child))

	parent.AddElement(Earth, 4)
	assert.True(t, parent.Contains(child))

	parent.AddElement(Water, 5)
	assert.True(t, parent.Contains(child))

	child.AddElement(Fire, 1)
	assert.False(t, parent.Contains(child), "any exceeding element breaks containment")
}

func TestContainsExactlyIsDirectional(t *testing.T) {
	tile := Of(Pair{Fire, 0}, Pair{Water, 9})

	assert.True(t, tile.ContainsExactly(Single(Fire, 0)))
	assert.False(t, Single(Fire, 0).ContainsExactly(tile))
	assert.True(t, Empty().ContainsExactly(Single(Fire, 0)), "absent elements read as zero")
	assert.False(t, Single(Fire, 1).ContainsExactly(Single(Fire, 0)))
}

func TestIsZero(t *testing.T) {
	assert.True(t, Empty().IsZero())
	assert.True(t, Single(Fire, 0).IsZero())
	assert.False(t, Single(Fire, 1).IsZero())
}

func TestStringListsElementsInOrder(t *testing.T) {
	a := Of(Pair{Air, 1}, Pair{Fire, 2})
	assert.Equal(t, "{Fire: 2, Air: 1}", a.String())
	assert.Equal(t, "{}", Empty().String())
}

func TestJSONEncoding(t *testing.T) {
	a := Of(Pair{Fire, 12}, Pair{Water, 0})

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fire":12,"water":0}`, string(data))

	var decoded Affliction
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Equal(a))

	err = json.Unmarshal([]byte(`{"plasma":1}`), &decoded)
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	e, ok := Parse("water")
	require.True(t, ok)
	assert.Equal(t, Water, e)

	_, ok = Parse("aether")
	assert.False(t, ok)
}
