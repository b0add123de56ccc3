package tilemap

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zyedidia/generic/mapset"

	"elemental-td/internal/effect"
	"elemental-td/internal/element"
)

var (
	// ErrOutOfBounds reports a coordinate or index outside the current grid.
	ErrOutOfBounds = errors.New("tilemap: out of bounds")
	// ErrInvalidOperation reports a mutation the map cannot perform, such as
	// editing a map with zero dimensions.
	ErrInvalidOperation = errors.New("tilemap: invalid operation")
)

// Map owns the tile arena: one type, structure and affliction per cell in
// row-major order. It tracks which tiles changed since the last sync, which
// afflictions changed since the last reaction pass, and whether the map was
// resized.
type Map struct {
	dims Dimensions

	types       []TileType
	structures  []Structure
	afflictions []element.Affliction

	dirty     mapset.Set[int]
	afflicted mapset.Set[int]
	sizeDirty bool

	entry Coordinate
	exit  Coordinate

	revision uint64
}

// New allocates a map of Barren tiles. Dimensions that fail Validate, or
// have a zero side, yield the empty "no map loaded" state.
func New(dims Dimensions) *Map {
	if dims.Validate() != nil || dims.W == 0 || dims.H == 0 {
		dims = Dimensions{}
	}
	total := dims.Area()
	return &Map{
		dims:        dims,
		types:       make([]TileType, total),
		structures:  make([]Structure, total),
		afflictions: make([]element.Affliction, total),
		dirty:       mapset.New[int](),
		afflicted:   mapset.New[int](),
		sizeDirty:   true,
	}
}

// Empty returns a map with zero dimensions.
func Empty() *Map { return New(Dimensions{}) }

// IsEmpty reports whether the map has zero dimensions.
func (m *Map) IsEmpty() bool { return m.dims.W == 0 || m.dims.H == 0 }

// Dimensions returns the current width and height.
func (m *Map) Dimensions() Dimensions { return m.dims }

// TileCount returns W*H, which always equals the arena length.
func (m *Map) TileCount() int { return len(m.types) }

// Revision increases on every tile, size, entry or exit mutation.
func (m *Map) Revision() uint64 { return m.revision }

// Resize truncates or extends the arena to the new dimensions. Tiles at
// indices that remain in range keep their data; new tiles are Barren with no
// structure and no affliction. Entry and exit are clamped into the new
// bounds. Resizing to zero dimensions unloads the map.
func (m *Map) Resize(dims Dimensions) error {
	if err := dims.Validate(); err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	if dims.W == 0 || dims.H == 0 {
		dims = Dimensions{}
	}
	total := dims.Area()
	m.types = resizeSlice(m.types, total)
	m.structures = resizeSlice(m.structures, total)
	m.afflictions = resizeSlice(m.afflictions, total)
	m.dims = dims

	m.dirty = filterIndices(m.dirty, total)
	m.afflicted = filterIndices(m.afflicted, total)

	m.entry = m.clamp(m.entry)
	m.exit = m.clamp(m.exit)

	m.sizeDirty = true
	m.revision++
	return nil
}

// SizeDirty reports whether the map was created or resized since the last
// ClearSizeDirty.
func (m *Map) SizeDirty() bool { return m.sizeDirty }

// ClearSizeDirty acknowledges a resize once consumers rebuilt from it.
func (m *Map) ClearSizeDirty() { m.sizeDirty = false }

// InBounds reports whether c lies inside the grid.
func (m *Map) InBounds(c Coordinate) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < m.dims.W && c.Y < m.dims.H
}

// CoordToIdx converts c to its row-major index.
func (m *Map) CoordToIdx(c Coordinate) (int, error) {
	if !m.InBounds(c) {
		return 0, fmt.Errorf("coordinate %s in %dx%d map: %w", c, m.dims.W, m.dims.H, ErrOutOfBounds)
	}
	return c.Y*m.dims.W + c.X, nil
}

// IdxToCoord converts a row-major index back to a coordinate.
func (m *Map) IdxToCoord(idx int) (Coordinate, error) {
	if idx < 0 || idx >= len(m.types) {
		return Coordinate{}, fmt.Errorf("index %d of %d tiles: %w", idx, len(m.types), ErrOutOfBounds)
	}
	return Coordinate{X: idx % m.dims.W, Y: idx / m.dims.W}, nil
}

// TileTypeAt returns the type of the tile at c.
func (m *Map) TileTypeAt(c Coordinate) (TileType, error) {
	idx, err := m.CoordToIdx(c)
	if err != nil {
		return 0, err
	}
	return m.types[idx], nil
}

// TileTypeAtIndex returns the type of the tile at idx.
func (m *Map) TileTypeAtIndex(idx int) (TileType, error) {
	if err := m.checkIndex(idx); err != nil {
		return 0, err
	}
	return m.types[idx], nil
}

// StructureAt returns the structure on the tile at c.
func (m *Map) StructureAt(c Coordinate) (Structure, error) {
	idx, err := m.CoordToIdx(c)
	if err != nil {
		return 0, err
	}
	return m.structures[idx], nil
}

// StructureAtIndex returns the structure on the tile at idx.
func (m *Map) StructureAtIndex(idx int) (Structure, error) {
	if err := m.checkIndex(idx); err != nil {
		return 0, err
	}
	return m.structures[idx], nil
}

// AfflictionAt returns a copy of the affliction of the tile at c.
func (m *Map) AfflictionAt(c Coordinate) (element.Affliction, error) {
	idx, err := m.CoordToIdx(c)
	if err != nil {
		return element.Affliction{}, err
	}
	return m.afflictions[idx].Clone(), nil
}

// AfflictionAtIndex returns a copy of the affliction of the tile at idx.
func (m *Map) AfflictionAtIndex(idx int) (element.Affliction, error) {
	if err := m.checkIndex(idx); err != nil {
		return element.Affliction{}, err
	}
	return m.afflictions[idx].Clone(), nil
}

// SetTile applies a partial update to the tile at c and records the index as
// dirty. A change of tile type also queues the tile for the next reaction
// pass.
func (m *Map) SetTile(c Coordinate, patch TilePatch) error {
	if m.IsEmpty() {
		return fmt.Errorf("set tile %s: %w", c, ErrInvalidOperation)
	}
	idx, err := m.CoordToIdx(c)
	if err != nil {
		return err
	}
	if patch.Type != nil {
		if *patch.Type != m.types[idx] {
			m.afflicted.Put(idx)
		}
		m.types[idx] = *patch.Type
	}
	if patch.Structure != nil {
		m.structures[idx] = *patch.Structure
	}
	m.dirty.Put(idx)
	m.revision++
	return nil
}

// Fill sets every tile to t with no structure and clears all afflictions.
func (m *Map) Fill(t TileType) {
	for i := range m.types {
		m.types[i] = t
		m.structures[i] = StructureNone
		m.afflictions[i] = element.Affliction{}
		m.dirty.Put(i)
	}
	m.revision++
}

// CardinalNeighbors returns the in-bounds indices north, east, south and
// west of c, in that order.
func (m *Map) CardinalNeighbors(c Coordinate) ([]int, error) {
	if !m.InBounds(c) {
		return nil, fmt.Errorf("cardinal neighbors of %s: %w", c, ErrOutOfBounds)
	}
	out := make([]int, 0, 4)
	for _, d := range cardinalOffsets {
		n := Coordinate{X: c.X + d.X, Y: c.Y + d.Y}
		if m.InBounds(n) {
			out = append(out, n.Y*m.dims.W+n.X)
		}
	}
	return out, nil
}

// MooreNeighbors returns the in-bounds indices of the up to eight tiles
// surrounding c, scanning rows top to bottom and columns left to right.
func (m *Map) MooreNeighbors(c Coordinate) ([]int, error) {
	if !m.InBounds(c) {
		return nil, fmt.Errorf("moore neighbors of %s: %w", c, ErrOutOfBounds)
	}
	out := make([]int, 0, 8)
	for dy := -1; dy <= 1; dy++ {
		ny := c.Y + dy
		if ny < 0 || ny >= m.dims.H {
			continue
		}
		for dx := -1; dx <= 1; dx++ {
			nx := c.X + dx
			if nx < 0 || nx >= m.dims.W {
				continue
			}
			if dx == 0 && dy == 0 {
				continue
			}
			out = append(out, ny*m.dims.W+nx)
		}
	}
	return out, nil
}

var cardinalOffsets = [4]Coordinate{{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}}

// DirtyTiles lists the indices changed since the last ClearDirty, sorted.
func (m *Map) DirtyTiles() []int { return sortedIndices(m.dirty) }

// HasDirtyTiles reports whether any tile changed since the last ClearDirty.
func (m *Map) HasDirtyTiles() bool { return m.dirty.Size() > 0 }

// ClearDirty forgets the dirty set. Call once per cycle after all consumers
// observed it.
func (m *Map) ClearDirty() { m.dirty = mapset.New[int]() }

// WaveEntry returns the path start.
func (m *Map) WaveEntry() Coordinate { return m.entry }

// WaveExit returns the path goal.
func (m *Map) WaveExit() Coordinate { return m.exit }

// SetWaveEntry moves the path start.
func (m *Map) SetWaveEntry(c Coordinate) error {
	if !m.InBounds(c) {
		return fmt.Errorf("wave entry %s: %w", c, ErrOutOfBounds)
	}
	if c != m.entry {
		m.entry = c
		m.revision++
	}
	return nil
}

// SetWaveExit moves the path goal.
func (m *Map) SetWaveExit(c Coordinate) error {
	if !m.InBounds(c) {
		return fmt.Errorf("wave exit %s: %w", c, ErrOutOfBounds)
	}
	if c != m.exit {
		m.exit = c
		m.revision++
	}
	return nil
}

// AddAffliction adds a to the tile at idx.
func (m *Map) AddAffliction(idx int, a element.Affliction) error {
	if err := m.checkIndex(idx); err != nil {
		return err
	}
	m.updateAffliction(idx, m.afflictions[idx].Plus(a))
	return nil
}

// SubtractAffliction removes a from the tile at idx, saturating at zero.
func (m *Map) SubtractAffliction(idx int, a element.Affliction) error {
	if err := m.checkIndex(idx); err != nil {
		return err
	}
	m.updateAffliction(idx, m.afflictions[idx].Minus(a))
	return nil
}

// SetAffliction replaces the affliction of the tile at idx.
func (m *Map) SetAffliction(idx int, a element.Affliction) error {
	if err := m.checkIndex(idx); err != nil {
		return err
	}
	m.updateAffliction(idx, a.Clone())
	return nil
}

// TakeAfflicted returns, sorted, the tiles queued for reaction since the
// previous call and resets the queue.
func (m *Map) TakeAfflicted() []int {
	out := sortedIndices(m.afflicted)
	m.afflicted = mapset.New[int]()
	return out
}

// ReceiveEffect applies element payloads addressed to tiles. Any other
// handle or payload kind is refused.
func (m *Map) ReceiveEffect(target effect.Handle, p effect.Payload) bool {
	if target.Kind != effect.HandleTile || m.checkIndex(target.ID) != nil {
		return false
	}
	switch p.Kind {
	case effect.KindApplyElement:
		return m.AddAffliction(target.ID, p.Element) == nil
	case effect.KindRemoveElement:
		return m.SubtractAffliction(target.ID, p.Element) == nil
	default:
		return false
	}
}

func (m *Map) updateAffliction(idx int, next element.Affliction) {
	if next.Equal(m.afflictions[idx]) {
		return
	}
	m.afflictions[idx] = next
	m.afflicted.Put(idx)
}

func (m *Map) checkIndex(idx int) error {
	if m.IsEmpty() {
		return fmt.Errorf("index %d: %w", idx, ErrInvalidOperation)
	}
	if idx < 0 || idx >= len(m.types) {
		return fmt.Errorf("index %d of %d tiles: %w", idx, len(m.types), ErrOutOfBounds)
	}
	return nil
}

func (m *Map) clamp(c Coordinate) Coordinate {
	if m.IsEmpty() {
		return Coordinate{}
	}
	c.X = min(max(c.X, 0), m.dims.W-1)
	c.Y = min(max(c.Y, 0), m.dims.H-1)
	return c
}

func resizeSlice[T any](s []T, n int) []T {
	if n <= len(s) {
		return s[:n:n]
	}
	out := make([]T, n)
	copy(out, s)
	return out
}

func filterIndices(s mapset.Set[int], limit int) mapset.Set[int] {
	out := mapset.New[int]()
	s.Each(func(idx int) {
		if idx < limit {
			out.Put(idx)
		}
	})
	return out
}

func sortedIndices(s mapset.Set[int]) []int {
	out := make([]int, 0, s.Size())
	s.Each(func(idx int) { out = append(out, idx) })
	sort.Ints(out)
	return out
}
