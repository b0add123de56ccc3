package tilemap

import (
	"encoding/json"
	"fmt"

	"elemental-td/internal/element"
)

// TileRecord is the serialisable state of one tile.
type TileRecord struct {
	Type       TileType           `json:"type"`
	Structure  Structure          `json:"structure"`
	Affliction element.Affliction `json:"affliction"`
}

// Snapshot is a self-contained copy of a map, used for persistence and for
// full-state sync of remote viewers.
type Snapshot struct {
	Name   string       `json:"name"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Entry  Coordinate   `json:"entry"`
	Exit   Coordinate   `json:"exit"`
	Tiles  []TileRecord `json:"tiles"`
}

// Record returns the serialisable state of the tile at idx.
func (m *Map) Record(idx int) (TileRecord, error) {
	if err := m.checkIndex(idx); err != nil {
		return TileRecord{}, err
	}
	return TileRecord{
		Type:       m.types[idx],
		Structure:  m.structures[idx],
		Affliction: m.afflictions[idx].Clone(),
	}, nil
}

// Snapshot copies the full map state under the given name.
func (m *Map) Snapshot(name string) *Snapshot {
	s := &Snapshot{
		Name:   name,
		Width:  m.dims.W,
		Height: m.dims.H,
		Entry:  m.entry,
		Exit:   m.exit,
		Tiles:  make([]TileRecord, len(m.types)),
	}
	for i := range m.types {
		s.Tiles[i] = TileRecord{
			Type:       m.types[i],
			Structure:  m.structures[i],
			Affliction: m.afflictions[i].Clone(),
		}
	}
	return s
}

// FromSnapshot rebuilds a map from s. The result is fully dirty and flagged
// as resized so every consumer rebuilds from scratch.
func FromSnapshot(s *Snapshot) (*Map, error) {
	if s == nil {
		return nil, fmt.Errorf("nil snapshot: %w", ErrInvalidOperation)
	}
	if err := (Dimensions{W: s.Width, H: s.Height}).Validate(); err != nil {
		return nil, fmt.Errorf("snapshot %q: %w", s.Name, err)
	}
	if len(s.Tiles) != s.Width*s.Height {
		return nil, fmt.Errorf("snapshot %q has %d tiles for %dx%d: %w", s.Name, len(s.Tiles), s.Width, s.Height, ErrInvalidOperation)
	}
	m := New(Dimensions{W: s.Width, H: s.Height})
	for i, rec := range s.Tiles {
		if rec.Type >= tileTypeCount {
			return nil, fmt.Errorf("snapshot %q tile %d has unknown type %d: %w", s.Name, i, rec.Type, ErrInvalidOperation)
		}
		m.types[i] = rec.Type
		m.structures[i] = rec.Structure
		m.afflictions[i] = rec.Affliction.Clone()
		m.dirty.Put(i)
		if rec.Affliction.Len() > 0 {
			m.afflicted.Put(i)
		}
	}
	if !m.IsEmpty() {
		m.entry = m.clamp(s.Entry)
		m.exit = m.clamp(s.Exit)
	}
	m.revision++
	return m, nil
}

// MarshalText encodes the tile type by name.
func (t TileType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText parses a tile type name.
func (t *TileType) UnmarshalText(text []byte) error {
	parsed, ok := ParseTileType(string(text))
	if !ok {
		return fmt.Errorf("unknown tile type %q", text)
	}
	*t = parsed
	return nil
}

// MarshalText encodes the structure by name.
func (s Structure) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a structure name.
func (s *Structure) UnmarshalText(text []byte) error {
	parsed, ok := ParseStructure(string(text))
	if !ok {
		return fmt.Errorf("unknown structure %q", text)
	}
	*s = parsed
	return nil
}

// EncodeSnapshot serialises s as JSON.
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSnapshot parses JSON produced by EncodeSnapshot.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}
