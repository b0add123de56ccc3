// Package spectate streams a running sandbox to websocket viewers and
// accepts editor commands from them.
package spectate

import (
	"encoding/json"

	"elemental-td/internal/element"
	"elemental-td/internal/roster"
	"elemental-td/internal/tilemap"
)

// MessageType tags every envelope on the wire.
type MessageType string

const (
	TypeSnapshot MessageType = "snapshot"
	TypeFrame    MessageType = "frame"
	TypeError    MessageType = "error"
	TypeLevels   MessageType = "levels"

	TypePaint  MessageType = "paint"
	TypeApply  MessageType = "apply"
	TypeResize MessageType = "resize"
	TypeEntry  MessageType = "entry"
	TypeExit   MessageType = "exit"
	TypeSave   MessageType = "save"
	TypeLoad   MessageType = "load"
	TypeList   MessageType = "list"
)

// Message is the envelope for both directions.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outbound struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload,omitempty"`
}

func encode(t MessageType, payload any) ([]byte, error) {
	return json.Marshal(outbound{Type: t, Payload: payload})
}

// UnitState is the wire form of a roster unit.
type UnitState struct {
	ID        int `json:"id"`
	X         int `json:"x"`
	Y         int `json:"y"`
	Health    int `json:"health"`
	MaxHealth int `json:"max_health"`
}

func unitStates(units []roster.Unit) []UnitState {
	out := make([]UnitState, len(units))
	for i, u := range units {
		out[i] = UnitState{ID: u.ID, X: u.Pos.X, Y: u.Pos.Y, Health: u.Health.Current, MaxHealth: u.Health.Max}
	}
	return out
}

// SnapshotMessage carries the full state, sent on join and after every
// resize or level load.
type SnapshotMessage struct {
	Tick  uint64               `json:"tick"`
	Level *tilemap.Snapshot    `json:"level"`
	Route []tilemap.Coordinate `json:"route"`
	Units []UnitState          `json:"units"`
	Gold  int                  `json:"gold"`
}

// TileUpdate is one changed tile.
type TileUpdate struct {
	Index int `json:"index"`
	tilemap.TileRecord
}

// FrameMessage carries the tiles that changed during one cycle. Route is
// only present when it changed.
type FrameMessage struct {
	Tick      uint64               `json:"tick"`
	Tiles     []TileUpdate         `json:"tiles"`
	Route     []tilemap.Coordinate `json:"route,omitempty"`
	RouteLost bool                 `json:"route_lost,omitempty"`
	Units     []UnitState          `json:"units"`
	Gold      int                  `json:"gold"`
	Reactions int                  `json:"reactions"`
	Reaped    []int                `json:"reaped,omitempty"`
	Leaked    []int                `json:"leaked,omitempty"`
}

// ErrorMessage reports a rejected command back to its sender.
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PaintCommand applies a partial tile update. Omitted fields stay as they
// are.
type PaintCommand struct {
	X         int                `json:"x"`
	Y         int                `json:"y"`
	Type      *tilemap.TileType  `json:"type,omitempty"`
	Structure *tilemap.Structure `json:"structure,omitempty"`
}

// ApplyCommand charges or drains a tile.
type ApplyCommand struct {
	X          int                `json:"x"`
	Y          int                `json:"y"`
	Affliction element.Affliction `json:"affliction"`
	Remove     bool               `json:"remove,omitempty"`
}

// ResizeCommand changes the map dimensions.
type ResizeCommand struct {
	W int `json:"w"`
	H int `json:"h"`
}

// PointCommand moves the wave entry or exit.
type PointCommand struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// LevelCommand names a stored level.
type LevelCommand struct {
	Name string `json:"name"`
}
