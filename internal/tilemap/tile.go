package tilemap

import (
	"fmt"
	"strings"
)

// Coordinate addresses a tile by column and row.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Coord is shorthand for Coordinate{X: x, Y: y}.
func Coord(x, y int) Coordinate { return Coordinate{X: x, Y: y} }

func (c Coordinate) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Manhattan returns the taxicab distance between c and o.
func (c Coordinate) Manhattan(o Coordinate) int {
	return absInt(c.X-o.X) + absInt(c.Y-o.Y)
}

// Dimensions describes the width and height of a map.
type Dimensions struct {
	W int `json:"w"`
	H int `json:"h"`
}

// MaxTiles bounds the arena a map may allocate.
const MaxTiles = 1 << 22

// Area returns W*H.
func (d Dimensions) Area() int { return d.W * d.H }

// Validate rejects negative sides and areas above MaxTiles. Zero-area
// dimensions are valid and describe the unloaded map.
func (d Dimensions) Validate() error {
	if d.W < 0 || d.H < 0 {
		return fmt.Errorf("dimensions %dx%d: %w", d.W, d.H, ErrInvalidOperation)
	}
	if d.W > 0 && d.H > MaxTiles/d.W {
		return fmt.Errorf("dimensions %dx%d exceed %d tiles: %w", d.W, d.H, MaxTiles, ErrInvalidOperation)
	}
	return nil
}

// TileType enumerates the terrain of a tile.
type TileType uint8

const (
	TileBarren TileType = iota
	TileRock
	TileWater
	TileVoid
	TileFire

	tileTypeCount
)

// TileTypes returns every tile type in declaration order.
func TileTypes() []TileType {
	out := make([]TileType, 0, tileTypeCount)
	for t := TileType(0); t < tileTypeCount; t++ {
		out = append(out, t)
	}
	return out
}

func (t TileType) String() string {
	switch t {
	case TileBarren:
		return "Barren"
	case TileRock:
		return "Rock"
	case TileWater:
		return "Water"
	case TileVoid:
		return "Air"
	case TileFire:
		return "Fire"
	default:
		return fmt.Sprintf("TileType(%d)", uint8(t))
	}
}

// ParseTileType resolves a tile type from its display name. "void" is
// accepted as an alias of Air.
func ParseTileType(name string) (TileType, bool) {
	if strings.EqualFold(name, "void") {
		return TileVoid, true
	}
	for _, t := range TileTypes() {
		if strings.EqualFold(t.String(), name) {
			return t, true
		}
	}
	return 0, false
}

// Structure enumerates the optional build on top of a tile.
type Structure uint8

const (
	StructureNone Structure = iota
	StructureBarricade
)

// Structures returns every structure in declaration order.
func Structures() []Structure {
	return []Structure{StructureNone, StructureBarricade}
}

func (s Structure) String() string {
	switch s {
	case StructureNone:
		return "None"
	case StructureBarricade:
		return "Barricade"
	default:
		return fmt.Sprintf("Structure(%d)", uint8(s))
	}
}

// ParseStructure resolves a structure from its display name.
func ParseStructure(name string) (Structure, bool) {
	for _, s := range Structures() {
		if strings.EqualFold(s.String(), name) {
			return s, true
		}
	}
	return 0, false
}

// TilePatch is a partial tile update; nil fields are left unchanged.
type TilePatch struct {
	Type      *TileType
	Structure *Structure
}

// PatchType returns a patch that only changes the tile type.
func PatchType(t TileType) TilePatch { return TilePatch{Type: &t} }

// PatchStructure returns a patch that only changes the structure.
func PatchStructure(s Structure) TilePatch { return TilePatch{Structure: &s} }

// Patch returns a patch that changes both fields.
func Patch(t TileType, s Structure) TilePatch { return TilePatch{Type: &t, Structure: &s} }

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
