package app

import "elemental-td/internal/tilemap"

// TileAt maps a screen pixel to the tile drawn there at the given scale.
func TileAt(x, y, scale int, dims tilemap.Dimensions) (tilemap.Coordinate, bool) {
	if scale <= 0 || x < 0 || y < 0 {
		return tilemap.Coordinate{}, false
	}
	c := tilemap.Coord(x/scale, y/scale)
	if c.X >= dims.W || c.Y >= dims.H {
		return tilemap.Coordinate{}, false
	}
	return c, true
}
