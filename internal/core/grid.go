package core

// ByteGrid stores one display byte per tile in row-major order. Viewers read
// it through Sim.Cells.
type ByteGrid struct {
	W, H int
	data []uint8
}

// NewByteGrid allocates a grid with the given dimensions. Non-positive
// dimensions give an empty grid.
func NewByteGrid(w, h int) *ByteGrid {
	g := &ByteGrid{}
	g.Resize(w, h)
	return g
}

// Cells exposes the backing slice so callers can read/write values directly.
func (g *ByteGrid) Cells() []uint8 { return g.data }

// Index returns the linear slice index for coordinates (x, y).
func (g *ByteGrid) Index(x, y int) int { return y*g.W + x }

// Set writes v at idx, ignoring indices outside the grid.
func (g *ByteGrid) Set(idx int, v uint8) {
	if idx >= 0 && idx < len(g.data) {
		g.data[idx] = v
	}
}

// Resize reallocates the grid when the dimensions change. The contents are
// zeroed either way; callers repaint after a resize.
func (g *ByteGrid) Resize(w, h int) {
	if w <= 0 || h <= 0 {
		w, h = 0, 0
	}
	if w*h != len(g.data) {
		g.data = make([]uint8, w*h)
	} else {
		g.Clear()
	}
	g.W, g.H = w, h
}

// Clear fills the grid with zeros.
func (g *ByteGrid) Clear() {
	for i := range g.data {
		g.data[i] = 0
	}
}
