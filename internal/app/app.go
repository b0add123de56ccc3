//go:build ebiten

package app

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"elemental-td/internal/editor"
	"elemental-td/internal/render"
	"elemental-td/internal/sims/sandbox"
	"elemental-td/internal/tilemap"
	"elemental-td/internal/ui"
)

var brushKeys = []ebiten.Key{
	ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3, ebiten.KeyDigit4,
	ebiten.KeyDigit5, ebiten.KeyDigit6, ebiten.KeyDigit7,
}

// Game adapts the sandbox world to the ebiten.Game interface. Left mouse
// paints with the selected brush, right mouse applies the selected element.
type Game struct {
	world   *sandbox.World
	editor  *editor.Editor
	painter *render.GridPainter
	overlay *ui.Overlay
	hud     *ui.HUD
	saver   func(name string) error

	scale    int
	hudWidth int
	paused   bool
	tickOnce bool
	seed     int64
}

// New constructs a Game for the provided world. save, when non-nil, is
// called by the save key with the level name.
func New(world *sandbox.World, cfg *Config, save func(name string) error) *Game {
	size := world.Size()
	return &Game{
		world:    world,
		editor:   editor.New(world),
		painter:  render.NewGridPainter(size.W, size.H),
		overlay:  ui.NewOverlay(world, cfg.Scale),
		hud:      ui.NewHUD(world, cfg.HUDWidth),
		saver:    save,
		scale:    max(cfg.Scale, 1),
		hudWidth: max(cfg.HUDWidth, 0),
		seed:     cfg.Seed,
	}
}

// Reset regenerates the level with the provided seed.
func (g *Game) Reset(seed int64) {
	g.seed = seed
	g.world.Reset(seed)
	g.tickOnce = false
}

// Update handles per-frame input and advances the world.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.tickOnce = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.Reset(g.seed)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyU) {
		g.world.SpawnUnit()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) && g.saver != nil {
		name := fmt.Sprintf("level-%d", g.world.Tick())
		if err := g.saver(name); err != nil {
			g.editor.Note(err.Error())
		} else {
			g.editor.Note("saved " + name)
		}
	}
	g.handleEditor()

	g.overlay.Update()
	g.hud.Update(g.mapWidth())
	g.hud.SetStatus(
		fmt.Sprintf("tick %d  gold %d", g.world.Tick(), g.world.Roster().Treasury().Gold()),
		fmt.Sprintf("units %d", g.world.Roster().Len()),
		g.editor.Tool(),
		g.editor.Status(),
	)

	if !g.paused || g.tickOnce {
		g.world.Step()
		g.tickOnce = false
	}
	return nil
}

func (g *Game) handleEditor() {
	for i, key := range brushKeys {
		if inpututil.IsKeyJustPressed(key) {
			g.editor.SelectBrush(i)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		g.editor.CycleElement()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) {
		g.editor.AdjustAmount(1)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) {
		g.editor.AdjustAmount(-1)
	}

	c, ok := g.tileUnderCursor()
	if !ok {
		return
	}
	switch {
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		_ = g.editor.Paint(c)
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight):
		if ebiten.IsKeyPressed(ebiten.KeyShift) {
			_ = g.editor.Drain(c)
		} else {
			_ = g.editor.Apply(c)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyE):
		_ = g.editor.SetEntry(c)
	case inpututil.IsKeyJustPressed(ebiten.KeyX):
		_ = g.editor.SetExit(c)
	}
}

func (g *Game) tileUnderCursor() (tilemap.Coordinate, bool) {
	x, y := ebiten.CursorPosition()
	if g.hud.Contains(x) {
		return tilemap.Coordinate{}, false
	}
	return TileAt(x, y, g.scale, g.world.Map().Dimensions())
}

func (g *Game) mapWidth() int { return g.world.Size().W * g.scale }

// Draw renders the map, the overlay and the HUD.
func (g *Game) Draw(screen *ebiten.Image) {
	size := g.world.Size()
	g.painter.Blit(screen, size.W, size.H, g.world.Cells(), g.world.Palette(), g.scale)
	g.overlay.Draw(screen)
	g.hud.Draw(screen, g.mapWidth(), g.scale)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	s := g.world.Size()
	return s.W*g.scale + g.hudWidth, s.H * g.scale
}
