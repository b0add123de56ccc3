// Package term renders the sandbox in a terminal and exposes the editor
// tools through the keyboard.
package term

import (
	"context"
	"fmt"
	"image/color"

	"github.com/gdamore/tcell/v2"

	"elemental-td/internal/core"
	"elemental-td/internal/editor"
	"elemental-td/internal/sims/sandbox"
	"elemental-td/internal/tilemap"
)

// View draws a world onto a tcell screen. The world is only touched from
// the goroutine running Run.
type View struct {
	world  *sandbox.World
	screen tcell.Screen

	editor *editor.Editor
	cursor tilemap.Coordinate
	paused bool
}

// New returns a view with the cursor on the wave entry.
func New(world *sandbox.World, screen tcell.Screen) *View {
	return &View{
		world:  world,
		screen: screen,
		editor: editor.New(world),
		cursor: world.Map().WaveEntry(),
	}
}

// Cursor reports the tile under the cursor.
func (v *View) Cursor() tilemap.Coordinate { return v.cursor }

// Paused reports whether stepping is suspended.
func (v *View) Paused() bool { return v.paused }

// Run steps the world at tps and redraws until ctx is done or the user
// quits.
func (v *View) Run(ctx context.Context, tps int) error {
	ticker := core.NewFixedStep(tps).NewTicker()
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	v.Draw()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !v.HandleEvent(ev) {
				return nil
			}
			v.Draw()
		case <-ticker.C:
			if !v.paused {
				v.world.Step()
			}
			v.Draw()
		}
	}
}

// HandleEvent applies one terminal event. It reports false when the user
// asked to quit.
func (v *View) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return v.HandleKey(ev.Key(), ev.Rune())
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

// HandleKey applies one key press.
func (v *View) HandleKey(key tcell.Key, r rune) bool {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		v.move(0, -1)
	case tcell.KeyDown:
		v.move(0, 1)
	case tcell.KeyLeft:
		v.move(-1, 0)
	case tcell.KeyRight:
		v.move(1, 0)
	case tcell.KeyTab:
		v.editor.CycleElement()
	case tcell.KeyRune:
		return v.handleRune(r)
	}
	return true
}

func (v *View) handleRune(r rune) bool {
	switch {
	case r == 'q':
		return false
	case r == 'h':
		v.move(-1, 0)
	case r == 'j':
		v.move(0, 1)
	case r == 'k':
		v.move(0, -1)
	case r == 'l':
		v.move(1, 0)
	case r >= '1' && r <= '9':
		v.editor.SelectBrush(int(r - '1'))
	case r == ' ':
		_ = v.editor.Paint(v.cursor)
	case r == 'a':
		_ = v.editor.Apply(v.cursor)
	case r == 'x':
		_ = v.editor.Drain(v.cursor)
	case r == '+' || r == '=':
		v.editor.AdjustAmount(1)
	case r == '-':
		v.editor.AdjustAmount(-1)
	case r == 'e':
		_ = v.editor.SetEntry(v.cursor)
	case r == 'o':
		_ = v.editor.SetExit(v.cursor)
	case r == 'u':
		v.world.SpawnUnit()
		v.editor.Note("unit spawned")
	case r == 'p':
		v.paused = !v.paused
	case r == 'n':
		if v.paused {
			v.world.Step()
		}
	case r == 'r':
		v.world.Reset(0)
		v.cursor = v.world.Map().WaveEntry()
		v.editor.Note("reset")
	}
	return true
}

func (v *View) move(dx, dy int) {
	next := tilemap.Coord(v.cursor.X+dx, v.cursor.Y+dy)
	if v.world.Map().InBounds(next) {
		v.cursor = next
	}
}

// Draw paints the map and the status line.
func (v *View) Draw() {
	v.screen.Clear()
	cells := v.world.Cells()
	palette := v.world.Palette()
	d := v.world.Map().Dimensions()
	sw, sh := v.screen.Size()

	for y := 0; y < d.H && y < sh-1; y++ {
		for x := 0; x < d.W && x < sw; x++ {
			idx := y*d.W + x
			if idx >= len(cells) {
				continue
			}
			glyph, style := cellStyle(cells[idx], palette)
			if x == v.cursor.X && y == v.cursor.Y {
				style = style.Reverse(true)
			}
			v.screen.SetContent(x, y, glyph, nil, style)
		}
	}
	v.drawStatus(sw, sh)
	v.screen.Show()
}

func (v *View) drawStatus(sw, sh int) {
	if sh <= 0 {
		return
	}
	state := "run"
	if v.paused {
		state = "paused"
	}
	line := fmt.Sprintf("t=%d gold=%d units=%d %s | %s | %s",
		v.world.Tick(),
		v.world.Roster().Treasury().Gold(),
		v.world.Roster().Len(),
		state,
		v.editor.Tool(),
		v.editor.Status(),
	)
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	for i, r := range []rune(line) {
		if i >= sw {
			break
		}
		v.screen.SetContent(i, sh-1, r, nil, style)
	}
}

func cellStyle(v uint8, palette []color.RGBA) (rune, tcell.Style) {
	t, barricade, route, _, unit := sandbox.DecodeCell(v)
	glyph := tileGlyph(t)
	switch {
	case unit:
		glyph = '@'
	case barricade:
		glyph = '='
	case route && t == tilemap.TileBarren:
		glyph = '+'
	}
	style := tcell.StyleDefault
	if int(v) < len(palette) {
		c := palette[v]
		style = style.Background(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))).Foreground(tcell.ColorBlack)
	}
	return glyph, style
}

func tileGlyph(t tilemap.TileType) rune {
	switch t {
	case tilemap.TileRock:
		return '#'
	case tilemap.TileWater:
		return '~'
	case tilemap.TileVoid:
		return ' '
	case tilemap.TileFire:
		return '^'
	default:
		return '.'
	}
}
