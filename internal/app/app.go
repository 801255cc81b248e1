//go:build ebiten

package app

import (
	"image/color"
	"time"

	"cemhyd/internal/core"
	"cemhyd/internal/render"
	"cemhyd/internal/ui"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

type paletteProvider interface {
	Palette() []color.RGBA
}

type slicer interface {
	Slice() int
	SetIntParameter(key string, value int) bool
}

// Game adapts a core simulation to the ebiten.Game interface. Each tick
// advances one sim step; up and down arrows move through the z slices.
type Game struct {
	sim     core.Sim
	painter *render.GridPainter
	hud     *ui.HUD
	overlay *ui.Overlay
	palette []color.RGBA

	scale    int
	hudWidth int
	paused   bool
	tickOnce bool
	seed     int64
}

// New constructs a Game for sim.
func New(sim core.Sim, scale, hudWidth int, seed int64) *Game {
	size := sim.Size()
	g := &Game{
		sim:      sim,
		painter:  render.NewGridPainter(size.W, size.H),
		hud:      ui.NewHUD(sim, hudWidth),
		scale:    max(scale, 1),
		hudWidth: max(hudWidth, 0),
		seed:     seed,
	}
	if p, ok := sim.(paletteProvider); ok {
		g.palette = p.Palette()
	} else {
		g.palette = []color.RGBA{{A: 255}, {R: 255, G: 255, B: 255, A: 255}}
	}
	g.overlay = ui.NewOverlay(g.palette)
	return g
}

// Reset reinitializes the simulation state with the provided seed.
func (g *Game) Reset(seed int64) {
	g.seed = seed
	g.sim.Reset(seed)
	g.tickOnce = false
}

// Update handles per-frame logic and advances the simulation.
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
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.Reset(time.Now().UnixNano())
	}
	if s, ok := g.sim.(slicer); ok {
		switch {
		case inpututil.IsKeyJustPressed(ebiten.KeyUp):
			s.SetIntParameter("slice", s.Slice()+1)
		case inpututil.IsKeyJustPressed(ebiten.KeyDown):
			s.SetIntParameter("slice", s.Slice()-1)
		}
	}

	g.hud.Update(g.sim.Size().W * g.scale)
	if !g.paused || g.tickOnce {
		g.sim.Step()
		g.tickOnce = false
	}
	g.overlay.Update(g.sim.Cells())
	return nil
}

// Draw renders the current slice, the legend and the side panel.
func (g *Game) Draw(screen *ebiten.Image) {
	g.painter.Blit(screen, g.sim.Cells(), g.palette, g.overlay.Highlight(), g.scale)
	g.overlay.Draw(screen)
	g.hud.Draw(screen, g.sim.Size().W*g.scale, g.scale)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	s := g.sim.Size()
	return s.W*g.scale + g.hudWidth, s.H * g.scale
}
