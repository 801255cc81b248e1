//go:build ebiten

package ui

import (
	"image"
	"image/color"
	"strconv"
	"strings"

	"cemhyd/internal/core"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

type parameterProvider interface {
	Parameters() core.ParameterSnapshot
}

var (
	panelBG    = color.RGBA{R: 16, G: 16, B: 20, A: 255}
	titleColor = color.RGBA{R: 200, G: 200, B: 210, A: 255}
	textColor  = color.RGBA{R: 220, G: 220, B: 230, A: 255}
	dimColor   = color.RGBA{R: 160, G: 160, B: 170, A: 255}
)

// HUD renders the side panel: integer controls with -/+ buttons on top,
// then a read-only listing of every parameter group the sim reports.
type HUD struct {
	sim    core.Sim
	width  int
	panel  *ebiten.Image
	pixel  *ebiten.Image
	setter core.IntParameterSetter

	snapshot     core.ParameterSnapshot
	controls     []control
	panelOffsetX int
}

type control struct {
	spec      core.ParameterControl
	value     int
	hasValue  bool
	top       int
	minusRect image.Rectangle
	plusRect  image.Rectangle
}

// NewHUD constructs a HUD for sim with a panel of the given width.
func NewHUD(sim core.Sim, width int) *HUD {
	h := &HUD{sim: sim, width: max(width, 0)}
	if h.width == 0 {
		return h
	}
	h.pixel = ebiten.NewImage(1, 1)
	h.pixel.Fill(color.White)
	if setter, ok := sim.(core.IntParameterSetter); ok {
		h.setter = setter
	}
	if provider, ok := sim.(core.ParameterControlsProvider); ok {
		for _, spec := range provider.ParameterControls() {
			if spec.Type != core.ParamTypeInt {
				continue
			}
			top := controlsTop + len(h.controls)*lineHeight
			buttonY := top + (lineHeight-buttonSize)/2
			plus := image.Rect(h.width-panelPadding-buttonSize, buttonY, h.width-panelPadding, buttonY+buttonSize)
			minus := image.Rect(plus.Min.X-buttonGap-buttonSize, buttonY, plus.Min.X-buttonGap, buttonY+buttonSize)
			h.controls = append(h.controls, control{spec: spec, top: top, minusRect: minus, plusRect: plus})
		}
	}
	return h
}

// Update refreshes the parameter snapshot and handles button clicks.
func (h *HUD) Update(panelOffsetX int) {
	if h == nil || h.width == 0 {
		return
	}
	h.panelOffsetX = panelOffsetX
	provider, ok := h.sim.(parameterProvider)
	if !ok {
		h.snapshot = core.ParameterSnapshot{}
		return
	}
	h.snapshot = provider.Parameters()
	for i := range h.controls {
		c := &h.controls[i]
		c.hasValue = false
		if p, ok := h.snapshot.Lookup(c.spec.Key); ok {
			if v, err := strconv.Atoi(p.Value); err == nil {
				c.value, c.hasValue = v, true
			}
		}
	}
	h.handleInput()
}

// Draw paints the panel at offsetX, as tall as the scaled sim view.
func (h *HUD) Draw(screen *ebiten.Image, offsetX, scale int) {
	if h == nil || h.width == 0 {
		return
	}
	height := h.sim.Size().H * max(scale, 1)
	if height <= 0 {
		return
	}
	if h.panel == nil || h.panel.Bounds().Dy() != height {
		h.panel = ebiten.NewImage(h.width, height)
	}
	h.panel.Fill(panelBG)
	h.drawContents(height)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(offsetX), 0)
	screen.DrawImage(h.panel, op)
}

func (h *HUD) handleInput() {
	if h.setter == nil || !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return
	}
	mx, my := ebiten.CursorPosition()
	px := mx - h.panelOffsetX
	if px < 0 {
		return
	}
	for i := range h.controls {
		c := &h.controls[i]
		if !c.hasValue {
			continue
		}
		switch {
		case image.Pt(px, my).In(c.minusRect):
			h.adjust(c, -1)
			return
		case image.Pt(px, my).In(c.plusRect):
			h.adjust(c, 1)
			return
		}
	}
}

func (h *HUD) adjust(c *control, direction int) {
	target, ok := step(c.spec, c.value, direction)
	if ok && h.setter.SetIntParameter(c.spec.Key, target) {
		c.value = target
	}
}

func (h *HUD) drawContents(height int) {
	face := basicfont.Face7x13
	text.Draw(h.panel, strings.ToUpper(h.sim.Name()), face, panelPadding, panelPadding+headerBaseline, titleColor)

	for i := range h.controls {
		c := &h.controls[i]
		y := c.top + labelBaseline
		text.Draw(h.panel, c.spec.Label, face, panelPadding, y, textColor)
		value, col := "--", dimColor
		if c.hasValue {
			value, col = strconv.Itoa(c.value), textColor
		}
		w := text.BoundString(face, value).Dx()
		text.Draw(h.panel, value, face, c.minusRect.Min.X-buttonGap-w, y, col)
		_, canDown := step(c.spec, c.value, -1)
		_, canUp := step(c.spec, c.value, 1)
		h.drawButton(c.minusRect, "-", c.hasValue && canDown && h.setter != nil)
		h.drawButton(c.plusRect, "+", c.hasValue && canUp && h.setter != nil)
	}

	y := controlsTop + len(h.controls)*lineHeight + rowHeight
	for _, g := range h.snapshot.Groups {
		if y > height-rowHeight {
			return
		}
		text.Draw(h.panel, g.Name, face, panelPadding, y, titleColor)
		y += rowHeight
		for _, p := range g.Params {
			if y > height-rowHeight {
				return
			}
			text.Draw(h.panel, p.Label, face, panelPadding, y, dimColor)
			w := text.BoundString(face, p.Value).Dx()
			text.Draw(h.panel, p.Value, face, h.width-panelPadding-w, y, textColor)
			y += rowHeight
		}
		y += rowHeight / 2
	}
}

func (h *HUD) drawButton(rect image.Rectangle, label string, enabled bool) {
	bg := color.RGBA{R: 54, G: 56, B: 64, A: 255}
	fg := color.RGBA{R: 230, G: 230, B: 240, A: 255}
	if !enabled {
		bg = color.RGBA{R: 32, G: 34, B: 40, A: 255}
		fg = color.RGBA{R: 120, G: 120, B: 130, A: 255}
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(rect.Dx()), float64(rect.Dy()))
	op.GeoM.Translate(float64(rect.Min.X), float64(rect.Min.Y))
	op.ColorScale.ScaleWithColor(bg)
	h.panel.DrawImage(h.pixel, op)

	face := basicfont.Face7x13
	b := text.BoundString(face, label)
	x := rect.Min.X + (rect.Dx()-b.Dx())/2
	y := rect.Min.Y + (rect.Dy()-b.Dy())/2 + b.Dy()
	text.Draw(h.panel, label, face, x, y, fg)
}

const (
	panelPadding   = 12
	lineHeight     = 36
	rowHeight      = 16
	buttonSize     = 24
	buttonGap      = 6
	headerBaseline = 18
	labelBaseline  = 24
	controlsTop    = panelPadding + headerBaseline + 14
)
