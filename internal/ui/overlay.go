//go:build ebiten

package ui

import (
	"image/color"
	"sort"

	"cemhyd/internal/phase"
	"cemhyd/internal/render"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

var highlightColor = color.RGBA{R: 255, G: 40, B: 40, A: 255}

// Overlay draws a phase legend over the slice and picks a phase to
// highlight. L toggles the legend, H cycles the highlighted phase through
// those present in the slice and X clears it.
type Overlay struct {
	palette    []color.RGBA
	showLegend bool
	present    []uint8
	highlight  int
	pixel      *ebiten.Image
}

// NewOverlay returns an overlay coloring legend swatches from palette.
func NewOverlay(palette []color.RGBA) *Overlay {
	o := &Overlay{palette: palette, showLegend: true, highlight: -1}
	o.pixel = ebiten.NewImage(1, 1)
	o.pixel.Fill(color.White)
	return o
}

// Update records the phases present in cells and handles the overlay keys.
func (o *Overlay) Update(cells []uint8) {
	var seen [256]bool
	o.present = o.present[:0]
	for _, c := range cells {
		if !seen[c] {
			seen[c] = true
			o.present = append(o.present, c)
		}
	}
	sort.Slice(o.present, func(i, j int) bool { return o.present[i] < o.present[j] })

	if inpututil.IsKeyJustPressed(ebiten.KeyL) {
		o.showLegend = !o.showLegend
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyX) {
		o.highlight = -1
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyH) && len(o.present) > 0 {
		o.highlight = o.next()
	}
}

// next returns the first present id above the current highlight, wrapping.
func (o *Overlay) next() int {
	for _, id := range o.present {
		if int(id) > o.highlight {
			return int(id)
		}
	}
	return int(o.present[0])
}

// Highlight reports the phase the painter should tint.
func (o *Overlay) Highlight() render.Highlight {
	if o.highlight < 0 {
		return render.Highlight{}
	}
	return render.Highlight{ID: uint8(o.highlight), Color: highlightColor, On: true}
}

// Draw paints the legend in the top-left corner of screen.
func (o *Overlay) Draw(screen *ebiten.Image) {
	if !o.showLegend {
		return
	}
	face := basicfont.Face7x13
	y := legendPadding
	for _, id := range o.present {
		col := color.RGBA{A: 255}
		if int(id) < len(o.palette) {
			col = o.palette[id]
		}
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(swatchSize, swatchSize)
		op.GeoM.Translate(legendPadding, float64(y))
		op.ColorScale.ScaleWithColor(col)
		screen.DrawImage(o.pixel, op)

		label := phase.Phase(id).String()
		fg := color.RGBA{R: 240, G: 240, B: 240, A: 255}
		if int(id) == o.highlight {
			fg = highlightColor
		}
		text.Draw(screen, label, face, legendPadding+swatchSize+4, y+swatchSize-1, fg)
		y += swatchSize + 3
	}
}

const (
	legendPadding = 6
	swatchSize    = 10
)
