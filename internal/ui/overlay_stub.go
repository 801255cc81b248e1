//go:build !ebiten

package ui

import "image/color"

// Overlay is a no-op placeholder used when the ebiten build tag is absent.
type Overlay struct{}

// NewOverlay constructs a stub overlay.
func NewOverlay([]color.RGBA) *Overlay { return &Overlay{} }

// Update is a no-op in headless builds.
func (o *Overlay) Update([]uint8) {}

// Draw is a no-op placeholder.
func (o *Overlay) Draw(any) {}
