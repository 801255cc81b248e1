// Package render turns sim display ids into pixels.
package render

import "image/color"

// FillPalette converts display ids into RGBA pixels in buf using palette.
// Ids past the end of the palette take its last color; an empty palette
// clears the buffer to transparent black.
func FillPalette(buf []byte, cells []uint8, palette []color.RGBA) {
	if len(palette) == 0 {
		clear(buf[:4*len(cells)])
		return
	}
	last := len(palette) - 1
	for i, c := range cells {
		idx := int(c)
		if idx > last {
			idx = last
		}
		col := palette[idx]
		base := i * 4
		buf[base+0] = col.R
		buf[base+1] = col.G
		buf[base+2] = col.B
		buf[base+3] = col.A
	}
}

// Tint blends every pixel whose cell equals id toward col by weight in
// [0, 1]. It runs after FillPalette to highlight one phase.
func Tint(buf []byte, cells []uint8, id uint8, col color.RGBA, weight float64) {
	if weight <= 0 {
		return
	}
	if weight > 1 {
		weight = 1
	}
	mix := func(a, b uint8) uint8 {
		return uint8(float64(a)*(1-weight) + float64(b)*weight + 0.5)
	}
	for i, c := range cells {
		if c != id {
			continue
		}
		base := i * 4
		buf[base+0] = mix(buf[base+0], col.R)
		buf[base+1] = mix(buf[base+1], col.G)
		buf[base+2] = mix(buf[base+2], col.B)
		buf[base+3] = 255
	}
}
