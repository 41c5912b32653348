package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// Icons are generated at init rather than embedded, since no icon asset
// was ever part of this tool's distribution — a flat-colored disc is
// enough to distinguish tray states at a glance.
var (
	IconMouseOnly    = renderIcon(color.RGBA{0x3a, 0x8d, 0xde, 0xff})
	IconMixed        = renderIcon(color.RGBA{0x4c, 0xaf, 0x50, 0xff})
	IconKeyboardOnly = renderIcon(color.RGBA{0xe6, 0x8a, 0x00, 0xff})
	IconFault        = renderIcon(color.RGBA{0xc2, 0x33, 0x33, 0xff})
)

// renderIcon draws a filled circle of c on transparent background and
// encodes it as PNG bytes, the format fyne.io/systray expects on every
// supported platform.
func renderIcon(c color.RGBA) []byte {
	const size = 32
	const radius = size/2 - 2
	const center = size / 2

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.Transparent, image.Point{}, draw.Src)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := x-center, y-center
			if dx*dx+dy*dy <= radius*radius {
				img.Set(x, y, c)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err) // encoding a freshly drawn in-memory image never fails
	}
	return buf.Bytes()
}
