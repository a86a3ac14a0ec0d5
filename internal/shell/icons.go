package shell

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

// Icon renders the tray icon: a dark disc, ringed red while blocking and
// grey otherwise.
func Icon(active bool) []byte {
	const size = 32
	ring := color.NRGBA{R: 160, G: 160, B: 160, A: 255}
	if active {
		ring = color.NRGBA{R: 220, G: 55, B: 55, A: 255}
	}
	hole := color.NRGBA{R: 20, G: 20, B: 20, A: 255}

	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	c := float64(size-1) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d := math.Hypot(float64(x)-c, float64(y)-c)
			switch {
			case d <= 9:
				img.SetNRGBA(x, y, hole)
			case d <= 15:
				img.SetNRGBA(x, y, ring)
			}
		}
	}

	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}
