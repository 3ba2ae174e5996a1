package detect

import (
	"image"
	"math"
)

const (
	DefaultBrightness = 1.6
	DefaultContrast   = 1.15
)

// Enhance applies contrast around mid-grey, then brightness, in place.
// Alpha is untouched.
func Enhance(img *image.RGBA, brightness, contrast float64) {
	var lut [256]uint8
	for v := range lut {
		f := ((float64(v)-128)*contrast + 128) * brightness
		lut[v] = uint8(math.Max(0, math.Min(255, f)))
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			row[i] = lut[row[i]]
			row[i+1] = lut[row[i+1]]
			row[i+2] = lut[row[i+2]]
		}
	}
}

// FlipVertical turns a bottom-up GL readback into a top-down image.
func FlipVertical(img *image.RGBA) {
	b := img.Bounds()
	rowLen := b.Dx() * 4
	tmp := make([]byte, rowLen)
	for top, bottom := b.Min.Y, b.Max.Y-1; top < bottom; top, bottom = top+1, bottom-1 {
		t := img.Pix[img.PixOffset(b.Min.X, top):][:rowLen]
		u := img.Pix[img.PixOffset(b.Min.X, bottom):][:rowLen]
		copy(tmp, t)
		copy(t, u)
		copy(u, tmp)
	}
}
