package detect

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	labelText   = color.RGBA{A: 0xff}
	captionRec  = color.RGBA{G: 0xff, A: 0xff}
	captionObjs = color.RGBA{R: 0xff, G: 0x66, A: 0xff}
)

// OverlayStyle sets stroke widths; the fullscreen view uses heavier lines.
type OverlayStyle struct {
	Line   int
	Marker int
}

var (
	InsetStyle      = OverlayStyle{Line: 2, Marker: 3}
	FullscreenStyle = OverlayStyle{Line: 3, Marker: 4}
)

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func strokeRect(img *image.RGBA, r image.Rectangle, w int, c color.RGBA) {
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w), c)
	fillRect(img, image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y), c)
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y), c)
	fillRect(img, image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y), c)
}

func drawText(img *image.RGBA, x, y int, text string, c color.RGBA) int {
	d := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: c},
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
	return d.MeasureString(text).Ceil()
}

// DrawBoxes strokes each detection with its class colour, adds corner
// markers and a filled label bar above the box.
func DrawBoxes(img *image.RGBA, dets []Detection, style OverlayStyle) {
	face := basicfont.Face7x13
	fontH := face.Metrics().Height.Ceil()

	for _, det := range dets {
		c := ClassColor(det.Label)
		r := image.Rect(
			int(math.Round(det.Box.X)), int(math.Round(det.Box.Y)),
			int(math.Round(det.Box.X+det.Box.W)), int(math.Round(det.Box.Y+det.Box.H)),
		).Add(img.Bounds().Min)
		strokeRect(img, r, style.Line, c)

		m := int(math.Min(15, math.Min(det.Box.W/4, det.Box.H/4)))
		if m > 0 {
			w := style.Marker
			fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+m, r.Min.Y+w), c)
			fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Min.Y+m), c)
			fillRect(img, image.Rect(r.Max.X-m, r.Min.Y, r.Max.X, r.Min.Y+w), c)
			fillRect(img, image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Min.Y+m), c)
			fillRect(img, image.Rect(r.Min.X, r.Max.Y-w, r.Min.X+m, r.Max.Y), c)
			fillRect(img, image.Rect(r.Min.X, r.Max.Y-m, r.Min.X+w, r.Max.Y), c)
			fillRect(img, image.Rect(r.Max.X-m, r.Max.Y-w, r.Max.X, r.Max.Y), c)
			fillRect(img, image.Rect(r.Max.X-w, r.Max.Y-m, r.Max.X, r.Max.Y), c)
		}

		text := fmt.Sprintf("%s %.1f%%", det.Label, det.Confidence*100)
		tw := font.MeasureString(face, text).Ceil()
		fillRect(img, image.Rect(r.Min.X, r.Min.Y-fontH-4, r.Min.X+tw+8, r.Min.Y), c)
		drawText(img, r.Min.X+4, r.Min.Y-4, text, labelText)
	}
}

// DrawCaption writes the recording stamp and object count at the bottom
// left of the frame.
func DrawCaption(img *image.RGBA, objects int, now time.Time) {
	b := img.Bounds()
	drawText(img, b.Min.X+10, b.Max.Y-25, fmt.Sprintf("Objects: %d", objects), captionObjs)
	drawText(img, b.Min.X+10, b.Max.Y-10, "REC * "+now.Format("15:04:05"), captionRec)
}
