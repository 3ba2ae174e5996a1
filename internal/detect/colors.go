package detect

import "image/color"

var classColors = map[string]color.RGBA{
	"person":        {R: 0xff, A: 0xff},
	"car":           {G: 0xff, A: 0xff},
	"truck":         {G: 0x88, B: 0xff, A: 0xff},
	"bus":           {R: 0xff, G: 0x88, A: 0xff},
	"motorcycle":    {R: 0xff, B: 0xff, A: 0xff},
	"bicycle":       {G: 0xff, B: 0xff, A: 0xff},
	"traffic light": {R: 0xff, G: 0xff, A: 0xff},
	"stop sign":     {R: 0xff, G: 0x44, B: 0x44, A: 0xff},
}

// DefaultColor is used for labels without an entry.
var DefaultColor = color.RGBA{G: 0xff, A: 0xff}

func ClassColor(label string) color.RGBA {
	if c, ok := classColors[label]; ok {
		return c
	}
	return DefaultColor
}
