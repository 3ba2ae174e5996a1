// Package detect turns drone-camera frames into labelled bounding boxes and
// throttles the detector so the simulation tick never waits on it.
package detect

import (
	"context"
	"errors"
	"image"

	"drone-city-sim/internal/geom"
)

// ErrDisabled is returned once detection has been turned off, either by
// configuration or by a failed model load.
var ErrDisabled = errors.New("detection disabled")

// ErrBusy is returned by Submit when the interval has not elapsed or a call
// is still in flight.
var ErrBusy = errors.New("detector busy")

// Box is a pixel rectangle with its origin at the top-left of the frame.
type Box struct {
	X, Y, W, H float64
}

type Detection struct {
	Label      string
	Confidence float64
	Box        Box
}

// Frame is one drone-camera capture. Image may be nil when no renderer is
// attached; ViewProj and Eye always describe the camera.
type Frame struct {
	Image    *image.RGBA
	ViewProj geom.Mat4
	Eye      geom.Vec3
	Width    int
	Height   int
	Seq      uint64
}

type Detector interface {
	Load(ctx context.Context) error
	Detect(ctx context.Context, f Frame) ([]Detection, error)
}

// Counts tallies detections per label.
func Counts(dets []Detection) map[string]int {
	out := make(map[string]int, len(dets))
	for _, d := range dets {
		out[d.Label]++
	}
	return out
}
