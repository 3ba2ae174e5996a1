package flightlog

import (
	"fmt"
	"image/color"
	"io"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"drone-city-sim/internal/sim"
)

var (
	altitudeColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	speedColor    = color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}
)

func profilePlot(frames []sim.RecordingFrame, tickRate float64) (*plot.Plot, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	altPts := make(plotter.XYs, len(frames))
	speedPts := make(plotter.XYs, len(frames))
	for i, f := range frames {
		t := frameTime(f, tickRate)
		altPts[i] = plotter.XY{X: t, Y: f.Position.Y}
		speedPts[i] = plotter.XY{X: t, Y: f.HorizontalSpeed()}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Flight profile (%d frames)", len(frames))
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "altitude (m) / speed (m/s)"
	p.Add(plotter.NewGrid())

	alt, err := plotter.NewLine(altPts)
	if err != nil {
		return nil, fmt.Errorf("altitude line: %w", err)
	}
	alt.Color = altitudeColor
	alt.Width = vg.Points(1)

	speed, err := plotter.NewLine(speedPts)
	if err != nil {
		return nil, fmt.Errorf("speed line: %w", err)
	}
	speed.Color = speedColor
	speed.Width = vg.Points(1)

	p.Add(alt, speed)
	p.Legend.Add("altitude", alt)
	p.Legend.Add("speed", speed)
	p.Legend.Top = true
	return p, nil
}

// PlotProfile renders altitude and horizontal speed against time as PNG.
func PlotProfile(w io.Writer, frames []sim.RecordingFrame, tickRate float64) error {
	p, err := profilePlot(frames, tickRate)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("preparing profile png: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("writing profile png: %w", err)
	}
	return nil
}

func SaveProfile(path string, frames []sim.RecordingFrame, tickRate float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := PlotProfile(f, frames, tickRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
