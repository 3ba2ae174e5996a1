// Package flightlog exports recorded flights: CSV files, a session store,
// altitude/speed plots and InfluxDB points.
package flightlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"drone-city-sim/internal/geom"
	"drone-city-sim/internal/sim"
)

// ErrNoFrames is returned when there is nothing to export.
var ErrNoFrames = errors.New("no frames recorded")

// NominalTickRate is the rate the Time column is synthesized at.
const NominalTickRate = 60.0

var csvHeader = []string{"Time", "X", "Y", "Z", "VelX", "VelY", "VelZ", "Rotation", "Speed"}

func fmtFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// frameTime is the synthesized timestamp of a frame in seconds.
func frameTime(f sim.RecordingFrame, tickRate float64) float64 {
	if tickRate <= 0 {
		tickRate = NominalTickRate
	}
	return float64(f.Index) / tickRate
}

// WriteCSV writes one row per frame. Time is index/tickRate, Rotation is
// yaw in radians and Speed is horizontal speed.
func WriteCSV(w io.Writer, frames []sim.RecordingFrame, tickRate float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	row := make([]string, len(csvHeader))
	for _, f := range frames {
		row[0] = fmtFloat(frameTime(f, tickRate), 3)
		row[1] = fmtFloat(f.Position.X, 3)
		row[2] = fmtFloat(f.Position.Y, 3)
		row[3] = fmtFloat(f.Position.Z, 3)
		row[4] = fmtFloat(f.Velocity.X, 3)
		row[5] = fmtFloat(f.Velocity.Y, 3)
		row[6] = fmtFloat(f.Velocity.Z, 3)
		row[7] = fmtFloat(f.Yaw, 4)
		row[8] = fmtFloat(f.HorizontalSpeed(), 3)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row %d: %w", f.Index, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// ReadCSV parses a file written by WriteCSV. Frame indices follow row
// order.
func ReadCSV(r io.Reader) ([]sim.RecordingFrame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	for i, h := range csvHeader {
		if header[i] != h {
			return nil, fmt.Errorf("unexpected column %d %q, want %q", i, header[i], h)
		}
	}

	var frames []sim.RecordingFrame
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %w", len(frames), err)
		}
		var v [8]float64
		for i := range v {
			v[i], err = strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", len(frames), csvHeader[i+1], err)
			}
		}
		frames = append(frames, sim.RecordingFrame{
			Position: geom.Vec3{X: v[0], Y: v[1], Z: v[2]},
			Velocity: geom.Vec3{X: v[3], Y: v[4], Z: v[5]},
			Yaw:      v[6],
			Index:    len(frames),
		})
	}
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	return frames, nil
}
