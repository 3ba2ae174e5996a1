package flightlog

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"drone-city-sim/internal/sim"
)

// Summary is the headline numbers of one flight.
type Summary struct {
	Frames      int     `json:"frames"`
	Duration    float64 `json:"duration_s"`
	Distance    float64 `json:"distance_m"`
	MaxAltitude float64 `json:"max_altitude_m"`
	MinAltitude float64 `json:"min_altitude_m"`
	MeanSpeed   float64 `json:"mean_speed"`
	MaxSpeed    float64 `json:"max_speed"`
	SpeedStdDev float64 `json:"speed_stddev"`
}

func Summarize(frames []sim.RecordingFrame, tickRate float64) (Summary, error) {
	if len(frames) == 0 {
		return Summary{}, ErrNoFrames
	}
	alt := make([]float64, len(frames))
	speed := make([]float64, len(frames))
	var dist float64
	for i, f := range frames {
		alt[i] = f.Position.Y
		speed[i] = f.HorizontalSpeed()
		if i > 0 {
			dist += f.Position.Sub(frames[i-1].Position).Length()
		}
	}
	mean, std := stat.MeanStdDev(speed, nil)
	if len(frames) == 1 {
		std = 0
	}
	return Summary{
		Frames:      len(frames),
		Duration:    frameTime(frames[len(frames)-1], tickRate) - frameTime(frames[0], tickRate),
		Distance:    dist,
		MaxAltitude: floats.Max(alt),
		MinAltitude: floats.Min(alt),
		MeanSpeed:   mean,
		MaxSpeed:    floats.Max(speed),
		SpeedStdDev: std,
	}, nil
}

func (s Summary) MarshalZerologObject(e *zerolog.Event) {
	e.Int("frames", s.Frames).
		Float64("duration_s", s.Duration).
		Float64("distance_m", s.Distance).
		Float64("max_alt", s.MaxAltitude).
		Float64("mean_speed", s.MeanSpeed).
		Float64("max_speed", s.MaxSpeed)
}
