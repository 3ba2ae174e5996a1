// Package audio plays the rotor hum, pitched by the drone's propeller
// speed.
package audio

import (
	"errors"
	"math"
	"sync/atomic"

	"github.com/gopxl/beep"
)

const (
	sampleRate  = beep.SampleRate(48000)
	rotorBlades = 2
	rotorCycles = 128
	nominalRPM  = 4000.0
	maxRPM      = 8000.0
)

type Options struct {
	Enabled           bool    `mapstructure:"enabled"`
	Volume            float64 `mapstructure:"volume"`            // 0..1
	MaxPropellerSpeed float64 `mapstructure:"maxPropellerSpeed"` // maps to maxRPM
}

func DefaultOptions() Options {
	return Options{Enabled: false, Volume: 0.6, MaxPropellerSpeed: 60}
}

// Rotor is a looping beep.Streamer. SetPropellerSpeed may be called from
// the simulation goroutine while the speaker goroutine streams.
type Rotor struct {
	loop     []float64
	baseRPM  float64
	volume   float64
	maxSpeed float64

	speed atomic.Uint64 // float64 bits
	pos   float64
	gain  float64 // smoothed
}

func NewRotor(opts Options) (*Rotor, error) {
	loop, baseRPM, err := synthRotorLoop(int(sampleRate), rotorBlades, rotorCycles, nominalRPM)
	if err != nil {
		return nil, err
	}
	if opts.MaxPropellerSpeed <= 0 {
		return nil, errors.New("audio init: max propeller speed must be > 0")
	}
	return &Rotor{
		loop:     loop,
		baseRPM:  baseRPM,
		volume:   math.Max(0, math.Min(1, opts.Volume)),
		maxSpeed: opts.MaxPropellerSpeed,
	}, nil
}

// SetPropellerSpeed implements the simulator's rotor sink.
func (r *Rotor) SetPropellerSpeed(speed float64) {
	r.speed.Store(math.Float64bits(speed))
}

func (r *Rotor) propellerRPM() float64 {
	s := math.Float64frombits(r.speed.Load())
	norm := math.Max(0, math.Min(1, s/r.maxSpeed))
	return maxRPM * math.Sqrt(norm)
}

func rpmGain(rpm float64) float64 {
	if rpm <= 1 {
		return 0
	}
	return 0.08 + 0.6*math.Min(1, rpm/maxRPM)
}

func rpmRate(rpm, baseRPM float64) float64 {
	if rpm <= 1 || baseRPM <= 0 {
		return 0.01
	}
	return math.Max(0.4, math.Min(2.2, rpm/baseRPM))
}

func (r *Rotor) Stream(samples [][2]float64) (n int, ok bool) {
	rpm := r.propellerRPM()
	target := rpmGain(rpm) * r.volume
	rate := rpmRate(rpm, r.baseRPM)
	n = len(r.loop)
	for i := range samples {
		// one-pole smoothing avoids clicks when the speed jumps
		r.gain += (target - r.gain) * 0.001

		j := int(r.pos)
		frac := r.pos - float64(j)
		v := r.loop[j]*(1-frac) + r.loop[(j+1)%n]*frac
		v *= r.gain
		samples[i][0] = v
		samples[i][1] = v

		r.pos += rate
		for r.pos >= float64(n) {
			r.pos -= float64(n)
		}
	}
	return len(samples), true
}

func (r *Rotor) Err() error { return nil }

// synthRotorLoop builds a seamless loop of a blade-pass tone with two
// harmonics, normalised to 0.85 peak. It returns the loop and the rotor
// RPM the loop sounds like at playback rate 1.
func synthRotorLoop(rate, blades, cycles int, rpm float64) ([]float64, float64, error) {
	if rate <= 0 {
		return nil, 0, errors.New("audio init: sample rate must be > 0")
	}
	if blades <= 0 {
		return nil, 0, errors.New("audio init: blade count must be > 0")
	}
	if cycles <= 0 {
		return nil, 0, errors.New("audio init: cycles must be > 0")
	}
	if rpm <= 0 {
		return nil, 0, errors.New("audio init: nominal RPM must be > 0")
	}

	baseFreq := rpm / 60.0 * float64(blades)
	count := int(math.Round(float64(cycles) * float64(rate) / baseFreq))
	if count < 2 {
		return nil, 0, errors.New("audio init: sample count too small")
	}
	// snap the frequency so the loop holds a whole number of cycles
	baseFreq = float64(cycles) * float64(rate) / float64(count)
	baseRPM := baseFreq * 60.0 / float64(blades)

	loop := make([]float64, count)
	step := 2.0 * math.Pi * baseFreq / float64(rate)
	peak := 0.0
	for i := range loop {
		phase := float64(i) * step
		mod := 0.15 * math.Sin(phase*0.5)
		tone := math.Sin(phase) + 0.35*math.Sin(2*phase+0.1) + 0.2*math.Sin(3*phase+0.2)
		loop[i] = tone * (0.7 + mod)
		peak = math.Max(peak, math.Abs(loop[i]))
	}
	if peak <= 0 {
		return nil, 0, errors.New("audio init: sample amplitude is zero")
	}
	for i := range loop {
		loop[i] *= 0.85 / peak
	}
	return loop, baseRPM, nil
}

var _ beep.Streamer = (*Rotor)(nil)
