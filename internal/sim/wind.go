package sim

import (
	"math"
	"math/rand"

	"drone-city-sim/internal/geom"
)

type WindParams struct {
	Disabled          bool    `mapstructure:"disabled"`
	MaxSpeed          float64 `mapstructure:"maxSpeed"`
	InitialSpeed      float64 `mapstructure:"initialSpeed"`
	DirectionDrift    float64 `mapstructure:"directionDrift"` // rad/s
	SpeedDrift        float64 `mapstructure:"speedDrift"`     // units/s per s
	MaxGust           float64 `mapstructure:"maxGust"`
	GustMinMs         float64 `mapstructure:"gustMinMs"`
	GustMaxMs         float64 `mapstructure:"gustMaxMs"`
	GustDecay         float64 `mapstructure:"gustDecay"` // per second
	GustVertical      float64 `mapstructure:"gustVertical"`
	ReferenceAltitude float64 `mapstructure:"referenceAltitude"`
	Damping           float64 `mapstructure:"damping"`
}

func DefaultWindParams() WindParams {
	return WindParams{
		MaxSpeed:          12,
		InitialSpeed:      3,
		DirectionDrift:    0.1,
		SpeedDrift:        0.5,
		MaxGust:           8,
		GustMinMs:         2000,
		GustMaxMs:         8000,
		GustDecay:         1.5,
		GustVertical:      0.3,
		ReferenceAltitude: 60,
		Damping:           0.1,
	}
}

// WindState is the mutable part of the wind model.
type WindState struct {
	BaseDirection float64 // radians, 0 blows toward +Z
	BaseSpeed     float64
	GustDirection float64
	GustStrength  float64
	GustVertical  float64
	GustTimerMs   float64
	NextGustMs    float64
}

// Wind produces a slowly drifting force with random gusts on top.
type Wind struct {
	State  WindState
	Params WindParams

	rng *rand.Rand
}

func NewWind(p WindParams, rng *rand.Rand) *Wind {
	w := &Wind{Params: p, rng: rng}
	w.State = WindState{
		BaseDirection: rng.Float64() * 2 * math.Pi,
		BaseSpeed:     geom.Clamp(p.InitialSpeed, 0, p.MaxSpeed),
	}
	w.State.NextGustMs = w.nextInterval()
	return w
}

func (w *Wind) nextInterval() float64 {
	return w.Params.GustMinMs + w.rng.Float64()*(w.Params.GustMaxMs-w.Params.GustMinMs)
}

// Update advances the wind by dt and returns the velocity delta to add to
// the drone this tick.
func (w *Wind) Update(dt, altitude float64) geom.Vec3 {
	if w.Params.Disabled || !(dt > 0) {
		return geom.Vec3{}
	}
	s := &w.State

	// Slow drift
	s.BaseDirection += (w.rng.Float64()*2 - 1) * w.Params.DirectionDrift * dt
	s.BaseDirection = math.Mod(s.BaseDirection, 2*math.Pi)
	s.BaseSpeed += (w.rng.Float64()*2 - 1) * w.Params.SpeedDrift * dt
	s.BaseSpeed = geom.Clamp(s.BaseSpeed, 0, w.Params.MaxSpeed)

	// Gusts
	s.GustTimerMs += dt * 1000
	if s.GustTimerMs > s.NextGustMs {
		s.GustDirection = w.rng.Float64() * 2 * math.Pi
		s.GustStrength = w.rng.Float64() * w.Params.MaxGust
		s.GustVertical = (w.rng.Float64()*2 - 1) * w.Params.GustVertical
		s.GustTimerMs = 0
		s.NextGustMs = w.nextInterval()
	} else {
		s.GustStrength *= geom.Decay(w.Params.GustDecay, dt)
	}

	return w.Vector().Mul(w.altitudeFactor(altitude) * w.Params.Damping * dt)
}

// Vector is the current base plus gust wind velocity, before attenuation.
func (w *Wind) Vector() geom.Vec3 {
	s := w.State
	base := geom.Vec3{
		X: math.Sin(s.BaseDirection) * s.BaseSpeed,
		Z: math.Cos(s.BaseDirection) * s.BaseSpeed,
	}
	gust := geom.Vec3{
		X: math.Sin(s.GustDirection) * s.GustStrength,
		Y: s.GustVertical * s.GustStrength,
		Z: math.Cos(s.GustDirection) * s.GustStrength,
	}
	return base.Add(gust)
}

// Speed is the base wind speed.
func (w *Wind) Speed() float64 { return w.State.BaseSpeed }

// altitudeFactor is 0 at the ground and 1 at or above the reference altitude.
func (w *Wind) altitudeFactor(y float64) float64 {
	if w.Params.ReferenceAltitude <= 0 {
		return 1
	}
	return geom.Clamp(y/w.Params.ReferenceAltitude, 0, 1)
}
