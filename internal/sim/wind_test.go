package sim_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"drone-city-sim/internal/geom"
	"drone-city-sim/internal/sim"
)

func TestWindSpeedStaysInRange(t *testing.T) {
	p := sim.DefaultWindParams()
	w := sim.NewWind(p, rand.New(rand.NewSource(42)))

	gusts := 0
	for i := 0; i < 60*60*30; i++ { // half an hour at 60 Hz
		before := w.State.GustTimerMs
		w.Update(dt, 100)
		if w.State.GustTimerMs < before {
			gusts++
		}
		if s := w.Speed(); s < 0 || s > p.MaxSpeed {
			t.Fatalf("tick %d: wind speed %.4f outside [0, %.1f]", i, s, p.MaxSpeed)
		}
		if w.State.GustStrength < 0 || w.State.GustStrength > p.MaxGust {
			t.Fatalf("tick %d: gust strength %.4f", i, w.State.GustStrength)
		}
	}
	assert.Greater(t, gusts, 100)
}

func TestWindIsSeedDeterministic(t *testing.T) {
	a := sim.NewWind(sim.DefaultWindParams(), rand.New(rand.NewSource(9)))
	b := sim.NewWind(sim.DefaultWindParams(), rand.New(rand.NewSource(9)))
	for i := 0; i < 1000; i++ {
		assert.Equal(t, a.Update(dt, 50), b.Update(dt, 50))
	}
}

func TestWindFadesNearGround(t *testing.T) {
	w := sim.NewWind(sim.DefaultWindParams(), rand.New(rand.NewSource(1)))
	assert.Equal(t, geom.Vec3{}, w.Update(dt, 0))

	high := w.Update(dt, 200)
	assert.Greater(t, high.Length(), 0.0)
}

func TestDisabledWind(t *testing.T) {
	p := sim.DefaultWindParams()
	p.Disabled = true
	w := sim.NewWind(p, rand.New(rand.NewSource(1)))
	state := w.State
	for i := 0; i < 100; i++ {
		assert.Equal(t, geom.Vec3{}, w.Update(dt, 100))
	}
	assert.Equal(t, state, w.State)
}
