package sim_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drone-city-sim/internal/geom"
	"drone-city-sim/internal/sim"
)

const dt = 1.0 / 60

func randomIntent(rng *rand.Rand) sim.ControlIntent {
	return sim.ControlIntent{
		MoveForward:  rng.Intn(2) == 0,
		MoveBackward: rng.Intn(4) == 0,
		StrafeLeft:   rng.Intn(3) == 0,
		StrafeRight:  rng.Intn(3) == 0,
		YawLeft:      rng.Intn(5) == 0,
		YawRight:     rng.Intn(5) == 0,
		Ascend:       rng.Intn(3) == 0,
		Descend:      rng.Intn(3) == 0,
	}
}

// Random inputs with wind never push the drone out of its envelope.
func TestFlightEnvelope(t *testing.T) {
	p := sim.DefaultFlightParams()
	d := sim.NewDrone(p)
	rng := rand.New(rand.NewSource(7))
	wind := sim.NewWind(sim.DefaultWindParams(), rng)

	const eps = 1e-9
	prevBattery := d.Battery.Level
	for i := 0; i < 20000; i++ {
		intent := randomIntent(rng)
		if i%600 < 300 {
			// hold a direction long enough to reach top speed
			intent = sim.ControlIntent{MoveForward: true, Ascend: i%1200 < 600}
		}
		d.Step(intent, wind.Update(dt, d.Position.Y), dt)

		if d.Position.Y < p.MinAltitude {
			t.Fatalf("tick %d: below floor y=%.4f", i, d.Position.Y)
		}
		if d.Position.Y > p.MaxAltitude {
			t.Fatalf("tick %d: above ceiling y=%.4f", i, d.Position.Y)
		}
		if h := d.Velocity.HorizontalLength(); h > p.MaxSpeed+eps {
			t.Fatalf("tick %d: horizontal speed %.4f > %.1f", i, h, p.MaxSpeed)
		}
		if math.Abs(d.Velocity.Y) > p.MaxVerticalSpeed+eps {
			t.Fatalf("tick %d: vertical speed %.4f", i, d.Velocity.Y)
		}
		if d.Battery.Level > prevBattery || d.Battery.Level < 0 {
			t.Fatalf("tick %d: battery went from %.4f to %.4f", i, prevBattery, d.Battery.Level)
		}
		prevBattery = d.Battery.Level
		if !d.Position.IsFinite() || !d.Velocity.IsFinite() {
			t.Fatalf("tick %d: non-finite state pos=%v vel=%v", i, d.Position, d.Velocity)
		}
	}
}

func TestResetIsIdempotent(t *testing.T) {
	p := sim.DefaultFlightParams()
	d := sim.NewDrone(p)
	for i := 0; i < 300; i++ {
		d.Step(sim.ControlIntent{MoveForward: true, YawLeft: true, Ascend: true}, geom.Vec3{}, dt)
	}
	battery := d.Battery.Level

	d.Reset()
	once := d.Pose()
	d.Reset()
	twice := d.Pose()

	assert.Equal(t, once, twice)
	assert.Equal(t, sim.Pose{Position: p.ResetPosition}, once)
	assert.Equal(t, battery, d.Battery.Level, "reset keeps the battery")

	d.ResetSession()
	assert.Equal(t, 100.0, d.Battery.Level)
}

func TestFreeFallSettlesOnFloor(t *testing.T) {
	p := sim.DefaultFlightParams()
	p.ResetPosition = geom.Vec3{Y: 100}
	d := sim.NewDrone(p)

	settled := -1
	for i := 0; i < 60*120; i++ {
		d.Step(sim.ControlIntent{}, geom.Vec3{}, dt)
		if d.Position.Y == p.MinAltitude && d.Velocity.Y == 0 && settled < 0 {
			settled = i
		}
	}
	require.GreaterOrEqual(t, settled, 0, "never came to rest")
	assert.Equal(t, p.MinAltitude, d.Position.Y)
	assert.Equal(t, 0.0, d.Velocity.Y)
}

func TestCeilingStopsOnlyUpwardMotion(t *testing.T) {
	p := sim.DefaultFlightParams()
	p.ResetPosition = geom.Vec3{Y: p.MaxAltitude - 5}
	d := sim.NewDrone(p)

	reached := -1
	for i := 0; i < 600; i++ {
		d.Step(sim.ControlIntent{Ascend: true}, geom.Vec3{}, dt)
		if d.Position.Y > p.MaxAltitude {
			t.Fatalf("tick %d: altitude %.4f above ceiling", i, d.Position.Y)
		}
		if reached < 0 && d.Position.Y == p.MaxAltitude {
			reached = i
		}
		if reached >= 0 {
			if d.Position.Y != p.MaxAltitude {
				t.Fatalf("tick %d: left the ceiling while climbing, y=%.4f", i, d.Position.Y)
			}
			// Only this tick's thrust remains after the clamp.
			if d.Velocity.Y > p.VerticalAcceleration*dt+1e-9 {
				t.Fatalf("tick %d: upward velocity %.4f survived the ceiling", i, d.Velocity.Y)
			}
		}
	}
	require.GreaterOrEqual(t, reached, 0, "never reached the ceiling")

	d.Position.Y = p.MaxAltitude - 0.1
	d.Velocity.Y = 20
	d.Step(sim.ControlIntent{}, geom.Vec3{}, dt)
	assert.Equal(t, p.MaxAltitude, d.Position.Y)
	assert.Equal(t, 0.0, d.Velocity.Y)

	d.Velocity.Y = -10
	d.Step(sim.ControlIntent{}, geom.Vec3{}, dt)
	assert.Less(t, d.Velocity.Y, 0.0, "downward velocity is kept at the ceiling")
	assert.Less(t, d.Position.Y, p.MaxAltitude)
}

func TestStraightLineAcceleration(t *testing.T) {
	p := sim.DefaultFlightParams()
	p.ResetPosition = geom.Vec3{Y: p.MinAltitude}
	d := sim.NewDrone(p)

	prev := 0.0
	for i := 0; i < 60*20; i++ {
		d.Step(sim.ControlIntent{MoveForward: true}, geom.Vec3{}, dt)
		speed := d.Velocity.HorizontalLength()
		require.LessOrEqual(t, speed, p.MaxSpeed+1e-9)
		if i < 60 {
			assert.GreaterOrEqual(t, speed, prev, "still accelerating at tick %d", i)
		}
		prev = speed
	}
	assert.InDelta(t, p.MaxSpeed, prev, 0.05*p.MaxSpeed)
	// forward at yaw 0 is +Z
	assert.Greater(t, d.Position.Z, 100.0)
	assert.InDelta(t, 0, d.Position.X, 1e-9)
}

func TestYawRateDecaysGeometrically(t *testing.T) {
	p := sim.DefaultFlightParams()
	d := sim.NewDrone(p)

	d.Step(sim.ControlIntent{YawLeft: true}, geom.Vec3{}, dt)
	prev := d.YawRate
	require.Greater(t, prev, 0.0)

	ratio := geom.Decay(p.YawDampingRate, dt)
	for i := 0; i < 300; i++ {
		d.Step(sim.ControlIntent{}, geom.Vec3{}, dt)
		if d.YawRate <= 0 {
			t.Fatalf("tick %d: yaw rate reached or crossed zero: %v", i, d.YawRate)
		}
		assert.InDelta(t, prev*ratio, d.YawRate, 1e-12)
		prev = d.YawRate
	}
}

func TestStepIgnoresBadDt(t *testing.T) {
	d := sim.NewDrone(sim.DefaultFlightParams())
	before := d.Pose()
	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		d.Step(sim.ControlIntent{MoveForward: true}, geom.Vec3{}, bad)
	}
	assert.Equal(t, before, d.Pose())
}

func TestNonFiniteWindIsIgnored(t *testing.T) {
	d := sim.NewDrone(sim.DefaultFlightParams())
	d.Step(sim.ControlIntent{}, geom.Vec3{X: math.NaN()}, dt)
	assert.True(t, d.Position.IsFinite())
	assert.True(t, d.Velocity.IsFinite())
}

func TestTiltFollowsVelocity(t *testing.T) {
	p := sim.DefaultFlightParams()
	d := sim.NewDrone(p)
	for i := 0; i < 120; i++ {
		d.Step(sim.ControlIntent{MoveForward: true}, geom.Vec3{}, dt)
	}
	pose := d.Pose()
	assert.Greater(t, pose.Pitch, 0.0, "nose dips when flying forward")
	assert.LessOrEqual(t, math.Abs(pose.Pitch), p.MaxTilt)
	assert.InDelta(t, 0, pose.Roll, 1e-9)
	assert.Greater(t, pose.PropellerSpeed, p.PropellerIdle)
}

func TestBatteryFactorDegradesWhenLow(t *testing.T) {
	b := sim.NewBatteryState(sim.DefaultBatteryParams())
	assert.Equal(t, 1.0, b.Factor())

	b.Level = 10
	assert.InDelta(t, 0.35+0.65*0.5, b.Factor(), 1e-12)
	assert.True(t, b.Low())

	b.Level = 0
	assert.InDelta(t, 0.35, b.Factor(), 1e-12)

	b.Drain(1, true, 10)
	assert.Equal(t, 0.0, b.Level)
}
