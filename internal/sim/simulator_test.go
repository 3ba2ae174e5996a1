package sim_test

import (
	"context"
	"image"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drone-city-sim/internal/detect"
	"drone-city-sim/internal/sim"
	"drone-city-sim/internal/world"
)

func newTestSimulator(t *testing.T, deps sim.Deps) *sim.Simulator {
	t.Helper()
	deps.Logger = zerolog.Nop()
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(1))
	}
	s, err := sim.NewSimulator(sim.DefaultConfig(), deps)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func press(s *sim.Simulator, keys ...sim.Key) {
	s.Tick(sim.NewHeldSet(keys...), dt)
	s.Tick(sim.NewHeldSet(), dt)
}

func TestTickPublishesHUD(t *testing.T) {
	hud := sim.NewHUDValues()
	s := newTestSimulator(t, sim.Deps{HUD: hud})
	s.Tick(sim.NewHeldSet(), dt)

	alt, ok := hud.Float(sim.HUDAltitude)
	require.True(t, ok)
	assert.InDelta(t, 50, alt, 1)
	battery, _ := hud.Float(sim.HUDBattery)
	assert.InDelta(t, 100, battery, 0.01)
	rec, _ := hud.String(sim.HUDRecorder)
	assert.Equal(t, "IDLE", rec)

	names := hud.Names()
	assert.Contains(t, names, sim.HUDHeading)
	assert.Contains(t, names, sim.HUDWindSpeed)
	assert.NotContains(t, names, sim.HUDDetectionStatus, "no detector attached")
	assert.EqualValues(t, 1, s.Ticks())
	assert.InDelta(t, dt, s.SimTime(), 1e-12)
}

func TestResetKeyReturnsToResetPose(t *testing.T) {
	hud := sim.NewHUDValues()
	s := newTestSimulator(t, sim.Deps{HUD: hud})
	for i := 0; i < 120; i++ {
		s.Tick(sim.NewHeldSet(sim.KeyW, sim.KeyQ), dt)
	}
	require.Greater(t, s.Drone().Position.HorizontalLength(), 10.0)

	s.Tick(sim.NewHeldSet(sim.KeyR), dt)

	reset := sim.DefaultFlightParams().ResetPosition
	assert.InDelta(t, reset.X, s.Drone().Position.X, 0.1)
	assert.InDelta(t, reset.Y, s.Drone().Position.Y, 0.1)
	assert.InDelta(t, reset.Z, s.Drone().Position.Z, 0.1)
	notice, _ := hud.String(sim.HUDNotice)
	assert.Equal(t, "RESET", notice)
}

func TestShiftResetRechargesBattery(t *testing.T) {
	hud := sim.NewHUDValues()
	s := newTestSimulator(t, sim.Deps{HUD: hud})
	for i := 0; i < 600; i++ {
		s.Tick(sim.NewHeldSet(sim.KeyW, sim.KeySpace), dt)
	}
	drained := s.Drone().Battery.Level
	require.Less(t, drained, 100.0)

	press(s, sim.KeyR)
	assert.InDelta(t, drained, s.Drone().Battery.Level, 0.01, "plain reset keeps the charge")

	s.Tick(sim.NewHeldSet(sim.KeyR, sim.KeyShift), dt)
	assert.InDelta(t, 100, s.Drone().Battery.Level, 0.01)
	reset := sim.DefaultFlightParams().ResetPosition
	assert.InDelta(t, reset.Y, s.Drone().Position.Y, 0.1)
	notice, _ := hud.String(sim.HUDNotice)
	assert.Equal(t, "RESET + RECHARGED", notice)
}

func TestRecordingToggleExports(t *testing.T) {
	exp := &fakeExporter{}
	s := newTestSimulator(t, sim.Deps{Exporter: exp})

	s.Tick(sim.NewHeldSet(sim.KeyV), dt)
	assert.Equal(t, sim.RecorderRecording, s.Recorder().State())
	for i := 0; i < 10; i++ {
		s.Tick(sim.NewHeldSet(), dt)
	}
	s.Tick(sim.NewHeldSet(sim.KeyV), dt)

	assert.Equal(t, sim.RecorderIdle, s.Recorder().State())
	require.Len(t, exp.exports, 1)
	assert.Len(t, exp.exports[0], 11)
}

func TestCloseFlushesRecording(t *testing.T) {
	exp := &fakeExporter{}
	s, err := sim.NewSimulator(sim.DefaultConfig(), sim.Deps{Exporter: exp, Logger: zerolog.Nop()})
	require.NoError(t, err)

	s.Push(sim.Action{Kind: sim.ActionToggleRecording})
	s.RunHeadless(sim.NewHeldSet(sim.KeyW), 30, 60, 0)
	s.Close()

	require.Len(t, exp.exports, 1)
	assert.Len(t, exp.exports[0], 30)
}

func TestPresentationToggles(t *testing.T) {
	w := world.Generate(world.DefaultLayout(), rand.New(rand.NewSource(3)))
	hud := sim.NewHUDValues()
	s := newTestSimulator(t, sim.Deps{World: w, HUD: hud})

	assert.False(t, s.DroneCamFullscreen())
	press(s, sim.KeyC)
	assert.True(t, s.DroneCamFullscreen())

	assert.False(t, s.Headlight())
	s.Tick(sim.NewHeldSet(sim.KeyL), dt)
	assert.True(t, s.Headlight())
	notice, _ := hud.String(sim.HUDNotice)
	assert.Equal(t, "HEADLIGHT ON", notice)
	s.Tick(sim.NewHeldSet(), dt)

	assert.True(t, s.HUDVisible())
	press(s, sim.KeyH)
	assert.False(t, s.HUDVisible())

	first := w.CurrentPreset().Name
	press(s, sim.KeyM)
	assert.NotEqual(t, first, w.CurrentPreset().Name)
	env, _ := hud.String(sim.HUDEnvironment)
	assert.Equal(t, w.CurrentPreset().Name, env)
}

type rotorSpy struct{ speed float64 }

func (r *rotorSpy) SetPropellerSpeed(v float64) { r.speed = v }

func TestRotorFollowsPropeller(t *testing.T) {
	spy := &rotorSpy{}
	s := newTestSimulator(t, sim.Deps{Rotor: spy})
	for i := 0; i < 60; i++ {
		s.Tick(sim.NewHeldSet(sim.KeyW), dt)
	}
	assert.Greater(t, spy.speed, 0.0)
	assert.Equal(t, s.Drone().PropellerSpeed, spy.speed)
}

type countingFrames struct {
	renders atomic.Int32
}

func (c *countingFrames) RenderFrame(view sim.CameraView) (*image.RGBA, error) {
	c.renders.Add(1)
	return image.NewRGBA(image.Rect(0, 0, view.Width, view.Height)), nil
}

func TestDetectionIsThrottledBySimTime(t *testing.T) {
	w := world.Generate(world.DefaultLayout(), rand.New(rand.NewSource(5)))
	adapter, err := detect.NewAdapter(
		detect.NewGroundTruthDetector(w, detect.DefaultGroundTruthParams()),
		detect.DefaultInterval, zerolog.Nop())
	require.NoError(t, err)
	adapter.Start(context.Background())
	<-adapter.Loaded()

	frames := &countingFrames{}
	hud := sim.NewHUDValues()
	s := newTestSimulator(t, sim.Deps{World: w, Detector: adapter, Frames: frames, HUD: hud})

	deadline := time.Now().Add(5 * time.Second)
	for adapter.LatestSeq() == 0 && time.Now().Before(deadline) {
		s.Tick(sim.NewHeldSet(), dt)
		time.Sleep(time.Millisecond)
	}
	require.NotZero(t, adapter.LatestSeq(), "no detection result applied")
	require.NotNil(t, s.LastFrame())

	// ten simulated seconds allow at most one frame per interval
	before := frames.renders.Load()
	for i := 0; i < 600; i++ {
		s.Tick(sim.NewHeldSet(), dt)
		time.Sleep(200 * time.Microsecond)
	}
	rendered := frames.renders.Load() - before
	assert.LessOrEqual(t, rendered, int32(101))
	assert.GreaterOrEqual(t, rendered, int32(1))

	status, _ := hud.String(sim.HUDDetectionStatus)
	assert.Equal(t, detect.StatusReady, status)
}

func TestRunHeadless(t *testing.T) {
	s := newTestSimulator(t, sim.Deps{})
	assert.Equal(t, 50, s.RunHeadless(sim.NewHeldSet(sim.KeyW), 50, 120, 0))
	assert.EqualValues(t, 50, s.Ticks())
	assert.InDelta(t, 50.0/120, s.SimTime(), 1e-6)

	assert.Zero(t, s.RunHeadless(nil, 0, 120, 0))

	n := s.RunHeadless(nil, 0, 120, 20*time.Millisecond)
	assert.Greater(t, n, 0)
}
