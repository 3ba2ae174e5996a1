package sim_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drone-city-sim/internal/geom"
	"drone-city-sim/internal/sim"
)

type fakeExporter struct {
	exports [][]sim.RecordingFrame
	err     error
}

func (f *fakeExporter) Export(frames []sim.RecordingFrame) error {
	f.exports = append(f.exports, frames)
	return f.err
}

func poseAt(i int) sim.Pose {
	return sim.Pose{Position: geom.Vec3{X: float64(i), Y: 10}, Velocity: geom.Vec3{Z: 1}, Yaw: 0.5}
}

func TestRecorderFrameCap(t *testing.T) {
	exp := &fakeExporter{}
	r := sim.NewRecorder(10, exp, zerolog.Nop())

	r.Start()
	for i := 0; i < 25; i++ {
		r.Append(poseAt(i))
	}

	assert.Equal(t, sim.RecorderIdle, r.State())
	assert.Equal(t, 10, r.Len())
	require.Len(t, exp.exports, 1)
	frames := exp.exports[0]
	require.Len(t, frames, 10)
	for i, f := range frames {
		assert.Equal(t, i, f.Index)
		assert.Equal(t, float64(i), f.Position.X)
		assert.Equal(t, 0.5, f.Yaw)
	}
}

func TestRecorderIdleIgnoresFrames(t *testing.T) {
	r := sim.NewRecorder(0, nil, zerolog.Nop())
	assert.Equal(t, sim.DefaultMaxFrames, r.MaxFrames)
	r.Append(poseAt(1))
	assert.Zero(t, r.Len())
	assert.Equal(t, "IDLE", r.State().String())
}

func TestRecorderToggleExportsCopy(t *testing.T) {
	exp := &fakeExporter{err: errors.New("disk full")}
	r := sim.NewRecorder(100, exp, zerolog.Nop())

	r.Toggle()
	assert.Equal(t, "REC", r.State().String())
	for i := 0; i < 3; i++ {
		r.Append(poseAt(i))
	}
	r.Toggle()

	// export failures are not fatal
	assert.Equal(t, sim.RecorderIdle, r.State())
	require.Len(t, exp.exports, 1)
	exp.exports[0][0].Position.X = 99
	assert.Equal(t, 0.0, r.Frames()[0].Position.X)

	// a new recording starts empty
	r.Toggle()
	assert.Zero(t, r.Len())
	r.Toggle()
	assert.Len(t, exp.exports, 1, "empty recordings are not exported")
}
