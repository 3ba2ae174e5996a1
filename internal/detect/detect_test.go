package detect_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drone-city-sim/internal/detect"
	"drone-city-sim/internal/geom"
	"drone-city-sim/internal/world"
)

type staticSource []world.DetectableObject

func (s staticSource) Objects() []world.DetectableObject { return s }

func testFrame(eye, target geom.Vec3) detect.Frame {
	proj := geom.PerspectiveMat4(60, 320.0/240.0, 0.1, 2000)
	view := geom.LookAtMat4(eye, target, geom.Vec3{Y: 1})
	return detect.Frame{ViewProj: proj.Mul(view), Eye: eye, Width: 320, Height: 240}
}

func TestGroundTruthDetector(t *testing.T) {
	src := staticSource{
		{Kind: world.KindPerson, Label: "person", Size: geom.Vec3{X: 0.5, Y: 1.9, Z: 0.5}},
		{Kind: world.KindTree, Label: "tree", Position: geom.Vec3{X: 3}, Size: geom.Vec3{X: 4, Y: 8, Z: 4}},
		{Kind: world.KindVehicle, Label: "car", Position: geom.Vec3{Z: -60}, Size: geom.Vec3{X: 2, Y: 2, Z: 4}},
		{Kind: world.KindVehicle, Label: "bus", Position: geom.Vec3{Z: 450}, Size: geom.Vec3{X: 3, Y: 3, Z: 11}},
	}
	g := detect.NewGroundTruthDetector(src, detect.DefaultGroundTruthParams())
	require.NoError(t, g.Load(context.Background()))

	f := testFrame(geom.Vec3{Y: 2, Z: -20}, geom.Vec3{Y: 1})
	dets, err := g.Detect(context.Background(), f)
	require.NoError(t, err)

	// the tree is not a class, the car is behind the camera and the bus is
	// too far to be confident
	require.Len(t, dets, 1)
	d := dets[0]
	assert.Equal(t, "person", d.Label)
	assert.InDelta(t, 0.98*(1-20.0/500), d.Confidence, 0.01)
	assert.InDelta(t, 160, d.Box.X+d.Box.W/2, 2)
	assert.Greater(t, d.Box.H, d.Box.W)
	assert.GreaterOrEqual(t, d.Box.X, 0.0)
	assert.LessOrEqual(t, d.Box.X+d.Box.W, 320.0)
}

func TestGroundTruthClipsToFrame(t *testing.T) {
	src := staticSource{
		{Kind: world.KindBuilding, Label: "bus", Position: geom.Vec3{X: 6}, Size: geom.Vec3{X: 10, Y: 4, Z: 10}},
	}
	g := detect.NewGroundTruthDetector(src, detect.DefaultGroundTruthParams())
	require.NoError(t, g.Load(context.Background()))

	dets, err := g.Detect(context.Background(), testFrame(geom.Vec3{Y: 2, Z: -10}, geom.Vec3{Y: 2}))
	require.NoError(t, err)
	require.Len(t, dets, 1)
	b := dets[0].Box
	assert.LessOrEqual(t, b.X+b.W, 320.0+1e-9)
	assert.GreaterOrEqual(t, b.Y, 0.0)
}

func TestGroundTruthLoadErrors(t *testing.T) {
	g := detect.NewGroundTruthDetector(nil, detect.DefaultGroundTruthParams())
	assert.Error(t, g.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g = detect.NewGroundTruthDetector(staticSource{}, detect.DefaultGroundTruthParams())
	assert.ErrorIs(t, g.Load(ctx), context.Canceled)
}

// scriptedDetector blocks each Detect until release is signalled.
type scriptedDetector struct {
	loadErr error
	release chan struct{}
	calls   atomic.Int32
	fail    atomic.Bool
}

func (s *scriptedDetector) Load(context.Context) error { return s.loadErr }

func (s *scriptedDetector) Detect(ctx context.Context, f detect.Frame) ([]detect.Detection, error) {
	s.calls.Add(1)
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if s.fail.Load() {
		return nil, errors.New("model crashed")
	}
	return []detect.Detection{{Label: "car", Confidence: 0.9}, {Label: "car", Confidence: 0.8}, {Label: "person", Confidence: 0.7}}, nil
}

func startAdapter(t *testing.T, det detect.Detector) *detect.Adapter {
	t.Helper()
	a, err := detect.NewAdapter(det, 100*time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	a.Start(context.Background())
	t.Cleanup(a.Close)
	select {
	case <-a.Loaded():
	case <-time.After(2 * time.Second):
		t.Fatal("detector did not finish loading")
	}
	return a
}

func pollUntil(t *testing.T, a *detect.Adapter) {
	t.Helper()
	require.Eventually(t, a.Poll, 2*time.Second, time.Millisecond)
}

func TestAdapterThrottlesAndApplies(t *testing.T) {
	det := &scriptedDetector{release: make(chan struct{}, 8)}
	a := startAdapter(t, det)
	assert.Equal(t, detect.StatusReady, a.Status())

	t0 := time.Unix(1000, 0)
	require.NoError(t, a.Submit(t0, detect.Frame{}))

	// in flight, and inside the interval
	assert.False(t, a.Due(t0.Add(200*time.Millisecond)))
	assert.ErrorIs(t, a.Submit(t0.Add(200*time.Millisecond), detect.Frame{}), detect.ErrBusy)
	assert.Empty(t, a.Latest())

	det.release <- struct{}{}
	pollUntil(t, a)
	assert.Len(t, a.Latest(), 3)
	assert.Equal(t, map[string]int{"car": 2, "person": 1}, a.Counts())
	assert.Equal(t, uint64(1), a.LatestSeq())

	// idle again, but the interval has not passed
	assert.False(t, a.Due(t0.Add(50*time.Millisecond)))
	assert.True(t, a.Due(t0.Add(100*time.Millisecond)))
	assert.Equal(t, int32(1), det.calls.Load())
}

func TestAdapterKeepsStaleResultOnError(t *testing.T) {
	det := &scriptedDetector{release: make(chan struct{}, 8)}
	a := startAdapter(t, det)

	t0 := time.Unix(1000, 0)
	require.NoError(t, a.Submit(t0, detect.Frame{}))
	det.release <- struct{}{}
	pollUntil(t, a)
	require.Len(t, a.Latest(), 3)

	det.fail.Store(true)
	require.NoError(t, a.Submit(t0.Add(time.Second), detect.Frame{}))
	det.release <- struct{}{}
	pollUntil(t, a)

	assert.Len(t, a.Latest(), 3)
	assert.Equal(t, uint64(1), a.LatestSeq())
	assert.Equal(t, detect.StatusReady, a.Status())
	assert.True(t, a.Due(t0.Add(2*time.Second)))
}

func TestAdapterLoadFailureDisables(t *testing.T) {
	det := &scriptedDetector{loadErr: errors.New("no weights"), release: make(chan struct{})}
	a := startAdapter(t, det)

	assert.Equal(t, "unavailable: no weights", a.Status())
	assert.False(t, a.Due(time.Unix(5000, 0)))
	assert.ErrorIs(t, a.Submit(time.Unix(5000, 0), detect.Frame{}), detect.ErrDisabled)
	assert.Zero(t, det.calls.Load())

	// no retry
	a.Start(context.Background())
	assert.Equal(t, "unavailable: no weights", a.Status())
}

func TestAdapterWithoutDetector(t *testing.T) {
	a, err := detect.NewAdapter(nil, 0, zerolog.Nop())
	require.NoError(t, err)
	a.Start(context.Background())
	assert.Equal(t, detect.StatusDisabled, a.Status())
	assert.ErrorIs(t, a.Submit(time.Now(), detect.Frame{}), detect.ErrDisabled)
	assert.False(t, a.Poll())
	a.Close()
}

func TestClassColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, detect.ClassColor("person"))
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, A: 0xff}, detect.ClassColor("traffic light"))
	assert.Equal(t, detect.DefaultColor, detect.ClassColor("helipad"))
}

func TestEnhance(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 128, G: 128, B: 128, A: 77})
	img.SetRGBA(1, 0, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	img.SetRGBA(2, 0, color.RGBA{A: 255})

	detect.Enhance(img, detect.DefaultBrightness, detect.DefaultContrast)

	assert.Equal(t, color.RGBA{R: 204, G: 204, B: 204, A: 77}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(1, 0))
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(2, 0))
}

func TestFlipVertical(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	for y := 0; y < 3; y++ {
		img.SetRGBA(0, y, color.RGBA{R: uint8(y), A: 255})
	}
	detect.FlipVertical(img)
	for y := 0; y < 3; y++ {
		assert.Equal(t, uint8(2-y), img.RGBAAt(0, y).R)
	}
}

func TestDrawBoxes(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	dets := []detect.Detection{{Label: "person", Confidence: 0.9, Box: detect.Box{X: 100, Y: 80, W: 40, H: 80}}}
	detect.DrawBoxes(img, dets, detect.InsetStyle)

	red := detect.ClassColor("person")
	assert.Equal(t, red, img.RGBAAt(120, 80), "top edge")
	assert.Equal(t, red, img.RGBAAt(100, 120), "left edge")
	assert.Equal(t, color.RGBA{}, img.RGBAAt(120, 120), "interior untouched")
	assert.Equal(t, red, img.RGBAAt(101, 70), "label bar")

	detect.DrawCaption(img, len(dets), time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
}
