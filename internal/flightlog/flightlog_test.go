package flightlog

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"drone-city-sim/internal/geom"
	"drone-city-sim/internal/sim"
)

// straightFlight climbs 2 m and moves 5 m horizontally per frame.
func straightFlight(n int) []sim.RecordingFrame {
	frames := make([]sim.RecordingFrame, n)
	for i := range frames {
		frames[i] = sim.RecordingFrame{
			Position: geom.Vec3{X: 3 * float64(i), Y: 10 + 2*float64(i), Z: 4 * float64(i)},
			Velocity: geom.Vec3{X: 3, Y: 2, Z: 4},
			Yaw:      0.6435,
			Index:    i,
		}
	}
	return frames
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, straightFlight(2), 60))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Time,X,Y,Z,VelX,VelY,VelZ,Rotation,Speed", lines[0])
	assert.Equal(t, "0.000,0.000,10.000,0.000,3.000,2.000,4.000,0.6435,5.000", lines[1])
	assert.Equal(t, "0.017,3.000,12.000,4.000,3.000,2.000,4.000,0.6435,5.000", lines[2])
}

func TestReadCSV(t *testing.T) {
	frames := straightFlight(5)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, frames, NominalTickRate))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(frames, got); diff != "" {
		t.Fatalf("frames differ (-want +got):\n%s", diff)
	}

	_, err = ReadCSV(strings.NewReader("A,B,C,D,E,F,G,H,I\n"))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader(strings.Join(csvHeader, ",") + "\n"))
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(straightFlight(3), 60)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Frames)
	assert.InDelta(t, 2.0/60, s.Duration, 1e-12)
	assert.InDelta(t, 2*math.Sqrt(29), s.Distance, 1e-9)
	assert.Equal(t, 14.0, s.MaxAltitude)
	assert.Equal(t, 10.0, s.MinAltitude)
	assert.InDelta(t, 5, s.MeanSpeed, 1e-12)
	assert.InDelta(t, 5, s.MaxSpeed, 1e-12)
	assert.InDelta(t, 0, s.SpeedStdDev, 1e-12)

	_, err = Summarize(nil, 60)
	assert.ErrorIs(t, err, ErrNoFrames)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := OpenStore(StoreConfig{Driver: "sqlite"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStoreRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	frames := straightFlight(50)

	sess, err := st.SaveSession(ctx, "test flight", frames, 60)
	require.NoError(t, err)
	assert.Equal(t, 50, sess.FrameCount)

	list, err := st.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sess.ID, list[0].ID)
	assert.Equal(t, "test flight", list[0].Name)

	sum, err := list[0].DecodeSummary()
	require.NoError(t, err)
	assert.Equal(t, 50, sum.Frames)

	loaded, got, err := st.LoadSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	if diff := cmp.Diff(frames, got); diff != "" {
		t.Fatalf("frames differ (-want +got):\n%s", diff)
	}

	require.NoError(t, st.DeleteSession(ctx, sess.ID))
	_, _, err = st.LoadSession(ctx, sess.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.ErrorIs(t, st.DeleteSession(ctx, sess.ID), gorm.ErrRecordNotFound)
}

func TestStoresAreIsolated(t *testing.T) {
	a := openTestStore(t)
	b := openTestStore(t)
	_, err := a.SaveSession(context.Background(), "a", straightFlight(3), 60)
	require.NoError(t, err)

	list, err := b.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := OpenStore(StoreConfig{Driver: "oracle"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestPlotProfile(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PlotProfile(&buf, straightFlight(120), 60))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	assert.ErrorIs(t, PlotProfile(&buf, nil, 60), ErrNoFrames)
}

func TestFramePoints(t *testing.T) {
	start := time.Unix(1700000000, 0)
	points := FramePoints("abc", start, straightFlight(61), 60)
	require.Len(t, points, 61)

	line := influxdb2_write.PointToLineProtocol(points[60], time.Nanosecond)
	assert.True(t, strings.HasPrefix(line, "drone_flight,session=abc "), line)
	assert.Contains(t, line, "speed=5")
	assert.Equal(t, start.Add(time.Second), points[60].Time())
}

func TestInfluxSinkDisabled(t *testing.T) {
	_, err := NewInfluxSink(InfluxConfig{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestExporter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "recordings")
	e := NewExporter(dir, 60, zerolog.Nop())
	e.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	e.Plot = true
	e.Store = openTestStore(t)

	assert.ErrorIs(t, e.Export(nil), ErrNoFrames)

	require.NoError(t, e.Export(straightFlight(10)))
	want := filepath.Join(dir, "flight_20240102_030405.csv")
	assert.Equal(t, want, e.LastPath())

	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Time,X,Y,Z,VelX,VelY,VelZ,Rotation,Speed\n"))
	assert.Equal(t, 11, strings.Count(string(data), "\n"))

	_, err = os.Stat(filepath.Join(dir, "flight_20240102_030405.png"))
	assert.NoError(t, err)

	list, err := e.Store.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "flight_20240102_030405.csv", list[0].Name)
}

func TestExporterFeedsRecorder(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, 60, zerolog.Nop())
	rec := sim.NewRecorder(5, e, zerolog.Nop())

	rec.Start()
	for i := 0; i < 10; i++ {
		rec.Append(sim.Pose{Position: geom.Vec3{Y: float64(i)}})
	}
	assert.Equal(t, sim.RecorderIdle, rec.State())
	assert.Equal(t, 5, rec.Len())
	assert.FileExists(t, e.LastPath())
}
