package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return t.TempDir()
}

func TestLoad_DefaultValues(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(dir)
	require.NoError(t, err)

	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("defaults changed by load (-want +got):\n%s", diff)
	}
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.Equal(t, 60.0, cfg.Sim.Flight.MaxSpeed)
	assert.Equal(t, 2.0, cfg.Sim.Flight.MinAltitude)
	assert.Equal(t, 12.0, cfg.Sim.Wind.MaxSpeed)
	assert.Equal(t, 100*time.Millisecond, cfg.Detection.Interval)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.False(t, cfg.Influx.Enabled)
	assert.False(t, cfg.Audio.Enabled)
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	dir := isolate(t)
	yml := `
log:
  level: debug
sim:
  wind:
    disabled: true
  spawn:
    y: 80
world:
  seed: 42
  layout: city.yaml
detection:
  groundTruth:
    classes: [person, car]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dronesim.yaml"), []byte(yml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Sim.Wind.Disabled)
	assert.Equal(t, 80.0, cfg.Sim.Spawn.Y)
	assert.Equal(t, int64(42), cfg.World.Seed)
	assert.Equal(t, "city.yaml", cfg.World.Layout)
	assert.Equal(t, []string{"person", "car"}, cfg.Detection.GroundTruth.Classes)
	// untouched keys keep defaults
	assert.Equal(t, 60.0, cfg.Sim.Flight.MaxSpeed)
	assert.Equal(t, 500.0, cfg.Detection.GroundTruth.MaxRange)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window:\n  width: 640\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DRONESIM_SIM_FLIGHT_MAXSPEED", "80")
	t.Setenv("DRONESIM_DETECTION_INTERVAL", "250ms")
	t.Setenv("DRONESIM_STORE_DRIVER", "postgres")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 80.0, cfg.Sim.Flight.MaxSpeed)
	assert.Equal(t, 250*time.Millisecond, cfg.Detection.Interval)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestLoad_BadFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dronesim.yaml"), []byte("log: [unterminated"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestStoreConfigConversion(t *testing.T) {
	s := StoreConfig{Enabled: true, Driver: "postgres", DSN: "host=db"}
	got := s.Flightlog()
	assert.Equal(t, "postgres", got.Driver)
	assert.Equal(t, "host=db", got.DSN)
}
